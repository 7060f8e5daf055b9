//go:build js && wasm

package apiclient

import "net/http"

// NewHTTPClient returns the default client; in the Workers runtime net/http
// round-trips through the Fetch API, which carries its own deadline handling.
func NewHTTPClient() HTTPClient {
	return http.DefaultClient
}
