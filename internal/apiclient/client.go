//go:build !js || !wasm

package apiclient

import (
	"net/http"
	"time"
)

// NewHTTPClient creates the HTTP client used for backend calls.
func NewHTTPClient() HTTPClient {
	return &http.Client{
		Timeout: 60 * time.Second,
	}
}
