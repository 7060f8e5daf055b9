// Package apiclient sends authenticated requests to the finance backend,
// renewing the session credential and retrying once when a request comes back
// 401.
package apiclient

import (
	"bytes"
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fintrack-uy/fintrack/internal/session"
)

// HTTPClient is an interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Renewer produces a renewed credential, collapsing concurrent calls.
type Renewer interface {
	Renew(ctx context.Context) (*session.Credential, error)
}

// Invalidator ends the session when renewal definitively fails.
type Invalidator interface {
	Invalidate()
}

// Request describes one outbound backend call. The body is held as bytes so
// the request can be replayed after a renewal.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// retried caps the renewal+retry cycle at exactly one. It is only ever
	// set on a copy, never mutated on a caller's value.
	retried bool
}

// withRetry returns a copy of the request with its retry budget spent.
func (r Request) withRetry() Request {
	r.retried = true
	return r
}

// Executor attaches the current credential to outgoing requests and owns the
// 401 -> renew -> retry-once policy. Transport errors and non-401 statuses
// pass through untouched.
type Executor struct {
	store    *session.Store
	renewer  Renewer
	teardown Invalidator
	client   HTTPClient
	logger   zerolog.Logger
}

func NewExecutor(store *session.Store, renewer Renewer, teardown Invalidator, client HTTPClient, log zerolog.Logger) *Executor {
	return &Executor{
		store:    store,
		renewer:  renewer,
		teardown: teardown,
		client:   client,
		logger:   log,
	}
}

// Execute sends the request with the current credential attached. On a 401 it
// renews the credential once and replays the request; a second 401 is
// returned as-is. If renewal fails the session is torn down and the original
// 401 goes back to the caller so every pending request resolves the same way.
func (e *Executor) Execute(ctx context.Context, req Request) (*http.Response, error) {
	resp, err := e.send(ctx, req)
	if err != nil {
		// Transport failure: not an authorization problem, never renewed.
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || req.retried {
		return resp, nil
	}

	e.logger.Warn().
		Str("method", req.Method).
		Str("url", req.URL).
		Msg("Received 401, renewing session credential")

	if _, err := e.renewer.Renew(ctx); err != nil {
		e.logger.Error().Err(err).Msg("Credential renewal failed, ending session")
		e.teardown.Invalidate()
		// The original 401 is the caller's answer; its body is untouched.
		return resp, nil
	}

	resp.Body.Close()

	retryResp, err := e.send(ctx, req.withRetry())
	if err != nil {
		return nil, err
	}
	if retryResp.StatusCode == http.StatusUnauthorized {
		e.logger.Warn().
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("Still 401 after credential renewal, giving up")
	}
	return retryResp, nil
}

// send performs a single attempt, attaching the stored credential when one
// exists. A missing credential is not an error here: the request goes out
// bare and the server's 401 drives what happens next.
func (e *Executor) send(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}

	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	if cred := e.store.Get(); cred != nil {
		httpReq.Header.Set("Authorization", "Bearer "+cred.Token)
	}

	return e.client.Do(httpReq)
}
