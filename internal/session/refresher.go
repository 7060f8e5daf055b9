package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/fintrack-uy/fintrack/internal/logger"
)

// DefaultRenewTimeout bounds the renewal call independently of any one
// caller's context, so a cancelled request cannot kill a renewal that other
// requests are waiting on.
const DefaultRenewTimeout = 15 * time.Second

// ErrNoCredential means there is nothing to renew: the store is empty and the
// only way forward is a fresh login.
var ErrNoCredential = errors.New("session: no credential to renew")

// RenewalError is a definitive rejection from the renewal endpoint.
type RenewalError struct {
	StatusCode int
	Body       string
}

func (e *RenewalError) Error() string {
	return fmt.Sprintf("session: renewal rejected with status %d: %s", e.StatusCode, e.Body)
}

// HTTPClient is the subset of http.Client the refresher needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type renewResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in,omitempty"`
}

// Refresher renews the stored credential against the backend's renewal
// endpoint. Concurrent Renew calls are collapsed into a single network call;
// every caller receives the same outcome.
type Refresher struct {
	store   *Store
	client  HTTPClient
	url     string
	timeout time.Duration
	logger  zerolog.Logger
	group   singleflight.Group

	// OnRenewed, when set, is invoked with each successfully renewed
	// credential (used to persist the token across restarts).
	OnRenewed func(*Credential)
}

// NewRefresher creates a Refresher hitting renewURL. A zero timeout selects
// DefaultRenewTimeout.
func NewRefresher(store *Store, client HTTPClient, renewURL string, timeout time.Duration, log zerolog.Logger) *Refresher {
	if timeout <= 0 {
		timeout = DefaultRenewTimeout
	}
	return &Refresher{
		store:   store,
		client:  client,
		url:     renewURL,
		timeout: timeout,
		logger:  log,
	}
}

// Renew returns a freshly renewed credential, or the stored failure that the
// single in-flight renewal produced. Callers that arrive while a renewal is
// already running do not start a second one; they wait for its result.
//
// Renewal proceeds even if the stored credential looks valid locally: a
// caller asking to renew has observed a 401, and the server's rejection is
// authoritative over the locally decoded expiry.
func (r *Refresher) Renew(ctx context.Context) (*Credential, error) {
	v, err, shared := r.group.Do("renew", func() (interface{}, error) {
		return r.renew()
	})
	if err != nil {
		return nil, err
	}
	cred := v.(*Credential)
	if shared {
		r.logger.Debug().Msg("Joined in-flight credential renewal")
	}
	return cred, nil
}

func (r *Refresher) renew() (*Credential, error) {
	current := r.store.Get()
	if current == nil {
		return nil, ErrNoCredential
	}

	// The renewal call gets its own deadline, detached from the caller that
	// happened to trigger it.
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("session: failed to build renewal request: %w", err)
	}
	// The expired-but-intact token is the proof of the prior session.
	req.Header.Set("Authorization", "Bearer "+current.Token)
	req.Header.Set("Accept", "application/json")

	r.logger.Info().
		Str("token_preview", logger.TokenPreview(current.Token)).
		Msg("Renewing session credential")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session: renewal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		renewErr := &RenewalError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
		r.logger.Error().
			Int("status_code", resp.StatusCode).
			Msg("Renewal endpoint rejected the session")
		return nil, renewErr
	}

	var parsed renewResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("session: failed to decode renewal response: %w", err)
	}
	if parsed.Token == "" {
		return nil, fmt.Errorf("session: renewal response carried no token")
	}

	cred := NewCredential(parsed.Token)
	if cred.ExpiresAt.IsZero() && parsed.ExpiresIn > 0 {
		cred.ExpiresAt = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	}

	r.store.Set(cred)
	if r.OnRenewed != nil {
		r.OnRenewed(cred)
	}

	r.logger.Info().
		Time("expires_at", cred.ExpiresAt).
		Msg("Session credential renewed")

	return cred, nil
}
