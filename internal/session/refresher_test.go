package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRefresher(t *testing.T, handler http.HandlerFunc) (*Refresher, *Store, *httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	store := NewStore()
	r := NewRefresher(store, srv.Client(), srv.URL+"/auth/renew", 5*time.Second, zerolog.Nop())
	return r, store, srv, &calls
}

func renewOK(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"token": token, "expires_in": 3600})
	}
}

func TestRenewSuccess(t *testing.T) {
	r, store, _, calls := newTestRefresher(t, renewOK("renewed-token"))
	store.Set(&Credential{Token: "stale-token"})

	var persisted []string
	r.OnRenewed = func(c *Credential) { persisted = append(persisted, c.Token) }

	cred, err := r.Renew(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "renewed-token", cred.Token)
	assert.False(t, cred.ExpiresAt.IsZero(), "expires_in fallback should set an expiry")
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, "renewed-token", store.Get().Token)
	assert.Equal(t, []string{"renewed-token"}, persisted)
}

func TestRenewAttachesCurrentToken(t *testing.T) {
	var gotAuth string
	r, store, _, _ := newTestRefresher(t, func(w http.ResponseWriter, req *http.Request) {
		gotAuth = req.Header.Get("Authorization")
		renewOK("renewed-token")(w, req)
	})
	store.Set(&Credential{Token: "expired-but-intact"})

	_, err := r.Renew(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer expired-but-intact", gotAuth)
}

func TestRenewNoCredential(t *testing.T) {
	r, _, _, calls := newTestRefresher(t, renewOK("unused"))

	_, err := r.Renew(context.Background())
	require.ErrorIs(t, err, ErrNoCredential)
	assert.Equal(t, int64(0), calls.Load(), "renewal endpoint must not be called without a credential")
}

func TestRenewRejected(t *testing.T) {
	r, store, _, _ := newTestRefresher(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "session too old", http.StatusUnauthorized)
	})
	store.Set(&Credential{Token: "stale-token"})

	_, err := r.Renew(context.Background())

	var renewErr *RenewalError
	require.ErrorAs(t, err, &renewErr)
	assert.Equal(t, http.StatusUnauthorized, renewErr.StatusCode)
	assert.Contains(t, renewErr.Body, "session too old")

	// Teardown is the caller's job; the store keeps the stale credential.
	require.NotNil(t, store.Get())
	assert.Equal(t, "stale-token", store.Get().Token)
}

func TestRenewMalformedResponse(t *testing.T) {
	r, store, _, _ := newTestRefresher(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("not json"))
	})
	store.Set(&Credential{Token: "stale-token"})

	_, err := r.Renew(context.Background())
	require.Error(t, err)
	assert.Equal(t, "stale-token", store.Get().Token)
}

func TestRenewEmptyToken(t *testing.T) {
	r, store, _, _ := newTestRefresher(t, renewOK(""))
	store.Set(&Credential{Token: "stale-token"})

	_, err := r.Renew(context.Background())
	require.Error(t, err)
}

func TestRenewSingleFlight(t *testing.T) {
	release := make(chan struct{})
	r, store, _, calls := newTestRefresher(t, func(w http.ResponseWriter, req *http.Request) {
		<-release
		renewOK("renewed-token")(w, req)
	})
	store.Set(&Credential{Token: "stale-token"})

	const waiters = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([]*Credential, waiters)
	errs := make([]error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = r.Renew(context.Background())
		}(i)
	}

	close(start)
	// Let every goroutine reach the in-flight renewal before it completes.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent renewals must collapse into one call")
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "renewed-token", results[i].Token)
	}
}

func TestRenewSharedFailure(t *testing.T) {
	release := make(chan struct{})
	r, store, _, calls := newTestRefresher(t, func(w http.ResponseWriter, req *http.Request) {
		<-release
		http.Error(w, "nope", http.StatusForbidden)
	})
	store.Set(&Credential{Token: "stale-token"})

	const waiters = 4
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = r.Renew(context.Background())
		}(i)
	}

	close(start)
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for i := 0; i < waiters; i++ {
		var renewErr *RenewalError
		require.True(t, errors.As(errs[i], &renewErr), "waiter %d should see the shared failure", i)
		assert.Equal(t, http.StatusForbidden, renewErr.StatusCode)
	}
}

func TestRenewConsecutiveCallsAreIndependent(t *testing.T) {
	r, store, _, calls := newTestRefresher(t, renewOK("renewed-token"))
	store.Set(&Credential{Token: "stale-token"})

	_, err := r.Renew(context.Background())
	require.NoError(t, err)
	_, err = r.Renew(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), calls.Load(), "sequential renewals each make their own call")
}
