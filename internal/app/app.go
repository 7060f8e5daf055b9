// Package app wires a credentials source into the session layer, the
// authenticated executor, and the HTTP server.
package app

import (
	"github.com/rs/zerolog"

	"github.com/fintrack-uy/fintrack/internal/apiclient"
	"github.com/fintrack-uy/fintrack/internal/credentials"
	"github.com/fintrack-uy/fintrack/internal/server"
	"github.com/fintrack-uy/fintrack/internal/session"
)

const renewPath = "/auth/renew"

// NewServer builds the full stack on top of the given credentials source.
// A missing initial token is not fatal: the first backend 401 will surface it.
func NewServer(source credentials.Source, apiBase string, log zerolog.Logger) *server.Server {
	store := session.NewStore()
	if token, err := source.Token(); err != nil {
		log.Warn().Err(err).Msg("No initial session credential loaded")
	} else {
		store.Set(session.NewCredential(token))
	}

	httpClient := apiclient.NewHTTPClient()
	refresher := session.NewRefresher(store, httpClient, apiBase+renewPath, 0, log)
	if persister, ok := source.(credentials.Persister); ok {
		refresher.OnRenewed = func(cred *session.Credential) {
			if err := persister.Save(cred.Token); err != nil {
				log.Error().Err(err).Msg("Failed to persist renewed credential")
			}
		}
	}

	teardown := session.NewTeardown(store, log)
	exec := apiclient.NewExecutor(store, refresher, teardown, httpClient, log)

	return server.New(log, exec, store, refresher, teardown, apiBase)
}
