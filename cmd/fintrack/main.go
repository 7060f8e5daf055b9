package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fintrack-uy/fintrack/internal/app"
	"github.com/fintrack-uy/fintrack/internal/credentials"
	"github.com/fintrack-uy/fintrack/internal/env"
	"github.com/fintrack-uy/fintrack/internal/logger"
	"github.com/fintrack-uy/fintrack/internal/session"
)

func main() {
	// Best effort; a missing .env is the normal case.
	_ = godotenv.Load()

	useEnvToken := flag.Bool("use-env-token", false, "Read the session token from FINTRACK_TOKEN instead of the session file")
	sessionPath := flag.String("session-file", credentials.DefaultSessionPath(), "Path to the session.json written by login")
	apiBase := flag.String("api-url", env.GetDefault("FINTRACK_API_URL", "https://api.fintrack.uy"), "Base URL of the fintrack backend")
	flag.Parse()

	log := logger.New()

	var source credentials.Source
	if *useEnvToken {
		source = credentials.NewEnvSource()
		log.Info().Msg("Using FINTRACK_TOKEN for the session credential")
	} else {
		source = credentials.NewFileSource(*sessionPath)
		log.Info().Str("path", *sessionPath).Msg("Using session file for the session credential")
	}

	validateCredentialAtStartup(source, log)

	srv := app.NewServer(source, *apiBase, log)

	port := env.GetDefault("PORT", "8347")
	log.Info().Str("port", port).Str("api_url", *apiBase).Msg("Starting fintrack")
	log.Fatal().Err(http.ListenAndServe(":"+port, srv)).Msg("Server failed to start")
}

func validateCredentialAtStartup(source credentials.Source, log zerolog.Logger) {
	token, err := source.Token()
	if err != nil {
		log.Warn().Err(err).Msg("No session credential found, log in before using the API")
		return
	}

	cred := session.NewCredential(token)
	if cred.ExpiresAt.IsZero() {
		log.Warn().Msg("Session token carries no readable expiry, treating as expired until the backend says otherwise")
		return
	}

	minutes := int64(cred.TimeUntilExpiry(time.Now()).Minutes())
	if minutes <= 0 {
		log.Warn().Int64("minutes_expired", -minutes).Msg("Session token already expired, will renew on first request")
	} else {
		log.Info().Int64("minutes_until_expiry", minutes).Msg("Session token loaded")
	}
}
