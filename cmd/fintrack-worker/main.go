//go:build js && wasm

package main

import (
	"github.com/syumai/workers"

	"github.com/fintrack-uy/fintrack/internal/app"
	"github.com/fintrack-uy/fintrack/internal/credentials"
	"github.com/fintrack-uy/fintrack/internal/env"
	"github.com/fintrack-uy/fintrack/internal/logger"
)

func main() {
	log := logger.New()

	source, err := credentials.NewKVSource()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create KV session source")
	}
	log.Info().Msg("Using Cloudflare KV for the session credential")

	apiBase := env.GetDefault("FINTRACK_API_URL", "https://api.fintrack.uy")
	srv := app.NewServer(source, apiBase, log)

	workers.Serve(srv)
}
