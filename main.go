package main

import (
	"log"

	"whaleradarr/api"
	"whaleradarr/app"
	"whaleradarr/config"
)

func main() {
	// Load config from .env file
	cfg := config.LoadFromEnv()

	// Create and start app
	application := app.New(cfg, func(a *app.App) app.APIServer {
		server := api.NewServer(
			a.Repo(),
			a.Pipeline(),
			a.Radar(),
			a.Staleness(),
			a.Edge(),
			a.WebhookManager(),
			a.Broker(),
			a.WSHub(),
		)
		server.SetEdgeDefaults(
			cfg.Analysis.EdgeThreshold,
			cfg.Analysis.EdgeForwardWeeks,
			cfg.Analysis.EdgeLookbackYears,
		)
		return server
	})
	if err := application.Start(); err != nil {
		log.Fatal(err)
	}
}
