package main

import (
	"github.com/rs/zerolog/log"

	"github.com/devfolio/github-aggregator/internal/api"
	"github.com/devfolio/github-aggregator/internal/config"
	"github.com/devfolio/github-aggregator/pkg/aggregate"
	"github.com/devfolio/github-aggregator/pkg/github"
	"github.com/devfolio/github-aggregator/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})

	client, err := github.NewClient(cfg.ClientConfig(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create GitHub client")
	}

	service := aggregate.NewService(client, logger)
	handler := api.NewHandler(service, logger)
	router := api.SetupRouter(handler, logger)

	addr := cfg.Host + ":" + cfg.Port
	logger.Info().
		Str("addr", addr).
		Str("github_base_url", cfg.GitHubBaseURL).
		Msg("Starting GitHub aggregation server")

	if err := router.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}
