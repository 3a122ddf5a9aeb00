package main

import (
	"errors"
	"flag"

	"github.com/golang-migrate/migrate/v4"

	"loyalty-points-backend/internal/common/config"
	"loyalty-points-backend/internal/common/logger"
	"loyalty-points-backend/migrations"
)

func main() {
	var (
		command string
		steps   int
	)
	flag.StringVar(&command, "cmd", "up", "Command to run: up, down, version")
	flag.IntVar(&steps, "steps", 0, "Number of migrations to roll back with down; 0 rolls back all")
	flag.Parse()

	logger.Init("loyalty-migrate", false, true)

	cfg, err := config.LoadPostgres()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	m, err := migrations.New(cfg.PostgresURL())
	if err != nil {
		logger.Fatal().Err(err).Msg("Migration init failed")
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Msg("Migration up failed")
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Msg("Migration down failed")
		}
	case "version":
	default:
		logger.Fatal().Str("cmd", command).Msg("Unknown command")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Fatal().Err(err).Msg("Failed to read version")
	}
	logger.Info().Str("cmd", command).Uint("version", version).Bool("dirty", dirty).Msg("Migration done")
}
