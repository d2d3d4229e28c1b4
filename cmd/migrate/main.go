package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	pg "payment-events/internal/infra/db/postgres"
)

func main() {
	_ = godotenv.Load()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	m, err := pg.NewMigrator(dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("init migrator")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn().AnErr("source", srcErr).AnErr("db", dbErr).Msg("close migrator")
		}
	}()

	switch command {
	case "up":
		err := m.Up()
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			logger.Info().Msg("schema already up to date")
		case err != nil:
			logger.Fatal().Err(err).Msg("migrate up")
		default:
			logger.Info().Msg("migrations applied")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			logger.Fatal().Err(err).Msg("roll back last migration")
		}
		logger.Info().Msg("last migration rolled back")

	case "goto":
		if len(os.Args) < 3 {
			logger.Fatal().Msg("goto needs a version number")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid version")
		}
		if err := m.Migrate(uint(version)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Uint64("version", version).Msg("migrate to version")
		}
		logger.Info().Uint64("version", version).Msg("schema at version")

	case "status":
		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			logger.Info().Msg("no migrations applied yet")
		case err != nil:
			logger.Fatal().Err(err).Msg("read schema version")
		default:
			logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("usage: migrate <command>")
	fmt.Println("commands:")
	fmt.Println("  up     apply all pending migrations")
	fmt.Println("  down   roll back the last migration")
	fmt.Println("  goto N migrate to version N")
	fmt.Println("  status print the current schema version")
}
