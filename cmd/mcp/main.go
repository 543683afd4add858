package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/tuyamon/pkg/db"
	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/device/schema"
	"github.com/urmzd/tuyamon/pkg/dps"
	tuyamcp "github.com/urmzd/tuyamon/pkg/mcp"
)

func main() {
	// stdout is the MCP transport
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/tuyamon/tuyamon.db)")
	devicesPath := flag.String("devices", "devices.json", "Path to the device catalog")
	flag.Parse()

	ctx := context.Background()

	database, err := db.OpenAndMigrate(ctx, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()
	log.Info().Str("path", database.Path()).Msg("Database opened")

	cfg, err := database.ActiveConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	catalog, err := device.LoadCatalog(*devicesPath)
	if err != nil {
		log.Warn().Err(err).Msg("Device catalog unavailable, serving an empty catalog")
		catalog = device.NewCatalog(nil)
	}

	mcpServer := tuyamcp.NewServer(tuyamcp.Deps{
		Catalog:   catalog,
		Statuses:  database.Statuses(),
		DB:        database,
		Validator: schema.NewValidator(),
		Format:    dps.Format{Location: cfg.Location()},
	})

	log.Info().Int("devices", catalog.Len()).Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
