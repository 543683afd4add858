package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/tuyamon/pkg/api"
	"github.com/urmzd/tuyamon/pkg/db"
	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/device/schema"
	"github.com/urmzd/tuyamon/pkg/dps"

	_ "github.com/urmzd/tuyamon/docs"
)

// @title           tuyamon API
// @version         1.0
// @description     Decoded status of Tuya devices: catalog, saved history and payload decoding

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/tuyamon/tuyamon.db)")
	devicesPath := flag.String("devices", "devices.json", "Path to the device catalog")
	contractedAmps := flag.Float64("contracted-amps", 0, "Contracted current for load percentages (0 disables)")
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
	log.Info().
		Str("profile", cfg.Profile.Name).
		Str("timezone", cfg.Timezone()).
		Str("api_address", cfg.APIAddress()).
		Msg("Configuration loaded")

	validator := schema.NewValidator()
	catalog, err := loadCatalog(*devicesPath, validator)
	if err != nil {
		log.Warn().Err(err).Str("path", *devicesPath).Msg("Device catalog unavailable, serving an empty catalog")
		catalog = device.NewCatalog(nil)
	}

	router := api.NewRouter(api.Deps{
		Catalog:   catalog,
		Statuses:  database.Statuses(),
		DB:        database,
		Validator: validator,
		Format:    dps.Format{Location: cfg.Location(), ContractedAmps: *contractedAmps},
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down...")
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
		os.Exit(0)
	}()

	addr := cfg.APIAddress()
	log.Info().Str("address", addr).Int("devices", catalog.Len()).Msg("Starting API server")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func loadCatalog(path string, validator *schema.Validator) (*device.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateCatalog(raw); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Device catalog does not match the expected schema")
	}
	return device.ParseCatalog(raw)
}
