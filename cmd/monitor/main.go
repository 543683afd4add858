package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/tuyamon/pkg/db"
	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/device/schema"
	"github.com/urmzd/tuyamon/pkg/monitor"
	"github.com/urmzd/tuyamon/pkg/mqttclient"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	configPath := flag.String("config", "monitor.yaml", "Path to the monitor configuration")
	dbPath := flag.String("db", "", "Path to database file (overrides the config file)")
	deviceName := flag.String("device", "", "Device name or ID to poll (overrides the config file)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := monitor.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}
	if *deviceName != "" {
		cfg.Device = *deviceName
	}
	if cfg.Device == "" {
		log.Fatal().Msg("No device selected; set device in the config or pass -device")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.OpenAndMigrate(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	profile, err := database.ActiveConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load profile")
	}

	validator := schema.NewValidator()
	raw, err := os.ReadFile(cfg.DevicesFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DevicesFile).Msg("Failed to read device catalog")
	}
	if err := validator.ValidateCatalog(raw); err != nil {
		log.Warn().Err(err).Str("path", cfg.DevicesFile).Msg("Device catalog does not match the expected schema")
	}
	catalog, err := device.ParseCatalog(raw)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse device catalog")
	}
	record, err := catalog.Get(cfg.Device)
	if err != nil {
		log.Fatal().Err(err).Msg("Device not in catalog")
	}

	client := mqttclient.New(cfg.MQTT, record.ID)
	if err := client.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MQTT broker")
	}
	defer client.Close()

	opts := cfg.Options(profile)
	if cfg.ValidatePayloads {
		opts.Validator = validator
	}

	m := monitor.New(record, client, monitor.StoreSink{Store: database.Statuses()}, opts)
	if err := m.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Monitor failed")
	}
}
