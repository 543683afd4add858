// Command decode renders one status payload with a device's mapping.
//
//	decode -devices devices.json -device Automatico < status.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/dps"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	devicesPath := flag.String("devices", "devices.json", "Path to the device catalog")
	deviceName := flag.String("device", "", "Device name or ID whose mapping to use (empty decodes without a mapping)")
	input := flag.String("in", "-", "Payload file, - for stdin")
	tz := flag.String("tz", "", "IANA time zone for timestamps (default: local)")
	contractedAmps := flag.Float64("contracted-amps", 0, "Contracted current for load percentages (0 disables)")
	legacy := flag.Bool("legacy-tenths", false, "Divide keys 1 and 2 by 10 when the mapping is empty")
	asJSON := flag.Bool("json", false, "Print the decoded report as JSON instead of lines")
	flag.Parse()

	name := "unknown"
	var mapping dps.Schema
	if *deviceName != "" {
		catalog, err := device.LoadCatalog(*devicesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load device catalog")
		}
		record, err := catalog.Get(*deviceName)
		if err != nil {
			log.Fatal().Err(err).Msg("Device not in catalog")
		}
		name, mapping = record.Name, record.Mapping
	}

	raw, err := readInput(*input)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read payload")
	}
	payload, err := dps.ParsePayload(raw)
	if err != nil {
		log.Fatal().Err(err).Msg("Payload is not a JSON object")
	}
	if payload.HasError() {
		log.Warn().Interface("err", payload["Err"]).Interface("error", payload["Error"]).Msg("Payload carries an error marker")
	}

	decoder := dps.NewDecoder(mapping)
	decoder.Normalizer.LegacyTenths = *legacy
	report, err := decoder.Decode(payload)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to decode payload")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode report")
		}
		return
	}

	format := dps.Format{ContractedAmps: *contractedAmps}
	if *tz != "" {
		loc, err := time.LoadLocation(*tz)
		if err != nil {
			log.Fatal().Err(err).Str("tz", *tz).Msg("Unknown time zone")
		}
		format.Location = loc
	}
	for _, line := range format.Lines(report, name, time.Now()) {
		fmt.Println(line)
	}
	for _, p := range report.PhaseErrors() {
		log.Warn().Str("key", p.Key).Str("code", p.Code).Str("error", p.PhaseErr).Msg("Phase record not decoded")
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
