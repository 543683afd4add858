// Package monitor polls one device through a device.Client, decodes every
// status payload, logs the rendered lines and persists the result.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/device/schema"
	"github.com/urmzd/tuyamon/pkg/dps"
)

// Options tune the polling loop and the decoder.
type Options struct {
	StatusInterval time.Duration // 0 disables periodic status requests
	Keepalive      time.Duration
	ErrorBackoff   time.Duration
	LegacyTenths   bool
	PhaseCodes     []string
	Format         dps.Format
	Validator      *schema.Validator // nil skips payload validation
}

// Monitor polls a single device.
type Monitor struct {
	record  *device.Record
	client  device.Client
	sink    Sink
	decoder *dps.Decoder
	opts    Options
	now     func() time.Time
}

// New creates a monitor for the catalog record reached through client.
func New(record *device.Record, client device.Client, sink Sink, opts Options) *Monitor {
	if opts.Keepalive <= 0 {
		opts.Keepalive = 12 * time.Second
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = 5 * time.Second
	}
	if sink == nil {
		sink = NullSink{}
	}

	decoder := record.Decoder()
	decoder.Normalizer.LegacyTenths = opts.LegacyTenths
	decoder.PhaseCodes = opts.PhaseCodes

	return &Monitor{
		record:  record,
		client:  client,
		sink:    sink,
		decoder: decoder,
		opts:    opts,
		now:     time.Now,
	}
}

// Run polls until ctx is cancelled. It requests a status immediately, then
// alternates between the status timer, the keep-alive timer and waiting for
// asynchronous updates. Client and payload errors back off and never end the loop.
func (m *Monitor) Run(ctx context.Context) error {
	logger := log.With().Str("device", m.record.Name).Logger()
	logger.Info().
		Str("address", m.record.Address()).
		Str("version", m.record.ProtocolVersion()).
		Dur("status_interval", m.opts.StatusInterval).
		Dur("keepalive", m.opts.Keepalive).
		Msg("Monitor starting")

	payload, err := m.client.Status(ctx)
	lastStatus := m.now()
	lastKeepalive := lastStatus
	m.afterPoll(ctx, payload, err)

	for ctx.Err() == nil {
		now := m.now()
		nextStatus := time.Time{}
		if m.opts.StatusInterval > 0 {
			nextStatus = lastStatus.Add(m.opts.StatusInterval)
		}
		nextKeepalive := lastKeepalive.Add(m.opts.Keepalive)

		switch {
		case !nextStatus.IsZero() && !now.Before(nextStatus):
			logger.Debug().Msg("Requesting status")
			payload, err = m.client.Status(ctx)
			lastStatus = m.now()
		case !now.Before(nextKeepalive):
			logger.Debug().Msg("Sending heartbeat")
			payload, err = m.client.Heartbeat(ctx)
			lastKeepalive = m.now()
		default:
			deadline := nextKeepalive
			if !nextStatus.IsZero() && nextStatus.Before(deadline) {
				deadline = nextStatus
			}
			rctx, cancel := context.WithDeadline(ctx, deadline)
			payload, err = m.client.Receive(rctx)
			cancel()
		}
		m.afterPoll(ctx, payload, err)
	}

	logger.Info().Msg("Monitor stopped")
	return nil
}

func (m *Monitor) afterPoll(ctx context.Context, payload dps.Payload, err error) {
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Str("device", m.record.Name).Dur("backoff", m.opts.ErrorBackoff).Msg("Device request failed")
		m.sleep(ctx, m.opts.ErrorBackoff)
		return
	}
	if payload == nil {
		return
	}
	if err := m.Handle(ctx, payload); errors.Is(err, dps.ErrNoDPS) {
		log.Debug().Str("device", m.record.Name).Msg("Payload without data points")
	} else if err != nil {
		log.Warn().Err(err).Str("device", m.record.Name).Msg("Status not saved")
	}
	if payload.HasError() {
		m.sleep(ctx, m.opts.ErrorBackoff)
	}
}

// ErrDeviceReported is returned by Handle for payloads carrying Err/Error markers.
var ErrDeviceReported = errors.New("device reported an error")

// Handle validates, decodes, logs and saves one payload. Payloads with error
// markers or without data points are logged and not saved.
func (m *Monitor) Handle(ctx context.Context, payload dps.Payload) error {
	now := m.now()

	if payload.HasError() {
		return fmt.Errorf("%w: %v %v", ErrDeviceReported, payload["Err"], payload["Error"])
	}
	if m.opts.Validator != nil {
		if err := m.opts.Validator.ValidatePayload(payload); err != nil {
			return fmt.Errorf("%w: %v", device.ErrValidation, err)
		}
	}

	report, err := m.decoder.Decode(payload)
	if err != nil {
		return err
	}

	for _, line := range m.opts.Format.Lines(report, m.record.Name, now) {
		log.Info().Str("device", m.record.Name).Msg(line)
	}
	for _, p := range report.PhaseErrors() {
		log.Warn().Str("device", m.record.Name).Str("key", p.Key).Str("code", p.Code).
			Str("error", p.PhaseErr).Msg("Phase record not decoded")
	}

	if err := m.sink.Save(ctx, m.record.Name, now, payload, report); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

func (m *Monitor) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
