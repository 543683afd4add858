package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/urmzd/tuyamon/pkg/db"
	"github.com/urmzd/tuyamon/pkg/dps"
)

// Sink receives every payload worth keeping.
type Sink interface {
	Save(ctx context.Context, device string, at time.Time, payload dps.Payload, report *dps.Report) error
}

// StoreSink appends payloads to the device_status table.
type StoreSink struct {
	Store db.StatusStore
}

func (s StoreSink) Save(ctx context.Context, device string, at time.Time, payload dps.Payload, report *dps.Report) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	var decoded []byte
	if report != nil {
		if decoded, err = json.Marshal(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	}
	return s.Store.Insert(ctx, &db.StatusRecord{
		DeviceName: device,
		Timestamp:  at,
		Status:     raw,
		Decoded:    decoded,
	})
}

// NullSink discards everything.
type NullSink struct{}

func (NullSink) Save(context.Context, string, time.Time, dps.Payload, *dps.Report) error {
	return nil
}
