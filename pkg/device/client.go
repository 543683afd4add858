package device

import (
	"context"

	"github.com/urmzd/tuyamon/pkg/dps"
)

// Client talks to one device through whatever transport reaches it
// (a local protocol bridge, a cloud API). Implementations own the
// connection; the monitor only sees status payloads.
type Client interface {
	// Status requests a full status report
	Status(ctx context.Context) (dps.Payload, error)

	// Heartbeat sends a keep-alive; a device may answer with a payload
	Heartbeat(ctx context.Context) (dps.Payload, error)

	// Receive waits for the next asynchronous update. It returns a nil
	// payload without error when nothing arrived before ctx expired.
	Receive(ctx context.Context) (dps.Payload, error)

	// IsConnected returns true if the client is connected
	IsConnected() bool

	// Close disconnects the client
	Close()
}
