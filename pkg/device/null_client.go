package device

import (
	"context"

	"github.com/urmzd/tuyamon/pkg/dps"
)

// NullClient is a no-op client used when no device transport is configured.
// It lets the API and decoder run without a bridge.
type NullClient struct{}

// NewNullClient creates a new NullClient.
func NewNullClient() *NullClient {
	return &NullClient{}
}

func (c *NullClient) Status(ctx context.Context) (dps.Payload, error) {
	return nil, ErrNotConnected
}

func (c *NullClient) Heartbeat(ctx context.Context) (dps.Payload, error) {
	return nil, ErrNotConnected
}

// Receive blocks until ctx is done; nothing ever arrives.
func (c *NullClient) Receive(ctx context.Context) (dps.Payload, error) {
	<-ctx.Done()
	return nil, nil
}

func (c *NullClient) IsConnected() bool {
	return false
}

func (c *NullClient) Close() {}
