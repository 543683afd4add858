// Package mqttclient implements device.Client against a Tuya-to-MQTT bridge.
//
// The bridge owns the local Tuya session. It publishes every status payload it
// receives from a device on <prefix>/<device id>/status and executes commands
// published on <prefix>/<device id>/command.
package mqttclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/dps"
)

// Command names understood by the bridge.
const (
	CommandStatus    = "status"
	CommandHeartbeat = "heartbeat"
)

// Config holds broker and bridge settings.
type Config struct {
	Broker         string        `yaml:"broker"`
	Port           int           `yaml:"port"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	TopicPrefix    string        `yaml:"topic_prefix"`
	QoS            byte          `yaml:"qos"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // Wait for a status answer
	RetryDelay     time.Duration `yaml:"retry_delay"`     // Between connection attempts
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 1883
	}
	if c.ClientID == "" {
		c.ClientID = "tuyamon"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "tuya"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 5 * time.Second
	}
	return c
}

// StatusTopic is where the bridge publishes payloads for a device.
func StatusTopic(prefix, deviceID string) string {
	return prefix + "/" + deviceID + "/status"
}

// CommandTopic is where the bridge listens for commands for a device.
func CommandTopic(prefix, deviceID string) string {
	return prefix + "/" + deviceID + "/command"
}

type command struct {
	Cmd string `json:"cmd"`
}

// Client is a device.Client bound to one device behind the bridge.
type Client struct {
	client  mqtt.Client
	cfg     Config
	device  string
	updates chan dps.Payload

	mu        sync.RWMutex
	connected bool
	requestMu sync.Mutex // One outstanding request at a time
}

var _ device.Client = (*Client)(nil)

// New creates a client for the device with the given ID. Call Connect before use.
func New(cfg Config, deviceID string) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:     cfg,
		device:  deviceID,
		updates: make(chan dps.Payload, 16),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID + "_" + deviceID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Subscriptions are restored here after every reconnect.
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		c.setConnected(true)
		topic := StatusTopic(cfg.TopicPrefix, deviceID)
		if token := client.Subscribe(topic, cfg.QoS, c.onMessage); token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to subscribe")
			return
		}
		log.Info().Str("topic", topic).Msg("Subscribed to device status")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		log.Warn().Err(err).Str("device", deviceID).Msg("MQTT connection lost")
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect connects to the broker, retrying until it succeeds or ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		token := c.client.Connect()
		if token.Wait() && token.Error() == nil {
			log.Info().Str("broker", c.cfg.Broker).Int("attempt", attempt).Msg("Connected to MQTT broker")
			return nil
		}
		log.Error().Err(token.Error()).Int("attempt", attempt).
			Dur("retry_in", c.cfg.RetryDelay).Msg("MQTT connection failed")

		select {
		case <-ctx.Done():
			return fmt.Errorf("connection cancelled: %w", ctx.Err())
		case <-time.After(c.cfg.RetryDelay):
		}
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// IsConnected returns true while the broker session is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// Status asks the bridge for a full status report and waits for the next
// payload. It returns device.ErrTimeout when none arrives within RequestTimeout.
func (c *Client) Status(ctx context.Context) (dps.Payload, error) {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	c.drain()
	if err := c.publish(ctx, CommandStatus); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	select {
	case p := <-c.updates:
		return p, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: no status from %s", device.ErrTimeout, c.device)
	}
}

// Heartbeat publishes a keep-alive. Any answer arrives through Receive.
func (c *Client) Heartbeat(ctx context.Context) (dps.Payload, error) {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()
	return nil, c.publish(ctx, CommandHeartbeat)
}

// Receive returns the next asynchronous payload, or nil when ctx expires first.
func (c *Client) Receive(ctx context.Context) (dps.Payload, error) {
	select {
	case p := <-c.updates:
		return p, nil
	case <-ctx.Done():
		return nil, nil
	}
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.setConnected(false)
	if c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

func (c *Client) publish(ctx context.Context, cmd string) error {
	if !c.IsConnected() {
		return device.ErrNotConnected
	}
	body, err := json.Marshal(command{Cmd: cmd})
	if err != nil {
		return err
	}

	topic := CommandTopic(c.cfg.TopicPrefix, c.device)
	token := c.client.Publish(topic, c.cfg.QoS, false, body)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish %s command: %w", cmd, err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	log.Debug().Str("topic", topic).Str("cmd", cmd).Msg("Command sent")
	return nil
}

// drain discards payloads queued before a request.
func (c *Client) drain() {
	for {
		select {
		case <-c.updates:
		default:
			return
		}
	}
}

func (c *Client) onMessage(_ mqtt.Client, msg mqtt.Message) {
	c.handle(msg.Topic(), msg.Payload())
}

// handle parses a bridge message and queues it. When the queue is full the
// oldest payload is dropped.
func (c *Client) handle(topic string, body []byte) {
	p, err := dps.ParsePayload(body)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Dropping unparseable payload")
		return
	}
	for {
		select {
		case c.updates <- p:
			return
		default:
		}
		select {
		case <-c.updates:
			log.Warn().Str("device", c.device).Msg("Update queue full, dropping oldest payload")
		default:
		}
	}
}
