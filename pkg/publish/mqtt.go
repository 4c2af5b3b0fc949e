// Package publish sends frontend status snapshots to an MQTT broker.
package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// ErrNotConnected is returned when publishing before Connect succeeded or
// while the connection is down
var ErrNotConnected = errors.New("mqtt not connected")

// Client is the subset of mqtt.Client the emitter uses
type Client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

// Config holds broker settings
type Config struct {
	Broker         string        `yaml:"broker"`    // host:port
	ClientID       string        `yaml:"client_id"` // random "godtv-xxxxxxxx" when empty
	Prefix         string        `yaml:"prefix"`    // topic prefix, e.g. "dtv"
	QoS            byte          `yaml:"qos"`
	Retain         bool          `yaml:"retain"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// DefaultConfig returns a Config for a local broker
func DefaultConfig() Config {
	return Config{
		Broker:         "localhost:1883",
		Prefix:         "dtv",
		ConnectTimeout: 5 * time.Second,
		PublishTimeout: 2 * time.Second,
	}
}

// Topic returns the status topic for a device serial
func (c Config) Topic(serial string) string {
	return fmt.Sprintf("%s/%s/status", c.Prefix, serial)
}

// Emitter publishes status snapshots to an MQTT broker
type Emitter struct {
	cfg    Config
	log    logr.Logger
	client Client

	mu        sync.RWMutex
	published map[string]uint64 // count per topic
	errors    uint64
	connected bool
}

// Option configures an Emitter
type Option func(*Emitter)

// WithLogger sets the emitter logger
func WithLogger(log logr.Logger) Option {
	return func(e *Emitter) { e.log = log }
}

// WithClient uses an existing client instead of dialing cfg.Broker
func WithClient(c Client) Option {
	return func(e *Emitter) { e.client = c }
}

// NewEmitter creates a new MQTT emitter
func NewEmitter(cfg Config, opts ...Option) *Emitter {
	e := &Emitter{
		cfg:       cfg,
		log:       logr.Discard(),
		published: make(map[string]uint64),
	}
	for _, o := range opts {
		o(e)
	}
	if e.cfg.ClientID == "" {
		e.cfg.ClientID = "godtv-" + uuid.NewString()[:8]
	}
	def := DefaultConfig()
	if e.cfg.ConnectTimeout <= 0 {
		e.cfg.ConnectTimeout = def.ConnectTimeout
	}
	if e.cfg.PublishTimeout <= 0 {
		e.cfg.PublishTimeout = def.PublishTimeout
	}
	e.log = e.log.WithValues("broker", cfg.Broker)
	return e
}

func (e *Emitter) newClient() Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		e.setConnected(true)
		e.log.Info("mqtt connection established", "client_id", e.cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		e.setConnected(false)
		e.log.Info("mqtt connection lost, will auto-reconnect", "error", err.Error())
	}
	return mqtt.NewClient(opts)
}

// wait blocks until the token completes, the timeout passes or ctx ends
func wait(ctx context.Context, t mqtt.Token, timeout time.Duration, what string) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-t.Done():
		return t.Error()
	case <-timer.C:
		return fmt.Errorf("%s timeout", what)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect establishes the connection to the broker
func (e *Emitter) Connect(ctx context.Context) error {
	if e.client == nil {
		e.client = e.newClient()
	}

	e.log.Info("connecting to mqtt broker")
	if err := wait(ctx, e.client.Connect(), e.cfg.ConnectTimeout, "mqtt connection"); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	e.setConnected(true)
	return nil
}

// Publish sends one snapshot to <prefix>/<serial>/status
func (e *Emitter) Publish(ctx context.Context, snap Snapshot) error {
	if !e.isConnected() {
		e.countError()
		return ErrNotConnected
	}

	topic := e.cfg.Topic(snap.Serial)
	payload, err := snap.Encode()
	if err != nil {
		e.countError()
		return fmt.Errorf("failed to encode status: %w", err)
	}

	token := e.client.Publish(topic, e.cfg.QoS, e.cfg.Retain, payload)
	if err := wait(ctx, token, e.cfg.PublishTimeout, "publish"); err != nil {
		e.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	e.log.V(1).Info("status published", "topic", topic, "size", len(payload))
	return nil
}

// Disconnect closes the connection
func (e *Emitter) Disconnect() {
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
		e.log.Info("mqtt disconnected")
	}
	e.setConnected(false)
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool
	Published map[string]uint64
	Errors    uint64
}

// Stats returns emitter statistics
func (e *Emitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}
	return Stats{Connected: e.connected, Published: published, Errors: e.errors}
}

func (e *Emitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *Emitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *Emitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
