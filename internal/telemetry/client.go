// Package telemetry forwards assessment lifecycle events to PostHog.
package telemetry

import (
	"io"
	"sync"
	"time"

	"github.com/posthog/posthog-go"
)

// Client is the interface for telemetry clients.
type Client interface {
	// Track enqueues an event and returns immediately.
	Track(distinctID, event string, properties map[string]any)
	// Close flushes pending events.
	Close() error
}

// enqueuer is the subset of the PostHog client we use, mockable in tests.
type enqueuer interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// PostHogClient wraps the PostHog SDK for async event delivery.
type PostHogClient struct {
	client  enqueuer
	service string
	version string
	mu      sync.RWMutex
	closed  bool
}

// Config holds the settings for the PostHog client.
type Config struct {
	// APIKey is the PostHog project key. Empty disables telemetry.
	APIKey string
	// Endpoint points at a self-hosted PostHog. Empty uses PostHog cloud.
	Endpoint string
	// Version is stamped on every event.
	Version string
}

// New returns a PostHog-backed client, or a no-op client when no key is set.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return NewNoopClient(), nil
	}
	phConfig := posthog.Config{
		BatchSize: 20,
		Interval:  5 * time.Second,
		// Delivery failures must not show up in the service logs as warnings.
		Logger: quietPostHogLogger{},
	}
	if cfg.Endpoint != "" {
		phConfig.Endpoint = cfg.Endpoint
	}
	client, err := posthog.NewWithConfig(cfg.APIKey, phConfig)
	if err != nil {
		return nil, err
	}
	return newPostHogClientWithEnqueuer(client, cfg.Version), nil
}

func newPostHogClientWithEnqueuer(enq enqueuer, version string) *PostHogClient {
	return &PostHogClient{client: enq, service: "assessor", version: version}
}

// Track enqueues one capture. Events without a distinct id are attributed to the service.
func (c *PostHogClient) Track(distinctID, event string, properties map[string]any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	if distinctID == "" {
		distinctID = c.service
	}
	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}
	props.Set("service", c.service)
	props.Set("version", c.version)
	// Participants are not PostHog persons.
	props.Set("$process_person_profile", false)

	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: props,
	})
}

// Close flushes the PostHog queue. Further Track calls are dropped.
func (c *PostHogClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

// NoopClient is a telemetry client that does nothing.
type NoopClient struct{}

func (NoopClient) Track(string, string, map[string]any) {}
func (NoopClient) Close() error                         { return nil }

func NewNoopClient() NoopClient { return NoopClient{} }

type quietPostHogLogger struct{}

func (quietPostHogLogger) Debugf(string, ...interface{}) {}
func (quietPostHogLogger) Logf(string, ...interface{})   {}
func (quietPostHogLogger) Warnf(string, ...interface{})  {}
func (quietPostHogLogger) Errorf(string, ...interface{}) {}
