package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/homebus/internal/infrastructure/config"
)

const (
	pingTimeout = 5 * time.Second

	// connectAttempts bounds the pings Connect makes before giving up.
	connectAttempts = 3

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Client batches homebus telemetry into one InfluxDB v2 bucket.
//
// It satisfies coordinator.Telemetry. Every point carries a home tag so
// several installations can share a bucket.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Writes never block; failures surface through the OnError callback.
type Client struct {
	client influxdb2.Client
	writer api.WriteAPI

	mu      sync.RWMutex
	open    bool
	onError func(err error)
}

// Connect pings the server, retrying briefly, and opens the batched writer.
//
// Parameters:
//   - ctx: Bounds the connection attempts
//   - cfg: InfluxDB section of homebus.yaml
//   - homeID: Value of the home tag added to every point
//
// Returns:
//   - *Client: Ready for writes
//   - error: ErrDisabled, or ErrUnreachable wrapping the last ping failure
func Connect(ctx context.Context, cfg config.InfluxDBConfig, homeID string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(batchSize(cfg)).
		SetFlushInterval(flushIntervalMillis(cfg))
	if homeID != "" {
		opts.AddDefaultTag("home", homeID)
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectAttempts-1),
		ctx,
	)
	if err := backoff.Retry(func() error { return ping(ctx, client) }, policy); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	c := &Client{
		client: client,
		writer: client.WriteAPI(cfg.Org, cfg.Bucket),
		open:   true,
	}
	go c.forwardErrors(c.writer.Errors())
	return c, nil
}

func batchSize(cfg config.InfluxDBConfig) uint {
	if cfg.BatchSize <= 0 {
		return defaultBatchSize
	}
	return uint(cfg.BatchSize)
}

func flushIntervalMillis(cfg config.InfluxDBConfig) uint {
	interval := time.Duration(cfg.FlushInterval) * time.Second
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return uint(interval.Milliseconds()) //nolint:gosec // positive by construction
}

func ping(ctx context.Context, client influxdb2.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		return err
	}
	if !healthy {
		return fmt.Errorf("server reports unhealthy")
	}
	return nil
}

func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()
		if callback != nil {
			callback(err)
		}
	}
}

// SetOnError registers the callback that receives asynchronous write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	c.onError = callback
	c.mu.Unlock()
}

// IsOpen reports whether the client accepts writes.
func (c *Client) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsOpen() {
		return ErrClosed
	}
	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Flush blocks until buffered points are sent. No-op once closed.
func (c *Client) Flush() {
	if c.IsOpen() {
		c.writer.Flush()
	}
}

// Close flushes buffered points and releases the client. Safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.mu.Unlock()

	if !wasOpen {
		return nil
	}
	c.writer.Flush()
	c.client.Close()
	return nil
}
