package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/nfrund/gymhub/internal/config"
)

// Retryer retries an operation with exponential backoff and jitter.
type Retryer struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
	jitter     bool
}

// NewRetryer returns a retryer with five retries starting at 100ms.
func NewRetryer() *Retryer {
	return &Retryer{
		maxRetries: 5,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   30 * time.Second,
		multiplier: 2.0,
		jitter:     true,
	}
}

// Retry runs fn until it succeeds, ctx ends or the retries run out.
func (r *Retryer) Retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == r.maxRetries {
			break
		}

		delay := r.delay(attempt)
		slog.DebugContext(ctx, "Retry attempt failed",
			"event", "db_retry", "attempt", attempt+1, "delay_ms", delay.Milliseconds(), "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("operation failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *Retryer) delay(attempt int) time.Duration {
	d := math.Min(float64(r.baseDelay)*math.Pow(r.multiplier, float64(attempt)), float64(r.maxDelay))
	if r.jitter {
		d += rand.Float64() * d * 0.25
	}
	return time.Duration(d)
}

// DBConnection is a managed database connection.
type DBConnection interface {
	DB() (*surrealdb.DB, error)
	WithConnection(ctx context.Context, fn func(*surrealdb.DB) error) error
	IsHealthy() bool
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration
}

var _ DBConnection = (*Connection)(nil)

// Connection owns a SurrealDB session and re-establishes it when operations
// fail with connection errors.
type Connection struct {
	cfg     config.Provider
	retryer *Retryer

	mu      sync.RWMutex
	conn    *surrealdb.DB
	healthy bool

	done      chan struct{}
	closeOnce sync.Once
}

// NewConnection creates an unconnected Connection. Call Connect before use.
func NewConnection(cfg config.Provider) *Connection {
	return &Connection{
		cfg:     cfg,
		retryer: NewRetryer(),
		done:    make(chan struct{}),
	}
}

// Connect establishes the session, retrying with backoff.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.RLock()
	connected := c.conn != nil
	c.mu.RUnlock()
	if connected {
		return nil
	}
	return c.retryer.Retry(ctx, func() error { return c.reconnect(ctx) })
}

// WithConnection runs fn with the live session. Connection failures trigger
// a reconnect and fn is retried; other errors are returned as is.
func (c *Connection) WithConnection(ctx context.Context, fn func(*surrealdb.DB) error) error {
	conn := c.current()
	if conn == nil {
		return NewDBError(ErrNotConnected, "with connection")
	}

	err := fn(conn)
	if err == nil || !isConnectionError(err) {
		return err
	}

	slog.WarnContext(ctx, "Database operation failed, reconnecting",
		"event", "db_reconnect", "error", err, "db_url", redactDBURL(c.cfg.GetDBURL()))
	return c.retryer.Retry(ctx, func() error {
		if rerr := c.reconnect(ctx); rerr != nil {
			return fmt.Errorf("reconnect: %w (original error: %v)", rerr, err)
		}
		return fn(c.current())
	})
}

// StartMonitoring checks the session every interval until ctx ends or the
// connection is closed.
func (c *Connection) StartMonitoring(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-ticker.C:
				c.healthCheck(ctx)
			}
		}
	}()
}

func (c *Connection) healthCheck(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, 5*time.Second)
	defer cancel()
	err := c.Ping(ctx)
	if err == nil {
		return
	}
	slog.WarnContext(ctx, "Database health check failed", "event", "db_health_check", "error", err)
	if err := c.retryer.Retry(ctx, func() error { return c.reconnect(ctx) }); err != nil {
		slog.ErrorContext(ctx, "Database reconnect failed", "event", "db_reconnect", "error", err)
	}
}

// Ping asks the server for its version and updates the health flag.
func (c *Connection) Ping(ctx context.Context) error {
	conn := c.current()
	if conn == nil {
		c.setHealthy(false)
		return NewDBError(ErrNotConnected, "ping")
	}
	if _, err := conn.Version(ctx); err != nil {
		c.setHealthy(false)
		return fmt.Errorf("ping %s: %w", redactDBURL(c.cfg.GetDBURL()), err)
	}
	c.setHealthy(true)
	return nil
}

// Close ends monitoring and the session.
func (c *Connection) Close(ctx context.Context) error {
	c.closeOnce.Do(func() { close(c.done) })

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(ctx)
	c.conn = nil
	c.healthy = false
	return err
}

// Shutdown closes the connection when the application container shuts down.
func (c *Connection) Shutdown(ctx context.Context) error {
	return c.Close(ctx)
}

// DB returns the session if it is healthy.
func (c *Connection) DB() (*surrealdb.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil || !c.healthy {
		return nil, NewDBError(ErrNotConnected, "database not connected or unhealthy")
	}
	return c.conn, nil
}

// IsHealthy reports the result of the last connect or ping.
func (c *Connection) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

func (c *Connection) GetDBQueryTimeout() time.Duration   { return c.cfg.GetDBQueryTimeout() }
func (c *Connection) GetDBExecuteTimeout() time.Duration { return c.cfg.GetDBExecuteTimeout() }

func (c *Connection) current() *surrealdb.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *Connection) setHealthy(v bool) {
	c.mu.Lock()
	c.healthy = v
	c.mu.Unlock()
}

func (c *Connection) reconnect(ctx context.Context) error {
	dbURL := c.cfg.GetDBURL()
	conn, err := surrealdb.FromEndpointURLString(ctx, dbURL)
	if err != nil {
		c.setHealthy(false)
		return fmt.Errorf("connect to %s: %w", redactDBURL(dbURL), err)
	}
	if _, err := conn.SignIn(ctx, &surrealdb.Auth{
		Username: c.cfg.GetDBUser(),
		Password: c.cfg.GetDBPass(),
	}); err != nil {
		conn.Close(ctx)
		c.setHealthy(false)
		return fmt.Errorf("sign in as %s: %w", c.cfg.GetDBUser(), err)
	}
	if err := conn.Use(ctx, c.cfg.GetDBNs(), c.cfg.GetDBDb()); err != nil {
		conn.Close(ctx)
		c.setHealthy(false)
		return fmt.Errorf("use %s/%s: %w", c.cfg.GetDBNs(), c.cfg.GetDBDb(), err)
	}

	c.mu.Lock()
	old := c.conn
	c.conn = conn
	c.healthy = true
	c.mu.Unlock()
	if old != nil {
		old.Close(ctx)
	}

	slog.DebugContext(ctx, "Database connection established",
		"event", "db_connect", "db_url", redactDBURL(dbURL), "namespace", c.cfg.GetDBNs(), "database", c.cfg.GetDBDb())
	return nil
}

// isConnectionError reports whether err looks like a lost connection rather
// than a query failure.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNotConnected) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unexpected eof") ||
		strings.Contains(msg, "use of closed network connection")
}

// redactDBURL hides the password in dbURL for logging.
func redactDBURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	return u.Redacted()
}
