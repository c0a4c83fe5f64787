// Package database owns the PostgreSQL connection pool and its health state.
// The Manager self-heals after connectivity loss with a bounded, fixed-delay
// retry loop; query-level failures are surfaced to callers and never retried.
package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"tundra/internal/config"
	"tundra/internal/constants"
	"tundra/internal/logger"
	"tundra/pkg/metrics"
)

var (
	// ErrNotConnected is returned by pool operations while the manager is
	// degraded. Callers fail fast; there is no queuing until healthy.
	ErrNotConnected = errors.New("database is not connected, waiting for reconnection")

	// ErrClosed is returned after Close; a closed manager never reconnects.
	ErrClosed = errors.New("database manager is closed")
)

// Status is the read-only health snapshot exposed to health endpoints.
type Status struct {
	Connected            bool `json:"connected"`
	ReconnectAttempts    int  `json:"reconnect_attempts"`
	MaxReconnectAttempts int  `json:"max_reconnect_attempts"`
}

// Manager wraps a *sql.DB pool with reconnection bookkeeping. All health and
// counter state is guarded by a single mutex; the reconnect timer is armed at
// most once at a time.
type Manager struct {
	cfg config.PostgresConfig
	log logger.Logger

	// openPool is swapped out by tests to inject failing pools.
	openPool func() (*sql.DB, error)

	mu                sync.Mutex
	db                *sql.DB
	connected         bool
	reconnectAttempts int
	reconnectTimer    *time.Timer
	closed            bool
}

func NewManager(cfg config.PostgresConfig, log logger.Logger) *Manager {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = constants.DefaultMaxConnections
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = constants.DefaultIdleTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = constants.DefaultConnectTimeout
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = constants.MaxReconnectAttempts
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = constants.ReconnectInterval
	}

	m := &Manager{
		cfg: cfg,
		log: log,
	}
	m.openPool = m.openPostgresPool
	return m
}

func (m *Manager) openPostgresPool() (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		m.cfg.User,
		m.cfg.Password,
		m.cfg.Host,
		m.cfg.Port,
		m.cfg.DBName,
		m.cfg.SSLMode,
		int(m.cfg.ConnectTimeout.Seconds()),
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database pool: %w", err)
	}

	db.SetMaxOpenConns(m.cfg.MaxConnections)
	db.SetMaxIdleConns(m.cfg.MaxConnections)
	db.SetConnMaxIdleTime(m.cfg.IdleTimeout)

	return db, nil
}

// Open constructs the pool and runs the initial connectivity probe. It is
// safe to call before any connectivity exists; the caller decides whether to
// retry (see app startup gating).
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	old := m.db
	m.db = nil
	m.connected = false
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}

	m.log.Infof("Initializing database connection to %s:%d/%s", m.cfg.Host, m.cfg.Port, m.cfg.DBName)

	db, err := m.openPool()
	if err != nil {
		return err
	}

	if err := probe(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("connection test failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		db.Close()
		return ErrClosed
	}
	m.db = db
	m.markConnectedLocked()

	m.log.Infof("Database connected to %s:%d/%s", m.cfg.Host, m.cfg.Port, m.cfg.DBName)
	return nil
}

// markConnectedLocked is the Connected transition: reset the retry counter
// and disarm any pending timer. Caller holds m.mu.
func (m *Manager) markConnectedLocked() {
	m.connected = true
	m.reconnectAttempts = 0
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

func probe(ctx context.Context, db *sql.DB) error {
	var one int
	return db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// handle returns the live pool or fails fast when degraded or closed.
func (m *Manager) handle() (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if !m.connected || m.db == nil {
		return nil, ErrNotConnected
	}
	return m.db, nil
}

// Query executes a statement against the pool. Execution errors propagate to
// the caller after being logged; only connection-class errors feed the
// reconnect machinery.
func (m *Manager) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	db, err := m.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		m.log.ErrorwCtx(ctx, "Query execution error", "error", err)
		m.observeError(err)
		return nil, err
	}
	return rows, nil
}

// QueryRow mirrors Query for single-row statements. The error return covers
// the fail-fast path; scan errors surface through the returned row.
func (m *Manager) QueryRow(ctx context.Context, query string, args ...interface{}) (*sql.Row, error) {
	db, err := m.handle()
	if err != nil {
		return nil, err
	}
	return db.QueryRowContext(ctx, query, args...), nil
}

func (m *Manager) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	db, err := m.handle()
	if err != nil {
		return nil, err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		m.log.ErrorwCtx(ctx, "Query execution error", "error", err)
		m.observeError(err)
		return nil, err
	}
	return res, nil
}

// observeError routes connection-class failures into the Degraded transition.
// Ordinary query errors (constraint violations, bad SQL) are the caller's
// problem and never touch the reconnect state machine.
func (m *Manager) observeError(err error) {
	if isConnectionError(err) {
		m.handleConnectionError(err)
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		class := string(pqErr.Code.Class())
		// 08: connection exception, 57P: operator intervention (shutdown),
		// XX: internal error.
		return class == "08" || class == "57P" || class == "XX"
	}

	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset")
}

// handleConnectionError is the Degraded transition: mark unhealthy, capture
// diagnostics, arm a reconnect.
func (m *Manager) handleConnectionError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.connected = false

	fields := []interface{}{"error", err}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		fields = append(fields, "code", string(pqErr.Code), "severity", pqErr.Severity)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		fields = append(fields, "op", opErr.Op, "address", fmt.Sprint(opErr.Addr))
	}
	m.log.Errorw("Database connection error", fields...)

	m.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms at most one retry timer. Once the ceiling is
// reached the manager stays unhealthy until Open is called again. Caller
// holds m.mu.
func (m *Manager) scheduleReconnectLocked() {
	if m.reconnectTimer != nil {
		return // a retry is already in flight
	}

	if m.reconnectAttempts >= m.cfg.MaxReconnectAttempts {
		m.log.Errorf("Maximum reconnection attempts (%d) reached, manual intervention required", m.cfg.MaxReconnectAttempts)
		return
	}

	m.reconnectAttempts++
	metrics.DatabaseReconnectsTotal.Inc()
	m.log.Infof("Scheduling database reconnection attempt %d/%d in %s",
		m.reconnectAttempts, m.cfg.MaxReconnectAttempts, m.cfg.ReconnectInterval)

	m.reconnectTimer = time.AfterFunc(m.cfg.ReconnectInterval, m.reconnect)
}

// reconnect tears down the old pool, rebuilds it and probes. Success re-enters
// Connected; failure re-arms another bounded retry. Runs on the timer
// goroutine; the closed check makes cancellation races harmless.
func (m *Manager) reconnect() {
	m.mu.Lock()
	if m.closed {
		m.reconnectTimer = nil
		m.mu.Unlock()
		return
	}
	m.reconnectTimer = nil
	attempt := m.reconnectAttempts
	old := m.db
	m.db = nil
	m.mu.Unlock()

	m.log.Infof("Attempting database reconnection (%d/%d)", attempt, m.cfg.MaxReconnectAttempts)

	if old != nil {
		old.Close()
	}

	db, err := m.openPool()
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ConnectTimeout)
		err = probe(ctx, db)
		cancel()
		if err != nil {
			db.Close()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		if err == nil {
			db.Close()
		}
		return
	}

	if err != nil {
		m.connected = false
		m.log.Errorw("Reconnection attempt failed", "attempt", attempt, "error", err)
		m.scheduleReconnectLocked()
		return
	}

	m.db = db
	m.markConnectedLocked()
	m.log.Infow("Database reconnected", "attempt", attempt)
}

// TestConnection runs a synchronous probe and updates the health flag. It
// never returns an error; callers branch on the boolean.
func (m *Manager) TestConnection(ctx context.Context) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	db := m.db
	m.mu.Unlock()

	if db == nil {
		return false
	}

	err := probe(ctx, db)

	m.mu.Lock()
	if !m.closed {
		m.connected = err == nil
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Warnw("Database connection test failed", "error", err)
		return false
	}
	return true
}

// ConnectionStatus returns a health snapshot without mutating any state.
func (m *Manager) ConnectionStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Connected:            m.connected,
		ReconnectAttempts:    m.reconnectAttempts,
		MaxReconnectAttempts: m.cfg.MaxReconnectAttempts,
	}
}

func (m *Manager) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected && m.reconnectAttempts == 0
}

// Close is idempotent: disarm the timer, drain the pool, fail all later
// operations fast.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}

	var err error
	if m.db != nil {
		err = m.db.Close()
		m.db = nil
	}
	m.connected = false

	m.log.Info("Database connection pool closed")
	return err
}
