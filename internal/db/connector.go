package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgshp/pkg/pgshp"
)

// Pool sizing for a single sequential import.
const (
	DefaultMaxConns        = 2
	DefaultMaxConnIdleTime = 5 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = 0
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
}

// openPool creates a pool from a URI and pings it once. No retries.
func openPool(ctx context.Context, connStr string, config *pgshp.ConnectionConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %v: %w", err, pgshp.ErrInvalidConfig)
	}
	configurePool(poolConfig)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}
	return pool, nil
}

// StandardConnector connects with username and password.
type StandardConnector struct {
	config *pgshp.ConnectionConfig
}

// NewStandardConnector creates a StandardConnector for config.
func NewStandardConnector(config *pgshp.ConnectionConfig) *StandardConnector {
	return &StandardConnector{config: config}
}

// Connect opens a pool and verifies it with a ping.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	return openPool(ctx, BuildConnectionString(c.config), c.config)
}

// NewConnector returns the Connector matching config.AuthMethod.
// Token warnings are discarded; use NewConnectorFactory to keep them.
func NewConnector(config *pgshp.ConnectionConfig) (pgshp.Connector, error) {
	return newConnector(config, nil)
}

// NewConnectorFactory returns a pgshp.ConnectorFactory whose token-based
// connectors report to logger.
func NewConnectorFactory(logger pgshp.Logger) pgshp.ConnectorFactory {
	return func(config *pgshp.ConnectionConfig) (pgshp.Connector, error) {
		return newConnector(config, logger)
	}
}

func newConnector(config *pgshp.ConnectionConfig, logger pgshp.Logger) (pgshp.Connector, error) {
	switch config.AuthMethod {
	case pgshp.AuthMethodStandard:
		return NewStandardConnector(config), nil
	case pgshp.AuthMethodAWSIAM:
		return newAWSConnector(config, logger)
	case pgshp.AuthMethodGoogleIAM:
		return newGoogleConnector(config)
	case pgshp.AuthMethodAzureEntraID:
		return newAzureConnector(config, logger)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, pgshp.ErrUnsupportedAuthMethod)
	}
}

var _ pgshp.ConnectorFactory = NewConnector

// wrapConnectionError adds troubleshooting hints to a pgx connection error.
// The result wraps both err and pgshp.ErrConnectionFailed.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`%w: connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port in --db-url
  - Firewall blocking the connection

Original error: %w`, pgshp.ErrConnectionFailed, addr, host, port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`%w: cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable

Original error: %w`, pgshp.ErrConnectionFailed, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`%w: password authentication failed for database "%s"

Possible causes:
  - Wrong password or username in --db-url
  - User does not have access to the database

Original error: %w`, pgshp.ErrConnectionFailed, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`%w: database "%s" does not exist

To create it with PostGIS enabled:
  createdb %s
  psql -d %s -c 'CREATE EXTENSION postgis'

Original error: %w`, pgshp.ErrConnectionFailed, database, database, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`%w: connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets
  - Wrong host or port (server not listening)

Original error: %w`, pgshp.ErrConnectionFailed, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`%w: SSL/TLS connection error

Possible causes:
  - Server requires SSL but sslmode in --db-url is wrong
  - Certificate verification failed (try ?sslmode=require)

Original error: %w`, pgshp.ErrConnectionFailed, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`%w: too many connections to database "%s"

Original error: %w`, pgshp.ErrConnectionFailed, database, err)

	default:
		return fmt.Errorf("%w: failed to connect to database: %w", pgshp.ErrConnectionFailed, err)
	}
}
