package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgshp/internal/logging"
	"github.com/vvka-141/pgshp/pkg/pgshp"
)

// TokenProvider acquires short-lived cloud tokens that are sent as the
// PostgreSQL password.
type TokenProvider interface {
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider without secrets.
	String() string
}

// tokenExpiryWarning is how close to expiry a fresh token may be before
// the connector warns. A full import must finish connecting before then.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector connects with a password obtained from a TokenProvider
// (AWS IAM, Azure Entra ID).
type TokenBasedConnector struct {
	config        *pgshp.ConnectionConfig
	tokenProvider TokenProvider
	providerName  string
	logger        pgshp.Logger
}

// NewTokenBasedConnector creates a connector that authenticates with tokens
// from tokenProvider. providerName appears in errors and warnings, which go
// to logger. A nil logger discards them.
func NewTokenBasedConnector(config *pgshp.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger pgshp.Logger) *TokenBasedConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		providerName:  providerName,
		logger:        logger,
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	token, expiresOn, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s token: %v: %w", c.providerName, err, pgshp.ErrConnectionFailed)
	}
	if left := time.Until(expiresOn); left < tokenExpiryWarning {
		c.logger.Warn("%s token expires in %v", c.providerName, left.Round(time.Second))
	}

	withToken := *c.config
	withToken.Password = token
	return openPool(ctx, BuildConnectionString(&withToken), c.config)
}
