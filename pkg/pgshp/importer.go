package pgshp

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connector is a unified interface for establishing database connections.
// Different implementations handle various authentication methods
// (standard credentials, cloud IAM).
type Connector interface {
	// Connect establishes a connection pool to the database.
	// The returned pool should be closed by the caller when done.
	Connect(ctx context.Context) (*pgxpool.Pool, error)
}

// ConnectorFactory builds a Connector for a connection configuration.
type ConnectorFactory func(*ConnectionConfig) (Connector, error)

// FeatureLoader reads a shapefile into memory.
type FeatureLoader interface {
	// Load returns ErrPathNotFound when path does not exist.
	Load(path string) (*FeatureCollection, error)
}

// Importer writes a collection to a PostGIS table, replacing any existing
// table of the same name, and returns the number of rows written.
type Importer interface {
	Import(ctx context.Context, job ImportJob) (int, error)
}
