package postgis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/pgshp/pkg/pgshp"
)

// Importer replaces a PostGIS table with the contents of a feature
// collection. Each Import opens and closes its own pool.
type Importer struct {
	connect   pgshp.ConnectorFactory
	logger    pgshp.Logger
	tileURL   string
	batchSize int
}

// Option configures an Importer.
type Option func(*Importer)

// WithBatchSize sets the number of rows per INSERT statement.
func WithBatchSize(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithTileURL sets the tile server base URL printed after a successful
// import. An empty URL disables the hint.
func WithTileURL(url string) Option {
	return func(i *Importer) {
		i.tileURL = strings.TrimRight(url, "/")
	}
}

// NewImporter creates an Importer that connects through connect.
func NewImporter(connect pgshp.ConnectorFactory, logger pgshp.Logger, opts ...Option) *Importer {
	i := &Importer{
		connect:   connect,
		logger:    logger,
		tileURL:   pgshp.DefaultTileURL,
		batchSize: pgshp.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var _ pgshp.Importer = (*Importer)(nil)

// Import drops and recreates job.Target.Table and writes every feature in
// one transaction. It returns the number of rows written.
func (i *Importer) Import(ctx context.Context, job pgshp.ImportJob) (int, error) {
	fc := job.Collection
	table, err := ParseTableName(job.Target.Table)
	if err != nil {
		return 0, err
	}
	if err := checkFields(fc.Fields); err != nil {
		return 0, fmt.Errorf("%s: %v: %w", job.Name, err, pgshp.ErrImportFailed)
	}

	connector, err := i.connect(job.Target.Connection)
	if err != nil {
		return 0, err
	}
	if closer, ok := connector.(io.Closer); ok {
		defer closer.Close()
	}
	pool, err := connector.Connect(ctx)
	if err != nil {
		if !errors.Is(err, pgshp.ErrConnectionFailed) {
			err = fmt.Errorf("%w: %w", pgshp.ErrConnectionFailed, err)
		}
		return 0, err
	}
	defer pool.Close()

	i.logger.Info("Importing to table '%s'...", job.Target.Table)
	i.logger.Verbose("Job %s: %d features, %s, SRID %d", job.ID, fc.Len(), fc.GeometryType, fc.CRS.SRID)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, importError(job, "begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, dropTableSQL(table)); err != nil {
		return 0, importError(job, "drop table", err)
	}
	if _, err := tx.Exec(ctx, createTableSQL(table, fc.Fields, fc.GeometryType, fc.CRS.SRID)); err != nil {
		return 0, importError(job, "create table", err)
	}

	written, err := i.insertBatches(ctx, tx, table, fc)
	if err != nil {
		return 0, importError(job, "insert rows", err)
	}

	if _, err := tx.Exec(ctx, createIndexSQL(table)); err != nil {
		return 0, importError(job, "create spatial index", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, importError(job, "commit", err)
	}

	i.logger.Info("Successfully imported %d features to '%s'", written, job.Target.Table)
	if i.tileURL != "" {
		i.logger.Info("Vector tiles should now be served at: %s/%s/{z}/{x}/{y}.pbf", i.tileURL, job.Target.Table)
	}
	return written, nil
}

func (i *Importer) insertBatches(ctx context.Context, tx pgx.Tx, table pgx.Identifier, fc *pgshp.FeatureCollection) (int, error) {
	written := 0
	for _, batch := range batches(fc.Features, i.batchSize) {
		args, err := insertArgs(fc.Fields, batch)
		if err != nil {
			return written, err
		}
		tag, err := tx.Exec(ctx, insertSQL(table, fc.Fields, len(batch), fc.CRS.SRID), args...)
		if err != nil {
			return written, err
		}
		written += int(tag.RowsAffected())
		i.logger.Verbose("Inserted %d/%d rows", written, fc.Len())
	}
	return written, nil
}

// batches splits features into consecutive chunks of at most size.
func batches(features []pgshp.Feature, size int) [][]pgshp.Feature {
	var out [][]pgshp.Feature
	for start := 0; start < len(features); start += size {
		end := min(start+size, len(features))
		out = append(out, features[start:end])
	}
	return out
}

func importError(job pgshp.ImportJob, step string, err error) error {
	return fmt.Errorf("%s: %s on '%s': %w: %w", job.Name, step, job.Target.Table, pgshp.ErrImportFailed, err)
}
