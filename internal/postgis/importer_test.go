package postgis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgshp/internal/db"
	testhelpers "github.com/vvka-141/pgshp/internal/testing"
	"github.com/vvka-141/pgshp/pkg/pgshp"
)

type failingConnector struct {
	err error
}

func (c failingConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	return nil, c.err
}

func factoryFor(c pgshp.Connector, calls *int) pgshp.ConnectorFactory {
	return func(*pgshp.ConnectionConfig) (pgshp.Connector, error) {
		*calls++
		return c, nil
	}
}

func squareAt(x, y float64) orb.MultiPolygon {
	return orb.MultiPolygon{{orb.Ring{{x, y}, {x, y + 1}, {x + 1, y + 1}, {x + 1, y}, {x, y}}}}
}

func districts(n int, srid int) *pgshp.FeatureCollection {
	fc := &pgshp.FeatureCollection{
		Source:       "districts.shp",
		Fields:       districtFields,
		CRS:          pgshp.CRS{SRID: srid},
		GeometryType: "MULTIPOLYGON",
	}
	for i := 0; i < n; i++ {
		fc.Features = append(fc.Features, pgshp.Feature{
			Geometry: squareAt(float64(-120+i%10), float64(35+i/10)),
			Attributes: map[string]any{
				"STATE":   "06",
				"CD119FP": int64(i + 1),
				"ALAND":   float64(i) * 1.5,
				"AWATER":  nil,
				"ACTIVE":  i%2 == 0,
				"UPDATED": time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
			},
		})
	}
	return fc
}

func job(fc *pgshp.FeatureCollection, table string, conn *pgshp.ConnectionConfig) pgshp.ImportJob {
	return pgshp.NewImportJob("districts", fc, pgshp.DatabaseTarget{Connection: conn, Table: table})
}

func TestImport_ConnectFailureWrapsSentinel(t *testing.T) {
	calls := 0
	imp := NewImporter(factoryFor(failingConnector{err: errors.New("dial tcp: refused")}, &calls), testhelpers.NewRecordingLogger())

	_, err := imp.Import(context.Background(), job(districts(1, 4269), "d", &pgshp.ConnectionConfig{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, pgshp.ErrConnectionFailed)
	assert.Equal(t, pgshp.ExitConnectionError, pgshp.ExitCodeForError(err))
	assert.Equal(t, 1, calls)
}

func TestImport_FactoryErrorPropagates(t *testing.T) {
	factory := func(*pgshp.ConnectionConfig) (pgshp.Connector, error) {
		return nil, fmt.Errorf("no region: %w", pgshp.ErrInvalidConfig)
	}
	imp := NewImporter(factory, testhelpers.NewRecordingLogger())

	_, err := imp.Import(context.Background(), job(districts(1, 4269), "d", &pgshp.ConnectionConfig{}))
	assert.ErrorIs(t, err, pgshp.ErrInvalidConfig)
}

func TestImport_RejectsBeforeConnecting(t *testing.T) {
	calls := 0
	imp := NewImporter(factoryFor(failingConnector{err: errors.New("unreachable")}, &calls), testhelpers.NewRecordingLogger())

	fc := districts(1, 4269)
	fc.Fields = append([]pgshp.Field{{Name: "GEOMETRY", Type: pgshp.FieldCharacter, Size: 10}}, fc.Fields...)
	_, err := imp.Import(context.Background(), job(fc, "d", &pgshp.ConnectionConfig{}))
	assert.ErrorIs(t, err, pgshp.ErrImportFailed)

	_, err = imp.Import(context.Background(), job(districts(1, 4269), "a.b.c", &pgshp.ConnectionConfig{}))
	assert.ErrorIs(t, err, pgshp.ErrInvalidConfig)

	assert.Equal(t, 0, calls)
}

func TestNewImporter_Options(t *testing.T) {
	imp := NewImporter(db.NewConnector, testhelpers.NewRecordingLogger(), WithBatchSize(25), WithTileURL("http://tiles:3000/"))
	assert.Equal(t, 25, imp.batchSize)
	assert.Equal(t, "http://tiles:3000", imp.tileURL)

	imp = NewImporter(db.NewConnector, testhelpers.NewRecordingLogger(), WithBatchSize(0))
	assert.Equal(t, pgshp.DefaultBatchSize, imp.batchSize)
	assert.Equal(t, pgshp.DefaultTileURL, imp.tileURL)
}

func TestImport_Integration(t *testing.T) {
	connString := testhelpers.CreateTestDB(t, testhelpers.RequireDatabase(t), "pgshp_import_test")
	conn, err := db.ParseConnectionString(connString)
	require.NoError(t, err)
	pool := testhelpers.GetTestPool(t, connString, conn.Database)
	ctx := context.Background()

	logger := testhelpers.NewRecordingLogger()
	imp := NewImporter(db.NewConnector, logger, WithTileURL("http://localhost:3000"))

	t.Run("writes all rows in batches", func(t *testing.T) {
		n, err := imp.Import(ctx, job(districts(250, 4269), "ca_congress_districts_119", conn))
		require.NoError(t, err)
		assert.Equal(t, 250, n)

		var count, srid int
		var geomType string
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT count(*), min(ST_SRID(geometry)), min(GeometryType(geometry)) FROM ca_congress_districts_119`,
		).Scan(&count, &srid, &geomType))
		assert.Equal(t, 250, count)
		assert.Equal(t, 4269, srid)
		assert.Equal(t, "MULTIPOLYGON", geomType)

		var cd int64
		var active bool
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT "CD119FP", "ACTIVE" FROM ca_congress_districts_119 WHERE "CD119FP" = 1`,
		).Scan(&cd, &active))
		assert.Equal(t, int64(1), cd)
		assert.True(t, active)

		var indexed bool
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE tablename = 'ca_congress_districts_119' AND indexdef ILIKE '%gist%')`,
		).Scan(&indexed))
		assert.True(t, indexed)

		assert.True(t, logger.Contains("Successfully imported 250 features to 'ca_congress_districts_119'"))
		assert.True(t, logger.Contains("http://localhost:3000/ca_congress_districts_119/{z}/{x}/{y}.pbf"))
	})

	t.Run("reimport replaces the table", func(t *testing.T) {
		n, err := imp.Import(ctx, job(districts(3, 4269), "ca_congress_districts_119", conn))
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		var count int
		require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM ca_congress_districts_119`).Scan(&count))
		assert.Equal(t, 3, count)
	})

	t.Run("empty collection creates empty table", func(t *testing.T) {
		n, err := imp.Import(ctx, job(districts(0, 4269), "empty_districts", conn))
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		var count int
		require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM empty_districts`).Scan(&count))
		assert.Equal(t, 0, count)
	})

	t.Run("schema qualified table and unknown srid", func(t *testing.T) {
		_, err := pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS tiles`)
		require.NoError(t, err)

		fc := districts(2, 0)
		fc.Features[1].Geometry = nil
		n, err := imp.Import(ctx, job(fc, "tiles.ca_cities", conn))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		var nulls, srid int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT count(*) FILTER (WHERE geometry IS NULL), coalesce(max(ST_SRID(geometry)), -1) FROM tiles.ca_cities`,
		).Scan(&nulls, &srid))
		assert.Equal(t, 1, nulls)
		assert.Equal(t, 0, srid)
	})

	t.Run("failed insert leaves previous table intact", func(t *testing.T) {
		fc := districts(2, 4269)
		fc.Features[1].Attributes["CD119FP"] = 1.5
		_, err := imp.Import(ctx, job(fc, "ca_congress_districts_119", conn))
		require.Error(t, err)
		assert.ErrorIs(t, err, pgshp.ErrImportFailed)

		var count int
		require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM ca_congress_districts_119`).Scan(&count))
		assert.Equal(t, 3, count)
	})
}
