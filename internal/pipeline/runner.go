// Package pipeline drives the load, filter and import steps for the
// district dataset and the optional cities dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/vvka-141/pgshp/internal/shapefile"
	"github.com/vvka-141/pgshp/pkg/pgshp"
)

// StateFilter narrows a collection to one state.
type StateFilter interface {
	Apply(fc *pgshp.FeatureCollection, code string) (*pgshp.FeatureCollection, error)
}

// Result describes one pipeline pass.
type Result struct {
	Name    string
	Path    string
	Table   string
	Loaded  int
	Written int
	// Skipped is set when the dataset had no attribute to filter on and
	// nothing was written.
	Skipped bool
}

// Runner executes import pipelines. It holds no per-run state, but Run is
// sequential by nature and is not meant to be called concurrently.
type Runner struct {
	loader   pgshp.FeatureLoader
	filter   StateFilter
	importer pgshp.Importer
	logger   pgshp.Logger
	paths    shapefile.Paths
}

// NewRunner creates a Runner with all dependencies injected.
// Panics on nil dependencies: those are wiring mistakes, not runtime
// conditions.
func NewRunner(loader pgshp.FeatureLoader, filter StateFilter, importer pgshp.Importer, logger pgshp.Logger) *Runner {
	if loader == nil {
		panic("loader cannot be nil")
	}
	if filter == nil {
		panic("filter cannot be nil")
	}
	if importer == nil {
		panic("importer cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Runner{
		loader:   loader,
		filter:   filter,
		importer: importer,
		logger:   logger,
		paths:    shapefile.DefaultPaths,
	}
}

// WithPaths replaces the boundary subpath table.
func (r *Runner) WithPaths(paths shapefile.Paths) *Runner {
	r.paths = paths
	return r
}

// RunImportPipeline loads path, filters it to state when state is not
// empty, and imports the result into target.
//
// A dataset without a STATE or ADM1NAME attribute is skipped: the result
// has Skipped set and the error is nil. Every other failure is returned.
func (r *Runner) RunImportPipeline(ctx context.Context, name, path string, target pgshp.DatabaseTarget, state string) (Result, error) {
	res := Result{Name: name, Path: path, Table: target.Table}

	fc, err := r.loader.Load(path)
	if err != nil {
		return res, err
	}
	res.Loaded = fc.Len()

	if state != "" {
		filtered, err := r.filter.Apply(fc, state)
		if errors.Is(err, pgshp.ErrMissingFilterAttribute) {
			r.logger.Warn("Skipping import of %s", name)
			res.Skipped = true
			return res, nil
		}
		if err != nil {
			return res, err
		}
		fc = filtered
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	written, err := r.importer.Import(ctx, pgshp.NewImportJob(name, fc, target))
	if err != nil {
		return res, err
	}
	res.Written = written
	return res, nil
}

// Run imports the district dataset selected by cfg.BoundaryType and then,
// when cfg.ImportCities is set, the cities dataset. The district pass
// always runs first; a skipped district pass does not stop the cities pass.
func (r *Runner) Run(ctx context.Context, cfg *pgshp.ImportConfig) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	boundaryPath, err := r.paths.Resolve(cfg.BoundariesDir, cfg.BoundaryType)
	if err != nil {
		return nil, err
	}
	r.logger.Verbose("Boundary type %s resolved to %s", cfg.BoundaryType, boundaryPath)

	var results []Result
	districts, err := r.RunImportPipeline(ctx, "districts", boundaryPath,
		pgshp.DatabaseTarget{Connection: cfg.Connection, Table: cfg.TableName}, cfg.State)
	results = append(results, districts)
	if err != nil {
		return results, err
	}

	if !cfg.ImportCities {
		return results, nil
	}
	if cfg.CitiesPath == "" {
		return results, fmt.Errorf("--cities-shapefile required when using --import-cities: %w", pgshp.ErrMissingRequiredArgument)
	}

	r.logger.Info("")
	r.logger.Info("%s", banner)
	r.logger.Info("Importing cities...")
	r.logger.Info("%s", banner)

	cities, err := r.RunImportPipeline(ctx, "cities", cfg.CitiesPath,
		pgshp.DatabaseTarget{Connection: cfg.Connection, Table: cfg.CitiesTable}, cfg.State)
	results = append(results, cities)
	return results, err
}

const banner = "=================================================="
