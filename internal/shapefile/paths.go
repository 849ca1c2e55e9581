package shapefile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vvka-141/pgshp/pkg/pgshp"
)

// Paths maps each boundary type to its shapefile, relative to the
// boundaries directory.
type Paths map[pgshp.BoundaryType]string

// DefaultPaths are the 119th Congress district shapefiles.
var DefaultPaths = Paths{
	pgshp.BoundaryStandard: filepath.Join("national_cong119_boundary", "national_cong119_boundary.shp"),
	pgshp.BoundaryCarto:    filepath.Join("national_cong119_carto_boundary", "national_cong119_carto_boundary.shp"),
}

// Resolve joins baseDir with the subpath registered for choice.
func (p Paths) Resolve(baseDir string, choice pgshp.BoundaryType) (string, error) {
	rel, ok := p[choice]
	if !ok {
		return "", fmt.Errorf("no shapefile registered for boundary type %q: %w", choice, pgshp.ErrInvalidConfig)
	}
	return filepath.Join(baseDir, rel), nil
}

// ResolvePath resolves choice against DefaultPaths.
func ResolvePath(baseDir string, choice pgshp.BoundaryType) (string, error) {
	return DefaultPaths.Resolve(baseDir, choice)
}

// DefaultBoundariesDir returns the boundaries directory next to the
// running executable, falling back to ./boundaries.
func DefaultBoundariesDir() string {
	exe, err := os.Executable()
	if err != nil {
		return pgshp.BoundariesDirName
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), pgshp.BoundariesDirName)
}
