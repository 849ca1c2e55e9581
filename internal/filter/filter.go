// Package filter narrows a feature collection to the features of one state.
package filter

import (
	"fmt"

	"github.com/vvka-141/pgshp/internal/statename"
	"github.com/vvka-141/pgshp/pkg/pgshp"
)

// Filter selects features by state code. The attribute used depends on
// the collection's schema: STATE holds short codes, ADM1NAME holds full
// names resolved through a statename.Resolver.
type Filter struct {
	names  *statename.Resolver
	logger pgshp.Logger
}

// New creates a Filter.
func New(names *statename.Resolver, logger pgshp.Logger) *Filter {
	return &Filter{names: names, logger: logger}
}

// Apply returns the features of fc belonging to code.
//
// When neither STATE nor ADM1NAME exists it returns
// pgshp.ErrMissingFilterAttribute and the caller must skip the import.
// An empty result is only a warning: the returned collection is empty and
// the error is nil.
func (f *Filter) Apply(fc *pgshp.FeatureCollection, code string) (*pgshp.FeatureCollection, error) {
	var field, want string
	switch {
	case fc.HasField(pgshp.StateField):
		field, want = pgshp.StateField, code
	case fc.HasField(pgshp.StateNameField):
		field, want = pgshp.StateNameField, f.names.Resolve(code)
	default:
		f.logger.Warn("Cannot filter by state - no %s or %s column found", pgshp.StateField, pgshp.StateNameField)
		f.logger.Warn("Available columns: %v", fc.FieldNames())
		return nil, fmt.Errorf("%s: %w", fc.Source, pgshp.ErrMissingFilterAttribute)
	}

	f.logger.Verbose("Filtering on %s = %q", field, want)

	out := fc.Subset(func(feat pgshp.Feature) bool {
		v, ok := feat.Text(field)
		return ok && v == want
	})

	f.logger.Info("Filtered to %d features for state '%s' (from %d total)", out.Len(), code, fc.Len())
	if out.Len() == 0 {
		f.logger.Warn("No features found for state '%s'", code)
	}
	return out, nil
}
