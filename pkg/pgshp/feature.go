package pgshp

import (
	"fmt"

	"github.com/paulmach/orb"
)

// FieldType is the dBASE type of an attribute column.
type FieldType byte

const (
	FieldCharacter FieldType = 'C'
	FieldNumeric   FieldType = 'N'
	FieldFloat     FieldType = 'F'
	FieldLogical   FieldType = 'L'
	FieldDate      FieldType = 'D'
	FieldMemo      FieldType = 'M'
)

// String returns the single-letter dBASE code.
func (t FieldType) String() string {
	return string(rune(t))
}

// Field describes one attribute column of a shapefile.
type Field struct {
	Name     string
	Type     FieldType
	Size     int
	Decimals int
}

// Feature is one geometry plus its attribute values.
//
// Attribute values are string, int64, float64, bool, time.Time or nil.
// Geometry is nil for null shapes.
type Feature struct {
	Geometry   orb.Geometry
	Attributes map[string]any
}

// Text returns the named attribute rendered as a string.
// The second result is false when the attribute is absent or nil.
func (f Feature) Text(name string) (string, bool) {
	v, ok := f.Attributes[name]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// CRS identifies the coordinate reference system of a collection.
// SRID 0 means the reference system could not be identified.
type CRS struct {
	Name string
	SRID int
	WKT  string
}

// String renders the CRS for diagnostics.
func (c CRS) String() string {
	switch {
	case c.SRID != 0:
		return fmt.Sprintf("EPSG:%d", c.SRID)
	case c.Name != "":
		return c.Name
	default:
		return "unknown"
	}
}

// FeatureCollection is an ordered set of features sharing one schema and CRS.
type FeatureCollection struct {
	// Source is the path the collection was read from.
	Source string

	Fields   []Field
	Features []Feature
	CRS      CRS

	// GeometryType is the PostGIS geometry type name shared by all
	// features (e.g. MULTIPOLYGON), or GEOMETRY when mixed.
	GeometryType string
}

// Len returns the number of features.
func (c *FeatureCollection) Len() int {
	return len(c.Features)
}

// FieldNames returns attribute names in schema order.
func (c *FeatureCollection) FieldNames() []string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}

// HasField reports whether the schema contains an attribute with exactly this name.
func (c *FeatureCollection) HasField(name string) bool {
	for _, f := range c.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Subset returns a new collection holding the features for which keep
// returns true. Schema, CRS and geometry type are shared with c, which is
// left unchanged.
func (c *FeatureCollection) Subset(keep func(Feature) bool) *FeatureCollection {
	out := &FeatureCollection{
		Source:       c.Source,
		Fields:       c.Fields,
		CRS:          c.CRS,
		GeometryType: c.GeometryType,
		Features:     make([]Feature, 0),
	}
	for _, f := range c.Features {
		if keep(f) {
			out.Features = append(out.Features, f)
		}
	}
	return out
}
