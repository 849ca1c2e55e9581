package shapefile

import (
	"fmt"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"golang.org/x/text/encoding"

	"github.com/vvka-141/pgshp/pkg/pgshp"
)

// Loader reads shapefiles into feature collections.
type Loader struct {
	logger pgshp.Logger
}

// NewLoader creates a Loader that reports progress to logger.
func NewLoader(logger pgshp.Logger) *Loader {
	return &Loader{logger: logger}
}

var _ pgshp.FeatureLoader = (*Loader)(nil)

// Load reads the shapefile at path together with its .dbf, .cpg and .prj
// sidecars. A path that does not name an existing file fails with
// pgshp.ErrPathNotFound before anything is opened.
func (l *Loader) Load(path string) (*pgshp.FeatureCollection, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", pgshp.ErrPathNotFound, path)
	}
	if !strings.EqualFold(fileExt(path), ".shp") {
		return nil, fmt.Errorf("not a shapefile (expected .shp extension): %s", path)
	}

	l.logger.Info("Reading shapefile: %s", path)

	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", path, err)
	}
	defer r.Close()

	var geoms []orb.Geometry
	for r.Next() {
		n, shape := r.Shape()
		g, err := toGeometry(shape)
		if err != nil {
			l.logger.Warn("Skipping geometry of record %d: %v", n, err)
		}
		geoms = append(geoms, g)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shapefile %s: %w", path, err)
	}

	fields, rows := l.readAttributes(r, path, len(geoms))

	fc := &pgshp.FeatureCollection{
		Source:       path,
		Fields:       fields,
		Features:     make([]pgshp.Feature, len(geoms)),
		GeometryType: collectionGeometryType(r.GeometryType, geoms),
	}
	for i, g := range geoms {
		attrs := make(map[string]any, len(fields))
		for j, f := range fields {
			var raw string
			if i < len(rows) {
				raw = rows[i][j]
			}
			attrs[f.Name] = parseValue(f, raw)
		}
		fc.Features[i] = pgshp.Feature{Geometry: g, Attributes: attrs}
	}

	crs, found, err := readCRS(path)
	switch {
	case err != nil:
		l.logger.Warn("Could not parse %s: %v", sidecar(path, ".prj"), err)
	case !found:
		l.logger.Warn("No .prj file found for %s; SRID will be 0", path)
	}
	fc.CRS = crs

	l.logger.Info("Loaded %d features", fc.Len())
	l.logger.Info("Columns: %v", append(fc.FieldNames(), pgshp.GeometryColumn))
	l.logger.Info("CRS: %s", fc.CRS)
	return fc, nil
}

// readAttributes reads the DBF schema and the first n records, decoding
// names and values to UTF-8.
func (l *Loader) readAttributes(r *shp.Reader, path string, n int) ([]pgshp.Field, [][]string) {
	if _, err := os.Stat(sidecar(path, ".dbf")); err != nil {
		l.logger.Warn("No attribute table found for %s", path)
		return nil, nil
	}

	dbfFields := r.Fields()
	count := r.AttributeCount()
	if count != n {
		l.logger.Warn("Attribute table has %d records for %d shapes", count, n)
	}
	if count > n {
		count = n
	}

	// Row 0 carries the field names so they are decoded with the values.
	raw := make([][]string, count+1)
	raw[0] = make([]string, len(dbfFields))
	for j, f := range dbfFields {
		raw[0][j] = f.String()
	}
	for i := 0; i < count; i++ {
		row := make([]string, len(dbfFields))
		for j := range dbfFields {
			row[j] = r.ReadAttribute(i, j)
		}
		raw[i+1] = row
	}

	enc, name, declared := l.attributeEncoding(path, raw)
	l.logger.Verbose("Attribute encoding: %s", name)
	decodeAll(enc, raw, !declared)

	fields := make([]pgshp.Field, len(dbfFields))
	for j, f := range dbfFields {
		fields[j] = pgshp.Field{
			Name:     strings.TrimSpace(raw[0][j]),
			Type:     pgshp.FieldType(f.Fieldtype),
			Size:     int(f.Size),
			Decimals: int(f.Precision),
		}
	}
	return fields, raw[1:]
}

// attributeEncoding picks the encoding for raw. The third result is true
// when a .cpg declared it; otherwise it was guessed from the data.
func (l *Loader) attributeEncoding(path string, raw [][]string) (encoding.Encoding, string, bool) {
	if enc, name, ok := cpgEncoding(path); ok {
		return enc, name + " (.cpg)", true
	}
	if n := trimTruncatedRunes(raw); n > 0 {
		l.logger.Verbose("Trimmed %d values cut inside a UTF-8 character", n)
	}
	enc, name := detectEncoding(raw)
	return enc, name, false
}
