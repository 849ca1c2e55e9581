package postgis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/vvka-141/pgshp/pkg/pgshp"
)

// maxBigintDigits is the widest N field that always fits in a bigint.
const maxBigintDigits = 18

// ParseTableName splits an optionally schema-qualified table name.
func ParseTableName(name string) (pgx.Identifier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("table name is empty: %w", pgshp.ErrInvalidConfig)
	}
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("table name %q has more than one schema qualifier: %w", name, pgshp.ErrInvalidConfig)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("table name %q has an empty part: %w", name, pgshp.ErrInvalidConfig)
		}
	}
	return pgx.Identifier(parts), nil
}

// columnType maps a DBF field to a PostgreSQL column type.
func columnType(f pgshp.Field) string {
	switch f.Type {
	case pgshp.FieldNumeric:
		if f.Decimals == 0 && f.Size <= maxBigintDigits {
			return "bigint"
		}
		return "double precision"
	case pgshp.FieldFloat:
		return "double precision"
	case pgshp.FieldLogical:
		return "boolean"
	case pgshp.FieldDate:
		return "date"
	default:
		return "text"
	}
}

// checkFields rejects schemas that cannot be written next to the
// geometry column.
func checkFields(fields []pgshp.Field) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if strings.EqualFold(f.Name, pgshp.GeometryColumn) {
			return fmt.Errorf("attribute %q collides with the geometry column", f.Name)
		}
		if f.Name == "" {
			return fmt.Errorf("attribute with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate attribute %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

func dropTableSQL(table pgx.Identifier) string {
	return "DROP TABLE IF EXISTS " + table.Sanitize()
}

func createTableSQL(table pgx.Identifier, fields []pgshp.Field, geometryType string, srid int) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(table.Sanitize())
	b.WriteString(" (")
	for _, f := range fields {
		b.WriteString(pgx.Identifier{f.Name}.Sanitize())
		b.WriteByte(' ')
		b.WriteString(columnType(f))
		b.WriteString(", ")
	}
	fmt.Fprintf(&b, "%s geometry(%s,%d))", pgx.Identifier{pgshp.GeometryColumn}.Sanitize(), geometryType, srid)
	return b.String()
}

// createIndexSQL names the index after the last part of the table name;
// PostgreSQL creates it in the table's schema.
func createIndexSQL(table pgx.Identifier) string {
	name := table[len(table)-1] + "_" + pgshp.GeometryColumn + "_idx"
	return fmt.Sprintf("CREATE INDEX %s ON %s USING GIST (%s)",
		pgx.Identifier{name}.Sanitize(), table.Sanitize(), pgx.Identifier{pgshp.GeometryColumn}.Sanitize())
}

// insertSQL builds one multi-row INSERT for rows features. Each row binds
// one parameter per field followed by the WKB geometry.
func insertSQL(table pgx.Identifier, fields []pgshp.Field, rows, srid int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table.Sanitize())
	b.WriteString(" (")
	for _, f := range fields {
		b.WriteString(pgx.Identifier{f.Name}.Sanitize())
		b.WriteString(", ")
	}
	b.WriteString(pgx.Identifier{pgshp.GeometryColumn}.Sanitize())
	b.WriteString(") VALUES ")

	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for range fields {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			b.WriteString(", ")
			n++
		}
		fmt.Fprintf(&b, "ST_SetSRID(ST_GeomFromWKB($%d), %d))", n, srid)
		n++
	}
	return b.String()
}

// insertArgs flattens features into the parameter order of insertSQL.
func insertArgs(fields []pgshp.Field, features []pgshp.Feature) ([]any, error) {
	args := make([]any, 0, len(features)*(len(fields)+1))
	for _, feat := range features {
		for _, f := range fields {
			v, err := columnValue(f, feat.Attributes[f.Name])
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		if feat.Geometry == nil {
			args = append(args, nil)
			continue
		}
		data, err := wkb.Marshal(feat.Geometry)
		if err != nil {
			return nil, fmt.Errorf("encode geometry: %w", err)
		}
		args = append(args, data)
	}
	return args, nil
}

// columnValue coerces an attribute value to the Go type pgx encodes for
// the column chosen by columnType.
func columnValue(f pgshp.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch columnType(f) {
	case "bigint":
		switch n := v.(type) {
		case int64:
			return n, nil
		case float64:
			if n != math.Trunc(n) || math.Abs(n) > math.MaxInt64 {
				return nil, fmt.Errorf("value %v of %s is not an integer", n, f.Name)
			}
			return int64(n), nil
		}
	case "double precision":
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
	case "boolean":
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case "date":
		if d, ok := v.(time.Time); ok {
			return d, nil
		}
	default:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	}
	return nil, fmt.Errorf("value %v (%T) does not fit column %s", v, v, f.Name)
}
