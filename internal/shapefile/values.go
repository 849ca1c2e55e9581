package shapefile

import (
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/pgshp/pkg/pgshp"
)

// parseValue converts a decoded DBF cell to a typed attribute value.
// Blank cells, dBASE overflow markers and unparseable numbers become nil.
func parseValue(f pgshp.Field, raw string) any {
	s := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if s == "" {
		return nil
	}

	switch f.Type {
	case pgshp.FieldNumeric, pgshp.FieldFloat:
		if strings.Trim(s, "*") == "" {
			return nil
		}
		if f.Type == pgshp.FieldNumeric && f.Decimals == 0 {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n
		}
		return nil
	case pgshp.FieldLogical:
		switch s {
		case "T", "t", "Y", "y":
			return true
		case "F", "f", "N", "n":
			return false
		default:
			return nil
		}
	case pgshp.FieldDate:
		if strings.Trim(s, "0") == "" {
			return nil
		}
		d, err := time.Parse("20060102", s)
		if err != nil {
			return nil
		}
		return d
	default:
		return s
	}
}
