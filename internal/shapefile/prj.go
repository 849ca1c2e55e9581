package shapefile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vvka-141/pgshp/pkg/pgshp"
)

// knownCRSNames maps root names found in ESRI-style .prj files, which
// usually carry no AUTHORITY node, to EPSG codes.
var knownCRSNames = map[string]int{
	"GCS_North_American_1983":                4269,
	"NAD83":                                  4269,
	"GCS_WGS_1984":                           4326,
	"WGS 84":                                 4326,
	"WGS_1984_Web_Mercator_Auxiliary_Sphere": 3857,
	"WGS 84 / Pseudo-Mercator":               3857,
}

// readCRS reads the .prj sidecar of shpPath. A missing .prj yields the
// zero CRS and no error.
func readCRS(shpPath string) (pgshp.CRS, bool, error) {
	data, err := os.ReadFile(sidecar(shpPath, ".prj"))
	if os.IsNotExist(err) {
		return pgshp.CRS{}, false, nil
	}
	if err != nil {
		return pgshp.CRS{}, false, err
	}
	crs, err := parseCRS(string(data))
	if err != nil {
		return pgshp.CRS{}, true, err
	}
	return crs, true, nil
}

// parseCRS identifies a coordinate reference system from WKT. An EPSG
// AUTHORITY (or ID) directly under the root node wins; otherwise the root
// name is looked up in knownCRSNames.
func parseCRS(wkt string) (pgshp.CRS, error) {
	wkt = strings.TrimSpace(strings.TrimPrefix(wkt, "\ufeff"))
	root, err := parseWKT(wkt)
	if err != nil {
		return pgshp.CRS{WKT: wkt}, err
	}

	crs := pgshp.CRS{WKT: wkt}
	if len(root.values) > 0 {
		crs.Name = root.values[0]
	}
	for _, child := range root.children {
		if child.keyword != "AUTHORITY" && child.keyword != "ID" {
			continue
		}
		if len(child.values) < 2 || !strings.EqualFold(child.values[0], "EPSG") {
			continue
		}
		if srid, err := strconv.Atoi(child.values[1]); err == nil {
			crs.SRID = srid
			return crs, nil
		}
	}
	crs.SRID = knownCRSNames[crs.Name]
	return crs, nil
}

type wktNode struct {
	keyword  string
	values   []string
	children []*wktNode
}

type wktParser struct {
	s   string
	pos int
}

func parseWKT(s string) (*wktNode, error) {
	p := &wktParser{s: s}
	kw := p.ident()
	if kw == "" {
		return nil, fmt.Errorf("invalid WKT: expected keyword at offset %d", p.pos)
	}
	node, err := p.node(kw)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("invalid WKT: trailing data at offset %d", p.pos)
	}
	return node, nil
}

// node parses the bracketed argument list following keyword.
func (p *wktParser) node(keyword string) (*wktNode, error) {
	n := &wktNode{keyword: strings.ToUpper(keyword)}
	p.skipSpace()
	if !p.accept('[') && !p.accept('(') {
		return n, nil
	}

	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, fmt.Errorf("invalid WKT: unterminated %s", keyword)
		}
		switch c := p.s[p.pos]; {
		case c == '"':
			v, err := p.quoted()
			if err != nil {
				return nil, err
			}
			n.values = append(n.values, v)
		case isIdentStart(c):
			word := p.ident()
			p.skipSpace()
			if p.pos < len(p.s) && (p.s[p.pos] == '[' || p.s[p.pos] == '(') {
				child, err := p.node(word)
				if err != nil {
					return nil, err
				}
				n.children = append(n.children, child)
			} else {
				n.values = append(n.values, word)
			}
		default:
			n.values = append(n.values, p.number())
		}

		p.skipSpace()
		switch {
		case p.accept(','):
		case p.accept(']'), p.accept(')'):
			return n, nil
		default:
			return nil, fmt.Errorf("invalid WKT: unexpected input at offset %d", p.pos)
		}
	}
}

func (p *wktParser) quoted() (string, error) {
	p.pos++
	var b strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		p.pos++
		if c != '"' {
			b.WriteByte(c)
			continue
		}
		if p.pos < len(p.s) && p.s[p.pos] == '"' {
			b.WriteByte('"')
			p.pos++
			continue
		}
		return b.String(), nil
	}
	return "", fmt.Errorf("invalid WKT: unterminated string")
}

func (p *wktParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) && (isIdentStart(p.s[p.pos]) || (p.s[p.pos] >= '0' && p.s[p.pos] <= '9')) {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *wktParser) number() string {
	start := p.pos
	for p.pos < len(p.s) && strings.IndexByte("0123456789+-.eE", p.s[p.pos]) >= 0 {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *wktParser) accept(c byte) bool {
	if p.pos < len(p.s) && p.s[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.s) && strings.IndexByte(" \t\r\n", p.s[p.pos]) >= 0 {
		p.pos++
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
