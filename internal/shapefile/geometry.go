package shapefile

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// geometryTypeName maps a shapefile header type to the PostGIS type used
// for the geometry column. Lines and polygons are always promoted to
// their multi variants because a single shapefile record may hold
// several parts.
func geometryTypeName(t shp.ShapeType) string {
	switch t {
	case shp.POINT, shp.POINTZ, shp.POINTM:
		return "POINT"
	case shp.MULTIPOINT, shp.MULTIPOINTZ, shp.MULTIPOINTM:
		return "MULTIPOINT"
	case shp.POLYLINE, shp.POLYLINEZ, shp.POLYLINEM:
		return "MULTILINESTRING"
	case shp.POLYGON, shp.POLYGONZ, shp.POLYGONM:
		return "MULTIPOLYGON"
	default:
		return "GEOMETRY"
	}
}

// collectionGeometryType returns the PostGIS type shared by every non-null
// geometry, or GEOMETRY when kinds are mixed or there are no features.
// A file of null shapes falls back to its header type.
func collectionGeometryType(header shp.ShapeType, geoms []orb.Geometry) string {
	kind := ""
	for _, g := range geoms {
		if g == nil {
			continue
		}
		name := strings.ToUpper(g.GeoJSONType())
		switch {
		case kind == "":
			kind = name
		case kind != name:
			return "GEOMETRY"
		}
	}
	if kind != "" {
		return kind
	}
	if len(geoms) == 0 {
		return "GEOMETRY"
	}
	return geometryTypeName(header)
}

// toGeometry converts a shapefile record into an orb geometry, dropping
// Z and M. Null shapes convert to nil.
func toGeometry(s shp.Shape) (orb.Geometry, error) {
	switch g := s.(type) {
	case *shp.Null:
		return nil, nil
	case *shp.Point:
		return orb.Point{g.X, g.Y}, nil
	case *shp.PointZ:
		return orb.Point{g.X, g.Y}, nil
	case *shp.PointM:
		return orb.Point{g.X, g.Y}, nil
	case *shp.MultiPoint:
		return multiPoint(g.Points), nil
	case *shp.MultiPointZ:
		return multiPoint(g.Points), nil
	case *shp.MultiPointM:
		return multiPoint(g.Points), nil
	case *shp.PolyLine:
		return multiLineString(g.Points, g.Parts), nil
	case *shp.PolyLineZ:
		return multiLineString(g.Points, g.Parts), nil
	case *shp.PolyLineM:
		return multiLineString(g.Points, g.Parts), nil
	case *shp.Polygon:
		return multiPolygon(g.Points, g.Parts), nil
	case *shp.PolygonZ:
		return multiPolygon(g.Points, g.Parts), nil
	case *shp.PolygonM:
		return multiPolygon(g.Points, g.Parts), nil
	default:
		return nil, fmt.Errorf("unsupported shape type %T", s)
	}
}

func multiPoint(points []shp.Point) orb.MultiPoint {
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.X, p.Y}
	}
	return mp
}

// splitParts slices points into the parts starting at each index of parts.
func splitParts(points []shp.Point, parts []int32) [][]orb.Point {
	if len(parts) == 0 && len(points) > 0 {
		parts = []int32{0}
	}
	out := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		seg := make([]orb.Point, 0, end-start)
		for _, p := range points[start:end] {
			seg = append(seg, orb.Point{p.X, p.Y})
		}
		out = append(out, seg)
	}
	return out
}

func multiLineString(points []shp.Point, parts []int32) orb.MultiLineString {
	segs := splitParts(points, parts)
	mls := make(orb.MultiLineString, len(segs))
	for i, seg := range segs {
		mls[i] = orb.LineString(seg)
	}
	return mls
}

// multiPolygon groups rings into polygons. Shapefile outer rings are
// clockwise and holes counter-clockwise, in any order within a record.
// Each hole goes to the smallest outer ring that contains it; a hole no
// outer ring contains becomes a polygon of its own.
func multiPolygon(points []shp.Point, parts []int32) orb.MultiPolygon {
	var shells, holes []orb.Ring
	for _, seg := range splitParts(points, parts) {
		ring := orb.Ring(seg)
		if ring.Orientation() == orb.CCW {
			holes = append(holes, ring)
		} else {
			shells = append(shells, ring)
		}
	}

	mp := make(orb.MultiPolygon, len(shells), len(shells)+len(holes))
	areas := make([]float64, len(shells))
	for i, shell := range shells {
		mp[i] = orb.Polygon{shell}
		areas[i] = math.Abs(planar.Area(shell))
	}
	for _, h := range holes {
		owner := -1
		for i, shell := range shells {
			if ringInside(h, shell) && (owner < 0 || areas[i] < areas[owner]) {
				owner = i
			}
		}
		if owner < 0 {
			mp = append(mp, orb.Polygon{h})
			continue
		}
		mp[owner] = append(mp[owner], h)
	}
	return mp
}

// ringInside reports whether every vertex of inner lies in or on outer.
func ringInside(inner, outer orb.Ring) bool {
	if !outer.Bound().Contains(inner.Bound().Min) || !outer.Bound().Contains(inner.Bound().Max) {
		return false
	}
	for _, p := range inner {
		if !planar.RingContains(outer, p) {
			return false
		}
	}
	return true
}
