// Package shapefile resolves the bundled boundary datasets and reads ESRI
// shapefiles into pgshp.FeatureCollection values.
//
// A shapefile is read fully into memory: geometries become orb geometries
// with Z and M dropped, DBF attributes are decoded using the .cpg sidecar
// (or a detected charset) and typed per dBASE field type, and the
// coordinate reference system is taken from the .prj sidecar.
package shapefile
