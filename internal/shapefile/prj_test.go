package shapefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const censusPRJ = `GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

const epsgWGS84 = `GEOGCS["WGS 84",
    DATUM["WGS_1984",
        SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],
        AUTHORITY["EPSG","6326"]],
    PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],
    UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],
    AXIS["Latitude",NORTH],
    AXIS["Longitude",EAST],
    AUTHORITY["EPSG","4326"]]`

func TestParseCRS(t *testing.T) {
	tests := []struct {
		name     string
		wkt      string
		wantName string
		wantSRID int
	}{
		{"esri nad83 by name", censusPRJ, "GCS_North_American_1983", 4269},
		{"root authority wins over nested", epsgWGS84, "WGS 84", 4326},
		{"web mercator by name", `PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]]],PROJECTION["Mercator_Auxiliary_Sphere"]]`, "WGS_1984_Web_Mercator_Auxiliary_Sphere", 3857},
		{"unknown projection", `PROJCS["NAD_1983_StatePlane_California_III_FIPS_0403_Feet",GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]]]]`, "NAD_1983_StatePlane_California_III_FIPS_0403_Feet", 0},
		{"wkt2 id", `GEOGCRS["NAD83",DATUM["North American Datum 1983",ELLIPSOID["GRS 1980",6378137,298.257222101]],ID["EPSG",4269]]`, "NAD83", 4269},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crs, err := parseCRS(tt.wkt)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, crs.Name)
			assert.Equal(t, tt.wantSRID, crs.SRID)
		})
	}
}

func TestParseCRS_Invalid(t *testing.T) {
	for _, wkt := range []string{"", `GEOGCS["unterminated`, `GEOGCS["x",1`, `GEOGCS["x"]]`} {
		_, err := parseCRS(wkt)
		assert.Error(t, err, "wkt %q", wkt)
	}
}

func TestReadCRS(t *testing.T) {
	dir := t.TempDir()
	shpPath := filepath.Join(dir, "cd.shp")

	crs, found, err := readCRS(shpPath)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, crs.SRID)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cd.prj"), []byte(censusPRJ), 0o644))
	crs, found, err = readCRS(shpPath)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4269, crs.SRID)
	assert.Equal(t, "EPSG:4269", crs.String())
}
