package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DennisWilmot/land-mapping-web/internal/config"
	"github.com/DennisWilmot/land-mapping-web/internal/logger"
)

const parcelsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature",
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,1],[1,1],[1,0],[0,0]]]},
     "properties": {"OBJECTID": 10, "PID": "P-10", "LV_NUMBER": " 123-456 ", "VOL_FOLIO": "1/2", "Shape__Area": 2500.5, "PARISH": "St. Catherine"}},
    {"type": "Feature",
     "geometry": {"type": "Polygon", "coordinates": [[[2,2],[2,3],[3,3],[3,2],[2,2]]]},
     "properties": {"OBJECTID": 11, "LV_NUMBER": null}},
    {"type": "Feature",
     "geometry": {"type": "Polygon", "coordinates": [[[5,5],[5,6],[6,6],[6,5],[5,5]]]},
     "properties": {"PID": "no-id"}}
  ]
}`

const communitiesJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,2],[2,2],[2,0],[0,0]]]}, "properties": {"COMMUNITY": "Mango Hill"}},
    {"type": "Feature", "geometry": null, "properties": {"COMMUNITY": "Nowhere"}}
  ]
}`

const boundaryJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,1],[1,1],[1,0],[0,0]]]}, "properties": {}},
    {"type": "Feature", "geometry": {"type": "MultiPolygon", "coordinates": [[[[3,3],[3,4],[4,4],[4,3],[3,3]]]]}, "properties": {}}
  ]
}`

const ownersCSV = "LV Number,Owner Name,Land Value\n123-456,Jane Brown,\"1,250,000\"\n,Ghost,10\n789,Ken Ford,n/a\n"

func TestParseParcels(t *testing.T) {
	set, skipped, err := ParseParcels([]byte(parcelsJSON))
	require.NoError(t, err)

	assert.Equal(t, 1, skipped)
	require.Equal(t, 2, set.Len())

	p, ok := set.Get(10)
	require.True(t, ok)
	assert.Equal(t, "P-10", p.Properties.PID)
	assert.Equal(t, "123-456", p.Properties.LVNumber)
	assert.Equal(t, "St. Catherine", p.Properties.Parish)
	require.NotNil(t, p.Properties.AreaSqM)
	assert.InDelta(t, 2500.5, *p.Properties.AreaSqM, 1e-9)
	assert.IsType(t, orb.Polygon{}, p.Geometry)

	q, ok := set.Get(11)
	require.True(t, ok)
	assert.Empty(t, q.Properties.LVNumber)
	assert.Nil(t, q.Properties.AreaSqM)
}

func TestParseParcels_NonFiniteAreaIsMissing(t *testing.T) {
	for _, raw := range []string{`"NaN"`, `"Inf"`, `"-Infinity"`, `" nan "`} {
		t.Run(raw, func(t *testing.T) {
			data := strings.Replace(parcelsJSON, `"Shape__Area": 2500.5`, `"Shape__Area": `+raw, 1)
			set, _, err := ParseParcels([]byte(data))
			require.NoError(t, err)

			p, ok := set.Get(10)
			require.True(t, ok)
			assert.Nil(t, p.Properties.AreaSqM)
		})
	}
}

func TestParseParcels_DuplicateObjectID(t *testing.T) {
	data := strings.Replace(parcelsJSON, `"OBJECTID": 11`, `"OBJECTID": 10`, 1)
	_, _, err := ParseParcels([]byte(data))
	assert.Error(t, err)
}

func TestParseParcels_NotGeoJSON(t *testing.T) {
	_, _, err := ParseParcels([]byte(`{"type": "Feature"}`))
	assert.Error(t, err)
}

func TestParseCommunities(t *testing.T) {
	communities, err := ParseCommunities([]byte(communitiesJSON), "COMMUNITY")
	require.NoError(t, err)
	require.Len(t, communities, 2)

	assert.Equal(t, "Mango Hill", communities[0].Name)
	assert.NotNil(t, communities[0].Geometry)
	assert.Equal(t, "Nowhere", communities[1].Name)
	assert.Nil(t, communities[1].Geometry)
}

func TestParseBoundary(t *testing.T) {
	g, err := ParseBoundary([]byte(boundaryJSON))
	require.NoError(t, err)
	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, mp, 2)

	single, err := ParseBoundary([]byte(`{"type": "Polygon", "coordinates": [[[0,0],[0,1],[1,1],[1,0],[0,0]]]}`))
	require.NoError(t, err)
	assert.IsType(t, orb.Polygon{}, single)

	feature, err := ParseBoundary([]byte(`{"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,1],[1,1],[0,0]]]}, "properties": null}`))
	require.NoError(t, err)
	assert.IsType(t, orb.Polygon{}, feature)

	_, err = ParseBoundary([]byte(`{"type": "Point", "coordinates": [1, 2]}`))
	assert.ErrorIs(t, err, ErrNoPolygons)
}

func TestParseOwners(t *testing.T) {
	owners, err := ParseOwners(strings.NewReader(ownersCSV))
	require.NoError(t, err)
	require.Len(t, owners, 2)

	assert.Equal(t, "123-456", owners[0].ValuationNumber)
	assert.Equal(t, "Jane Brown", owners[0].Name)
	require.NotNil(t, owners[0].LandValue)
	assert.Equal(t, 1250000.0, *owners[0].LandValue)

	assert.Equal(t, "789", owners[1].ValuationNumber)
	assert.Nil(t, owners[1].LandValue)
}

func TestParseOwners_MissingColumn(t *testing.T) {
	_, err := ParseOwners(strings.NewReader("Name,Value\nA,1\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseOwners_Empty(t *testing.T) {
	owners, err := ParseOwners(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, owners)
}

func writeFiles(t *testing.T, withOwners bool) config.DataConfig {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	cfg := config.DataConfig{
		ParcelsPath:           write("parcels.geojson", parcelsJSON),
		CommunitiesPath:       write("communities.geojson", communitiesJSON),
		BoundaryPath:          write("boundary.geojson", boundaryJSON),
		OwnersPath:            filepath.Join(dir, "owners.csv"),
		CommunityNameProperty: "COMMUNITY",
	}
	if withOwners {
		write("owners.csv", ownersCSV)
	}
	return cfg
}

func TestFileLoader_Load(t *testing.T) {
	cfg := writeFiles(t, true)

	ds, err := NewFileLoader(cfg, logger.Nop()).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Parcels.Len())
	assert.Equal(t, 1, ds.SkippedParcels)
	assert.Len(t, ds.Communities, 2)
	assert.Equal(t, 2, ds.Owners.Len())
	assert.True(t, ds.Owners.Has("123-456"))
	assert.NotZero(t, ds.BoundaryFingerprint)
	assert.False(t, ds.LoadedAt.IsZero())

	again, err := NewFileLoader(cfg, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ds.Parcels.Fingerprint, again.Parcels.Fingerprint, "same bytes, same fingerprint")
	assert.Equal(t, ds.BoundaryFingerprint, again.BoundaryFingerprint)
}

func TestFileLoader_MissingOwnersIsNotFatal(t *testing.T) {
	cfg := writeFiles(t, false)

	ds, err := NewFileLoader(cfg, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, ds.Owners.Len())
}

func TestFileLoader_MissingParcels(t *testing.T) {
	cfg := writeFiles(t, true)
	cfg.ParcelsPath = filepath.Join(t.TempDir(), "missing.geojson")

	_, err := NewFileLoader(cfg, nil).Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoaderFunc(t *testing.T) {
	want := &Dataset{}
	var l Loader = LoaderFunc(func(context.Context) (*Dataset, error) { return want, nil })

	got, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, got)
}
