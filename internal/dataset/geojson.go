package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/DennisWilmot/land-mapping-web/internal/division"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// ErrNoPolygons is returned when a boundary file contains no polygon geometry.
var ErrNoPolygons = errors.New("no polygon geometry found")

// Property keys read from the parcel feature collection. The first present
// key wins for fields that are published under several names.
var (
	objectIDKeys     = []string{"OBJECTID", "ObjectID", "objectid"}
	pidKeys          = []string{"PID", "pid"}
	lvNumberKeys     = []string{"LV_NUMBER", "LV_NUM", "lv_number"}
	volFolioKeys     = []string{"VOL_FOLIO", "VOLFOLIO", "vol_folio"}
	areaKeys         = []string{"AREA_SQM", "Shape__Area", "SHAPE_Area", "AREA", "area"}
	addressLabelKeys = []string{"ADDRESS_LABEL", "ADDR_LABEL", "LABEL"}
	streetNameKeys   = []string{"STREET_NAME", "STREET"}
	localityKeys     = []string{"LOCALITY", "COMMUNITY"}
	parishKeys       = []string{"PARISH"}
)

// ParseParcels decodes a parcel FeatureCollection. Features without a usable
// OBJECTID are skipped and counted; duplicate OBJECTIDs are an error.
func ParseParcels(data []byte) (*models.ParcelSet, int, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode parcels: %w", err)
	}

	parcels := make([]*models.Parcel, 0, len(fc.Features))
	skipped := 0
	for _, f := range fc.Features {
		id, ok := intProp(f.Properties, objectIDKeys...)
		if !ok {
			skipped++
			continue
		}

		p := &models.Parcel{
			Geometry: f.Geometry,
			Properties: models.ParcelProperties{
				ObjectID:     id,
				PID:          stringProp(f.Properties, pidKeys...),
				LVNumber:     stringProp(f.Properties, lvNumberKeys...),
				VolFolio:     stringProp(f.Properties, volFolioKeys...),
				AddressLabel: stringProp(f.Properties, addressLabelKeys...),
				StreetName:   stringProp(f.Properties, streetNameKeys...),
				Locality:     stringProp(f.Properties, localityKeys...),
				Parish:       stringProp(f.Properties, parishKeys...),
			},
		}
		if area, ok := floatProp(f.Properties, areaKeys...); ok {
			p.Properties.AreaSqM = &area
		}
		parcels = append(parcels, p)
	}

	set, err := models.NewParcelSet(parcels)
	if err != nil {
		return nil, skipped, err
	}
	return set, skipped, nil
}

// ParseCommunities decodes the community FeatureCollection, reading each
// community's name from nameProperty. Order follows the file.
func ParseCommunities(data []byte, nameProperty string) ([]division.Community, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode communities: %w", err)
	}

	out := make([]division.Community, 0, len(fc.Features))
	for _, f := range fc.Features {
		out = append(out, division.Community{
			Name:     stringProp(f.Properties, nameProperty),
			Geometry: f.Geometry,
		})
	}
	return out, nil
}

// ParseBoundary decodes the constituency boundary. It accepts a
// FeatureCollection, a single Feature or a bare geometry; polygons from all
// features are merged into one MultiPolygon.
func ParseBoundary(data []byte) (orb.Geometry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode boundary: %w", err)
	}

	var geoms []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode boundary: %w", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode boundary: %w", err)
		}
		geoms = append(geoms, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode boundary: %w", err)
		}
		geoms = append(geoms, g.Geometry())
	}

	var mp orb.MultiPolygon
	for _, g := range geoms {
		mp = appendPolygons(mp, g)
	}
	switch len(mp) {
	case 0:
		return nil, ErrNoPolygons
	case 1:
		return mp[0], nil
	default:
		return mp, nil
	}
}

func appendPolygons(mp orb.MultiPolygon, g orb.Geometry) orb.MultiPolygon {
	switch g := g.(type) {
	case orb.Polygon:
		return append(mp, g)
	case orb.MultiPolygon:
		return append(mp, g...)
	case orb.Collection:
		for _, c := range g {
			mp = appendPolygons(mp, c)
		}
	}
	return mp
}

func lookup(props geojson.Properties, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := props[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringProp(props geojson.Properties, keys ...string) string {
	v, ok := lookup(props, keys...)
	if !ok {
		return ""
	}
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func floatProp(props geojson.Properties, keys ...string) (float64, bool) {
	v, ok := lookup(props, keys...)
	if !ok {
		return 0, false
	}
	switch v := v.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func intProp(props geojson.Properties, keys ...string) (int, bool) {
	f, ok := floatProp(props, keys...)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
