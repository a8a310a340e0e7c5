package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	apierrors "github.com/DennisWilmot/land-mapping-web/internal/errors"
	"github.com/DennisWilmot/land-mapping-web/internal/filter"
	"github.com/DennisWilmot/land-mapping-web/internal/middleware"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
	"github.com/DennisWilmot/land-mapping-web/internal/preprocess"
	"github.com/DennisWilmot/land-mapping-web/internal/services"
)

// ParcelHandler handles parcel-related HTTP requests.
type ParcelHandler struct {
	service services.ParcelService
}

// NewParcelHandler creates a new ParcelHandler instance.
func NewParcelHandler(service services.ParcelService) *ParcelHandler {
	return &ParcelHandler{
		service: service,
	}
}

// FilterQuery is the query string shared by the list and counts endpoints.
// divisions is a comma-separated list of visible divisions; when absent every
// division is visible, when present but empty none is.
type FilterQuery struct {
	MinSize      *float64 `form:"minSize" binding:"omitempty,gte=0"`
	MaxSize      *float64 `form:"maxSize" binding:"omitempty,gte=0"`
	BoundaryOnly bool     `form:"boundaryOnly"`
	OwnersOnly   bool     `form:"ownersOnly"`
}

// AtPointRequest represents the query parameters for the at-point endpoint.
type AtPointRequest struct {
	Lat *float64 `form:"lat" binding:"required"`
	Lng *float64 `form:"lng" binding:"required"`
}

// ParcelFeatureCollection is a GeoJSON FeatureCollection with the filter
// counts as a foreign member.
type ParcelFeatureCollection struct {
	Type     string             `json:"type"`
	Features []*geojson.Feature `json:"features"`
	Counts   filter.Counts      `json:"counts"`
}

// ParcelResponse represents the response for single-parcel endpoints.
type ParcelResponse struct {
	Parcel *ParcelData `json:"parcel"`
}

// ParcelData is the full detail view of one parcel.
type ParcelData struct {
	Geometry   *geojson.Geometry       `json:"geometry"`
	Properties models.ParcelProperties `json:"properties"`
	Owner      *models.Owner           `json:"owner"`
	Division   *models.DivisionName    `json:"division"`
	Center     [2]float64              `json:"center"`
	InBoundary bool                    `json:"isInBoundary"`
	HasOwner   bool                    `json:"hasOwner"`
}

// ReloadResponse reports the outcome of a dataset reload.
type ReloadResponse struct {
	ReloadedAt time.Time        `json:"reloadedAt"`
	Stats      preprocess.Stats `json:"stats"`
	Skipped    int              `json:"skippedParcels"`
}

// List handles GET /api/v1/parcels.
// It returns the displayed parcels as GeoJSON plus the summary counts.
func (h *ParcelHandler) List(c *gin.Context) {
	res, ok := h.filter(c)
	if !ok {
		return
	}

	features := make([]*geojson.Feature, 0, len(res.Displayed))
	for _, a := range res.Displayed {
		features = append(features, parcelFeature(a))
	}

	c.JSON(http.StatusOK, ParcelFeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
		Counts:   res.Counts,
	})
}

// Counts handles GET /api/v1/parcels/counts.
func (h *ParcelHandler) Counts(c *gin.Context) {
	res, ok := h.filter(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.Counts)
}

func (h *ParcelHandler) filter(c *gin.Context) (filter.Result, bool) {
	var q FilterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apierrors.BindError(c, err)
		return filter.Result{}, false
	}

	cfg, err := h.service.DefaultFilter()
	if err != nil {
		respondServiceError(c, err, "Failed to build parcel filter")
		return filter.Result{}, false
	}

	cfg.BoundaryOnly = q.BoundaryOnly
	cfg.OwnersOnly = q.OwnersOnly
	if q.MinSize != nil {
		cfg.Size.Min = *q.MinSize
	}
	if q.MaxSize != nil {
		cfg.Size.Max = *q.MaxSize
	}
	if raw, present := c.GetQuery("divisions"); present {
		cfg.VisibleDivisions = parseDivisions(raw)
	}

	res, err := h.service.Filter(c.Request.Context(), cfg)
	if err != nil {
		respondServiceError(c, err, "Failed to filter parcels")
		return filter.Result{}, false
	}
	return res, true
}

// AtPoint handles GET /api/v1/parcels/at-point.
// It retrieves the parcel that contains the given lat/lng point.
func (h *ParcelHandler) AtPoint(c *gin.Context) {
	var req AtPointRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Debug("Processing at-point request", map[string]interface{}{
			"lat": *req.Lat,
			"lng": *req.Lng,
		})
	}

	d, err := h.service.GetParcelAtPoint(c.Request.Context(), *req.Lat, *req.Lng)
	if err != nil {
		respondServiceError(c, err, "Failed to look up parcel")
		return
	}
	c.JSON(http.StatusOK, ParcelResponse{Parcel: parcelData(d)})
}

// Get handles GET /api/v1/parcels/:id.
func (h *ParcelHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Parcel id must be an integer OBJECTID", map[string]interface{}{
			"id": c.Param("id"),
		})
		return
	}

	d, err := h.service.GetParcel(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to load parcel")
		return
	}
	c.JSON(http.StatusOK, ParcelResponse{Parcel: parcelData(d)})
}

// Divisions handles GET /api/v1/divisions.
// Each division becomes one MultiPolygon feature in priority order.
func (h *ParcelHandler) Divisions(c *gin.Context) {
	divs, err := h.service.Divisions(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to load divisions")
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, d := range divs {
		outline := d.Outline
		if outline == nil {
			outline = orb.MultiPolygon{}
		}
		f := geojson.NewFeature(outline)
		f.ID = string(d.Name)
		f.Properties["name"] = string(d.Name)
		f.Properties["communities"] = d.Communities
		f.Properties["parcels"] = d.Parcels
		fc.Append(f)
	}
	c.JSON(http.StatusOK, fc)
}

// Reload handles POST /api/v1/admin/reload.
// The previous snapshot keeps serving if the reload fails.
func (h *ParcelHandler) Reload(c *gin.Context) {
	snap, err := h.service.Reload(c.Request.Context())
	if err != nil {
		apierrors.InternalServerError(c, "Failed to reload parcel data", err)
		return
	}

	c.JSON(http.StatusOK, ReloadResponse{
		ReloadedAt: snap.ReloadedAt,
		Stats:      snap.Annotated.Stats,
		Skipped:    snap.Dataset.SkippedParcels,
	})
}

func parseDivisions(raw string) map[models.DivisionName]bool {
	visible := make(map[models.DivisionName]bool)
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			visible[models.DivisionName(name)] = true
		}
	}
	return visible
}

func parcelFeature(a models.AnnotatedParcel) *geojson.Feature {
	p := a.Parcel.Properties
	f := geojson.NewFeature(a.Parcel.Geometry)
	f.ID = p.ObjectID
	f.Properties["objectId"] = p.ObjectID
	f.Properties["lvNumber"] = p.LVNumber
	f.Properties["isInBoundary"] = a.IsInBoundary
	f.Properties["hasOwner"] = a.HasOwner
	f.Properties["center"] = [2]float64{a.Center[0], a.Center[1]}
	if a.Division != nil {
		f.Properties["division"] = string(*a.Division)
	}
	if p.AreaSqM != nil && a.Parcel.HasValidArea() {
		f.Properties["areaSqM"] = *p.AreaSqM
	}
	if p.AddressLabel != "" {
		f.Properties["addressLabel"] = p.AddressLabel
	}
	return f
}

func parcelData(d *services.ParcelDetails) *ParcelData {
	if d == nil {
		return nil
	}
	props := d.Parcel.Properties
	if props.AreaSqM != nil && !d.Parcel.HasValidArea() {
		// encoding/json cannot render NaN or Inf.
		props.AreaSqM = nil
	}
	return &ParcelData{
		Geometry:   geojson.NewGeometry(d.Parcel.Geometry),
		Properties: props,
		Owner:      d.Owner,
		Division:   d.Annotation.Division,
		Center:     [2]float64{d.Center[0], d.Center[1]},
		InBoundary: d.Annotation.IsInBoundary,
		HasOwner:   d.Annotation.HasOwner,
	}
}
