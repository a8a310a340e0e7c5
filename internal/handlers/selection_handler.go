package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apierrors "github.com/DennisWilmot/land-mapping-web/internal/errors"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
	"github.com/DennisWilmot/land-mapping-web/internal/selection"
	"github.com/DennisWilmot/land-mapping-web/internal/services"
)

// SelectionHandler exposes the ordered parcel selection.
type SelectionHandler struct {
	service services.SelectionService
}

func NewSelectionHandler(service services.SelectionService) *SelectionHandler {
	return &SelectionHandler{service: service}
}

// PickRequest is a map click: either parcelId, or lat and lng.
type PickRequest struct {
	ParcelID *int     `json:"parcelId"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Multi    bool     `json:"multi"`
}

type RemoveRequest struct {
	ParcelID *int `json:"parcelId" binding:"required"`
}

type ReorderRequest struct {
	ParcelIDs []int `json:"parcelIds" binding:"required"`
}

// SelectionResponse is the selection as rendered by the side panel.
type SelectionResponse struct {
	ProjectID *uuid.UUID              `json:"projectId"`
	Items     []models.SelectedParcel `json:"items"`
	Count     int                     `json:"count"`
}

func selectionResponse(s selection.Selection) SelectionResponse {
	items := s.Items
	if items == nil {
		items = []models.SelectedParcel{}
	}
	return SelectionResponse{
		ProjectID: s.ProjectID,
		Items:     items,
		Count:     len(items),
	}
}

// Current handles GET /api/v1/selection.
func (h *SelectionHandler) Current(c *gin.Context) {
	c.JSON(http.StatusOK, selectionResponse(h.service.Current()))
}

// Pick handles POST /api/v1/selection/pick.
func (h *SelectionHandler) Pick(c *gin.Context) {
	var req PickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}

	sel, err := h.service.Pick(c.Request.Context(), services.PickRequest{
		ParcelID: req.ParcelID,
		Lat:      req.Lat,
		Lng:      req.Lng,
		Multi:    req.Multi,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to update selection")
		return
	}
	c.JSON(http.StatusOK, selectionResponse(sel))
}

// Remove handles POST /api/v1/selection/remove.
func (h *SelectionHandler) Remove(c *gin.Context) {
	var req RemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}
	c.JSON(http.StatusOK, selectionResponse(h.service.Remove(c.Request.Context(), *req.ParcelID)))
}

// Reorder handles POST /api/v1/selection/reorder.
func (h *SelectionHandler) Reorder(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}

	sel, err := h.service.Reorder(c.Request.Context(), req.ParcelIDs)
	if err != nil {
		respondServiceError(c, err, "Failed to reorder selection")
		return
	}
	c.JSON(http.StatusOK, selectionResponse(sel))
}

// Clear handles POST /api/v1/selection/clear.
func (h *SelectionHandler) Clear(c *gin.Context) {
	c.JSON(http.StatusOK, selectionResponse(h.service.Clear(c.Request.Context())))
}

// Restore handles POST /api/v1/selection/restore/:projectId.
func (h *SelectionHandler) Restore(c *gin.Context) {
	id, ok := projectIDParam(c, "projectId")
	if !ok {
		return
	}

	sel, err := h.service.Restore(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to restore selection")
		return
	}
	c.JSON(http.StatusOK, selectionResponse(sel))
}

func projectIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		apierrors.BadRequest(c, "Project id must be a UUID", map[string]interface{}{
			name: c.Param(name),
		})
		return uuid.Nil, false
	}
	return id, true
}
