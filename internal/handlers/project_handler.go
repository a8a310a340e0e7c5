package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/DennisWilmot/land-mapping-web/internal/errors"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
	"github.com/DennisWilmot/land-mapping-web/internal/services"
)

// ProjectHandler manages saved selections ("projects").
type ProjectHandler struct {
	projects  services.ProjectService
	selection services.SelectionService
}

// NewProjectHandler creates a ProjectHandler. selection supplies the parcel
// ids when a save request does not list any.
func NewProjectHandler(projects services.ProjectService, selection services.SelectionService) *ProjectHandler {
	return &ProjectHandler{projects: projects, selection: selection}
}

// CreateProjectRequest saves a named selection. Without parcelIds the
// current selection is saved.
type CreateProjectRequest struct {
	ParcelIDs *[]int `json:"parcelIds"`
	Name      string `json:"name" binding:"max=200"`
}

type UpdateProjectRequest struct {
	ParcelIDs []int `json:"parcelIds" binding:"required"`
}

type RenameProjectRequest struct {
	Name string `json:"name" binding:"max=200"`
}

// ProjectListResponse lists saved selections in creation order.
type ProjectListResponse struct {
	Projects []models.SavedSelection `json:"projects"`
	Count    int                     `json:"count"`
}

// List handles GET /api/v1/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	list := h.projects.List(c.Request.Context())
	c.JSON(http.StatusOK, ProjectListResponse{Projects: list, Count: len(list)})
}

// Create handles POST /api/v1/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}

	var ids []int
	if req.ParcelIDs != nil {
		ids = *req.ParcelIDs
	} else if h.selection != nil {
		ids = h.selection.Current().IDs()
	}

	rec, err := h.projects.Save(c.Request.Context(), req.Name, ids)
	if err != nil {
		apierrors.StorageError(c, "Selection saved in memory but not persisted", err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Get handles GET /api/v1/projects/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := projectIDParam(c, "id")
	if !ok {
		return
	}

	rec, found := h.projects.Get(c.Request.Context(), id)
	if !found {
		apierrors.NotFound(c, "Project not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Update handles PUT /api/v1/projects/:id. Unknown ids are a no-op.
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := projectIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}

	if err := h.projects.Update(c.Request.Context(), id, req.ParcelIDs); err != nil {
		apierrors.StorageError(c, "Selection updated in memory but not persisted", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Rename handles PATCH /api/v1/projects/:id/name. Blank names are ignored.
func (h *ProjectHandler) Rename(c *gin.Context) {
	id, ok := projectIDParam(c, "id")
	if !ok {
		return
	}
	var req RenameProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BindError(c, err)
		return
	}

	if err := h.projects.Rename(c.Request.Context(), id, req.Name); err != nil {
		apierrors.StorageError(c, "Selection renamed in memory but not persisted", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/projects/:id. Unknown ids are a no-op.
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := projectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.projects.Delete(c.Request.Context(), id); err != nil {
		apierrors.StorageError(c, "Selection deleted in memory but not persisted", err)
		return
	}
	c.Status(http.StatusNoContent)
}
