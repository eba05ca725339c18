package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbondesk/internal/models"
	"carbondesk/internal/repository"
)

type ProjectHandler struct {
	Store  repository.ProjectStore
	Logger *zap.Logger
}

func (h *ProjectHandler) Register(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/projects", h.list)
		api.POST("/projects", h.create)
		api.GET("/projects/:projectId", h.get)
		api.PATCH("/projects/:projectId", h.update)
		api.DELETE("/projects/:projectId", h.remove)
	}
}

type projectPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// @Summary List projects
// @Tags projects
// @Produce json
// @Success 200 {object} apiResponse
// @Router /api/projects [get]
func (h *ProjectHandler) list(c *gin.Context) {
	items, err := h.Store.ListProjects(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to list projects", nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary Create a project
// @Tags projects
// @Accept json
// @Produce json
// @Param payload body projectPayload true "project fields"
// @Success 200 {object} apiResponse
// @Router /api/projects [post]
func (h *ProjectHandler) create(c *gin.Context) {
	var payload projectPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	name := strings.TrimSpace(payload.Name)
	if len(name) < 2 {
		Error(c, http.StatusBadRequest, "project name must be at least 2 characters", nil)
		return
	}
	item := &models.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(payload.Description),
	}
	if err := h.Store.CreateProject(c.Request.Context(), item); err != nil {
		Error(c, http.StatusInternalServerError, "failed to create project", nil)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("project created", zap.String("project_id", item.ID), zap.String("name", item.Name))
	}
	Ok(c, item, nil)
}

// @Summary Get a project
// @Tags projects
// @Produce json
// @Param projectId path string true "project id"
// @Success 200 {object} apiResponse
// @Router /api/projects/{projectId} [get]
func (h *ProjectHandler) get(c *gin.Context) {
	item, err := h.Store.GetProjectByID(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to load project", nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "project not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Update a project
// @Tags projects
// @Accept json
// @Produce json
// @Param projectId path string true "project id"
// @Param payload body projectPayload true "fields to change"
// @Success 200 {object} apiResponse
// @Router /api/projects/{projectId} [patch]
func (h *ProjectHandler) update(c *gin.Context) {
	item, err := h.Store.GetProjectByID(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to load project", nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "project not found", nil)
		return
	}
	var payload struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if len(name) < 2 {
			Error(c, http.StatusBadRequest, "project name must be at least 2 characters", nil)
			return
		}
		item.Name = name
	}
	if payload.Description != nil {
		item.Description = strings.TrimSpace(*payload.Description)
	}
	if err := h.Store.UpdateProject(c.Request.Context(), item); err != nil {
		Error(c, http.StatusInternalServerError, "failed to update project", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Delete a project
// @Tags projects
// @Produce json
// @Param projectId path string true "project id"
// @Success 200 {object} apiResponse
// @Router /api/projects/{projectId} [delete]
func (h *ProjectHandler) remove(c *gin.Context) {
	deleted, err := h.Store.DeleteProject(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to delete project", nil)
		return
	}
	if !deleted {
		Error(c, http.StatusNotFound, "project not found", nil)
		return
	}
	Ok(c, gin.H{"deleted": true}, nil)
}
