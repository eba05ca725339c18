package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbondesk/internal/models"
	"carbondesk/internal/repository"
	"carbondesk/internal/service"
)

type EstimateHandler struct {
	Estimates *service.EstimateBatchService
	Batches   repository.BatchStore
	Logger    *zap.Logger
}

func (h *EstimateHandler) Register(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/projects/:projectId/estimate-batch", h.submit)
		api.GET("/projects/:projectId/activities", h.activities)
	}
}

type estimateBatchPayload struct {
	Activities  []models.Activity `json:"activities"`
	DataVersion string            `json:"dataVersion"`
}

// @Summary Submit an estimate batch
// @Tags estimates
// @Accept json
// @Produce json
// @Param projectId path string true "project id"
// @Param payload body estimateBatchPayload true "activities to estimate"
// @Success 200 {object} apiResponse
// @Router /api/projects/{projectId}/estimate-batch [post]
func (h *EstimateHandler) submit(c *gin.Context) {
	var payload estimateBatchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	result, err := h.Estimates.SubmitEstimateBatch(c.Request.Context(), c.Param("projectId"), payload.Activities, payload.DataVersion)
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, result, nil)
}

// @Summary Latest saved activities for a project
// @Tags estimates
// @Produce json
// @Param projectId path string true "project id"
// @Success 200 {object} apiResponse
// @Router /api/projects/{projectId}/activities [get]
func (h *EstimateHandler) activities(c *gin.Context) {
	batch, err := h.Batches.LatestBatchByProject(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to load activities", nil)
		return
	}
	if batch == nil {
		Ok(c, gin.H{"batchId": nil, "activities": []models.Activity{}}, nil)
		return
	}
	var activities []models.Activity
	if err := json.Unmarshal(batch.Activities, &activities); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("stored batch is not decodable", zap.String("batch_id", batch.ID), zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "stored batch is corrupt", nil)
		return
	}
	Ok(c, gin.H{
		"batchId":    batch.ID,
		"createdAt":  batch.CreatedAt,
		"activities": activities,
	}, nil)
}
