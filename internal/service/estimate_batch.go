package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"carbondesk/internal/apperr"
	"carbondesk/internal/client/climatiq"
	"carbondesk/internal/models"
	"carbondesk/internal/repository"
)

// EstimateBatchService turns user-entered activities into one estimator batch
// call and persists the merged result as an immutable snapshot.
type EstimateBatchService struct {
	Projects repository.ProjectStore
	Batches  repository.BatchStore
	Climatiq *climatiq.Client
	Logger   *zap.Logger

	// DataVersion is used when a submission does not carry one.
	DataVersion string
}

type EstimateBatchResult struct {
	BatchID    string            `json:"batchId"`
	Activities []models.Activity `json:"activities"`
}

func (s *EstimateBatchService) SubmitEstimateBatch(ctx context.Context, projectID string, activities []models.Activity, dataVersion string) (*EstimateBatchResult, error) {
	project, err := s.Projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, apperr.Storage("project_lookup", err)
	}
	if project == nil {
		return nil, apperr.NotFound("project %s not found", projectID)
	}
	if len(activities) == 0 {
		return nil, apperr.Validation("at least one activity is required")
	}
	if strings.TrimSpace(dataVersion) == "" {
		dataVersion = s.DataVersion
	}

	requests := make([]climatiq.EstimateRequest, len(activities))
	for i := range activities {
		if err := validateActivity(&activities[i]); err != nil {
			return nil, err
		}
		req := climatiq.EstimateRequest{
			EmissionFactor: climatiq.EmissionFactorRef{
				ActivityID:  activities[i].ActivityID,
				DataVersion: dataVersion,
				Region:      activities[i].Region,
			},
			Parameters: buildEstimateParameters(activities[i].Unit, activities[i].UnitValue),
		}
		requests[i] = req
		// The payload is attached before submission so a failed batch still
		// tells the caller exactly what would have been sent.
		activities[i].EstimatePayload = &req
	}

	resp, err := s.Climatiq.EstimateBatch(ctx, requests)
	if err != nil {
		return nil, upstreamClimatiq("estimate", err)
	}
	if len(resp.Results) != len(activities) {
		return nil, apperr.Upstream("estimate", errors.New("estimator returned a misaligned results array"), 0, "")
	}
	for i := range activities {
		result := resp.Results[i]
		activities[i].EstimateResult = &result
	}

	raw, err := json.Marshal(activities)
	if err != nil {
		return nil, apperr.Storage("persist", err)
	}
	batch := &models.EstimateBatch{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Activities: datatypes.JSON(raw),
	}
	if err := s.Batches.InsertBatch(ctx, batch); err != nil {
		return nil, apperr.Storage("persist", err)
	}

	if s.Logger != nil {
		s.Logger.Info("estimate batch saved",
			zap.String("project_id", projectID),
			zap.String("batch_id", batch.ID),
			zap.Int("activities", len(activities)),
		)
	}
	return &EstimateBatchResult{BatchID: batch.ID, Activities: activities}, nil
}

func validateActivity(a *models.Activity) error {
	if strings.TrimSpace(a.ActivityID) == "" {
		return apperr.Validation("activity is missing an activity id")
	}
	if strings.TrimSpace(a.Region) == "" {
		return apperr.Validation("activity %s is missing a region", a.ActivityID)
	}
	if strings.TrimSpace(a.UnitType) == "" {
		return apperr.Validation("activity %s is missing a unit type", a.ActivityID)
	}
	if len(a.Unit) == 0 {
		return apperr.Validation("activity %s is missing a unit", a.ActivityID)
	}
	if a.UnitValue <= 0 {
		return apperr.Validation("activity %s requires a positive unit value", a.ActivityID)
	}
	return nil
}

// buildEstimateParameters derives the estimator parameters from the unit
// mapping. A key of the form mainKey_subKey produces two entries: the numeric
// quantity under mainKey and the unit label under the full key, which is how
// compound unit types (distance + distance_unit) are expressed. A plain key
// takes the quantity directly.
func buildEstimateParameters(unit map[string]string, unitValue float64) map[string]any {
	params := make(map[string]any, len(unit)*2)
	for key, label := range unit {
		if mainKey, _, found := strings.Cut(key, "_"); found {
			params[mainKey] = unitValue
			params[key] = label
		} else {
			params[key] = unitValue
		}
	}
	return params
}

func upstreamClimatiq(stage string, err error) error {
	var apiErr *climatiq.APIError
	if errors.As(err, &apiErr) {
		return apperr.Upstream(stage, err, apiErr.Status, apiErr.Body)
	}
	return apperr.Upstream(stage, err, 0, "")
}
