package models

import (
	"carbondesk/internal/client/climatiq"
)

// Activity is one user-entered emission line item. It is not a table of its
// own: the enriched list is serialized into EstimateBatch.Activities.
//
// Unit maps sub-dimension names to unit labels, e.g. {"money": "usd"} or
// {"distance_km": "km"}; keys with an underscore drive the dual-parameter
// derivation for the estimator payload.
type Activity struct {
	ActivityID string            `json:"activity"`
	Region     string            `json:"region"`
	Source     string            `json:"source,omitempty"`
	UnitType   string            `json:"unitType"`
	Unit       map[string]string `json:"unit"`
	UnitValue  float64           `json:"unitValue"`
	Date       string            `json:"date,omitempty"`

	// EstimatePayload and EstimateResult always belong to the same submission;
	// they are written together, never independently.
	EstimatePayload *climatiq.EstimateRequest `json:"estimatePayload,omitempty"`
	EstimateResult  *climatiq.EstimateResult  `json:"estimateResult,omitempty"`
}
