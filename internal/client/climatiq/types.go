package climatiq

import "encoding/json"

// EmissionFactorRef selects a catalog entry for one estimate.
type EmissionFactorRef struct {
	ActivityID  string `json:"activity_id"`
	DataVersion string `json:"data_version"`
	Region      string `json:"region"`
}

// EstimateRequest is one element of the batch payload.
type EstimateRequest struct {
	EmissionFactor EmissionFactorRef `json:"emission_factor"`
	Parameters     map[string]any    `json:"parameters"`
}

type EmissionFactor struct {
	Name              string `json:"name"`
	ActivityID        string `json:"activity_id"`
	ID                string `json:"id"`
	AccessType        string `json:"access_type"`
	Source            string `json:"source"`
	SourceDataset     string `json:"source_dataset"`
	Year              int    `json:"year"`
	Region            string `json:"region"`
	Category          string `json:"category"`
	SourceLCAActivity string `json:"source_lca_activity"`
}

type ConstituentGases struct {
	CO2eTotal *float64 `json:"co2e_total"`
	CO2eOther *float64 `json:"co2e_other"`
	CO2       float64  `json:"co2"`
	CH4       float64  `json:"ch4"`
	N2O       float64  `json:"n2o"`
}

type ActivityData struct {
	ActivityValue float64 `json:"activity_value"`
	ActivityUnit  string  `json:"activity_unit"`
}

type EstimateResult struct {
	CO2e                  float64           `json:"co2e"`
	CO2eUnit              string            `json:"co2e_unit"`
	CO2eCalculationMethod string            `json:"co2e_calculation_method,omitempty"`
	CO2eCalculationOrigin string            `json:"co2e_calculation_origin,omitempty"`
	EmissionFactor        *EmissionFactor   `json:"emission_factor,omitempty"`
	ConstituentGases      *ConstituentGases `json:"constituent_gases,omitempty"`
	ActivityData          *ActivityData     `json:"activity_data,omitempty"`
	AuditTrail            string            `json:"audit_trail,omitempty"`
	Notices               json.RawMessage   `json:"notices,omitempty"`
}

type EstimateBatchResponse struct {
	Results []EstimateResult `json:"results"`
}

// SearchPage keeps result entries raw: the catalog schema is wide and the
// callers only pass them through.
type SearchPage struct {
	CurrentPage  int               `json:"current_page"`
	LastPage     int               `json:"last_page"`
	TotalResults int               `json:"total_results"`
	Results      []json.RawMessage `json:"results"`
}
