package carbonmark

import "encoding/json"

type CreateQuoteRequest struct {
	AssetPriceSourceID string  `json:"asset_price_source_id"`
	QuantityTonnes     float64 `json:"quantity_tonnes"`
}

type CreateOrderRequest struct {
	QuoteUUID           string         `json:"quote_uuid"`
	BeneficiaryName     string         `json:"beneficiary_name"`
	RetirementMessage   string         `json:"retirement_message"`
	ConsumptionMetadata map[string]any `json:"consumption_metadata,omitempty"`
}

type Quote struct {
	UUID               string  `json:"uuid"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
	CredentialID       int64   `json:"credential_id"`
	AssetPriceSourceID string  `json:"asset_price_source_id"`
	QuantityTonnes     float64 `json:"quantity_tonnes"`
	CostUSDC           float64 `json:"cost_usdc"`
	Consumed           int     `json:"consumed"`
}

// Order is the upstream retirement order. ID is kept raw because the API has
// returned it both as a string and as a number.
type Order struct {
	ID                   json.RawMessage `json:"id,omitempty"`
	CreatedAt            string          `json:"created_at,omitempty"`
	UpdatedAt            string          `json:"updated_at,omitempty"`
	Status               string          `json:"status"`
	ConsumptionMetadata  map[string]any  `json:"consumption_metadata,omitempty"`
	RegistrySpecificData map[string]any  `json:"registry_specific_data,omitempty"`
	Quote                *Quote          `json:"quote,omitempty"`
	CompletedAt          string          `json:"completed_at,omitempty"`
	TransactionHash      string          `json:"transaction_hash,omitempty"`
	RetirementMessage    string          `json:"retirement_message,omitempty"`
	BeneficiaryName      string          `json:"beneficiary_name,omitempty"`
	BeneficiaryAddress   string          `json:"beneficiary_address,omitempty"`
	PolygonscanURL       *string         `json:"polygonscan_url"`
	ViewRetirementURL    *string         `json:"view_retirement_url"`
}
