package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// RetirementOrder is the local record of a credit retirement placed upstream.
// quote_uuid is the natural key: re-creating with the same quote merges into
// the existing row instead of duplicating it.
type RetirementOrder struct {
	ID                 uint64  `gorm:"primaryKey;autoIncrement"`
	ProjectID          *string `gorm:"type:varchar(36);index"`
	AssetPriceSourceID string  `gorm:"type:varchar(100);not null"`
	QuoteUUID          string  `gorm:"type:varchar(64);not null;uniqueIndex"`

	Status         string          `gorm:"type:varchar(30);index"`
	QuantityTonnes decimal.Decimal `gorm:"type:numeric(20,6);not null"`

	BeneficiaryName   string `gorm:"type:text"`
	RetirementMessage string `gorm:"type:text"`

	// Populated once the retirement transaction settles upstream. Sticky: a
	// merge never overwrites a non-null value with null.
	PolygonscanURL    *string `gorm:"type:text"`
	ViewRetirementURL *string `gorm:"type:text"`

	RawQuoteJSON datatypes.JSON
	RawOrderJSON datatypes.JSON

	UnitPrice decimal.Decimal `gorm:"type:numeric(20,6)"`
	TotalCost decimal.Decimal `gorm:"type:numeric(20,6)"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (RetirementOrder) TableName() string {
	return "retirement_orders"
}
