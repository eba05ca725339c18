package repository

import (
	"context"

	"gorm.io/datatypes"

	"carbondesk/internal/models"
)

type ProjectStore interface {
	CreateProject(ctx context.Context, item *models.Project) error
	GetProjectByID(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	UpdateProject(ctx context.Context, item *models.Project) error
	DeleteProject(ctx context.Context, id string) (bool, error)
}

// BatchStore persists immutable estimate snapshots. There is no update path:
// every submit inserts a new row and "current state" is the latest row.
type BatchStore interface {
	InsertBatch(ctx context.Context, item *models.EstimateBatch) error
	GetBatchByID(ctx context.Context, id string) (*models.EstimateBatch, error)
	// LatestBatchByProject orders by created_at desc with id desc as the
	// deterministic tie-break for same-timestamp rows.
	LatestBatchByProject(ctx context.Context, projectID string) (*models.EstimateBatch, error)
}

type OrderStore interface {
	// UpsertOrderByQuoteUUID inserts or, when the quote_uuid already exists,
	// merges onto the existing row in one atomic statement. polygonscan_url
	// and view_retirement_url are sticky: an incoming null never clears a
	// stored value.
	UpsertOrderByQuoteUUID(ctx context.Context, item *models.RetirementOrder) error
	// ApplyOrderStatus merges a fresh upstream order state onto the stored
	// row. Missing row is a no-op.
	ApplyOrderStatus(ctx context.Context, quoteUUID string, update OrderStatusUpdate) error
	GetOrderByQuoteUUID(ctx context.Context, quoteUUID string) (*models.RetirementOrder, error)
	ListOrders(ctx context.Context, params ListOrdersParams) ([]models.RetirementOrder, error)
	CountOrders(ctx context.Context, params ListOrdersParams) (int64, error)
	DeleteOrderByQuoteUUID(ctx context.Context, quoteUUID string) (bool, error)
}

// Store is what the wiring selects one implementation of (sqlite or memory).
type Store interface {
	ProjectStore
	BatchStore
	OrderStore
}

type ListOrdersParams struct {
	Limit      int
	Offset     int
	ProjectKey *string
}

// OrderStatusUpdate carries the shared refresh merge: status and
// raw_order_json always win, URLs only when non-null.
type OrderStatusUpdate struct {
	Status            string
	PolygonscanURL    *string
	ViewRetirementURL *string
	RawOrderJSON      datatypes.JSON
}
