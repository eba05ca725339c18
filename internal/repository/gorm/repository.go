package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carbondesk/internal/models"
	"carbondesk/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- projects ---------------------------------------------------------------

func (s *Store) CreateProject(ctx context.Context, item *models.Project) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetProjectByID(ctx context.Context, id string) (*models.Project, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	var item models.Project
	err := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Project
	if err := s.db.WithContext(ctx).
		Model(&models.Project{}).
		Order("updated_at desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateProject(ctx context.Context, item *models.Project) error {
	if s == nil || s.db == nil || item == nil || item.ID == "" {
		return nil
	}
	item.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", item.ID).Updates(map[string]any{
		"name":        item.Name,
		"description": item.Description,
		"updated_at":  item.UpdatedAt,
	}).Error
}

func (s *Store) DeleteProject(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Project{})
	return res.RowsAffected > 0, res.Error
}

// --- estimate batches -------------------------------------------------------

func (s *Store) InsertBatch(ctx context.Context, item *models.EstimateBatch) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetBatchByID(ctx context.Context, id string) (*models.EstimateBatch, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	var item models.EstimateBatch
	err := s.db.WithContext(ctx).Model(&models.EstimateBatch{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) LatestBatchByProject(ctx context.Context, projectID string) (*models.EstimateBatch, error) {
	if s == nil || s.db == nil || strings.TrimSpace(projectID) == "" {
		return nil, nil
	}
	var item models.EstimateBatch
	err := s.db.WithContext(ctx).
		Model(&models.EstimateBatch{}).
		Where("project_id = ?", projectID).
		Order("created_at desc").
		Order("id desc").
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- retirement orders ------------------------------------------------------

func (s *Store) UpsertOrderByQuoteUUID(ctx context.Context, item *models.RetirementOrder) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.QuoteUUID) == "" {
		return nil
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "quote_uuid"}},
		DoUpdates: clause.Assignments(map[string]any{
			"project_id":            item.ProjectID,
			"asset_price_source_id": item.AssetPriceSourceID,
			"status":                item.Status,
			"quantity_tonnes":       item.QuantityTonnes,
			"beneficiary_name":      item.BeneficiaryName,
			"retirement_message":    item.RetirementMessage,
			"polygonscan_url":       gorm.Expr("COALESCE(?, polygonscan_url)", item.PolygonscanURL),
			"view_retirement_url":   gorm.Expr("COALESCE(?, view_retirement_url)", item.ViewRetirementURL),
			"raw_quote_json":        item.RawQuoteJSON,
			"raw_order_json":        item.RawOrderJSON,
			"unit_price":            item.UnitPrice,
			"total_cost":            item.TotalCost,
			"updated_at":            item.UpdatedAt,
		}),
	}).Create(item).Error
}

func (s *Store) ApplyOrderStatus(ctx context.Context, quoteUUID string, update repository.OrderStatusUpdate) error {
	if s == nil || s.db == nil || strings.TrimSpace(quoteUUID) == "" {
		return nil
	}
	next := map[string]any{
		"status":              update.Status,
		"polygonscan_url":     gorm.Expr("COALESCE(?, polygonscan_url)", update.PolygonscanURL),
		"view_retirement_url": gorm.Expr("COALESCE(?, view_retirement_url)", update.ViewRetirementURL),
		"updated_at":          time.Now().UTC(),
	}
	if update.RawOrderJSON != nil {
		next["raw_order_json"] = update.RawOrderJSON
	}
	return s.db.WithContext(ctx).
		Model(&models.RetirementOrder{}).
		Where("quote_uuid = ?", quoteUUID).
		Updates(next).Error
}

func (s *Store) GetOrderByQuoteUUID(ctx context.Context, quoteUUID string) (*models.RetirementOrder, error) {
	if s == nil || s.db == nil || strings.TrimSpace(quoteUUID) == "" {
		return nil, nil
	}
	var item models.RetirementOrder
	err := s.db.WithContext(ctx).
		Model(&models.RetirementOrder{}).
		Where("quote_uuid = ?", quoteUUID).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListOrders(ctx context.Context, params repository.ListOrdersParams) ([]models.RetirementOrder, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrderFilter(s.db.WithContext(ctx).Model(&models.RetirementOrder{}), params)
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.RetirementOrder
	if err := query.
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountOrders(ctx context.Context, params repository.ListOrdersParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := applyOrderFilter(s.db.WithContext(ctx).Model(&models.RetirementOrder{}), params).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) DeleteOrderByQuoteUUID(ctx context.Context, quoteUUID string) (bool, error) {
	if s == nil || s.db == nil || strings.TrimSpace(quoteUUID) == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).Where("quote_uuid = ?", quoteUUID).Delete(&models.RetirementOrder{})
	return res.RowsAffected > 0, res.Error
}

func applyOrderFilter(query *gorm.DB, params repository.ListOrdersParams) *gorm.DB {
	if params.ProjectKey != nil && strings.TrimSpace(*params.ProjectKey) != "" {
		query = query.Where("project_id = ?", strings.TrimSpace(*params.ProjectKey))
	}
	return query
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 200 {
		return 200
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

var _ repository.Store = (*Store)(nil)
