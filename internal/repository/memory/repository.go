// Package memoryrepository is the map-backed store used when no database file
// is wanted (tests, demos). It mirrors the relational implementation's
// semantics: append-only batches, atomic upsert-by-quote-uuid with sticky URL
// merge, newest-first listing.
package memoryrepository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"carbondesk/internal/models"
	"carbondesk/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	projects map[string]models.Project
	batches  []models.EstimateBatch
	orders   map[string]models.RetirementOrder // keyed by quote uuid
	orderSeq uint64
}

func New() *Store {
	return &Store{
		projects: map[string]models.Project{},
		orders:   map[string]models.RetirementOrder{},
	}
}

// --- projects ---------------------------------------------------------------

func (s *Store) CreateProject(ctx context.Context, item *models.Project) error {
	if s == nil || item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}
	s.projects[item.ID] = *item
	return nil
}

func (s *Store) GetProjectByID(ctx context.Context, id string) (*models.Project, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.projects[id]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.Project, 0, len(s.projects))
	for _, item := range s.projects {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	return items, nil
}

func (s *Store) UpdateProject(ctx context.Context, item *models.Project) error {
	if s == nil || item == nil || item.ID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.projects[item.ID]
	if !ok {
		return nil
	}
	existing.Name = item.Name
	existing.Description = item.Description
	existing.UpdatedAt = time.Now().UTC()
	s.projects[item.ID] = existing
	*item = existing
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) (bool, error) {
	if s == nil {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return false, nil
	}
	delete(s.projects, id)
	return true, nil
}

// --- estimate batches -------------------------------------------------------

func (s *Store) InsertBatch(ctx context.Context, item *models.EstimateBatch) error {
	if s == nil || item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.batches = append(s.batches, *item)
	return nil
}

func (s *Store) GetBatchByID(ctx context.Context, id string) (*models.EstimateBatch, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.batches {
		if s.batches[i].ID == id {
			out := s.batches[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) LatestBatchByProject(ctx context.Context, projectID string) (*models.EstimateBatch, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.EstimateBatch
	for i := range s.batches {
		b := &s.batches[i]
		if b.ProjectID != projectID {
			continue
		}
		if latest == nil || b.CreatedAt.After(latest.CreatedAt) ||
			(b.CreatedAt.Equal(latest.CreatedAt) && b.ID > latest.ID) {
			latest = b
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

// --- retirement orders ------------------------------------------------------

func (s *Store) UpsertOrderByQuoteUUID(ctx context.Context, item *models.RetirementOrder) error {
	if s == nil || item == nil || strings.TrimSpace(item.QuoteUUID) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	next := *item
	if existing, ok := s.orders[item.QuoteUUID]; ok {
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
		if next.PolygonscanURL == nil {
			next.PolygonscanURL = existing.PolygonscanURL
		}
		if next.ViewRetirementURL == nil {
			next.ViewRetirementURL = existing.ViewRetirementURL
		}
	} else {
		s.orderSeq++
		next.ID = s.orderSeq
		if next.CreatedAt.IsZero() {
			next.CreatedAt = now
		}
	}
	next.UpdatedAt = now
	s.orders[item.QuoteUUID] = next
	*item = next
	return nil
}

func (s *Store) ApplyOrderStatus(ctx context.Context, quoteUUID string, update repository.OrderStatusUpdate) error {
	if s == nil || strings.TrimSpace(quoteUUID) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.orders[quoteUUID]
	if !ok {
		return nil
	}
	existing.Status = update.Status
	if update.PolygonscanURL != nil {
		existing.PolygonscanURL = update.PolygonscanURL
	}
	if update.ViewRetirementURL != nil {
		existing.ViewRetirementURL = update.ViewRetirementURL
	}
	if update.RawOrderJSON != nil {
		existing.RawOrderJSON = update.RawOrderJSON
	}
	existing.UpdatedAt = time.Now().UTC()
	s.orders[quoteUUID] = existing
	return nil
}

func (s *Store) GetOrderByQuoteUUID(ctx context.Context, quoteUUID string) (*models.RetirementOrder, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.orders[quoteUUID]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (s *Store) ListOrders(ctx context.Context, params repository.ListOrdersParams) ([]models.RetirementOrder, error) {
	if s == nil {
		return nil, nil
	}
	rows := s.filteredOrders(params)
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []models.RetirementOrder{}, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (s *Store) CountOrders(ctx context.Context, params repository.ListOrdersParams) (int64, error) {
	if s == nil {
		return 0, nil
	}
	return int64(len(s.filteredOrders(params))), nil
}

func (s *Store) DeleteOrderByQuoteUUID(ctx context.Context, quoteUUID string) (bool, error) {
	if s == nil {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[quoteUUID]; !ok {
		return false, nil
	}
	delete(s.orders, quoteUUID)
	return true, nil
}

func (s *Store) filteredOrders(params repository.ListOrdersParams) []models.RetirementOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]models.RetirementOrder, 0, len(s.orders))
	for _, item := range s.orders {
		if params.ProjectKey != nil && strings.TrimSpace(*params.ProjectKey) != "" {
			if item.ProjectID == nil || *item.ProjectID != strings.TrimSpace(*params.ProjectKey) {
				continue
			}
		}
		rows = append(rows, item)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	return rows
}

var _ repository.Store = (*Store)(nil)
