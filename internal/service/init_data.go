package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"carbondesk/internal/client/climatiq"
)

// InitData is the form-bootstrap payload: the estimator's unit-type catalog
// and available data versions.
type InitData struct {
	UnitTypes    json.RawMessage `json:"unitTypes"`
	DataVersions json.RawMessage `json:"dataVersion"`
}

// InitDataService caches InitData for a TTL. The clock is injectable so the
// expiry path is testable without sleeping.
type InitDataService struct {
	Climatiq *climatiq.Client
	Logger   *zap.Logger
	TTL      time.Duration
	Now      func() time.Time

	mu        sync.Mutex
	cached    *InitData
	fetchedAt time.Time
}

func (s *InitDataService) Get(ctx context.Context) (*InitData, error) {
	now := s.now()

	s.mu.Lock()
	if s.cached != nil && now.Sub(s.fetchedAt) < s.ttl() {
		out := *s.cached
		s.mu.Unlock()
		return &out, nil
	}
	s.mu.Unlock()

	type fetchResult struct {
		raw json.RawMessage
		err error
	}
	versionsCh := make(chan fetchResult, 1)
	go func() {
		raw, err := s.Climatiq.DataVersions(ctx)
		versionsCh <- fetchResult{raw: raw, err: err}
	}()

	unitTypes, err := s.Climatiq.UnitTypes(ctx)
	versions := <-versionsCh
	if err != nil {
		return nil, upstreamClimatiq("unit_types", err)
	}
	if versions.err != nil {
		return nil, upstreamClimatiq("data_versions", versions.err)
	}

	data := &InitData{UnitTypes: unitTypes, DataVersions: versions.raw}

	s.mu.Lock()
	s.cached = data
	s.fetchedAt = now
	s.mu.Unlock()

	if s.Logger != nil {
		s.Logger.Debug("init data refreshed")
	}
	out := *data
	return &out, nil
}

func (s *InitDataService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *InitDataService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return 10 * time.Minute
}
