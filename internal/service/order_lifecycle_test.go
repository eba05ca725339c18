package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"carbondesk/internal/apperr"
	"carbondesk/internal/client/carbonmark"
	"carbondesk/internal/repository"
	memoryrepository "carbondesk/internal/repository/memory"
)

// carbonmarkStub scripts the three upstream endpoints the lifecycle touches
// and counts listing hits so refresh behaviour is observable.
type carbonmarkStub struct {
	mu sync.Mutex

	quoteStatus   int
	orderStatus   int
	createStatus  string
	listingBody   func() any
	listingStatus int

	quoteHits   int
	orderHits   int
	listingHits int
}

func (s *carbonmarkStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/quotes":
			s.quoteHits++
			if s.quoteStatus >= 400 {
				w.WriteHeader(s.quoteStatus)
				_, _ = w.Write([]byte(`{"message":"quote rejected"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"uuid": "q-1", "asset_price_source_id": "src-1",
				"quantity_tonnes": 2.5, "cost_usdc": 12.5,
			})
		case r.Method == http.MethodPost && r.URL.Path == "/orders":
			s.orderHits++
			if s.orderStatus >= 400 {
				w.WriteHeader(s.orderStatus)
				_, _ = w.Write([]byte(`{"message":"order rejected"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"status": s.createStatus})
		case r.Method == http.MethodGet && r.URL.Path == "/orders":
			s.listingHits++
			if s.listingStatus >= 400 {
				w.WriteHeader(s.listingStatus)
				_, _ = w.Write([]byte(`{"message":"listing down"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(s.listingBody())
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}
}

func (s *carbonmarkStub) hits() (int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quoteHits, s.orderHits, s.listingHits
}

func strPtr(v string) *string { return &v }

func newOrderService(t *testing.T, stub *carbonmarkStub) (*OrderService, *memoryrepository.Store) {
	t.Helper()
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)
	store := memoryrepository.New()
	svc := &OrderService{
		Orders:     store,
		Carbonmark: carbonmark.NewClient(srv.Client(), srv.URL, "test-key"),
	}
	return svc, store
}

func sampleRetirement() RetirementRequest {
	return RetirementRequest{
		ProjectKey:      "VCS-100",
		SourceID:        "src-1",
		Tonnes:          decimal.NewFromFloat(2.5),
		UnitPrice:       decimal.NewFromInt(5),
		TotalCost:       decimal.NewFromFloat(12.5),
		BeneficiaryName: "ACME Corp",
		PublicMessage:   "Offsetting 2026 fleet emissions",
	}
}

func TestCreateRetirementOrderConfirmsFromListing(t *testing.T) {
	stub := &carbonmarkStub{
		createStatus: "PENDING",
		listingBody: func() any {
			return []map[string]any{{
				"status":          "COMPLETED",
				"polygonscan_url": "https://polygonscan.com/tx/0xabc",
			}}
		},
	}
	svc, store := newOrderService(t, stub)

	quote, err := svc.CreateRetirementOrder(context.Background(), sampleRetirement())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quote.UUID != "q-1" {
		t.Fatalf("got quote %q", quote.UUID)
	}

	row, err := store.GetOrderByQuoteUUID(context.Background(), "q-1")
	if err != nil || row == nil {
		t.Fatalf("order row missing: %v", err)
	}
	// The creation response said PENDING; the authoritative listing wins.
	if row.Status != "COMPLETED" {
		t.Fatalf("got status %q, want COMPLETED", row.Status)
	}
	if row.PolygonscanURL == nil || *row.PolygonscanURL != "https://polygonscan.com/tx/0xabc" {
		t.Fatalf("polygonscan url not recorded: %#v", row.PolygonscanURL)
	}
	if row.ProjectID == nil || *row.ProjectID != "VCS-100" {
		t.Fatalf("project key not recorded: %#v", row.ProjectID)
	}
}

func TestCreateRetirementOrderEmptyListingKeepsCreateState(t *testing.T) {
	stub := &carbonmarkStub{
		createStatus: "",
		listingBody:  func() any { return []map[string]any{} },
	}
	svc, store := newOrderService(t, stub)

	if _, err := svc.CreateRetirementOrder(context.Background(), sampleRetirement()); err != nil {
		t.Fatalf("create: %v", err)
	}
	row, _ := store.GetOrderByQuoteUUID(context.Background(), "q-1")
	if row == nil || row.Status != "PENDING" {
		t.Fatalf("empty create status should fall back to PENDING, got %#v", row)
	}
}

func TestCreateRetirementOrderQuoteFailureLeavesNoRow(t *testing.T) {
	stub := &carbonmarkStub{quoteStatus: http.StatusUnprocessableEntity}
	svc, store := newOrderService(t, stub)

	_, err := svc.CreateRetirementOrder(context.Background(), sampleRetirement())
	if err == nil {
		t.Fatalf("expected quote failure")
	}
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Stage != "quote" {
		t.Fatalf("got %v, want an upstream error at stage quote", err)
	}
	if apperr.HTTPStatus(err) != http.StatusUnprocessableEntity {
		t.Fatalf("upstream status should surface, got %d", apperr.HTTPStatus(err))
	}
	_, orderHits, _ := stub.hits()
	if orderHits != 0 {
		t.Fatalf("order must not be placed after a failed quote")
	}
	total, _ := store.CountOrders(context.Background(), repository.ListOrdersParams{})
	if total != 0 {
		t.Fatalf("no local row may exist after a failed quote, got %d", total)
	}
}

func TestCreateRetirementOrderIsIdempotentByQuote(t *testing.T) {
	stub := &carbonmarkStub{
		createStatus: "PENDING",
		listingBody:  func() any { return []map[string]any{{"status": "PENDING"}} },
	}
	svc, store := newOrderService(t, stub)

	if _, err := svc.CreateRetirementOrder(context.Background(), sampleRetirement()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreateRetirementOrder(context.Background(), sampleRetirement()); err != nil {
		t.Fatalf("second create: %v", err)
	}
	total, _ := store.CountOrders(context.Background(), repository.ListOrdersParams{})
	if total != 1 {
		t.Fatalf("same quote uuid must collapse to one row, got %d", total)
	}
}

func TestListOrdersRefreshesOnlyCompleted(t *testing.T) {
	stub := &carbonmarkStub{
		listingBody: func() any { return []map[string]any{{"status": "COMPLETED"}} },
	}
	svc, store := newOrderService(t, stub)

	pending := sampleRetirement()
	ctx := context.Background()
	row1 := buildOrderRow(pending, &carbonmark.Quote{UUID: "q-pending"}, &carbonmark.Order{Status: "PENDING"})
	if err := store.UpsertOrderByQuoteUUID(ctx, row1); err != nil {
		t.Fatalf("seed pending: %v", err)
	}
	row2 := buildOrderRow(pending, &carbonmark.Quote{UUID: "q-done"}, &carbonmark.Order{Status: "COMPLETED"})
	if err := store.UpsertOrderByQuoteUUID(ctx, row2); err != nil {
		t.Fatalf("seed completed: %v", err)
	}

	page, err := svc.ListOrders(ctx, repository.ListOrdersParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(page.Rows) != 2 {
		t.Fatalf("got %d/%d rows", page.Total, len(page.Rows))
	}
	_, _, listingHits := stub.hits()
	if listingHits != 1 {
		t.Fatalf("only the COMPLETED row should be refreshed, got %d listing hits", listingHits)
	}
}

func TestListOrdersRefreshFailureKeepsCachedState(t *testing.T) {
	stub := &carbonmarkStub{listingStatus: http.StatusBadGateway}
	svc, store := newOrderService(t, stub)

	ctx := context.Background()
	row := buildOrderRow(sampleRetirement(), &carbonmark.Quote{UUID: "q-done"}, &carbonmark.Order{
		Status:         "COMPLETED",
		PolygonscanURL: strPtr("https://polygonscan.com/tx/0xdef"),
	})
	if err := store.UpsertOrderByQuoteUUID(ctx, row); err != nil {
		t.Fatalf("seed: %v", err)
	}

	page, err := svc.ListOrders(ctx, repository.ListOrdersParams{})
	if err != nil {
		t.Fatalf("list must not fail on a refresh error: %v", err)
	}
	if len(page.Rows) != 1 || page.Rows[0].Status != "COMPLETED" {
		t.Fatalf("cached state must be kept, got %#v", page.Rows)
	}
	if page.Rows[0].PolygonscanURL == nil {
		t.Fatalf("cached url must be kept")
	}
}

func TestListOrdersRefreshMergeIsSticky(t *testing.T) {
	stub := &carbonmarkStub{
		// Refresh answers without URLs; stored values must survive.
		listingBody: func() any { return []map[string]any{{"status": "COMPLETED"}} },
	}
	svc, store := newOrderService(t, stub)

	ctx := context.Background()
	row := buildOrderRow(sampleRetirement(), &carbonmark.Quote{UUID: "q-done"}, &carbonmark.Order{
		Status:            "COMPLETED",
		PolygonscanURL:    strPtr("https://polygonscan.com/tx/0xabc"),
		ViewRetirementURL: strPtr("https://www.carbonmark.com/retirements/1"),
	})
	if err := store.UpsertOrderByQuoteUUID(ctx, row); err != nil {
		t.Fatalf("seed: %v", err)
	}

	page, err := svc.ListOrders(ctx, repository.ListOrdersParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := page.Rows[0]
	if got.PolygonscanURL == nil || *got.PolygonscanURL != "https://polygonscan.com/tx/0xabc" {
		t.Fatalf("polygonscan url cleared by refresh: %#v", got.PolygonscanURL)
	}
	if got.ViewRetirementURL == nil {
		t.Fatalf("retirement url cleared by refresh")
	}

	stored, _ := store.GetOrderByQuoteUUID(ctx, "q-done")
	if stored.PolygonscanURL == nil {
		t.Fatalf("stored url cleared by refresh")
	}
}

func TestListOrdersUnknownRefreshStatus(t *testing.T) {
	stub := &carbonmarkStub{
		listingBody: func() any { return []map[string]any{{"status": ""}} },
	}
	svc, store := newOrderService(t, stub)

	ctx := context.Background()
	row := buildOrderRow(sampleRetirement(), &carbonmark.Quote{UUID: "q-done"}, &carbonmark.Order{Status: "COMPLETED"})
	if err := store.UpsertOrderByQuoteUUID(ctx, row); err != nil {
		t.Fatalf("seed: %v", err)
	}

	page, err := svc.ListOrders(ctx, repository.ListOrdersParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Rows[0].Status != "UNKNOWN" {
		t.Fatalf("empty refresh status must map to UNKNOWN, got %q", page.Rows[0].Status)
	}
	stored, _ := store.GetOrderByQuoteUUID(ctx, "q-done")
	if stored.Status != "UNKNOWN" {
		t.Fatalf("stored status must also be UNKNOWN, got %q", stored.Status)
	}
}

func TestValidateRetirement(t *testing.T) {
	base := sampleRetirement()

	bad := base
	bad.SourceID = " "
	if apperr.KindOf(validateRetirement(bad)) != apperr.KindValidation {
		t.Fatalf("blank source id must be rejected")
	}

	bad = base
	bad.Tonnes = decimal.Zero
	if apperr.KindOf(validateRetirement(bad)) != apperr.KindValidation {
		t.Fatalf("zero tonnage must be rejected")
	}

	bad = base
	bad.BeneficiaryName = ""
	if apperr.KindOf(validateRetirement(bad)) != apperr.KindValidation {
		t.Fatalf("missing beneficiary must be rejected")
	}

	if err := validateRetirement(base); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
}
