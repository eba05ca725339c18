package gormrepository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"carbondesk/internal/models"
	"carbondesk/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Project{}, &models.EstimateBatch{}, &models.RetirementOrder{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(gdb)
}

func strPtr(v string) *string { return &v }

func TestUpsertOrderByQuoteUUIDMergesRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &models.RetirementOrder{
		QuoteUUID:          "q-1",
		AssetPriceSourceID: "src-1",
		Status:             "PENDING",
		PolygonscanURL:     strPtr("https://polygonscan.com/tx/0xabc"),
	}
	if err := store.UpsertOrderByQuoteUUID(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Same quote, new status, no URLs: must merge, not duplicate, and keep
	// the stored URL.
	second := &models.RetirementOrder{
		QuoteUUID:          "q-1",
		AssetPriceSourceID: "src-1",
		Status:             "COMPLETED",
	}
	if err := store.UpsertOrderByQuoteUUID(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	total, err := store.CountOrders(ctx, repository.ListOrdersParams{})
	if err != nil || total != 1 {
		t.Fatalf("got %d rows, want 1 (%v)", total, err)
	}
	row, err := store.GetOrderByQuoteUUID(ctx, "q-1")
	if err != nil || row == nil {
		t.Fatalf("row missing: %v", err)
	}
	if row.Status != "COMPLETED" {
		t.Fatalf("got status %q", row.Status)
	}
	if row.PolygonscanURL == nil || *row.PolygonscanURL != "https://polygonscan.com/tx/0xabc" {
		t.Fatalf("stored url must survive a null merge: %#v", row.PolygonscanURL)
	}
}

func TestApplyOrderStatusCoalescesURLs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := &models.RetirementOrder{
		QuoteUUID:          "q-1",
		AssetPriceSourceID: "src-1",
		Status:             "PENDING",
	}
	if err := store.UpsertOrderByQuoteUUID(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := store.ApplyOrderStatus(ctx, "q-1", repository.OrderStatusUpdate{
		Status:         "COMPLETED",
		PolygonscanURL: strPtr("https://polygonscan.com/tx/0xabc"),
		RawOrderJSON:   datatypes.JSON(`{"status":"COMPLETED"}`),
	})
	if err != nil {
		t.Fatalf("apply with url: %v", err)
	}

	// A later refresh without URLs must not clear them.
	err = store.ApplyOrderStatus(ctx, "q-1", repository.OrderStatusUpdate{
		Status:       "COMPLETED",
		RawOrderJSON: datatypes.JSON(`{"status":"COMPLETED","note":"later"}`),
	})
	if err != nil {
		t.Fatalf("apply without url: %v", err)
	}

	row, _ := store.GetOrderByQuoteUUID(ctx, "q-1")
	if row.Status != "COMPLETED" {
		t.Fatalf("got status %q", row.Status)
	}
	if row.PolygonscanURL == nil || *row.PolygonscanURL != "https://polygonscan.com/tx/0xabc" {
		t.Fatalf("url cleared by a null refresh: %#v", row.PolygonscanURL)
	}
}

func TestListOrdersFilterAndOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	keys := []string{"VCS-1", "VCS-2", "VCS-1"}
	for i, key := range keys {
		order := &models.RetirementOrder{
			QuoteUUID:          []string{"q-1", "q-2", "q-3"}[i],
			AssetPriceSourceID: "src-1",
			ProjectID:          strPtr(key),
			Status:             "PENDING",
			CreatedAt:          base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.UpsertOrderByQuoteUUID(ctx, order); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	rows, err := store.ListOrders(ctx, repository.ListOrdersParams{})
	if err != nil || len(rows) != 3 {
		t.Fatalf("got %d rows (%v)", len(rows), err)
	}
	if rows[0].QuoteUUID != "q-3" {
		t.Fatalf("listing must be newest first, got %q", rows[0].QuoteUUID)
	}

	key := "VCS-1"
	rows, err = store.ListOrders(ctx, repository.ListOrdersParams{ProjectKey: &key})
	if err != nil || len(rows) != 2 {
		t.Fatalf("filtered: got %d rows (%v)", len(rows), err)
	}
	total, _ := store.CountOrders(ctx, repository.ListOrdersParams{ProjectKey: &key})
	if total != 2 {
		t.Fatalf("filtered count %d", total)
	}

	rows, err = store.ListOrders(ctx, repository.ListOrdersParams{Limit: 1, Offset: 1})
	if err != nil || len(rows) != 1 || rows[0].QuoteUUID != "q-2" {
		t.Fatalf("pagination: got %#v (%v)", rows, err)
	}
}

func TestLatestBatchByProject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	batches := []models.EstimateBatch{
		{ID: "b-1", ProjectID: "p-1", Activities: datatypes.JSON(`[]`), CreatedAt: ts},
		{ID: "b-2", ProjectID: "p-1", Activities: datatypes.JSON(`[]`), CreatedAt: ts.Add(time.Minute)},
		{ID: "b-9", ProjectID: "p-2", Activities: datatypes.JSON(`[]`), CreatedAt: ts.Add(time.Hour)},
	}
	for i := range batches {
		if err := store.InsertBatch(ctx, &batches[i]); err != nil {
			t.Fatalf("insert %s: %v", batches[i].ID, err)
		}
	}

	latest, err := store.LatestBatchByProject(ctx, "p-1")
	if err != nil || latest == nil || latest.ID != "b-2" {
		t.Fatalf("latest = %#v (%v)", latest, err)
	}
	prior, err := store.GetBatchByID(ctx, "b-1")
	if err != nil || prior == nil {
		t.Fatalf("earlier snapshot must survive: %v", err)
	}
	none, err := store.LatestBatchByProject(ctx, "p-3")
	if err != nil || none != nil {
		t.Fatalf("unknown project must return nil, got %#v (%v)", none, err)
	}
}

func TestLatestBatchTieBreaksOnID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"b-1", "b-3", "b-2"} {
		batch := models.EstimateBatch{ID: id, ProjectID: "p-1", Activities: datatypes.JSON(`[]`), CreatedAt: ts}
		if err := store.InsertBatch(ctx, &batch); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	latest, err := store.LatestBatchByProject(ctx, "p-1")
	if err != nil || latest == nil || latest.ID != "b-3" {
		t.Fatalf("same-timestamp tie must break on id, got %#v", latest)
	}
}

func TestProjectCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	project := &models.Project{ID: "p-1", Name: "Fleet", Description: "vehicles"}
	if err := store.CreateProject(ctx, project); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetProjectByID(ctx, "p-1")
	if err != nil || got == nil || got.Name != "Fleet" {
		t.Fatalf("got %#v (%v)", got, err)
	}

	got.Name = "Fleet 2026"
	if err := store.UpdateProject(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = store.GetProjectByID(ctx, "p-1")
	if got.Name != "Fleet 2026" {
		t.Fatalf("update lost: %#v", got)
	}

	items, err := store.ListProjects(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("list: %d (%v)", len(items), err)
	}

	deleted, err := store.DeleteProject(ctx, "p-1")
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	if deleted, _ := store.DeleteProject(ctx, "p-1"); deleted {
		t.Fatalf("second delete must report false")
	}
}
