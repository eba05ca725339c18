package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"carbondesk/internal/apperr"
	"carbondesk/internal/client/carbonmark"
	"carbondesk/internal/models"
	"carbondesk/internal/repository"
)

// OrderService runs the quote -> order -> persist -> confirm sequence for
// credit retirements and keeps stored status fresh by re-querying upstream
// whenever a COMPLETED row is read back out. There is no background poller:
// freshness is pull-based.
type OrderService struct {
	Orders     repository.OrderStore
	Carbonmark *carbonmark.Client
	Logger     *zap.Logger
}

type RetirementRequest struct {
	ProjectKey          string          `json:"projectKey"`
	SourceID            string          `json:"sourceId"`
	Tonnes              decimal.Decimal `json:"tonnes"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	TotalCost           decimal.Decimal `json:"totalCost"`
	BeneficiaryName     string          `json:"beneficiaryName"`
	PublicMessage       string          `json:"publicMessage"`
	ConsumptionMetadata map[string]any  `json:"consumptionMetadata,omitempty"`
}

// CreateRetirementOrder places a retirement upstream and records it locally,
// keyed by the quote uuid. A failure after the quote step leaves an orphaned
// upstream quote with no local row; that window is accepted rather than
// compensated.
func (s *OrderService) CreateRetirementOrder(ctx context.Context, req RetirementRequest) (*carbonmark.Quote, error) {
	if err := validateRetirement(req); err != nil {
		return nil, err
	}

	quote, err := s.Carbonmark.CreateQuote(ctx, carbonmark.CreateQuoteRequest{
		AssetPriceSourceID: req.SourceID,
		QuantityTonnes:     req.Tonnes.InexactFloat64(),
	})
	if err != nil {
		return nil, upstreamCarbonmark("quote", err)
	}

	order, err := s.Carbonmark.CreateOrder(ctx, carbonmark.CreateOrderRequest{
		QuoteUUID:           quote.UUID,
		BeneficiaryName:     req.BeneficiaryName,
		RetirementMessage:   req.PublicMessage,
		ConsumptionMetadata: req.ConsumptionMetadata,
	})
	if err != nil {
		return nil, upstreamCarbonmark("order", err)
	}

	row := buildOrderRow(req, quote, order)
	if err := s.Orders.UpsertOrderByQuoteUUID(ctx, row); err != nil {
		return nil, apperr.Storage("persist", err)
	}

	// Creation responses can lag the listing endpoint, so the listing is
	// treated as authoritative for current status.
	latest, err := s.latestOrderByQuote(ctx, quote.UUID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		if err := s.applyLatest(ctx, quote.UUID, latest); err != nil {
			return nil, err
		}
	}

	if s.Logger != nil {
		s.Logger.Info("retirement order recorded",
			zap.String("quote_uuid", quote.UUID),
			zap.String("status", row.Status),
		)
	}
	return quote, nil
}

type OrdersPage struct {
	Total int64
	Rows  []models.RetirementOrder
}

// ListOrders returns a newest-first page. Every COMPLETED row on the page is
// refreshed from upstream before being returned; a refresh failure keeps the
// last known state rather than failing the read.
func (s *OrderService) ListOrders(ctx context.Context, params repository.ListOrdersParams) (*OrdersPage, error) {
	rows, err := s.Orders.ListOrders(ctx, params)
	if err != nil {
		return nil, apperr.Storage("list", err)
	}
	total, err := s.Orders.CountOrders(ctx, params)
	if err != nil {
		return nil, apperr.Storage("count", err)
	}

	for i := range rows {
		if rows[i].Status != "COMPLETED" {
			continue
		}
		latest, err := s.latestOrderByQuote(ctx, rows[i].QuoteUUID)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("order refresh failed, keeping cached state",
					zap.String("quote_uuid", rows[i].QuoteUUID),
					zap.Error(err),
				)
			}
			continue
		}
		if latest == nil {
			continue
		}
		if err := s.applyLatest(ctx, rows[i].QuoteUUID, latest); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("order refresh persist failed, keeping cached state",
					zap.String("quote_uuid", rows[i].QuoteUUID),
					zap.Error(err),
				)
			}
			continue
		}
		mergeOrderStatus(&rows[i], latest)
	}

	return &OrdersPage{Total: total, Rows: rows}, nil
}

func (s *OrderService) latestOrderByQuote(ctx context.Context, quoteUUID string) (*carbonmark.Order, error) {
	orders, err := s.Carbonmark.OrdersByQuote(ctx, quoteUUID)
	if err != nil {
		return nil, upstreamCarbonmark("refresh", err)
	}
	if len(orders) == 0 {
		// Transient upstream inconsistency, not an error: keep what we have.
		return nil, nil
	}
	return &orders[0], nil
}

// applyLatest persists the refreshed upstream state onto the stored row.
func (s *OrderService) applyLatest(ctx context.Context, quoteUUID string, latest *carbonmark.Order) error {
	raw, err := json.Marshal(latest)
	if err != nil {
		return apperr.Storage("refresh", err)
	}
	status := latest.Status
	if status == "" {
		status = "UNKNOWN"
	}
	update := repository.OrderStatusUpdate{
		Status:            status,
		PolygonscanURL:    latest.PolygonscanURL,
		ViewRetirementURL: latest.ViewRetirementURL,
		RawOrderJSON:      datatypes.JSON(raw),
	}
	if err := s.Orders.ApplyOrderStatus(ctx, quoteUUID, update); err != nil {
		return apperr.Storage("refresh", err)
	}
	return nil
}

// mergeOrderStatus folds the refreshed upstream order into the in-memory row:
// status and raw payload always follow upstream, URLs are sticky.
func mergeOrderStatus(row *models.RetirementOrder, latest *carbonmark.Order) {
	if latest == nil {
		return
	}
	if latest.Status != "" {
		row.Status = latest.Status
	} else {
		row.Status = "UNKNOWN"
	}
	if latest.PolygonscanURL != nil {
		row.PolygonscanURL = latest.PolygonscanURL
	}
	if latest.ViewRetirementURL != nil {
		row.ViewRetirementURL = latest.ViewRetirementURL
	}
	if raw, err := json.Marshal(latest); err == nil {
		row.RawOrderJSON = datatypes.JSON(raw)
	}
}

func buildOrderRow(req RetirementRequest, quote *carbonmark.Quote, order *carbonmark.Order) *models.RetirementOrder {
	status := order.Status
	if status == "" {
		status = "PENDING"
	}
	row := &models.RetirementOrder{
		AssetPriceSourceID: req.SourceID,
		QuoteUUID:          quote.UUID,
		Status:             status,
		QuantityTonnes:     req.Tonnes,
		BeneficiaryName:    req.BeneficiaryName,
		RetirementMessage:  req.PublicMessage,
		PolygonscanURL:     order.PolygonscanURL,
		ViewRetirementURL:  order.ViewRetirementURL,
		UnitPrice:          req.UnitPrice,
		TotalCost:          req.TotalCost,
	}
	if key := strings.TrimSpace(req.ProjectKey); key != "" {
		row.ProjectID = &key
	}
	if raw, err := json.Marshal(quote); err == nil {
		row.RawQuoteJSON = datatypes.JSON(raw)
	}
	if raw, err := json.Marshal(order); err == nil {
		row.RawOrderJSON = datatypes.JSON(raw)
	}
	return row
}

func validateRetirement(req RetirementRequest) error {
	if strings.TrimSpace(req.SourceID) == "" {
		return apperr.Validation("sourceId is required")
	}
	if !req.Tonnes.IsPositive() {
		return apperr.Validation("tonnes must be greater than zero")
	}
	if strings.TrimSpace(req.BeneficiaryName) == "" {
		return apperr.Validation("beneficiaryName is required")
	}
	if strings.TrimSpace(req.PublicMessage) == "" {
		return apperr.Validation("publicMessage is required")
	}
	return nil
}

func upstreamCarbonmark(stage string, err error) error {
	var apiErr *carbonmark.APIError
	if errors.As(err, &apiErr) {
		return apperr.Upstream(stage, err, apiErr.Status, apiErr.Body)
	}
	return apperr.Upstream(stage, err, 0, "")
}
