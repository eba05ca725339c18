package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"carbondesk/internal/repository"
	"carbondesk/internal/service"
)

type OrderHandler struct {
	Orders *service.OrderService
	Logger *zap.Logger
}

func (h *OrderHandler) Register(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/orders", h.list)
		api.POST("/orders", h.create)
	}
}

type createOrderPayload struct {
	ProjectKey          string         `json:"projectKey"`
	SourceID            string         `json:"sourceId"`
	Tonnes              float64        `json:"tonnes"`
	UnitPrice           float64        `json:"unitPrice"`
	TotalCost           float64        `json:"totalCost"`
	BeneficiaryName     string         `json:"beneficiaryName"`
	PublicMessage       string         `json:"publicMessage"`
	ConsumptionMetadata map[string]any `json:"consumptionMetadata"`
}

// @Summary Place a retirement order
// @Tags orders
// @Accept json
// @Produce json
// @Param payload body createOrderPayload true "retirement request"
// @Success 200 {object} apiResponse
// @Router /api/orders [post]
func (h *OrderHandler) create(c *gin.Context) {
	var payload createOrderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	quote, err := h.Orders.CreateRetirementOrder(c.Request.Context(), service.RetirementRequest{
		ProjectKey:          payload.ProjectKey,
		SourceID:            payload.SourceID,
		Tonnes:              decimal.NewFromFloat(payload.Tonnes),
		UnitPrice:           decimal.NewFromFloat(payload.UnitPrice),
		TotalCost:           decimal.NewFromFloat(payload.TotalCost),
		BeneficiaryName:     payload.BeneficiaryName,
		PublicMessage:       payload.PublicMessage,
		ConsumptionMetadata: payload.ConsumptionMetadata,
	})
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, quote, nil)
}

// @Summary List retirement orders
// @Tags orders
// @Produce json
// @Param projectKey query string false "filter by project key"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/orders [get]
func (h *OrderHandler) list(c *gin.Context) {
	params := repository.ListOrdersParams{
		Limit:      intQuery(c, "limit", 50),
		Offset:     intQuery(c, "offset", 0),
		ProjectKey: strQueryPtr(c, "projectKey"),
	}
	page, err := h.Orders.ListOrders(c.Request.Context(), params)
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, page.Rows, paginationMeta(params.Limit, params.Offset, page.Total))
}
