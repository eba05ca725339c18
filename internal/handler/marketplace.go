package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbondesk/internal/client/carbonmark"
)

// MarketplaceHandler proxies marketplace browse endpoints so the frontend
// never needs the upstream API key.
type MarketplaceHandler struct {
	Carbonmark *carbonmark.Client
	Logger     *zap.Logger
}

func (h *MarketplaceHandler) Register(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/carbon-projects", h.list)
		api.GET("/carbon-projects/:carbonKey", h.detail)
	}
}

// @Summary Browse marketplace carbon projects
// @Tags marketplace
// @Produce json
// @Param search query string false "free text search"
// @Param country query string false "country filter"
// @Param category query string false "category filter"
// @Success 200 {object} apiResponse
// @Router /api/carbon-projects [get]
func (h *MarketplaceHandler) list(c *gin.Context) {
	raw, err := h.Carbonmark.CarbonProjects(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		Error(c, http.StatusBadGateway, "marketplace lookup failed", nil)
		return
	}
	Ok(c, raw, nil)
}

// @Summary Marketplace project detail with live prices
// @Tags marketplace
// @Produce json
// @Param carbonKey path string true "marketplace project key"
// @Success 200 {object} apiResponse
// @Router /api/carbon-projects/{carbonKey} [get]
func (h *MarketplaceHandler) detail(c *gin.Context) {
	key := c.Param("carbonKey")

	type pricesResult struct {
		raw json.RawMessage
		err error
	}
	pricesCh := make(chan pricesResult, 1)
	go func() {
		raw, err := h.Carbonmark.Prices(c.Request.Context(), key, time.Now().Unix())
		pricesCh <- pricesResult{raw: raw, err: err}
	}()

	project, err := h.Carbonmark.CarbonProject(c.Request.Context(), key)
	prices := <-pricesCh
	if err != nil {
		Error(c, http.StatusBadGateway, "marketplace lookup failed", nil)
		return
	}
	// Detail stays usable without prices; a failed price lookup degrades to
	// an empty list.
	priceData := prices.raw
	if prices.err != nil {
		if h.Logger != nil {
			h.Logger.Warn("price lookup failed", zap.String("project_key", key), zap.Error(prices.err))
		}
		priceData = json.RawMessage("[]")
	}
	Ok(c, gin.H{"project": project, "prices": priceData}, nil)
}
