package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbondesk/internal/client/climatiq"
)

const searchPageSize = 500

// ActivitySearchHandler exposes the emission-factor catalog search. The
// upstream paginates; this endpoint walks every page and returns the
// concatenated result set so the form gets the full catalog slice in one call.
type ActivitySearchHandler struct {
	Climatiq *climatiq.Client
	Logger   *zap.Logger
}

func (h *ActivitySearchHandler) Register(r *gin.Engine) {
	r.GET("/api/activity-search", h.search)
}

// @Summary Search the emission factor catalog
// @Tags estimates
// @Produce json
// @Param query query string false "free text query"
// @Param unit_type query string false "unit type filter"
// @Param region query string false "region filter"
// @Param data_version query string false "data version"
// @Success 200 {object} apiResponse
// @Router /api/activity-search [get]
func (h *ActivitySearchHandler) search(c *gin.Context) {
	results, err := h.searchAll(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		Error(c, http.StatusBadGateway, "catalog search failed", nil)
		return
	}
	Ok(c, gin.H{"results": results, "total": len(results)}, nil)
}

func (h *ActivitySearchHandler) searchAll(ctx context.Context, params url.Values) ([]json.RawMessage, error) {
	first, err := h.Climatiq.Search(ctx, params, 1, searchPageSize)
	if err != nil {
		return nil, err
	}
	results := make([]json.RawMessage, 0, first.TotalResults)
	results = append(results, first.Results...)
	for page := 2; page <= first.LastPage; page++ {
		next, err := h.Climatiq.Search(ctx, params, page, searchPageSize)
		if err != nil {
			return nil, err
		}
		results = append(results, next.Results...)
	}
	if h.Logger != nil {
		h.Logger.Debug("catalog search walked",
			zap.Int("pages", first.LastPage),
			zap.Int("results", len(results)),
		)
	}
	return results, nil
}
