package handler

import (
	"github.com/gin-gonic/gin"

	"carbondesk/internal/service"
)

type InitHandler struct {
	InitData *service.InitDataService
}

func (h *InitHandler) Register(r *gin.Engine) {
	r.GET("/api/init", h.get)
}

// @Summary Form bootstrap data
// @Description Unit type catalog and available data versions, cached server-side.
// @Tags init
// @Produce json
// @Success 200 {object} apiResponse
// @Router /api/init [get]
func (h *InitHandler) get(c *gin.Context) {
	data, err := h.InitData.Get(c.Request.Context())
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, data, nil)
}
