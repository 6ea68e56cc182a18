package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-pageflow/pageflow/internal/pkg/response"
	statsSvc "github.com/open-pageflow/pageflow/internal/service/stats"
)

type StatsHandler struct {
	service *statsSvc.Service
}

func NewStatsHandler(service *statsSvc.Service) *StatsHandler {
	return &StatsHandler{service: service}
}

func (h *StatsHandler) Register(r *gin.RouterGroup) {
	r.GET("/stats", h.overview)
}

func (h *StatsHandler) overview(c *gin.Context) {
	stats, err := h.service.Overview(c.Request.Context(), c.GetString("accountID"), c.Query("pageId"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}
