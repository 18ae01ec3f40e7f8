package report

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cupping-console/internal/handler"
	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/service/report"
	"github.com/jwalitptl/cupping-console/pkg/httputil"
)

type Handler struct {
	service *report.Service
}

func NewHandler(service *report.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/reports/revenue", h.Revenue)
}

func (h *Handler) Revenue(c *gin.Context) {
	var rng model.DateRange
	if err := handler.BindQuery(c, &rng); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	rep, err := h.service.Revenue(c.Request.Context(), rng)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rep)
}
