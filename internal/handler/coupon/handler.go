package coupon

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cupping-console/internal/service/coupon"
	"github.com/jwalitptl/cupping-console/pkg/httputil"
)

type Handler struct {
	service *coupon.Service
}

func NewHandler(service *coupon.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/coupons/:code", h.GetCoupon)
}

// GetCoupon looks a code up and says whether it can be applied right now.
func (h *Handler) GetCoupon(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("code"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, status)
}
