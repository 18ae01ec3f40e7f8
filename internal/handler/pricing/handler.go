package pricing

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/cupping-console/internal/handler"
	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/service/coupon"
	"github.com/jwalitptl/cupping-console/internal/service/pricing"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
	"github.com/jwalitptl/cupping-console/pkg/httputil"
)

type Handler struct {
	catalog *pricing.Catalog
	coupons *coupon.Service
}

func NewHandler(catalog *pricing.Catalog, coupons *coupon.Service) *Handler {
	return &Handler{catalog: catalog, coupons: coupons}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	p := r.Group("/pricing")
	{
		p.GET("/tiers", h.ListTiers)
		p.POST("/tiers", h.CreateTier)
		p.GET("/quote", h.Quote)
	}
}

func (h *Handler) ListTiers(c *gin.Context) {
	tiers, err := h.catalog.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithList(c, tiers, len(tiers))
}

func (h *Handler) CreateTier(c *gin.Context) {
	var req model.CreateTierRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	tier, err := h.catalog.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, tier)
}

// Quote previews the bill for a point count without touching any coupon.
func (h *Handler) Quote(c *gin.Context) {
	var req model.QuoteRequest
	if err := handler.BindQuery(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if raw := strings.TrimSpace(c.Query("manual_discount")); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("manual_discount must be a number", err))
			return
		}
		req.ManualDiscount = d
	}

	ctx := c.Request.Context()
	var cp *model.Coupon
	if coupon.Normalize(req.CouponCode) != "" {
		var err error
		if cp, err = h.coupons.Redeemable(ctx, req.CouponCode); err != nil {
			httputil.RespondWithError(c, err)
			return
		}
	}

	q, err := h.catalog.Quote(ctx, req.Points, req.ManualDiscount, cp)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, q)
}
