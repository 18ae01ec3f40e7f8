package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cupping-console/internal/handler"
	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/service/invoice"
	"github.com/jwalitptl/cupping-console/internal/service/payment"
	"github.com/jwalitptl/cupping-console/pkg/httputil"
)

type Handler struct {
	service  *payment.Service
	invoices *invoice.Service
}

func NewHandler(service *payment.Service, invoices *invoice.Service) *Handler {
	return &Handler{service: service, invoices: invoices}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.GET("", h.ListPayments)
		payments.GET("/:id", h.GetPayment)
		payments.POST("/:id/settle", h.SettlePayment)
		payments.GET("/:id/invoice", h.GetInvoice)
		payments.GET("/:id/invoice/qr.png", h.GetInvoiceQR)
	}
}

func (h *Handler) ListPayments(c *gin.Context) {
	var filters model.PaymentFilters
	if err := handler.BindQuery(c, &filters); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	payments, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithList(c, payments, len(payments))
}

func (h *Handler) GetPayment(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) SettlePayment(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.SettleRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	p, err := h.service.Settle(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) GetInvoice(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	inv, err := h.invoices.Render(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, inv)
}

func (h *Handler) GetInvoiceQR(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	png, err := h.invoices.QRImage(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
