package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/davicafu/habitflow/internal/billing/application"
	"github.com/davicafu/habitflow/internal/billing/domain"
	"github.com/davicafu/habitflow/pkg/utils"
)

type InvoiceHandler struct {
	service *application.InvoiceService
	log     *zap.Logger
}

func NewInvoiceHandler(service *application.InvoiceService, log *zap.Logger) *InvoiceHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &InvoiceHandler{service: service, log: log}
}

// IssueInvoice endpoint POST /invoices
func (h *InvoiceHandler) IssueInvoice(c *gin.Context) {
	var req struct {
		UserID       string `json:"user_id" binding:"required,uuid"`
		BillingEmail string `json:"billing_email" binding:"required,email"`
		Amount       string `json:"amount" binding:"required"` // string para no perder precisión
		Currency     string `json:"currency" binding:"required,len=3"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		utils.SendBadRequest(c, "invalid user_id")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		utils.SendBadRequest(c, "invalid amount")
		return
	}

	inv, err := h.service.IssueInvoice(c.Request.Context(), userID, req.BillingEmail, amount, req.Currency)
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, inv)
}

// GetInvoice endpoint GET /invoices/:id
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid invoice id")
		return
	}

	inv, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, inv)
}

// PayInvoice endpoint POST /invoices/:id/pay
func (h *InvoiceHandler) PayInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid invoice id")
		return
	}

	inv, err := h.service.PayInvoice(c.Request.Context(), id)
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, inv)
}

func (h *InvoiceHandler) sendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvoiceNotFound):
		utils.SendNotFound(c, "invoice not found")
	case errors.Is(err, domain.ErrInvoiceAlreadyPaid):
		utils.SendConflict(c, "invoice already paid")
	case errors.Is(err, domain.ErrInvalidInvoice):
		utils.SendBadRequest(c, err.Error())
	default:
		h.log.Error("invoice request failed", zap.String("path", c.FullPath()), zap.Error(err))
		utils.SendInternalServerError(c)
	}
}
