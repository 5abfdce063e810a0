package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"roadassist/internal/modules/payment"
	"roadassist/internal/types"
)

type PaymentHandler struct {
	payments *payment.Service
}

func NewPaymentHandler(svc *payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: svc}
}

type initializePaymentReq struct {
	RequestID string `json:"request_id" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
}

func (h *PaymentHandler) Initialize(c *gin.Context) {
	var req initializePaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.payments.Initialize(c.Request.Context(), types.ID(req.RequestID), req.Email)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type webhookReq struct {
	Reference string `json:"reference" binding:"required"`
}

// Webhook handles gateway callbacks. A declined or unverifiable payment is
// still an acknowledged delivery, so those answer 200 with the failed state
// rather than an error the gateway would retry forever.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var req webhookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.payments.Reconcile(c.Request.Context(), req.Reference)
	if err != nil && !errors.Is(err, payment.ErrVerificationFailed) {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Get reconciles on read. It backs the client return URL, so the redirect
// itself settles the payment even when the webhook never arrives.
func (h *PaymentHandler) Get(c *gin.Context) {
	res, err := h.payments.Reconcile(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
