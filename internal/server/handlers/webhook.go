package handlers

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/vieclance/wls/internal/application/paymentservice"
	"github.com/vieclance/wls/pkg/config"
)

type WebhookHandler struct {
	paymentSvc paymentservice.IPaymentService
	logger     zerolog.Logger
	config     *config.Config
}

func NewWebhookHandler(paymentSvc paymentservice.IPaymentService, logger zerolog.Logger, config *config.Config) *WebhookHandler {
	return &WebhookHandler{
		paymentSvc: paymentSvc,
		logger:     logger,
		config:     config,
	}
}

// ULID prefixed with "VLC", as generated for deposit transfer content.
var transferContentPattern = regexp.MustCompile(`VLC[0-9A-HJKMNP-TV-Z]{26}`)

type sepayWebhookPayload struct {
	ID             int64  `json:"id"`
	Gateway        string `json:"gateway"`
	TransferType   string `json:"transferType"`
	TransferAmount int64  `json:"transferAmount"`
	Content        string `json:"content"`
	ReferenceCode  string `json:"referenceCode"`
}

func (h *WebhookHandler) HandleSepayWebhook(c *gin.Context) {
	var payload sepayWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.TransferType != "in" {
		c.JSON(http.StatusOK, gin.H{"message": "ignored"})
		return
	}

	token := transferContentPattern.FindString(payload.Content)
	if token == "" {
		h.logger.Warn().
			Str("content", payload.Content).
			Str("reference_code", payload.ReferenceCode).
			Msg("Bank webhook without transfer content token")
		c.JSON(http.StatusBadRequest, gin.H{"error": "no transfer content token found"})
		return
	}

	err := h.paymentSvc.ConfirmBankDeposit(c.Request.Context(), paymentservice.BankWebhookInput{
		TransferContent: token,
		AmountVND:       payload.TransferAmount,
		ProviderTxID:    payload.ReferenceCode,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("token", token).Msg("Failed to confirm bank deposit")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

type paypalWebhookPayload struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID            string `json:"id"`
		PayoutBatchID string `json:"payout_batch_id"`
		BatchHeader   struct {
			PayoutBatchID string `json:"payout_batch_id"`
		} `json:"batch_header"`
	} `json:"resource"`
}

func (h *WebhookHandler) HandlePayPalWebhook(c *gin.Context) {
	var payload paypalWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	switch payload.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		err = h.paymentSvc.CapturePayPalDeposit(c.Request.Context(), payload.Resource.ID, true)
	case "CHECKOUT.ORDER.DECLINED", "PAYMENT.CAPTURE.DENIED":
		err = h.paymentSvc.CapturePayPalDeposit(c.Request.Context(), payload.Resource.ID, false)
	case "PAYMENT.PAYOUTSBATCH.SUCCESS":
		err = h.paymentSvc.HandlePayoutCallback(c.Request.Context(), payoutBatchID(payload), true, "")
	case "PAYMENT.PAYOUTSBATCH.DENIED":
		err = h.paymentSvc.HandlePayoutCallback(c.Request.Context(), payoutBatchID(payload), false, "payout denied by provider")
	default:
		h.logger.Info().Str("event_type", payload.EventType).Msg("Ignoring PayPal webhook event")
		c.JSON(http.StatusOK, gin.H{"message": "ignored"})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", payload.EventType).Msg("Failed to process PayPal webhook")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func payoutBatchID(payload paypalWebhookPayload) string {
	if payload.Resource.BatchHeader.PayoutBatchID != "" {
		return payload.Resource.BatchHeader.PayoutBatchID
	}
	return payload.Resource.PayoutBatchID
}
