package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vieclance/wls/internal/application/escrowservice"
	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/pkg/currency"
)

type EscrowHandler struct {
	escrowSvc escrowservice.IEscrowService
	logger    zerolog.Logger
}

func NewEscrowHandler(escrowSvc escrowservice.IEscrowService, logger zerolog.Logger) *EscrowHandler {
	return &EscrowHandler{
		escrowSvc: escrowSvc,
		logger:    logger,
	}
}

type escrowHoldRequest struct {
	WalletID  string          `json:"wallet_id" binding:"required,uuid"`
	JobID     string          `json:"job_id" binding:"required"`
	AmountUSD decimal.Decimal `json:"amount_usd" binding:"required"`
}

type escrowResolveRequest struct {
	Resolution     domain.EscrowResolution `json:"resolution" binding:"required,oneof=release_to_worker refund_to_employer partial_refund"`
	WorkerWalletID string                  `json:"worker_wallet_id,omitempty"`
	RefundUSD      decimal.Decimal         `json:"refund_usd,omitempty"`
}

func (h *EscrowHandler) Hold(c *gin.Context) {
	var req escrowHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cents, err := currency.ParseUSD(req.AmountUSD)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hold, err := h.escrowSvc.Hold(c.Request.Context(), escrowservice.HoldInput{
		WalletID:    req.WalletID,
		JobID:       req.JobID,
		AmountCents: cents,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, hold)
}

func (h *EscrowHandler) GetHold(c *gin.Context) {
	hold, err := h.escrowSvc.GetHold(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hold)
}

func (h *EscrowHandler) Release(c *gin.Context) {
	in, err := h.parseResolveInput(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hold, err := h.escrowSvc.Release(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hold)
}

func (h *EscrowHandler) Dispute(c *gin.Context) {
	hold, err := h.escrowSvc.Dispute(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hold)
}

func (h *EscrowHandler) Resolve(c *gin.Context) {
	in, err := h.parseResolveInput(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hold, err := h.escrowSvc.Resolve(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hold)
}

func (h *EscrowHandler) parseResolveInput(c *gin.Context) (escrowservice.ResolveInput, error) {
	var req escrowResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return escrowservice.ResolveInput{}, err
	}

	in := escrowservice.ResolveInput{
		HoldID:         c.Param("id"),
		Resolution:     req.Resolution,
		WorkerWalletID: req.WorkerWalletID,
	}
	if !req.RefundUSD.IsZero() {
		cents, err := currency.ParseUSD(req.RefundUSD)
		if err != nil {
			return escrowservice.ResolveInput{}, err
		}
		in.RefundCents = cents
	}
	return in, nil
}
