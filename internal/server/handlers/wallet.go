package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vieclance/wls/internal/application/ledgerservice"
	"github.com/vieclance/wls/internal/application/paymentservice"
	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/pkg/currency"
)

type WalletHandler struct {
	ledgerSvc  ledgerservice.ILedgerService
	paymentSvc paymentservice.IPaymentService
	logger     zerolog.Logger
}

func NewWalletHandler(ledgerSvc ledgerservice.ILedgerService, paymentSvc paymentservice.IPaymentService, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		ledgerSvc:  ledgerSvc,
		paymentSvc: paymentSvc,
		logger:     logger,
	}
}

type depositRequest struct {
	AmountUSD decimal.Decimal `json:"amount_usd" binding:"required"`
}

type bankWithdrawalRequest struct {
	AmountUSD     decimal.Decimal `json:"amount_usd" binding:"required"`
	BankName      string          `json:"bank_name" binding:"required"`
	BankAccount   string          `json:"bank_account" binding:"required,bank_account"`
	AccountHolder string          `json:"account_holder" binding:"required"`
}

type paypalWithdrawalRequest struct {
	AmountUSD   decimal.Decimal `json:"amount_usd" binding:"required"`
	PayPalEmail string          `json:"paypal_email" binding:"required,email"`
}

func currentUserID(c *gin.Context) (uuid.UUID, error) {
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		return uuid.Nil, domain.ErrNotAuthenticated
	}
	return userID, nil
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	wallet, err := h.ledgerSvc.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := h.ledgerSvc.GetSummary(c.Request.Context(), wallet.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet_id":     wallet.ID,
		"status":        wallet.Status,
		"currency_code": wallet.CurrencyCode,
		"balance":       summary,
		"available_usd": currency.CentsToUSD(summary.AvailableBalanceCents),
	})
}

func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	wallet, err := h.ledgerSvc.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txs, total, err := h.ledgerSvc.ListTransactions(c.Request.Context(), wallet.ID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"total":        total,
		"page":         filter.Page,
		"limit":        filter.Limit,
	})
}

func (h *WalletHandler) GetTransaction(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	wallet, err := h.ledgerSvc.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	tx, err := h.ledgerSvc.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if tx.WalletID != wallet.ID {
		respondError(c, domain.ErrTransactionNotFound)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *WalletHandler) InitiateBankDeposit(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cents, err := currency.ParseUSD(req.AmountUSD)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deposit, err := h.paymentSvc.InitiateBankDeposit(c.Request.Context(), userID, cents)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deposit)
}

func (h *WalletHandler) GetBankDeposit(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	wallet, err := h.ledgerSvc.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	deposit, err := h.paymentSvc.GetDeposit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if deposit.WalletID != wallet.ID {
		respondError(c, domain.ErrDepositNotFound)
		return
	}
	c.JSON(http.StatusOK, deposit)
}

func (h *WalletHandler) InitiatePayPalDeposit(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cents, err := currency.ParseUSD(req.AmountUSD)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intent, err := h.paymentSvc.InitiatePayPalDeposit(c.Request.Context(), userID, cents)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (h *WalletHandler) RequestBankWithdrawal(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req bankWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cents, err := currency.ParseUSD(req.AmountUSD)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	withdrawal, err := h.paymentSvc.RequestWithdrawal(c.Request.Context(), paymentservice.WithdrawalInput{
		UserID:         userID,
		Method:         domain.MethodBankTransfer,
		AmountUSDCents: cents,
		BankName:       req.BankName,
		BankAccount:    req.BankAccount,
		AccountHolder:  req.AccountHolder,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, withdrawal)
}

func (h *WalletHandler) RequestPayPalWithdrawal(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req paypalWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cents, err := currency.ParseUSD(req.AmountUSD)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	withdrawal, err := h.paymentSvc.RequestWithdrawal(c.Request.Context(), paymentservice.WithdrawalInput{
		UserID:         userID,
		Method:         domain.MethodPayPal,
		AmountUSDCents: cents,
		PayPalEmail:    req.PayPalEmail,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, withdrawal)
}

func (h *WalletHandler) GetWithdrawal(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	wallet, err := h.ledgerSvc.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	withdrawal, err := h.paymentSvc.GetWithdrawal(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if withdrawal.WalletID != wallet.ID {
		respondError(c, domain.ErrWithdrawalNotFound)
		return
	}
	c.JSON(http.StatusOK, withdrawal)
}

func parseTransactionFilter(c *gin.Context) (*domain.TransactionFilter, error) {
	filter := &domain.TransactionFilter{}

	if raw := c.Query("type"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			tt := domain.TransactionType(strings.TrimSpace(part))
			if !tt.Valid() {
				return nil, errInvalidQuery("type", part)
			}
			filter.Types = append(filter.Types, tt)
		}
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			ts := domain.TransactionStatus(strings.TrimSpace(part))
			if !ts.Valid() {
				return nil, errInvalidQuery("status", part)
			}
			filter.Statuses = append(filter.Statuses, ts)
		}
	}
	if raw := c.Query("date_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errInvalidQuery("date_from", raw)
		}
		filter.DateFrom = &t
	}
	if raw := c.Query("date_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errInvalidQuery("date_to", raw)
		}
		filter.DateTo = &t
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filter.Normalize()
	return filter, nil
}

func errInvalidQuery(param, value string) error {
	return fmt.Errorf("invalid %s: %s", param, value)
}
