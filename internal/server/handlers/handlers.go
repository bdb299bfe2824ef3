package handlers

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vieclance/wls/internal/application/authservice"
	"github.com/vieclance/wls/internal/application/escrowservice"
	"github.com/vieclance/wls/internal/application/ledgerservice"
	"github.com/vieclance/wls/internal/application/paymentservice"
	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/server/middleware"
	"github.com/vieclance/wls/internal/server/websocket"
	"github.com/vieclance/wls/pkg/config"
)

type Handlers struct {
	LedgerSvc  ledgerservice.ILedgerService
	EscrowSvc  escrowservice.IEscrowService
	PaymentSvc paymentservice.IPaymentService
	AuthSvc    authservice.IAuthService
	Logger     zerolog.Logger
	Config     *config.Config
	WsHub      *websocket.WsHub
	Redis      *redis.Client
}

func New(
	ledgerSvc ledgerservice.ILedgerService,
	escrowSvc escrowservice.IEscrowService,
	paymentSvc paymentservice.IPaymentService,
	authSvc authservice.IAuthService,
	logger zerolog.Logger,
	config *config.Config,
	wsHub *websocket.WsHub,
	rdb *redis.Client,
) *Handlers {
	return &Handlers{
		LedgerSvc:  ledgerSvc,
		EscrowSvc:  escrowSvc,
		PaymentSvc: paymentSvc,
		AuthSvc:    authSvc,
		Logger:     logger,
		Config:     config,
		WsHub:      wsHub,
		Redis:      rdb,
	}
}

var bankAccountPattern = regexp.MustCompile(`^[0-9]{6,20}$`)

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bank_account", func(fl validator.FieldLevel) bool {
			return bankAccountPattern.MatchString(fl.Field().String())
		})
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	registerValidators()

	mw := middleware.NewMiddleware(h.AuthSvc, h.Logger)
	mw.SetupMiddleware(router)

	walletHandler := NewWalletHandler(h.LedgerSvc, h.PaymentSvc, h.Logger)
	escrowHandler := NewEscrowHandler(h.EscrowSvc, h.Logger)
	webhookHandler := NewWebhookHandler(h.PaymentSvc, h.Logger, h.Config)
	wsHandler := NewWebSocketHandler(h.WsHub, h.Config.WebSocket, h.Logger)
	healthHandler := NewHealthHandler()

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	rateLimit := middleware.RateLimiter(h.Redis,
		h.Config.Security.RateLimit,
		h.Config.Security.RateLimitWindow,
		h.Config.Security.RateLimitBlockFor,
		"wls:rl")

	// The limiter runs after auth so it keys on the user, not the caller IP.
	v1 := router.Group("/v1")
	{
		wallet := v1.Group("/wallet", mw.AuthMiddleware(), rateLimit)
		{
			wallet.GET("/balance", walletHandler.GetBalance)
			wallet.GET("/transactions", walletHandler.ListTransactions)
			wallet.GET("/transactions/:id", walletHandler.GetTransaction)

			wallet.POST("/deposit/bank", walletHandler.InitiateBankDeposit)
			wallet.GET("/deposit/bank/:id", walletHandler.GetBankDeposit)
			wallet.POST("/deposit/paypal", walletHandler.InitiatePayPalDeposit)

			wallet.POST("/withdraw/bank", walletHandler.RequestBankWithdrawal)
			wallet.POST("/withdraw/paypal", walletHandler.RequestPayPalWithdrawal)
			wallet.GET("/withdrawals/:id", walletHandler.GetWithdrawal)

			wallet.GET("/events", wsHandler.HandleConnection)
		}
	}

	// Escrow is driven by the job subsystem, not end users.
	internal := router.Group("/internal", mw.APIKeyMiddleware())
	{
		escrow := internal.Group("/escrow")
		{
			escrow.POST("/hold", escrowHandler.Hold)
			escrow.GET("/:id", escrowHandler.GetHold)
			escrow.POST("/:id/release", escrowHandler.Release)
			escrow.POST("/:id/dispute", escrowHandler.Dispute)
			escrow.POST("/:id/resolve", escrowHandler.Resolve)
		}
	}

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/sepay", mw.APIKeyMiddleware(), webhookHandler.HandleSepayWebhook)
		webhooks.POST("/paypal", webhookHandler.HandlePayPalWebhook)
	}
}

// respondError translates domain sentinels to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrWalletNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrEscrowNotFound),
		errors.Is(err, domain.ErrDepositNotFound),
		errors.Is(err, domain.ErrWithdrawalNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrBelowMinimum),
		errors.Is(err, domain.ErrAmountInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrWalletFrozen):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrEscrowDisputed),
		errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrExpiredRequest):
		status = http.StatusGone
	case errors.Is(err, domain.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrProvider):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
