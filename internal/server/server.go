package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vieclance/wls/internal/application/authservice"
	"github.com/vieclance/wls/internal/application/escrowservice"
	"github.com/vieclance/wls/internal/application/ledgerservice"
	"github.com/vieclance/wls/internal/application/paymentservice"
	"github.com/vieclance/wls/internal/server/handlers"
	"github.com/vieclance/wls/internal/server/websocket"
	"github.com/vieclance/wls/pkg/config"
)

type Server struct {
	LedgerSvc  ledgerservice.ILedgerService
	EscrowSvc  escrowservice.IEscrowService
	PaymentSvc paymentservice.IPaymentService
	AuthSvc    authservice.IAuthService
	Cfg        *config.Config
	Logger     zerolog.Logger
	Router     *gin.Engine
	httpServer *http.Server
	WsHub      *websocket.WsHub
	Redis      *redis.Client
}

func New(
	cfg *config.Config,
	ledgerSvc ledgerservice.ILedgerService,
	escrowSvc escrowservice.IEscrowService,
	paymentSvc paymentservice.IPaymentService,
	authSvc authservice.IAuthService,
	logger zerolog.Logger,
	wsHub *websocket.WsHub,
	rdb *redis.Client,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		Cfg:        cfg,
		LedgerSvc:  ledgerSvc,
		EscrowSvc:  escrowSvc,
		PaymentSvc: paymentSvc,
		AuthSvc:    authSvc,
		Logger:     logger,
		Router:     router,
		WsHub:      wsHub,
		Redis:      rdb,
	}
}

func (s *Server) SetupRouter() {
	handler := handlers.New(
		s.LedgerSvc,
		s.EscrowSvc,
		s.PaymentSvc,
		s.AuthSvc,
		s.Logger,
		s.Cfg,
		s.WsHub,
		s.Redis,
	)
	handler.SetupHandlers(s.Router)
}

func (s *Server) Start() {
	s.SetupRouter()

	s.httpServer = &http.Server{
		Addr:         s.Cfg.Server.Host + ":" + s.Cfg.Server.Port,
		Handler:      s.Router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go s.WsHub.Run()

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	go s.PaymentSvc.Run(sweepCtx)

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.Logger.Info().Msgf("Starting server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-stopChan
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")
	cancelSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	s.Logger.Info().Msg("Server exited gracefully")
}
