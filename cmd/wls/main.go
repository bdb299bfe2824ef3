package main

import (
	"github.com/redis/go-redis/v9"

	"github.com/vieclance/wls/internal/application/authservice"
	"github.com/vieclance/wls/internal/application/escrowservice"
	"github.com/vieclance/wls/internal/application/ledgerservice"
	"github.com/vieclance/wls/internal/application/lockmgr"
	"github.com/vieclance/wls/internal/application/paymentservice"
	"github.com/vieclance/wls/internal/infrastructure/database"
	"github.com/vieclance/wls/internal/infrastructure/providers"
	"github.com/vieclance/wls/internal/repositories/depositrepo"
	"github.com/vieclance/wls/internal/repositories/escrowrepo"
	"github.com/vieclance/wls/internal/repositories/ledgerrepo"
	"github.com/vieclance/wls/internal/repositories/walletrepo"
	"github.com/vieclance/wls/internal/repositories/withdrawalrepo"
	"github.com/vieclance/wls/internal/server"
	"github.com/vieclance/wls/internal/server/websocket"
	"github.com/vieclance/wls/pkg/config"
	"github.com/vieclance/wls/pkg/logger"
)

func main() {
	logger := logger.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.ShutDown()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	walletRepo := walletrepo.New(db, logger)
	ledgerRepo := ledgerrepo.New(db, logger)
	escrowRepo := escrowrepo.New(db, logger)
	depositRepo := depositrepo.New(db, logger)
	withdrawalRepo := withdrawalrepo.New(db, logger)

	sepayClient := providers.NewSepayClient(&cfg.Sepay, logger)
	paypalClient := providers.NewPayPalClient(&cfg.PayPal, logger)

	wsHub := websocket.NewWsHub(logger)
	locks := lockmgr.New(cfg.Wallet.SettleRetryAttempts, cfg.Wallet.SettleRetryBackoff)

	ledgerService := ledgerservice.New(walletRepo, ledgerRepo, escrowRepo, locks, logger)
	escrowService := escrowservice.New(escrowRepo, walletRepo, ledgerService, locks, wsHub, logger)
	paymentService := paymentservice.New(
		walletRepo,
		depositRepo,
		withdrawalRepo,
		ledgerService,
		sepayClient,
		paypalClient,
		cfg.Wallet,
		wsHub,
		logger,
	)
	authService := authservice.NewAuthService(cfg, logger)

	srv := server.New(cfg, ledgerService, escrowService, paymentService, authService, logger, wsHub, rdb)
	srv.Start()
}
