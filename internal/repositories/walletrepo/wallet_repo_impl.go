package walletrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/infrastructure/database"
)

type WalletRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IWalletRepository {
	return &WalletRepository{
		db:     db.Db,
		logger: logger,
	}
}

const walletColumns = `id, user_id, status, currency_code, balance_cents, sequence, created_at, updated_at`

func (r *WalletRepository) GetOrCreateByUser(ctx context.Context, userID string) (*domain.Wallet, error) {
	wallet, err := r.scanWallet(r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID))
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	// Lazy creation; ON CONFLICT keeps the one-wallet-per-user invariant
	// under concurrent first access.
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO wallets (id, user_id, status, currency_code, balance_cents, sequence)
		 VALUES ($1, $2, $3, 'USD', 0, 0)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		 RETURNING `+walletColumns,
		uuid.New(), userID, domain.WalletStatusActive)

	wallet, err = r.scanWallet(row)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create wallet")
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return wallet, nil
}

func (r *WalletRepository) GetByID(ctx context.Context, walletID string) (*domain.Wallet, error) {
	wallet, err := r.scanWallet(r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

func (r *WalletRepository) UpdateStatus(ctx context.Context, walletID string, status domain.WalletStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE wallets SET status = $2, updated_at = now() WHERE id = $1`, walletID, status)
	if err != nil {
		r.logger.Error().Err(err).Str("wallet_id", walletID).Msg("Failed to update wallet status")
		return fmt.Errorf("failed to update wallet status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *WalletRepository) scanWallet(row rowScanner) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Status, &w.CurrencyCode,
		&w.BalanceCents, &w.Sequence, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
