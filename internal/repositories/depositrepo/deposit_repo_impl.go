package depositrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/infrastructure/database"
)

type DepositRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IDepositRepository {
	return &DepositRepository{
		db:     db.Db,
		logger: logger,
	}
}

const depositColumns = `id, wallet_id, transaction_id, amount_usd_cents, amount_vnd,
	bank_name, bank_account, transfer_content, qr_code_url, status, expires_at,
	created_at, updated_at`

func (r *DepositRepository) Create(ctx context.Context, req *domain.BankDepositRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bank_deposit_requests
		 (id, wallet_id, transaction_id, amount_usd_cents, amount_vnd, bank_name,
		  bank_account, transfer_content, qr_code_url, status, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		req.ID, req.WalletID, req.TransactionID, req.AmountUSDCents, req.AmountVND,
		req.BankName, req.BankAccount, req.TransferContent, req.QRCodeURL,
		req.Status, req.ExpiresAt, req.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("wallet_id", req.WalletID).Msg("Failed to create deposit request")
		return fmt.Errorf("failed to create deposit request: %w", err)
	}
	return nil
}

func (r *DepositRepository) GetByID(ctx context.Context, id string) (*domain.BankDepositRequest, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *DepositRepository) GetByTransferContent(ctx context.Context, token string) (*domain.BankDepositRequest, error) {
	return r.getBy(ctx, `transfer_content = $1`, token)
}

func (r *DepositRepository) getBy(ctx context.Context, predicate, arg string) (*domain.BankDepositRequest, error) {
	var req domain.BankDepositRequest
	err := r.db.QueryRowContext(ctx,
		`SELECT `+depositColumns+` FROM bank_deposit_requests WHERE `+predicate, arg).
		Scan(&req.ID, &req.WalletID, &req.TransactionID, &req.AmountUSDCents,
			&req.AmountVND, &req.BankName, &req.BankAccount, &req.TransferContent,
			&req.QRCodeURL, &req.Status, &req.ExpiresAt, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDepositNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit request: %w", err)
	}
	return &req, nil
}

func (r *DepositRepository) Update(ctx context.Context, req *domain.BankDepositRequest) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bank_deposit_requests SET status = $2, updated_at = now() WHERE id = $1`,
		req.ID, req.Status)
	if err != nil {
		r.logger.Error().Err(err).Str("request_id", req.ID).Msg("Failed to update deposit request")
		return fmt.Errorf("failed to update deposit request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDepositNotFound
	}
	return nil
}

func (r *DepositRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.BankDepositRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+depositColumns+` FROM bank_deposit_requests
		 WHERE status = 'pending' AND expires_at < $1
		 ORDER BY expires_at LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired deposit requests: %w", err)
	}
	defer rows.Close()

	var reqs []*domain.BankDepositRequest
	for rows.Next() {
		var req domain.BankDepositRequest
		if err := rows.Scan(&req.ID, &req.WalletID, &req.TransactionID,
			&req.AmountUSDCents, &req.AmountVND, &req.BankName, &req.BankAccount,
			&req.TransferContent, &req.QRCodeURL, &req.Status, &req.ExpiresAt,
			&req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deposit request: %w", err)
		}
		reqs = append(reqs, &req)
	}
	return reqs, rows.Err()
}
