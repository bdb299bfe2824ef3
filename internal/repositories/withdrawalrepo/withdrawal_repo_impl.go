package withdrawalrepo

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

type WithdrawalRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IWithdrawalRepository {
	return &WithdrawalRepository{
		db:     db.Db,
		logger: logger,
	}
}

const withdrawalColumns = `id, wallet_id, transaction_id, method, amount_usd_cents,
	bank_name, bank_account, account_holder, paypal_email, provider_ref, status,
	created_at, updated_at`

func (r *WithdrawalRepository) Create(ctx context.Context, req *domain.WithdrawalRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO withdrawal_requests
		 (id, wallet_id, transaction_id, method, amount_usd_cents, bank_name,
		  bank_account, account_holder, paypal_email, provider_ref, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		req.ID, req.WalletID, req.TransactionID, req.Method, req.AmountUSDCents,
		nullString(req.BankName), nullString(req.BankAccount), nullString(req.AccountHolder),
		nullString(req.PayPalEmail), nullString(req.ProviderRef), req.Status, req.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("wallet_id", req.WalletID).Msg("Failed to create withdrawal request")
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *WithdrawalRepository) GetByProviderRef(ctx context.Context, ref string) (*domain.WithdrawalRequest, error) {
	return r.getBy(ctx, `provider_ref = $1`, ref)
}

func (r *WithdrawalRepository) getBy(ctx context.Context, predicate, arg string) (*domain.WithdrawalRequest, error) {
	var req domain.WithdrawalRequest
	var bankName, bankAccount, accountHolder, paypalEmail, providerRef sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE `+predicate, arg).
		Scan(&req.ID, &req.WalletID, &req.TransactionID, &req.Method,
			&req.AmountUSDCents, &bankName, &bankAccount, &accountHolder,
			&paypalEmail, &providerRef, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	req.BankName = bankName.String
	req.BankAccount = bankAccount.String
	req.AccountHolder = accountHolder.String
	req.PayPalEmail = paypalEmail.String
	req.ProviderRef = providerRef.String
	return &req, nil
}

func (r *WithdrawalRepository) Update(ctx context.Context, req *domain.WithdrawalRequest) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE withdrawal_requests
		 SET status = $2, provider_ref = $3, updated_at = now() WHERE id = $1`,
		req.ID, req.Status, nullString(req.ProviderRef))
	if err != nil {
		r.logger.Error().Err(err).Str("withdrawal_id", req.ID).Msg("Failed to update withdrawal request")
		return fmt.Errorf("failed to update withdrawal request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrWithdrawalNotFound
	}
	return nil
}

func (r *WithdrawalRepository) ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]*domain.WithdrawalRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawal_requests
		 WHERE status = 'processing' AND updated_at < $1
		 ORDER BY updated_at LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale withdrawals: %w", err)
	}
	defer rows.Close()

	var reqs []*domain.WithdrawalRequest
	for rows.Next() {
		var req domain.WithdrawalRequest
		var bankName, bankAccount, accountHolder, paypalEmail, providerRef sql.NullString
		if err := rows.Scan(&req.ID, &req.WalletID, &req.TransactionID, &req.Method,
			&req.AmountUSDCents, &bankName, &bankAccount, &accountHolder,
			&paypalEmail, &providerRef, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		req.BankName = bankName.String
		req.BankAccount = bankAccount.String
		req.AccountHolder = accountHolder.String
		req.PayPalEmail = paypalEmail.String
		req.ProviderRef = providerRef.String
		reqs = append(reqs, &req)
	}
	return reqs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
