package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/sqlc-dev/pqtype"

	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/infrastructure/database"
)

type LedgerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) ILedgerRepository {
	return &LedgerRepository{
		db:     db.Db,
		logger: logger,
	}
}

const txColumns = `id, wallet_id, type, status, payment_method, amount_cents,
	balance_after_cents, sequence, description, provider_ref, metadata,
	settled_at, created_at, updated_at`

func (r *LedgerRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, wallet_id, type, status, payment_method, amount_cents, description, provider_ref, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		tx.ID, tx.WalletID, tx.Type, tx.Status, tx.Method, tx.AmountCents,
		tx.Description, nullString(tx.ProviderRef),
		pqtype.NullRawMessage{RawMessage: tx.Metadata, Valid: tx.Metadata != nil},
		tx.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("wallet_id", tx.WalletID).Msg("Failed to create transaction")
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *LedgerRepository) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

func (r *LedgerRepository) GetTransactionByProviderRef(ctx context.Context, ref string) (*domain.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE provider_ref = $1`, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by provider ref: %w", err)
	}
	return tx, nil
}

func (r *LedgerRepository) MarkProcessing(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3`,
		id, domain.StatusProcessing, domain.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark transaction processing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *LedgerRepository) SettleTransaction(ctx context.Context, tx *domain.Transaction, wallet *domain.Wallet) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer sqlTx.Rollback()

	// The status guard makes settlement idempotent even if the per-wallet
	// lock is bypassed by an operator script.
	res, err := sqlTx.ExecContext(ctx,
		`UPDATE transactions
		 SET status = $2, balance_after_cents = $3, sequence = $4, settled_at = $5, updated_at = now()
		 WHERE id = $1 AND status IN ('pending', 'processing')`,
		tx.ID, tx.Status, nullInt64(tx.BalanceAfterCents), tx.Sequence, tx.SettledAt)
	if err != nil {
		return fmt.Errorf("failed to settle transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrInvalidTransition
	}

	if tx.Status == domain.StatusCompleted {
		if _, err := sqlTx.ExecContext(ctx,
			`UPDATE wallets SET balance_cents = $2, sequence = $3, updated_at = now() WHERE id = $1`,
			wallet.ID, wallet.BalanceCents, wallet.Sequence); err != nil {
			return fmt.Errorf("failed to update wallet balance: %w", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}
	return nil
}

func (r *LedgerRepository) ListTransactions(ctx context.Context, walletID string, filter *domain.TransactionFilter) ([]*domain.Transaction, int, error) {
	filter.Normalize()

	where := `WHERE wallet_id = $1
		AND ($2::text[] IS NULL OR type = ANY($2))
		AND ($3::text[] IS NULL OR status = ANY($3))
		AND ($4::timestamptz IS NULL OR created_at >= $4)
		AND ($5::timestamptz IS NULL OR created_at <= $5)`

	args := []any{
		walletID,
		typeArray(filter.Types),
		statusArray(filter.Statuses),
		nullTime(filter.DateFrom),
		nullTime(filter.DateTo),
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM transactions `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions `+where+`
		 ORDER BY created_at DESC LIMIT $6 OFFSET $7`,
		append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, total, rows.Err()
}

func (r *LedgerRepository) ReplayTransactions(ctx context.Context, walletID string) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE wallet_id = $1
		 ORDER BY (settled_at IS NULL), sequence, created_at`, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to replay transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *LedgerRepository) Aggregate(ctx context.Context, walletID string) (*LedgerTotals, error) {
	var t LedgerTotals
	err := r.db.QueryRowContext(ctx,
		`SELECT
			coalesce(sum(amount_cents) FILTER (WHERE status = 'completed' AND type IN ('deposit','earning','refund','escrow_release')), 0),
			coalesce(sum(amount_cents) FILTER (WHERE status = 'completed' AND type IN ('withdrawal','payment','platform_fee','insurance_fee','escrow_hold')), 0),
			coalesce(sum(amount_cents) FILTER (WHERE status IN ('pending','processing')), 0),
			coalesce(sum(amount_cents) FILTER (WHERE status = 'completed' AND type IN ('earning','escrow_release')), 0),
			coalesce(sum(amount_cents) FILTER (WHERE status = 'completed' AND type IN ('payment','platform_fee','insurance_fee','escrow_hold')), 0)
		 FROM transactions WHERE wallet_id = $1`, walletID).
		Scan(&t.CompletedCreditCents, &t.CompletedDebitCents, &t.PendingCents,
			&t.TotalEarnedCents, &t.TotalSpentCents)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger: %w", err)
	}
	return &t, nil
}

func scanTransaction(row interface{ Scan(...any) error }) (*domain.Transaction, error) {
	var tx domain.Transaction
	var balanceAfter sql.NullInt64
	var providerRef sql.NullString
	var metadata pqtype.NullRawMessage
	var settledAt sql.NullTime

	err := row.Scan(&tx.ID, &tx.WalletID, &tx.Type, &tx.Status, &tx.Method,
		&tx.AmountCents, &balanceAfter, &tx.Sequence, &tx.Description,
		&providerRef, &metadata, &settledAt, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if balanceAfter.Valid {
		tx.BalanceAfterCents = &balanceAfter.Int64
	}
	tx.ProviderRef = providerRef.String
	if metadata.Valid {
		tx.Metadata = metadata.RawMessage
	}
	if settledAt.Valid {
		t := settledAt.Time
		tx.SettledAt = &t
	}
	return &tx, nil
}

func typeArray(types []domain.TransactionType) any {
	if len(types) == 0 {
		return nil
	}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return pq.Array(out)
}

func statusArray(statuses []domain.TransactionStatus) any {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return pq.Array(out)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
