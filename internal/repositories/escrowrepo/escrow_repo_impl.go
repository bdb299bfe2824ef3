package escrowrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/infrastructure/database"
)

type EscrowRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IEscrowRepository {
	return &EscrowRepository{
		db:     db.Db,
		logger: logger,
	}
}

const holdColumns = `id, wallet_id, job_id, amount_cents, status, hold_tx_id,
	resolution, worker_wallet_id, refund_cents, release_tx_id, refund_tx_id,
	resolution_tx_ids, resolved_at, created_at, updated_at`

func (r *EscrowRepository) CreateHold(ctx context.Context, hold *domain.EscrowHold) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO escrow_holds
		 (id, wallet_id, job_id, amount_cents, status, hold_tx_id, resolution_tx_ids, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		hold.ID, hold.WalletID, hold.JobID, hold.AmountCents, hold.Status,
		hold.HoldTxID, pq.Array(hold.ResolutionTxIDs), hold.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("wallet_id", hold.WalletID).Str("job_id", hold.JobID).Msg("Failed to create escrow hold")
		return fmt.Errorf("failed to create escrow hold: %w", err)
	}
	return nil
}

func (r *EscrowRepository) GetHold(ctx context.Context, id string) (*domain.EscrowHold, error) {
	var hold domain.EscrowHold
	var resolvedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM escrow_holds WHERE id = $1`, id).
		Scan(&hold.ID, &hold.WalletID, &hold.JobID, &hold.AmountCents,
			&hold.Status, &hold.HoldTxID, &hold.Resolution, &hold.WorkerWalletID,
			&hold.RefundCents, &hold.ReleaseTxID, &hold.RefundTxID,
			pq.Array(&hold.ResolutionTxIDs), &resolvedAt, &hold.CreatedAt, &hold.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEscrowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow hold: %w", err)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		hold.ResolvedAt = &t
	}
	return &hold, nil
}

func (r *EscrowRepository) UpdateHold(ctx context.Context, hold *domain.EscrowHold) error {
	var resolvedAt sql.NullTime
	if hold.ResolvedAt != nil {
		resolvedAt = sql.NullTime{Time: *hold.ResolvedAt, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE escrow_holds
		 SET status = $2, resolution = $3, worker_wallet_id = $4, refund_cents = $5,
		     release_tx_id = $6, refund_tx_id = $7, resolution_tx_ids = $8,
		     resolved_at = $9, updated_at = now()
		 WHERE id = $1`,
		hold.ID, hold.Status, hold.Resolution, hold.WorkerWalletID, hold.RefundCents,
		hold.ReleaseTxID, hold.RefundTxID, pq.Array(hold.ResolutionTxIDs), resolvedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("hold_id", hold.ID).Msg("Failed to update escrow hold")
		return fmt.Errorf("failed to update escrow hold: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrEscrowNotFound
	}
	return nil
}

func (r *EscrowRepository) ActiveTotals(ctx context.Context, walletID string) (int64, int, error) {
	var sum int64
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT coalesce(sum(amount_cents), 0), count(*)
		 FROM escrow_holds WHERE wallet_id = $1 AND status IN ('held', 'disputed', 'resolving')`,
		walletID).Scan(&sum, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum active escrows: %w", err)
	}
	return sum, count, nil
}
