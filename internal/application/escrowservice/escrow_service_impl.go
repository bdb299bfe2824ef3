package escrowservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vieclance/wls/internal/application/ledgerservice"
	"github.com/vieclance/wls/internal/application/lockmgr"
	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/domain/interfaces"
	"github.com/vieclance/wls/internal/repositories/escrowrepo"
	"github.com/vieclance/wls/internal/repositories/walletrepo"
)

type escrowService struct {
	escrowRepo  escrowrepo.IEscrowRepository
	walletRepo  walletrepo.IWalletRepository
	ledger      ledgerservice.ILedgerService
	locks       *lockmgr.Manager
	broadcaster interfaces.EventBroadcaster
	logger      zerolog.Logger
}

func New(
	escrowRepo escrowrepo.IEscrowRepository,
	walletRepo walletrepo.IWalletRepository,
	ledger ledgerservice.ILedgerService,
	locks *lockmgr.Manager,
	broadcaster interfaces.EventBroadcaster,
	logger zerolog.Logger,
) IEscrowService {
	return &escrowService{
		escrowRepo:  escrowRepo,
		walletRepo:  walletRepo,
		ledger:      ledger,
		locks:       locks,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (s *escrowService) Hold(ctx context.Context, in HoldInput) (*domain.EscrowHold, error) {
	if in.AmountCents <= 0 {
		return nil, domain.ErrAmountInvalid
	}
	if in.JobID == "" {
		return nil, fmt.Errorf("job id is required")
	}

	// Funds and wallet status are enforced inside the settle critical
	// section, so concurrent holds cannot overdraw the wallet.
	tx, err := s.ledger.AppendSettled(ctx, ledgerservice.AppendInput{
		WalletID:    in.WalletID,
		Type:        domain.TypeEscrowHold,
		AmountCents: in.AmountCents,
		Method:      domain.MethodEscrow,
		Description: fmt.Sprintf("Escrow hold for job %s", in.JobID),
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	hold := &domain.EscrowHold{
		ID:          uuid.New().String(),
		WalletID:    in.WalletID,
		JobID:       in.JobID,
		AmountCents: in.AmountCents,
		Status:      domain.EscrowStatusHeld,
		HoldTxID:    tx.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.escrowRepo.CreateHold(ctx, hold); err != nil {
		// The debit settled but no hold record exists, so nothing could ever
		// release or refund it. Give the funds back.
		if _, rErr := s.ledger.AppendSettled(ctx, ledgerservice.AppendInput{
			WalletID:    in.WalletID,
			Type:        domain.TypeRefund,
			AmountCents: in.AmountCents,
			Method:      domain.MethodEscrow,
			Description: fmt.Sprintf("Escrow hold reversal for job %s", in.JobID),
		}); rErr != nil {
			s.logger.Error().Err(rErr).
				Str("wallet_id", in.WalletID).
				Str("transaction_id", tx.ID).
				Msg("Failed to reverse orphaned escrow hold debit, reconcile manually")
		}
		return nil, fmt.Errorf("failed to create escrow hold: %w", err)
	}

	s.logger.Info().
		Str("escrow_id", hold.ID).
		Str("wallet_id", hold.WalletID).
		Str("job_id", hold.JobID).
		Int64("amount_cents", hold.AmountCents).
		Msg("Escrow hold created")
	s.notify(ctx, domain.EventEscrowHeld, in.WalletID, tx.ID, in.AmountCents,
		fmt.Sprintf("Escrow of %d cents held for job %s", in.AmountCents, in.JobID))
	return hold, nil
}

func (s *escrowService) Release(ctx context.Context, in ResolveInput) (*domain.EscrowHold, error) {
	return s.resolve(ctx, in, false)
}

func (s *escrowService) Resolve(ctx context.Context, in ResolveInput) (*domain.EscrowHold, error) {
	return s.resolve(ctx, in, true)
}

func (s *escrowService) Dispute(ctx context.Context, holdID string) (*domain.EscrowHold, error) {
	unlock, ok := s.locks.Acquire(ctx, "escrow:"+holdID)
	if !ok {
		return nil, domain.ErrConflict
	}
	defer unlock()

	hold, err := s.escrowRepo.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.Status != domain.EscrowStatusHeld {
		return nil, domain.ErrAlreadyResolved
	}

	hold.Status = domain.EscrowStatusDisputed
	hold.UpdatedAt = time.Now().UTC()
	if err := s.escrowRepo.UpdateHold(ctx, hold); err != nil {
		return nil, fmt.Errorf("failed to mark escrow disputed: %w", err)
	}

	s.logger.Info().
		Str("escrow_id", hold.ID).
		Str("job_id", hold.JobID).
		Msg("Escrow hold disputed")
	return hold, nil
}

func (s *escrowService) GetHold(ctx context.Context, holdID string) (*domain.EscrowHold, error) {
	return s.escrowRepo.GetHold(ctx, holdID)
}

// resolve settles the hold by crediting its full amount back out. The split
// depends on the resolution; the credits always sum to the held amount.
//
// The decided split is persisted on the hold before any credit settles, and
// each credit's transaction id is persisted before that credit settles. A
// resolution that fails partway leaves the hold `resolving`; re-entering
// resumes from the recorded state, so no credit can settle twice.
func (s *escrowService) resolve(ctx context.Context, in ResolveInput, allowDisputed bool) (*domain.EscrowHold, error) {
	if !in.Resolution.Valid() {
		return nil, fmt.Errorf("invalid escrow resolution: %s", in.Resolution)
	}

	unlock, ok := s.locks.Acquire(ctx, "escrow:"+in.HoldID)
	if !ok {
		return nil, domain.ErrConflict
	}
	defer unlock()

	hold, err := s.escrowRepo.GetHold(ctx, in.HoldID)
	if err != nil {
		return nil, err
	}
	switch hold.Status {
	case domain.EscrowStatusHeld:
	case domain.EscrowStatusDisputed:
		if !allowDisputed {
			return nil, domain.ErrEscrowDisputed
		}
	case domain.EscrowStatusResolving:
		if in.Resolution != hold.Resolution {
			return nil, fmt.Errorf("%w: resolution %s already in progress", domain.ErrConflict, hold.Resolution)
		}
	default:
		return nil, domain.ErrAlreadyResolved
	}

	if hold.Status != domain.EscrowStatusResolving {
		_, refundCents, err := splitAmount(hold.AmountCents, in)
		if err != nil {
			return nil, err
		}
		hold.Status = domain.EscrowStatusResolving
		hold.Resolution = in.Resolution
		hold.WorkerWalletID = in.WorkerWalletID
		hold.RefundCents = refundCents
		hold.UpdatedAt = time.Now().UTC()
		if err := s.escrowRepo.UpdateHold(ctx, hold); err != nil {
			return nil, fmt.Errorf("failed to record escrow resolution: %w", err)
		}
	}

	workerCents := hold.AmountCents - hold.RefundCents
	if workerCents > 0 {
		credited, err := s.settleResolutionCredit(ctx, hold, &hold.ReleaseTxID, ledgerservice.AppendInput{
			WalletID:    hold.WorkerWalletID,
			Type:        domain.TypeEscrowRelease,
			AmountCents: workerCents,
			Method:      domain.MethodEscrow,
			Description: fmt.Sprintf("Escrow release for job %s", hold.JobID),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to credit worker: %w", err)
		}
		if credited {
			s.notify(ctx, domain.EventEscrowResolved, hold.WorkerWalletID, hold.ReleaseTxID, workerCents,
				fmt.Sprintf("Escrow payout for job %s", hold.JobID))
		}
	}
	if hold.RefundCents > 0 {
		if _, err := s.settleResolutionCredit(ctx, hold, &hold.RefundTxID, ledgerservice.AppendInput{
			WalletID:    hold.WalletID,
			Type:        domain.TypeRefund,
			AmountCents: hold.RefundCents,
			Method:      domain.MethodEscrow,
			Description: fmt.Sprintf("Escrow refund for job %s", hold.JobID),
		}); err != nil {
			return nil, fmt.Errorf("failed to refund employer: %w", err)
		}
	}

	now := time.Now().UTC()
	if hold.Resolution == domain.ResolutionRefundToEmployer {
		hold.Status = domain.EscrowStatusRefunded
	} else {
		hold.Status = domain.EscrowStatusReleased
	}
	hold.ResolutionTxIDs = nil
	if hold.ReleaseTxID != "" {
		hold.ResolutionTxIDs = append(hold.ResolutionTxIDs, hold.ReleaseTxID)
	}
	if hold.RefundTxID != "" {
		hold.ResolutionTxIDs = append(hold.ResolutionTxIDs, hold.RefundTxID)
	}
	hold.ResolvedAt = &now
	hold.UpdatedAt = now
	if err := s.escrowRepo.UpdateHold(ctx, hold); err != nil {
		return nil, fmt.Errorf("failed to update escrow hold: %w", err)
	}

	s.logger.Info().
		Str("escrow_id", hold.ID).
		Str("job_id", hold.JobID).
		Str("resolution", string(hold.Resolution)).
		Int64("worker_cents", workerCents).
		Int64("refund_cents", hold.RefundCents).
		Msg("Escrow hold resolved")
	s.notify(ctx, domain.EventEscrowResolved, hold.WalletID, hold.HoldTxID, hold.AmountCents,
		fmt.Sprintf("Escrow for job %s resolved: %s", hold.JobID, hold.Resolution))
	return hold, nil
}

// settleResolutionCredit settles one resolution credit exactly once. The
// pending transaction id is persisted on the hold before the credit settles;
// a re-entry with the id already recorded only re-attempts the settle, which
// the terminal-status guard turns into a no-op when it already landed.
// Returns whether the credit settled in this call.
func (s *escrowService) settleResolutionCredit(ctx context.Context, hold *domain.EscrowHold, txID *string, in ledgerservice.AppendInput) (bool, error) {
	if *txID == "" {
		tx, err := s.ledger.Append(ctx, in)
		if err != nil {
			return false, err
		}
		*txID = tx.ID
		hold.UpdatedAt = time.Now().UTC()
		if err := s.escrowRepo.UpdateHold(ctx, hold); err != nil {
			// The pending credit was never recorded on the hold; cancel it
			// so a retry starts clean.
			if _, cErr := s.ledger.Settle(ctx, tx.ID, domain.StatusCancelled); cErr != nil {
				s.logger.Error().Err(cErr).
					Str("escrow_id", hold.ID).
					Str("transaction_id", tx.ID).
					Msg("Failed to cancel unrecorded resolution credit")
			}
			*txID = ""
			return false, err
		}
	}

	if _, err := s.ledger.Settle(ctx, *txID, domain.StatusCompleted); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func splitAmount(total int64, in ResolveInput) (workerCents, refundCents int64, err error) {
	switch in.Resolution {
	case domain.ResolutionReleaseToWorker:
		if in.WorkerWalletID == "" {
			return 0, 0, fmt.Errorf("worker wallet id is required")
		}
		return total, 0, nil
	case domain.ResolutionRefundToEmployer:
		return 0, total, nil
	case domain.ResolutionPartialRefund:
		if in.WorkerWalletID == "" {
			return 0, 0, fmt.Errorf("worker wallet id is required")
		}
		if in.RefundCents <= 0 || in.RefundCents >= total {
			return 0, 0, fmt.Errorf("%w: partial refund must be between 0 and the held amount", domain.ErrAmountInvalid)
		}
		return total - in.RefundCents, in.RefundCents, nil
	}
	return 0, 0, fmt.Errorf("invalid escrow resolution: %s", in.Resolution)
}

func (s *escrowService) notify(ctx context.Context, kind domain.WalletEventKind, walletID, txID string, amountCents int64, msg string) {
	if s.broadcaster == nil {
		return
	}
	event := &domain.WalletEvent{
		Kind:          kind,
		WalletID:      walletID,
		TransactionID: txID,
		AmountCents:   amountCents,
		Message:       msg,
		Timestamp:     time.Now().UTC(),
	}
	if wallet, err := s.walletRepo.GetByID(ctx, walletID); err == nil {
		event.UserID = wallet.UserID
	}
	s.broadcaster.Broadcast(event)
}
