package ledgerservice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vieclance/wls/internal/application/lockmgr"
	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/repositories/escrowrepo"
	"github.com/vieclance/wls/internal/repositories/ledgerrepo"
	"github.com/vieclance/wls/internal/repositories/walletrepo"
)

type ledgerService struct {
	walletRepo walletrepo.IWalletRepository
	ledgerRepo ledgerrepo.ILedgerRepository
	escrowRepo escrowrepo.IEscrowRepository
	locks      *lockmgr.Manager
	logger     zerolog.Logger
}

func New(
	walletRepo walletrepo.IWalletRepository,
	ledgerRepo ledgerrepo.ILedgerRepository,
	escrowRepo escrowrepo.IEscrowRepository,
	locks *lockmgr.Manager,
	logger zerolog.Logger,
) ILedgerService {
	return &ledgerService{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		escrowRepo: escrowRepo,
		locks:      locks,
		logger:     logger,
	}
}

func (s *ledgerService) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetOrCreateByUser(ctx, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get or create wallet: %w", err)
	}
	return wallet, nil
}

func (s *ledgerService) GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error) {
	return s.walletRepo.GetByID(ctx, walletID)
}

func (s *ledgerService) Append(ctx context.Context, in AppendInput) (*domain.Transaction, error) {
	tx, err := s.buildTransaction(in)
	if err != nil {
		return nil, err
	}
	if err := s.ledgerRepo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	s.logger.Info().
		Str("transaction_id", tx.ID).
		Str("wallet_id", tx.WalletID).
		Str("type", string(tx.Type)).
		Int64("amount_cents", tx.AmountCents).
		Msg("Transaction appended")
	return tx, nil
}

func (s *ledgerService) Settle(ctx context.Context, txID string, status domain.TransactionStatus) (*domain.Transaction, error) {
	tx, err := s.ledgerRepo.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	unlock, ok := s.locks.Acquire(ctx, tx.WalletID)
	if !ok {
		return nil, domain.ErrConflict
	}
	defer unlock()

	return s.settleLocked(ctx, txID, status)
}

func (s *ledgerService) AppendSettled(ctx context.Context, in AppendInput) (*domain.Transaction, error) {
	tx, err := s.buildTransaction(in)
	if err != nil {
		return nil, err
	}

	unlock, ok := s.locks.Acquire(ctx, tx.WalletID)
	if !ok {
		return nil, domain.ErrConflict
	}
	defer unlock()

	if err := s.ledgerRepo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}
	return s.settleLocked(ctx, tx.ID, domain.StatusCompleted)
}

func (s *ledgerService) MarkProcessing(ctx context.Context, txID string) error {
	return s.ledgerRepo.MarkProcessing(ctx, txID)
}

// settleLocked applies the terminal status. The caller holds the wallet lock.
func (s *ledgerService) settleLocked(ctx context.Context, txID string, status domain.TransactionStatus) (*domain.Transaction, error) {
	tx, err := s.ledgerRepo.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.IsTerminal() {
		return nil, domain.ErrInvalidTransition
	}

	wallet, err := s.walletRepo.GetByID(ctx, tx.WalletID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tx.Status = status
	tx.SettledAt = &now
	tx.UpdatedAt = now

	if status == domain.StatusCompleted {
		if tx.IsDebit() {
			if !wallet.CanDebit() {
				return nil, domain.ErrWalletFrozen
			}
			if wallet.BalanceCents < tx.AmountCents {
				return nil, domain.ErrInsufficientFunds
			}
			wallet.BalanceCents -= tx.AmountCents
		} else {
			wallet.BalanceCents += tx.AmountCents
		}
		wallet.Sequence++
		wallet.UpdatedAt = now
		tx.Sequence = wallet.Sequence
		balanceAfter := wallet.BalanceCents
		tx.BalanceAfterCents = &balanceAfter
	}

	if err := s.ledgerRepo.SettleTransaction(ctx, tx, wallet); err != nil {
		return nil, fmt.Errorf("failed to settle transaction: %w", err)
	}

	s.logger.Info().
		Str("transaction_id", tx.ID).
		Str("wallet_id", tx.WalletID).
		Str("status", string(status)).
		Int64("amount_cents", tx.AmountCents).
		Int64("sequence", tx.Sequence).
		Msg("Transaction settled")
	return tx, nil
}

func (s *ledgerService) GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	return s.ledgerRepo.GetTransaction(ctx, txID)
}

func (s *ledgerService) GetTransactionByProviderRef(ctx context.Context, ref string) (*domain.Transaction, error) {
	return s.ledgerRepo.GetTransactionByProviderRef(ctx, ref)
}

func (s *ledgerService) ListTransactions(ctx context.Context, walletID string, filter *domain.TransactionFilter) ([]*domain.Transaction, int, error) {
	filter.Normalize()
	return s.ledgerRepo.ListTransactions(ctx, walletID, filter)
}

func (s *ledgerService) GetSummary(ctx context.Context, walletID string) (*domain.WalletSummary, error) {
	totals, err := s.ledgerRepo.Aggregate(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger: %w", err)
	}

	escrowCents, escrowCount, err := s.escrowRepo.ActiveTotals(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to load escrow totals: %w", err)
	}

	return &domain.WalletSummary{
		AvailableBalanceCents: totals.CompletedCreditCents - totals.CompletedDebitCents,
		PendingBalanceCents:   totals.PendingCents,
		TotalEarnedCents:      totals.TotalEarnedCents,
		TotalSpentCents:       totals.TotalSpentCents,
		ActiveEscrowCents:     escrowCents,
		ActiveEscrowCount:     escrowCount,
	}, nil
}

func (s *ledgerService) ReplayBalance(ctx context.Context, walletID string) (int64, error) {
	txs, err := s.ledgerRepo.ReplayTransactions(ctx, walletID)
	if err != nil {
		return 0, fmt.Errorf("failed to replay transactions: %w", err)
	}

	var balance int64
	for _, tx := range txs {
		if tx.Status != domain.StatusCompleted {
			continue
		}
		if tx.IsDebit() {
			balance -= tx.AmountCents
		} else {
			balance += tx.AmountCents
		}
		if tx.BalanceAfterCents != nil && *tx.BalanceAfterCents != balance {
			s.logger.Warn().
				Str("wallet_id", walletID).
				Str("transaction_id", tx.ID).
				Int64("recorded", *tx.BalanceAfterCents).
				Int64("replayed", balance).
				Msg("Replay balance diverged from recorded balance_after")
		}
	}
	return balance, nil
}

func (s *ledgerService) buildTransaction(in AppendInput) (*domain.Transaction, error) {
	if in.AmountCents <= 0 {
		return nil, domain.ErrAmountInvalid
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("invalid transaction type: %s", in.Type)
	}

	now := time.Now().UTC()
	return &domain.Transaction{
		ID:          uuid.New().String(),
		WalletID:    in.WalletID,
		Type:        in.Type,
		Status:      domain.StatusPending,
		Method:      in.Method,
		AmountCents: in.AmountCents,
		Description: in.Description,
		ProviderRef: in.ProviderRef,
		Metadata:    in.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
