package escrowservice

import (
	"context"

	"github.com/vieclance/wls/internal/domain"
)

type IEscrowService interface {
	// Hold reserves funds from the employer's wallet for a job. The hold is
	// a completed debit, so the reserved amount leaves the available
	// balance immediately.
	Hold(ctx context.Context, in HoldInput) (*domain.EscrowHold, error)

	// Release resolves a held escrow. Disputed holds are rejected here;
	// they can only be settled through Resolve.
	Release(ctx context.Context, in ResolveInput) (*domain.EscrowHold, error)

	// Dispute marks a held escrow as disputed, blocking release until an
	// explicit resolution decision.
	Dispute(ctx context.Context, holdID string) (*domain.EscrowHold, error)

	// Resolve settles a held or disputed escrow with an explicit decision.
	Resolve(ctx context.Context, in ResolveInput) (*domain.EscrowHold, error)

	GetHold(ctx context.Context, holdID string) (*domain.EscrowHold, error)
}

type HoldInput struct {
	WalletID    string
	JobID       string
	AmountCents int64
}

type ResolveInput struct {
	HoldID     string
	Resolution domain.EscrowResolution

	// WorkerWalletID receives the escrow_release credit. Required unless
	// the resolution refunds the employer in full.
	WorkerWalletID string

	// RefundCents is the employer's share of a partial_refund. The worker
	// receives the remainder.
	RefundCents int64
}
