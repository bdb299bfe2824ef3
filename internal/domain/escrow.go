package domain

import (
	"time"
)

type EscrowStatus string

const (
	EscrowStatusHeld      EscrowStatus = "held"
	EscrowStatusResolving EscrowStatus = "resolving"
	EscrowStatusReleased  EscrowStatus = "released"
	EscrowStatusRefunded  EscrowStatus = "refunded"
	EscrowStatusDisputed  EscrowStatus = "disputed"
	EscrowStatusCancelled EscrowStatus = "cancelled"
)

type EscrowResolution string

const (
	ResolutionReleaseToWorker  EscrowResolution = "release_to_worker"
	ResolutionRefundToEmployer EscrowResolution = "refund_to_employer"
	ResolutionPartialRefund    EscrowResolution = "partial_refund"
)

func (r EscrowResolution) Valid() bool {
	switch r {
	case ResolutionReleaseToWorker, ResolutionRefundToEmployer, ResolutionPartialRefund:
		return true
	}
	return false
}

// EscrowHold reserves funds from the employer's wallet against a job. The
// hold transaction is a completed debit at hold time; resolution credits sum
// exactly to AmountCents.
//
// Resolution goes through the transient `resolving` status: the decided
// split and each credit's transaction id are persisted on the hold before
// the credit settles, so an interrupted resolution resumes where it stopped
// instead of paying twice.
type EscrowHold struct {
	ID              string           `json:"id" db:"id"`
	WalletID        string           `json:"wallet_id" db:"wallet_id" binding:"required"`
	JobID           string           `json:"job_id" db:"job_id" binding:"required"`
	AmountCents     int64            `json:"amount_cents" db:"amount_cents" binding:"required"`
	Status          EscrowStatus     `json:"status" db:"status"`
	HoldTxID        string           `json:"hold_tx_id" db:"hold_tx_id"`
	Resolution      EscrowResolution `json:"resolution,omitempty" db:"resolution"`
	WorkerWalletID  string           `json:"worker_wallet_id,omitempty" db:"worker_wallet_id"`
	RefundCents     int64            `json:"refund_cents,omitempty" db:"refund_cents"`
	ReleaseTxID     string           `json:"release_tx_id,omitempty" db:"release_tx_id"`
	RefundTxID      string           `json:"refund_tx_id,omitempty" db:"refund_tx_id"`
	ResolutionTxIDs []string         `json:"resolution_tx_ids,omitempty" db:"resolution_tx_ids"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// Open reports whether the hold still reserves funds. Disputed holds stay
// open until an explicit resolution decision arrives; resolving holds stay
// open until the last resolution credit settles.
func (h *EscrowHold) Open() bool {
	return h.Status == EscrowStatusHeld || h.Status == EscrowStatusDisputed ||
		h.Status == EscrowStatusResolving
}
