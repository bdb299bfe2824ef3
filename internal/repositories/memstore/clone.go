package memstore

import (
	"github.com/vieclance/wls/internal/domain"
)

// Clone helpers keep callers from mutating store state through shared
// pointers and slices.

func cloneWallet(w *domain.Wallet) *domain.Wallet {
	out := *w
	return &out
}

func cloneTx(tx *domain.Transaction) *domain.Transaction {
	out := *tx
	if tx.BalanceAfterCents != nil {
		v := *tx.BalanceAfterCents
		out.BalanceAfterCents = &v
	}
	if tx.SettledAt != nil {
		t := *tx.SettledAt
		out.SettledAt = &t
	}
	if tx.Metadata != nil {
		out.Metadata = append([]byte(nil), tx.Metadata...)
	}
	return &out
}

func cloneHold(h *domain.EscrowHold) *domain.EscrowHold {
	out := *h
	out.ResolutionTxIDs = append([]string(nil), h.ResolutionTxIDs...)
	if h.ResolvedAt != nil {
		t := *h.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}

func cloneDeposit(d *domain.BankDepositRequest) *domain.BankDepositRequest {
	out := *d
	return &out
}

func cloneWithdrawal(w *domain.WithdrawalRequest) *domain.WithdrawalRequest {
	out := *w
	return &out
}
