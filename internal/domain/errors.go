package domain

import "errors"

var (
	// ErrInsufficientFunds is returned when a debit would drive the
	// available balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidTransition is returned when settling a transaction that has
	// already reached a terminal status.
	ErrInvalidTransition = errors.New("transaction already settled")

	// ErrAlreadyResolved is returned when releasing an escrow hold that is
	// no longer held.
	ErrAlreadyResolved = errors.New("escrow hold already resolved")

	// ErrEscrowDisputed is returned when releasing a disputed hold without
	// an explicit resolution decision.
	ErrEscrowDisputed = errors.New("escrow hold is disputed")

	// ErrNotAuthenticated is returned when no authenticated user id is
	// attached to the request.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrExpiredRequest is returned when confirming a deposit request past
	// its expiry.
	ErrExpiredRequest = errors.New("deposit request expired")

	// ErrProvider wraps external payment provider failures.
	ErrProvider = errors.New("payment provider error")

	// ErrWalletFrozen is returned when a debit targets a frozen or
	// suspended wallet.
	ErrWalletFrozen = errors.New("wallet is not active")

	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrEscrowNotFound      = errors.New("escrow hold not found")
	ErrDepositNotFound     = errors.New("deposit request not found")
	ErrWithdrawalNotFound  = errors.New("withdrawal request not found")

	// ErrAmountInvalid covers malformed or non-positive amounts.
	ErrAmountInvalid = errors.New("amount must be a positive USD value")

	// ErrBelowMinimum is returned when an amount is under the configured
	// policy threshold.
	ErrBelowMinimum = errors.New("amount below minimum")

	// ErrConflict is surfaced after bounded retries under per-wallet
	// contention are exhausted.
	ErrConflict = errors.New("wallet busy, retry later")
)
