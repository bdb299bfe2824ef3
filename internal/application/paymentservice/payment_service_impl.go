package paymentservice

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/vieclance/wls/internal/application/ledgerservice"
	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/domain/interfaces"
	"github.com/vieclance/wls/internal/repositories/depositrepo"
	"github.com/vieclance/wls/internal/repositories/walletrepo"
	"github.com/vieclance/wls/internal/repositories/withdrawalrepo"
	"github.com/vieclance/wls/pkg/config"
	"github.com/vieclance/wls/pkg/currency"
)

const sweepBatchSize = 100

type paymentService struct {
	walletRepo     walletrepo.IWalletRepository
	depositRepo    depositrepo.IDepositRepository
	withdrawalRepo withdrawalrepo.IWithdrawalRepository
	ledger         ledgerservice.ILedgerService
	bankClient     interfaces.BankGatewayClient
	paypalClient   interfaces.PayPalClient
	config         config.WalletConfig
	broadcaster    interfaces.EventBroadcaster
	logger         zerolog.Logger
}

func New(
	walletRepo walletrepo.IWalletRepository,
	depositRepo depositrepo.IDepositRepository,
	withdrawalRepo withdrawalrepo.IWithdrawalRepository,
	ledger ledgerservice.ILedgerService,
	bankClient interfaces.BankGatewayClient,
	paypalClient interfaces.PayPalClient,
	cfg config.WalletConfig,
	broadcaster interfaces.EventBroadcaster,
	logger zerolog.Logger,
) IPaymentService {
	return &paymentService{
		walletRepo:     walletRepo,
		depositRepo:    depositRepo,
		withdrawalRepo: withdrawalRepo,
		ledger:         ledger,
		bankClient:     bankClient,
		paypalClient:   paypalClient,
		config:         cfg,
		broadcaster:    broadcaster,
		logger:         logger,
	}
}

func (s *paymentService) InitiateBankDeposit(ctx context.Context, userID uuid.UUID, amountUSDCents int64) (*domain.BankDepositRequest, error) {
	if amountUSDCents < s.config.MinDepositCents {
		return nil, fmt.Errorf("%w: minimum deposit is %s", domain.ErrBelowMinimum, currency.FormatUSD(s.config.MinDepositCents))
	}

	wallet, err := s.ledger.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	token := newTransferContent()
	tx, err := s.ledger.Append(ctx, ledgerservice.AppendInput{
		WalletID:    wallet.ID,
		Type:        domain.TypeDeposit,
		AmountCents: amountUSDCents,
		Method:      domain.MethodBankTransfer,
		Description: fmt.Sprintf("Bank deposit of %s", currency.FormatUSD(amountUSDCents)),
		ProviderRef: token,
	})
	if err != nil {
		return nil, err
	}

	amountVND := currency.USDCentsToVND(amountUSDCents, s.config.USDToVNDRate)
	bankName, accountNumber := s.bankClient.CollectionAccount()
	now := time.Now().UTC()
	req := &domain.BankDepositRequest{
		ID:              uuid.New().String(),
		WalletID:        wallet.ID,
		TransactionID:   tx.ID,
		AmountUSDCents:  amountUSDCents,
		AmountVND:       amountVND,
		BankName:        bankName,
		BankAccount:     accountNumber,
		TransferContent: token,
		QRCodeURL:       s.bankClient.QRCodeURL(amountVND, token),
		Status:          domain.BankDepositStatusPending,
		ExpiresAt:       now.Add(s.config.DepositExpiry),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.depositRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create deposit request: %w", err)
	}

	s.logger.Info().
		Str("deposit_id", req.ID).
		Str("wallet_id", wallet.ID).
		Str("transfer_content", token).
		Int64("amount_usd_cents", amountUSDCents).
		Int64("amount_vnd", amountVND).
		Msg("Bank deposit initiated")
	return req, nil
}

func (s *paymentService) ConfirmBankDeposit(ctx context.Context, in BankWebhookInput) error {
	req, err := s.depositRepo.GetByTransferContent(ctx, in.TransferContent)
	if err != nil {
		return err
	}
	if req.Terminal() {
		s.logger.Info().
			Str("deposit_id", req.ID).
			Str("status", string(req.Status)).
			Msg("Duplicate bank webhook ignored")
		return nil
	}
	if req.Expired(time.Now().UTC()) {
		return domain.ErrExpiredRequest
	}
	if in.AmountVND > 0 && in.AmountVND < req.AmountVND {
		s.logger.Warn().
			Str("deposit_id", req.ID).
			Int64("expected_vnd", req.AmountVND).
			Int64("received_vnd", in.AmountVND).
			Msg("Bank transfer amount below expected, leaving deposit pending")
		return fmt.Errorf("transfer amount %d below expected %d", in.AmountVND, req.AmountVND)
	}

	tx, err := s.ledger.Settle(ctx, req.TransactionID, domain.StatusCompleted)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// A previous confirm settled the transaction but failed before
			// the request flipped. Catch the record up.
			return s.reconcileDeposit(ctx, req)
		}
		return err
	}

	req.Status = domain.BankDepositStatusCompleted
	if err := s.depositRepo.Update(ctx, req); err != nil {
		return fmt.Errorf("failed to complete deposit request: %w", err)
	}

	s.logger.Info().
		Str("deposit_id", req.ID).
		Str("transaction_id", tx.ID).
		Int64("amount_usd_cents", req.AmountUSDCents).
		Msg("Bank deposit confirmed")
	s.notify(ctx, domain.EventDepositConfirmed, req.WalletID, tx.ID, req.AmountUSDCents,
		fmt.Sprintf("Deposit of %s confirmed", currency.FormatUSD(req.AmountUSDCents)))
	return nil
}

func (s *paymentService) InitiatePayPalDeposit(ctx context.Context, userID uuid.UUID, amountUSDCents int64) (*PayPalDepositIntent, error) {
	if amountUSDCents < s.config.MinDepositCents {
		return nil, fmt.Errorf("%w: minimum deposit is %s", domain.ErrBelowMinimum, currency.FormatUSD(s.config.MinDepositCents))
	}

	wallet, err := s.ledger.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Wallet deposit of %s", currency.FormatUSD(amountUSDCents))
	orderID, approvalURL, err := s.paypalClient.CreateOrder(ctx, amountUSDCents, description)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}

	tx, err := s.ledger.Append(ctx, ledgerservice.AppendInput{
		WalletID:    wallet.ID,
		Type:        domain.TypeDeposit,
		AmountCents: amountUSDCents,
		Method:      domain.MethodPayPal,
		Description: description,
		ProviderRef: orderID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("transaction_id", tx.ID).
		Str("order_id", orderID).
		Int64("amount_usd_cents", amountUSDCents).
		Msg("PayPal deposit initiated")
	return &PayPalDepositIntent{
		TransactionID: tx.ID,
		OrderID:       orderID,
		ApprovalURL:   approvalURL,
	}, nil
}

func (s *paymentService) CapturePayPalDeposit(ctx context.Context, orderID string, succeeded bool) error {
	tx, err := s.ledger.GetTransactionByProviderRef(ctx, orderID)
	if err != nil {
		return err
	}
	if tx.IsTerminal() {
		return nil
	}

	status := domain.StatusCompleted
	if !succeeded {
		status = domain.StatusFailed
	}
	settled, err := s.ledger.Settle(ctx, tx.ID, status)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil
		}
		return err
	}

	if succeeded {
		s.notify(ctx, domain.EventDepositConfirmed, settled.WalletID, settled.ID, settled.AmountCents,
			fmt.Sprintf("Deposit of %s confirmed", currency.FormatUSD(settled.AmountCents)))
	}
	s.logger.Info().
		Str("transaction_id", settled.ID).
		Str("order_id", orderID).
		Bool("succeeded", succeeded).
		Msg("PayPal deposit captured")
	return nil
}

func (s *paymentService) RequestWithdrawal(ctx context.Context, in WithdrawalInput) (*domain.WithdrawalRequest, error) {
	if in.AmountUSDCents < s.config.MinWithdrawalCents {
		return nil, fmt.Errorf("%w: minimum withdrawal is %s", domain.ErrBelowMinimum, currency.FormatUSD(s.config.MinWithdrawalCents))
	}
	if err := validateWithdrawalTarget(in); err != nil {
		return nil, err
	}

	wallet, err := s.ledger.GetOrCreateWallet(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !wallet.CanDebit() {
		return nil, domain.ErrWalletFrozen
	}
	// Advisory check; settlement re-verifies under the wallet lock.
	if wallet.BalanceCents < in.AmountUSDCents {
		return nil, domain.ErrInsufficientFunds
	}

	requestID := uuid.New().String()
	tx, err := s.ledger.Append(ctx, ledgerservice.AppendInput{
		WalletID:    wallet.ID,
		Type:        domain.TypeWithdrawal,
		AmountCents: in.AmountUSDCents,
		Method:      in.Method,
		Description: fmt.Sprintf("Withdrawal of %s", currency.FormatUSD(in.AmountUSDCents)),
		ProviderRef: requestID,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	req := &domain.WithdrawalRequest{
		ID:             requestID,
		WalletID:       wallet.ID,
		TransactionID:  tx.ID,
		Method:         in.Method,
		AmountUSDCents: in.AmountUSDCents,
		BankName:       in.BankName,
		BankAccount:    in.BankAccount,
		AccountHolder:  in.AccountHolder,
		PayPalEmail:    in.PayPalEmail,
		Status:         domain.WithdrawalStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.withdrawalRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	if err := s.ledger.MarkProcessing(ctx, tx.ID); err != nil {
		return nil, err
	}
	req.Status = domain.WithdrawalStatusProcessing

	providerRef, err := s.createPayout(ctx, req)
	if err != nil {
		s.failWithdrawal(ctx, req, fmt.Sprintf("provider rejected payout: %v", err))
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	req.ProviderRef = providerRef
	if err := s.withdrawalRepo.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to update withdrawal request: %w", err)
	}

	s.logger.Info().
		Str("withdrawal_id", req.ID).
		Str("wallet_id", wallet.ID).
		Str("provider_ref", providerRef).
		Int64("amount_usd_cents", in.AmountUSDCents).
		Msg("Withdrawal requested")
	return req, nil
}

func (s *paymentService) HandlePayoutCallback(ctx context.Context, providerRef string, succeeded bool, reason string) error {
	req, err := s.withdrawalRepo.GetByProviderRef(ctx, providerRef)
	if err != nil {
		return err
	}
	switch req.Status {
	case domain.WithdrawalStatusCompleted, domain.WithdrawalStatusFailed, domain.WithdrawalStatusCancelled:
		return nil
	}

	if !succeeded {
		s.failWithdrawal(ctx, req, reason)
		return nil
	}

	tx, err := s.ledger.Settle(ctx, req.TransactionID, domain.StatusCompleted)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			// The payout went out but the balance no longer covers it.
			// Fail the request loudly; reconciliation is manual.
			s.logger.Error().
				Str("withdrawal_id", req.ID).
				Str("wallet_id", req.WalletID).
				Msg("Payout settled at provider but wallet balance is short")
			s.failWithdrawal(ctx, req, "insufficient funds at settlement")
			return domain.ErrInsufficientFunds
		}
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil
		}
		return err
	}

	req.Status = domain.WithdrawalStatusCompleted
	if err := s.withdrawalRepo.Update(ctx, req); err != nil {
		return fmt.Errorf("failed to complete withdrawal request: %w", err)
	}

	s.logger.Info().
		Str("withdrawal_id", req.ID).
		Str("transaction_id", tx.ID).
		Msg("Withdrawal settled")
	s.notify(ctx, domain.EventWithdrawalSettled, req.WalletID, tx.ID, req.AmountUSDCents,
		fmt.Sprintf("Withdrawal of %s completed", currency.FormatUSD(req.AmountUSDCents)))
	return nil
}

func (s *paymentService) GetDeposit(ctx context.Context, id string) (*domain.BankDepositRequest, error) {
	return s.depositRepo.GetByID(ctx, id)
}

func (s *paymentService) GetWithdrawal(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	return s.withdrawalRepo.GetByID(ctx, id)
}

func (s *paymentService) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	touched := 0

	expired, err := s.depositRepo.ListExpired(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired deposits: %w", err)
	}
	for _, req := range expired {
		if err := s.expireDeposit(ctx, req); err != nil {
			s.logger.Error().Err(err).Str("deposit_id", req.ID).Msg("Failed to expire deposit request")
			continue
		}
		touched++
	}

	cutoff := now.Add(-s.config.ProcessingTimeout)
	stale, err := s.withdrawalRepo.ListStaleProcessing(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return touched, fmt.Errorf("failed to list stale withdrawals: %w", err)
	}
	for _, req := range stale {
		s.failWithdrawal(ctx, req, "no provider confirmation before timeout")
		touched++
	}

	return touched, nil
}

func (s *paymentService) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.SweepInterval).
		Msg("Starting payment sweep loop")

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Payment sweep loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if n, err := s.SweepExpired(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Sweep pass failed")
			} else if n > 0 {
				s.logger.Info().Int("touched", n).Msg("Sweep pass expired stale requests")
			}
		}
	}
}

func (s *paymentService) expireDeposit(ctx context.Context, req *domain.BankDepositRequest) error {
	// The webhook may have confirmed the deposit between the list query and
	// here; the terminal-status guard in Settle makes this a no-op then.
	_, err := s.ledger.Settle(ctx, req.TransactionID, domain.StatusFailed)
	if err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		return err
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		// Settled elsewhere; align the request so the next sweep pass does
		// not pick it up again.
		return s.reconcileDeposit(ctx, req)
	}

	req.Status = domain.BankDepositStatusExpired
	if err := s.depositRepo.Update(ctx, req); err != nil {
		return err
	}

	s.logger.Info().
		Str("deposit_id", req.ID).
		Str("wallet_id", req.WalletID).
		Msg("Deposit request expired")
	s.notify(ctx, domain.EventDepositExpired, req.WalletID, req.TransactionID, req.AmountUSDCents,
		"Deposit request expired before payment arrived")
	return nil
}

// reconcileDeposit aligns a deposit request with its transaction after the
// transaction reached a terminal status through another path.
func (s *paymentService) reconcileDeposit(ctx context.Context, req *domain.BankDepositRequest) error {
	tx, err := s.ledger.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		return err
	}

	var status domain.BankDepositStatus
	switch tx.Status {
	case domain.StatusCompleted:
		status = domain.BankDepositStatusCompleted
	case domain.StatusFailed, domain.StatusCancelled:
		status = domain.BankDepositStatusExpired
	default:
		return nil
	}
	if req.Status == status {
		return nil
	}

	req.Status = status
	if err := s.depositRepo.Update(ctx, req); err != nil {
		return fmt.Errorf("failed to reconcile deposit request: %w", err)
	}
	s.logger.Warn().
		Str("deposit_id", req.ID).
		Str("transaction_id", tx.ID).
		Str("status", string(status)).
		Msg("Deposit request reconciled from settled transaction")
	return nil
}

func (s *paymentService) failWithdrawal(ctx context.Context, req *domain.WithdrawalRequest, reason string) {
	if _, err := s.ledger.Settle(ctx, req.TransactionID, domain.StatusFailed); err != nil &&
		!errors.Is(err, domain.ErrInvalidTransition) {
		s.logger.Error().Err(err).Str("withdrawal_id", req.ID).Msg("Failed to settle withdrawal as failed")
	}
	req.Status = domain.WithdrawalStatusFailed
	if err := s.withdrawalRepo.Update(ctx, req); err != nil {
		s.logger.Error().Err(err).Str("withdrawal_id", req.ID).Msg("Failed to mark withdrawal failed")
	}

	s.logger.Warn().
		Str("withdrawal_id", req.ID).
		Str("wallet_id", req.WalletID).
		Str("reason", reason).
		Msg("Withdrawal failed")
	s.notify(ctx, domain.EventWithdrawalFailed, req.WalletID, req.TransactionID, req.AmountUSDCents,
		fmt.Sprintf("Withdrawal failed: %s", reason))
}

func (s *paymentService) createPayout(ctx context.Context, req *domain.WithdrawalRequest) (string, error) {
	switch req.Method {
	case domain.MethodBankTransfer:
		return s.bankClient.CreatePayout(ctx, req)
	case domain.MethodPayPal:
		return s.paypalClient.CreatePayout(ctx, req.PayPalEmail, req.AmountUSDCents)
	}
	return "", fmt.Errorf("unsupported withdrawal method: %s", req.Method)
}

func validateWithdrawalTarget(in WithdrawalInput) error {
	switch in.Method {
	case domain.MethodBankTransfer:
		if in.BankName == "" || in.BankAccount == "" || in.AccountHolder == "" {
			return fmt.Errorf("bank name, account number and account holder are required")
		}
	case domain.MethodPayPal:
		if in.PayPalEmail == "" {
			return fmt.Errorf("paypal email is required")
		}
	default:
		return fmt.Errorf("unsupported withdrawal method: %s", in.Method)
	}
	return nil
}

func (s *paymentService) notify(ctx context.Context, kind domain.WalletEventKind, walletID, txID string, amountCents int64, msg string) {
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

func newTransferContent() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	return "VLC" + id.String()
}
