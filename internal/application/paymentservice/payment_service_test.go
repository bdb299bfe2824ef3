package paymentservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vieclance/wls/internal/application/ledgerservice"
	"github.com/vieclance/wls/internal/application/lockmgr"
	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/repositories/memstore"
	"github.com/vieclance/wls/pkg/config"
)

type fakeBankClient struct {
	payoutErr error
	payouts   int
}

func (f *fakeBankClient) QRCodeURL(amountVND int64, transferContent string) string {
	return fmt.Sprintf("https://qr.test/img?amount=%d&des=%s", amountVND, transferContent)
}

func (f *fakeBankClient) CollectionAccount() (string, string) {
	return "MBBank", "0123456789"
}

func (f *fakeBankClient) CreatePayout(ctx context.Context, req *domain.WithdrawalRequest) (string, error) {
	if f.payoutErr != nil {
		return "", f.payoutErr
	}
	f.payouts++
	return fmt.Sprintf("PAYOUT-%d", f.payouts), nil
}

type fakePayPalClient struct {
	orders  int
	payouts int
}

func (f *fakePayPalClient) CreateOrder(ctx context.Context, amountUSDCents int64, description string) (string, string, error) {
	f.orders++
	orderID := fmt.Sprintf("ORDER-%d", f.orders)
	return orderID, "https://paypal.test/approve/" + orderID, nil
}

func (f *fakePayPalClient) CreatePayout(ctx context.Context, email string, amountUSDCents int64) (string, error) {
	f.payouts++
	return fmt.Sprintf("BATCH-%d", f.payouts), nil
}

func testWalletConfig() config.WalletConfig {
	return config.WalletConfig{
		MinDepositCents:     1000,
		MinWithdrawalCents:  5000,
		USDToVNDRate:        24000,
		DepositExpiry:       30 * time.Minute,
		SweepInterval:       time.Minute,
		ProcessingTimeout:   time.Hour,
		SettleRetryAttempts: 50,
		SettleRetryBackoff:  5 * time.Millisecond,
	}
}

type fixture struct {
	svc    IPaymentService
	ledger ledgerservice.ILedgerService
	store  *memstore.Store
	bank   *fakeBankClient
	paypal *fakePayPalClient
	cfg    config.WalletConfig
	userID uuid.UUID
}

func newFixture(t *testing.T, cfg config.WalletConfig) *fixture {
	t.Helper()

	store := memstore.New()
	locks := lockmgr.New(cfg.SettleRetryAttempts, cfg.SettleRetryBackoff)
	ledger := ledgerservice.New(store, store, store, locks, zerolog.Nop())
	bank := &fakeBankClient{}
	paypal := &fakePayPalClient{}

	svc := New(store, store.Deposits(), store.Withdrawals(), ledger, bank, paypal, cfg, nil, zerolog.Nop())
	return &fixture{
		svc:    svc,
		ledger: ledger,
		store:  store,
		bank:   bank,
		paypal: paypal,
		cfg:    cfg,
		userID: uuid.New(),
	}
}

func (f *fixture) walletID(t *testing.T) string {
	t.Helper()
	wallet, err := f.ledger.GetOrCreateWallet(context.Background(), f.userID)
	require.NoError(t, err)
	return wallet.ID
}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	wallet, err := f.ledger.GetWallet(context.Background(), f.walletID(t))
	require.NoError(t, err)
	return wallet.BalanceCents
}

func (f *fixture) fund(t *testing.T, cents int64) {
	t.Helper()
	_, err := f.ledger.AppendSettled(context.Background(), ledgerservice.AppendInput{
		WalletID:    f.walletID(t),
		Type:        domain.TypeDeposit,
		AmountCents: cents,
		Method:      domain.MethodInternal,
		Description: "test funding",
	})
	require.NoError(t, err)
}

func TestBankDepositLifecycle(t *testing.T) {
	f := newFixture(t, testWalletConfig())
	ctx := context.Background()

	req, err := f.svc.InitiateBankDeposit(ctx, f.userID, 6000)
	require.NoError(t, err)
	assert.Equal(t, domain.BankDepositStatusPending, req.Status)
	assert.Equal(t, int64(1_440_000), req.AmountVND)
	assert.True(t, strings.HasPrefix(req.TransferContent, "VLC"))
	assert.Contains(t, req.QRCodeURL, req.TransferContent)
	assert.Equal(t, "MBBank", req.BankName)

	// Nothing credited before the webhook.
	assert.Equal(t, int64(0), f.balance(t))

	err = f.svc.ConfirmBankDeposit(ctx, BankWebhookInput{
		TransferContent: req.TransferContent,
		AmountVND:       req.AmountVND,
		ProviderTxID:    "FT123",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), f.balance(t))

	deposit, err := f.svc.GetDeposit(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BankDepositStatusCompleted, deposit.Status)

	// Duplicate webhook delivery credits nothing.
	err = f.svc.ConfirmBankDeposit(ctx, BankWebhookInput{
		TransferContent: req.TransferContent,
		AmountVND:       req.AmountVND,
		ProviderTxID:    "FT123",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), f.balance(t))
}

func TestBankDepositBelowMinimum(t *testing.T) {
	f := newFixture(t, testWalletConfig())

	_, err := f.svc.InitiateBankDeposit(context.Background(), f.userID, 999)
	assert.ErrorIs(t, err, domain.ErrBelowMinimum)
}

func TestExpiredDepositIsSweptAndCannotBeConfirmed(t *testing.T) {
	cfg := testWalletConfig()
	cfg.DepositExpiry = -time.Minute // already expired on creation
	f := newFixture(t, cfg)
	ctx := context.Background()

	req, err := f.svc.InitiateBankDeposit(ctx, f.userID, 6000)
	require.NoError(t, err)

	touched, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, touched)

	deposit, err := f.svc.GetDeposit(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BankDepositStatusExpired, deposit.Status)

	tx, err := f.ledger.GetTransaction(ctx, req.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, tx.Status)

	// A webhook arriving after expiry must not credit funds.
	err = f.svc.ConfirmBankDeposit(ctx, BankWebhookInput{
		TransferContent: req.TransferContent,
		AmountVND:       req.AmountVND,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.balance(t))
}

func TestPayPalDepositCapture(t *testing.T) {
	f := newFixture(t, testWalletConfig())
	ctx := context.Background()

	intent, err := f.svc.InitiatePayPalDeposit(ctx, f.userID, 2000)
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", intent.OrderID)
	assert.NotEmpty(t, intent.ApprovalURL)

	require.NoError(t, f.svc.CapturePayPalDeposit(ctx, intent.OrderID, true))
	assert.Equal(t, int64(2000), f.balance(t))

	// Replayed capture notification is a no-op.
	require.NoError(t, f.svc.CapturePayPalDeposit(ctx, intent.OrderID, true))
	assert.Equal(t, int64(2000), f.balance(t))
}

func TestPayPalDepositCaptureFailure(t *testing.T) {
	f := newFixture(t, testWalletConfig())
	ctx := context.Background()

	intent, err := f.svc.InitiatePayPalDeposit(ctx, f.userID, 2000)
	require.NoError(t, err)

	require.NoError(t, f.svc.CapturePayPalDeposit(ctx, intent.OrderID, false))
	assert.Equal(t, int64(0), f.balance(t))

	tx, err := f.ledger.GetTransaction(ctx, intent.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, tx.Status)
}

func TestWithdrawalLifecycle(t *testing.T) {
	f := newFixture(t, testWalletConfig())
	ctx := context.Background()
	f.fund(t, 10000)

	req, err := f.svc.RequestWithdrawal(ctx, WithdrawalInput{
		UserID:         f.userID,
		Method:         domain.MethodBankTransfer,
		AmountUSDCents: 6000,
		BankName:       "MBBank",
		BankAccount:    "0123456789",
		AccountHolder:  "Nguyen Van A",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusProcessing, req.Status)
	assert.Equal(t, "PAYOUT-1", req.ProviderRef)

	// Funds leave only at settlement.
	assert.Equal(t, int64(10000), f.balance(t))

	require.NoError(t, f.svc.HandlePayoutCallback(ctx, req.ProviderRef, true, ""))
	assert.Equal(t, int64(4000), f.balance(t))

	settled, err := f.svc.GetWithdrawal(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusCompleted, settled.Status)

	// Duplicate callback changes nothing.
	require.NoError(t, f.svc.HandlePayoutCallback(ctx, req.ProviderRef, true, ""))
	assert.Equal(t, int64(4000), f.balance(t))
}

func TestWithdrawalBelowMinimum(t *testing.T) {
	f := newFixture(t, testWalletConfig())
	f.fund(t, 10000)

	_, err := f.svc.RequestWithdrawal(context.Background(), WithdrawalInput{
		UserID:         f.userID,
		Method:         domain.MethodPayPal,
		AmountUSDCents: 4999,
		PayPalEmail:    "worker@example.com",
	})
	assert.ErrorIs(t, err, domain.ErrBelowMinimum)
}

func TestWithdrawalInsufficientFunds(t *testing.T) {
	f := newFixture(t, testWalletConfig())
	f.fund(t, 3000)

	_, err := f.svc.RequestWithdrawal(context.Background(), WithdrawalInput{
		UserID:         f.userID,
		Method:         domain.MethodPayPal,
		AmountUSDCents: 5000,
		PayPalEmail:    "worker@example.com",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(3000), f.balance(t))
}

func TestWithdrawalProviderRejectionFailsRequest(t *testing.T) {
	f := newFixture(t, testWalletConfig())
	ctx := context.Background()
	f.fund(t, 10000)
	f.bank.payoutErr = errors.New("account blocked")

	_, err := f.svc.RequestWithdrawal(ctx, WithdrawalInput{
		UserID:         f.userID,
		Method:         domain.MethodBankTransfer,
		AmountUSDCents: 6000,
		BankName:       "MBBank",
		BankAccount:    "0123456789",
		AccountHolder:  "Nguyen Van A",
	})
	assert.ErrorIs(t, err, domain.ErrProvider)

	// The balance never moved.
	assert.Equal(t, int64(10000), f.balance(t))

	summary, err := f.ledger.GetSummary(ctx, f.walletID(t))
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.PendingBalanceCents)
}

func TestStaleProcessingWithdrawalIsSwept(t *testing.T) {
	cfg := testWalletConfig()
	cfg.ProcessingTimeout = -time.Minute // everything is immediately stale
	f := newFixture(t, cfg)
	ctx := context.Background()
	f.fund(t, 10000)

	req, err := f.svc.RequestWithdrawal(ctx, WithdrawalInput{
		UserID:         f.userID,
		Method:         domain.MethodPayPal,
		AmountUSDCents: 6000,
		PayPalEmail:    "worker@example.com",
	})
	require.NoError(t, err)

	touched, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, touched)

	failed, err := f.svc.GetWithdrawal(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusFailed, failed.Status)

	tx, err := f.ledger.GetTransaction(ctx, req.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, tx.Status)
	assert.Equal(t, int64(10000), f.balance(t))
}

func TestConfirmReconcilesRequestWhenTransactionAlreadySettled(t *testing.T) {
	f := newFixture(t, testWalletConfig())
	ctx := context.Background()

	req, err := f.svc.InitiateBankDeposit(ctx, f.userID, 6000)
	require.NoError(t, err)

	// An earlier confirm settled the transaction but died before flipping
	// the request record.
	_, err = f.ledger.Settle(ctx, req.TransactionID, domain.StatusCompleted)
	require.NoError(t, err)

	err = f.svc.ConfirmBankDeposit(ctx, BankWebhookInput{
		TransferContent: req.TransferContent,
		AmountVND:       req.AmountVND,
		ProviderTxID:    "FT900",
	})
	require.NoError(t, err)

	reconciled, err := f.store.Deposits().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BankDepositStatusCompleted, reconciled.Status)
	assert.Equal(t, int64(6000), f.balance(t))
}

func TestSweepReconcilesDepositSettledElsewhere(t *testing.T) {
	cfg := testWalletConfig()
	cfg.DepositExpiry = -time.Minute // everything is immediately overdue
	f := newFixture(t, cfg)
	ctx := context.Background()

	req, err := f.svc.InitiateBankDeposit(ctx, f.userID, 6000)
	require.NoError(t, err)

	// An earlier expiry pass failed the transaction but died before
	// flipping the request record.
	_, err = f.ledger.Settle(ctx, req.TransactionID, domain.StatusFailed)
	require.NoError(t, err)

	touched, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, touched)

	reconciled, err := f.store.Deposits().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BankDepositStatusExpired, reconciled.Status)

	// The reconciled request is not picked up again.
	touched, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, touched)
}
