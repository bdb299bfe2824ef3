package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/repositories/escrowrepo"
	"github.com/vieclance/wls/internal/repositories/ledgerrepo"
	"github.com/vieclance/wls/internal/repositories/walletrepo"
	"github.com/vieclance/wls/pkg/journal"
)

// Store is a mutex-guarded implementation of every wallet repository backed
// by an optional append-only journal. Each mutation journals the full record
// as an upsert, so replaying the journal on open restores the exact state.
// It backs tests and single-node deployments.
type Store struct {
	mu sync.RWMutex

	wallets       map[string]*domain.Wallet // by wallet id
	walletsByUser map[string]string         // user id -> wallet id
	transactions  map[string]*domain.Transaction
	holds         map[string]*domain.EscrowHold
	deposits      map[string]*domain.BankDepositRequest
	withdrawals   map[string]*domain.WithdrawalRequest

	journal *journal.Journal
}

type record struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

const (
	kindWallet     = "wallet"
	kindTx         = "transaction"
	kindHold       = "escrow_hold"
	kindDeposit    = "bank_deposit"
	kindWithdrawal = "withdrawal"
)

// New returns an empty store with no journal.
func New() *Store {
	return &Store{
		wallets:       make(map[string]*domain.Wallet),
		walletsByUser: make(map[string]string),
		transactions:  make(map[string]*domain.Transaction),
		holds:         make(map[string]*domain.EscrowHold),
		deposits:      make(map[string]*domain.BankDepositRequest),
		withdrawals:   make(map[string]*domain.WithdrawalRequest),
	}
}

// Open returns a store persisted to the journal at path, replaying any
// existing records first.
func Open(path string) (*Store, error) {
	j, err := journal.Open(path)
	if err != nil {
		return nil, err
	}
	s := New()
	if err := s.replay(j); err != nil {
		j.Close()
		return nil, err
	}
	s.journal = j
	return s, nil
}

func (s *Store) replay(j *journal.Journal) error {
	return j.Replay(func(raw []byte) error {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		switch rec.Kind {
		case kindWallet:
			var w domain.Wallet
			if err := json.Unmarshal(rec.Data, &w); err != nil {
				return err
			}
			s.wallets[w.ID] = &w
			s.walletsByUser[w.UserID] = w.ID
		case kindTx:
			var tx domain.Transaction
			if err := json.Unmarshal(rec.Data, &tx); err != nil {
				return err
			}
			s.transactions[tx.ID] = &tx
		case kindHold:
			var h domain.EscrowHold
			if err := json.Unmarshal(rec.Data, &h); err != nil {
				return err
			}
			s.holds[h.ID] = &h
		case kindDeposit:
			var d domain.BankDepositRequest
			if err := json.Unmarshal(rec.Data, &d); err != nil {
				return err
			}
			s.deposits[d.ID] = &d
		case kindWithdrawal:
			var w domain.WithdrawalRequest
			if err := json.Unmarshal(rec.Data, &w); err != nil {
				return err
			}
			s.withdrawals[w.ID] = &w
		default:
			return fmt.Errorf("unknown journal record kind %q", rec.Kind)
		}
		return nil
	})
}

func (s *Store) Close() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Close()
}

// append journals one upsert. Called with the write lock held so journal
// order matches apply order.
func (s *Store) append(kind string, v any) error {
	if s.journal == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.journal.Append(record{Kind: kind, Data: data})
}

// --- walletrepo.IWalletRepository ---

func (s *Store) GetOrCreateByUser(ctx context.Context, userID string) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.walletsByUser[userID]; ok {
		return cloneWallet(s.wallets[id]), nil
	}

	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:           uuid.NewString(),
		UserID:       userID,
		Status:       domain.WalletStatusActive,
		CurrencyCode: "USD",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.append(kindWallet, w); err != nil {
		return nil, err
	}
	s.wallets[w.ID] = w
	s.walletsByUser[userID] = w.ID
	return cloneWallet(w), nil
}

func (s *Store) GetByID(ctx context.Context, walletID string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return cloneWallet(w), nil
}

func (s *Store) UpdateStatus(ctx context.Context, walletID string, status domain.WalletStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return domain.ErrWalletNotFound
	}
	updated := cloneWallet(w)
	updated.Status = status
	updated.UpdatedAt = time.Now().UTC()
	if err := s.append(kindWallet, updated); err != nil {
		return err
	}
	s.wallets[walletID] = updated
	return nil
}

// --- ledgerrepo.ILedgerRepository ---

func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.append(kindTx, tx); err != nil {
		return err
	}
	s.transactions[tx.ID] = cloneTx(tx)
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return cloneTx(tx), nil
}

func (s *Store) GetTransactionByProviderRef(ctx context.Context, ref string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.transactions {
		if tx.ProviderRef == ref && ref != "" {
			return cloneTx(tx), nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if tx.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	updated := cloneTx(tx)
	updated.Status = domain.StatusProcessing
	updated.UpdatedAt = time.Now().UTC()
	if err := s.append(kindTx, updated); err != nil {
		return err
	}
	s.transactions[id] = updated
	return nil
}

func (s *Store) SettleTransaction(ctx context.Context, tx *domain.Transaction, wallet *domain.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.transactions[tx.ID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if current.IsTerminal() {
		return domain.ErrInvalidTransition
	}

	settled := cloneTx(tx)
	if err := s.append(kindTx, settled); err != nil {
		return err
	}
	s.transactions[tx.ID] = settled

	if tx.Status == domain.StatusCompleted {
		updated := cloneWallet(wallet)
		updated.UpdatedAt = time.Now().UTC()
		if err := s.append(kindWallet, updated); err != nil {
			return err
		}
		s.wallets[wallet.ID] = updated
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, walletID string, filter *domain.TransactionFilter) ([]*domain.Transaction, int, error) {
	filter.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Transaction
	for _, tx := range s.transactions {
		if tx.WalletID == walletID && filter.Matches(tx) {
			matched = append(matched, tx)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return strings.Compare(matched[i].ID, matched[j].ID) < 0
	})

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}

	page := make([]*domain.Transaction, 0, end-start)
	for _, tx := range matched[start:end] {
		page = append(page, cloneTx(tx))
	}
	return page, total, nil
}

func (s *Store) ReplayTransactions(ctx context.Context, walletID string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var txs []*domain.Transaction
	for _, tx := range s.transactions {
		if tx.WalletID == walletID {
			txs = append(txs, cloneTx(tx))
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		si, sj := txs[i].SettledAt != nil, txs[j].SettledAt != nil
		if si != sj {
			return si // settled transactions first
		}
		if si && txs[i].Sequence != txs[j].Sequence {
			return txs[i].Sequence < txs[j].Sequence
		}
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
	return txs, nil
}

func (s *Store) Aggregate(ctx context.Context, walletID string) (*ledgerrepo.LedgerTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t ledgerrepo.LedgerTotals
	for _, tx := range s.transactions {
		if tx.WalletID != walletID {
			continue
		}
		switch tx.Status {
		case domain.StatusPending, domain.StatusProcessing:
			t.PendingCents += tx.AmountCents
		case domain.StatusCompleted:
			if tx.IsDebit() {
				t.CompletedDebitCents += tx.AmountCents
			} else {
				t.CompletedCreditCents += tx.AmountCents
			}
			switch tx.Type {
			case domain.TypeEarning, domain.TypeEscrowRelease:
				t.TotalEarnedCents += tx.AmountCents
			case domain.TypePayment, domain.TypePlatformFee, domain.TypeInsuranceFee, domain.TypeEscrowHold:
				t.TotalSpentCents += tx.AmountCents
			}
		}
	}
	return &t, nil
}

var _ walletrepo.IWalletRepository = (*Store)(nil)
var _ ledgerrepo.ILedgerRepository = (*Store)(nil)
var _ escrowrepo.IEscrowRepository = (*Store)(nil)
