package service

import (
	"crypto/rand"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"olago/internal/domain"
)

// account guards one rider. Balance and transaction log change together
// under mu so they never diverge.
type account struct {
	mu    sync.Mutex
	rider *domain.Rider
}

// WalletService is the wallet ledger: balances, transaction history and
// ride history per rider.
type WalletService struct {
	mu       sync.RWMutex
	accounts map[string]*account
	now      func() time.Time
}

// NewWalletService creates an empty WalletService.
func NewWalletService() *WalletService {
	return &WalletService{
		accounts: make(map[string]*account),
		now:      time.Now,
	}
}

// Open registers a rider. Balance is taken from the rider as given; when it is
// a fresh account InitialBalance should equal Balance.
func (s *WalletService) Open(rider *domain.Rider) error {
	if rider == nil || rider.ID == "" {
		return ErrInvalidRiderID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[rider.ID]; exists {
		return ErrRiderExists
	}
	s.accounts[rider.ID] = &account{rider: cloneRider(rider)}
	return nil
}

func (s *WalletService) account(riderID string) (*account, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[riderID]
	if !ok {
		return nil, ErrRiderNotFound
	}
	return acc, nil
}

// Debit removes amount from the rider's balance and records a negative
// transaction of the given type.
func (s *WalletService) Debit(riderID string, amount int64, txType domain.TransactionType, description, rideID string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	acc, err := s.account(riderID)
	if err != nil {
		return 0, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if amount > acc.rider.Balance {
		return acc.rider.Balance, ErrInsufficientFunds
	}

	acc.rider.Balance -= amount
	acc.rider.Transactions = append(acc.rider.Transactions, domain.WalletTransaction{
		ID:          newTransactionID(s.now()),
		Type:        txType,
		Amount:      -amount,
		Timestamp:   s.now(),
		Description: description,
		RideID:      rideID,
	})
	return acc.rider.Balance, nil
}

// Credit adds amount to the rider's balance and records a positive transaction.
func (s *WalletService) Credit(riderID string, amount int64, txType domain.TransactionType, description string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	acc, err := s.account(riderID)
	if err != nil {
		return 0, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if amount > math.MaxInt64-acc.rider.Balance {
		return acc.rider.Balance, ErrInvalidAmount
	}

	acc.rider.Balance += amount
	acc.rider.Transactions = append(acc.rider.Transactions, domain.WalletTransaction{
		ID:          newTransactionID(s.now()),
		Type:        txType,
		Amount:      amount,
		Timestamp:   s.now(),
		Description: description,
	})
	return acc.rider.Balance, nil
}

// Balance returns the rider's current balance.
func (s *WalletService) Balance(riderID string) (int64, error) {
	acc, err := s.account(riderID)
	if err != nil {
		return 0, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.rider.Balance, nil
}

// Transactions returns a copy of the rider's transaction log, oldest first.
func (s *WalletService) Transactions(riderID string) ([]domain.WalletTransaction, error) {
	acc, err := s.account(riderID)
	if err != nil {
		return nil, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	txs := make([]domain.WalletTransaction, len(acc.rider.Transactions))
	copy(txs, acc.rider.Transactions)
	return txs, nil
}

// AppendRide records rideID in the rider's ride history.
func (s *WalletService) AppendRide(riderID, rideID string) error {
	acc, err := s.account(riderID)
	if err != nil {
		return err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.rider.RideIDs = append(acc.rider.RideIDs, rideID)
	return nil
}

// Rider returns a copy of the rider.
func (s *WalletService) Rider(riderID string) (*domain.Rider, error) {
	acc, err := s.account(riderID)
	if err != nil {
		return nil, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	return cloneRider(acc.rider), nil
}

// List returns copies of every rider ordered by id.
func (s *WalletService) List() []*domain.Rider {
	s.mu.RLock()
	accounts := make([]*account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		accounts = append(accounts, acc)
	}
	s.mu.RUnlock()

	result := make([]*domain.Rider, 0, len(accounts))
	for _, acc := range accounts {
		acc.mu.Lock()
		result = append(result, cloneRider(acc.rider))
		acc.mu.Unlock()
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// newTransactionID returns a time-ordered ledger id such as txn_01HV....
func newTransactionID(t time.Time) string {
	return "txn_" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

func cloneRider(r *domain.Rider) *domain.Rider {
	c := *r
	c.RideIDs = append([]string(nil), r.RideIDs...)
	c.RedeemedPromos = append([]string(nil), r.RedeemedPromos...)
	c.Transactions = append([]domain.WalletTransaction(nil), r.Transactions...)
	return &c
}
