package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"olago/internal/domain"
)

// rideEntry serializes transitions of a single ride.
type rideEntry struct {
	mu   sync.Mutex
	ride *domain.Ride
}

// RideService is the ride ledger. It owns ride records and their state
// machine, holds drivers through the DriverPool and settles through the
// WalletService.
//
// Lock order: ride entry, then wallet account, then pool, then promos.
type RideService struct {
	mu      sync.RWMutex
	rides   map[string]*rideEntry
	pool    *DriverPool
	wallet  *WalletService
	promos  *PromoService
	gateway PaymentGateway
	now     func() time.Time
}

// NewRideService creates a new RideService.
func NewRideService(
	pool *DriverPool,
	wallet *WalletService,
	promos *PromoService,
	gateway PaymentGateway,
) *RideService {
	if gateway == nil {
		gateway = NewPendingGateway()
	}
	return &RideService{
		rides:   make(map[string]*rideEntry),
		pool:    pool,
		wallet:  wallet,
		promos:  promos,
		gateway: gateway,
		now:     time.Now,
	}
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	RiderID     string
	Pickup      domain.Place
	Destination domain.Place
	Category    domain.RideCategory
}

// Create prices a ride, holds a driver for it and stores it in REQUESTED.
// Nothing is stored when no driver is available.
func (s *RideService) Create(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if _, err := s.wallet.account(req.RiderID); err != nil {
		return nil, err
	}

	baseFare, tax := ComputeFare(req.Category)

	driverID, err := s.pool.Select(req.Pickup.Location)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ride := &domain.Ride{
		ID:            uuid.New().String(),
		RiderID:       req.RiderID,
		Pickup:        req.Pickup,
		Destination:   req.Destination,
		Category:      req.Category,
		DriverID:      driverID,
		BaseFare:      baseFare,
		Tax:           tax,
		Status:        domain.RideStatusRequested,
		PaymentStatus: domain.PaymentStatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	ride.RecalculateTotal()

	if err := s.wallet.AppendRide(req.RiderID, ride.ID); err != nil {
		return nil, s.abandon(driverID, err)
	}

	s.mu.Lock()
	s.rides[ride.ID] = &rideEntry{ride: ride}
	s.mu.Unlock()

	return cloneRide(ride), nil
}

// abandon frees a driver selected for a ride that could not be recorded.
func (s *RideService) abandon(driverID string, cause error) error {
	if err := s.pool.Release(driverID); err != nil {
		return errors.Join(cause, fmt.Errorf("release driver %s: %w", driverID, err))
	}
	return cause
}

// lock returns the locked entry of a ride owned by riderID.
// The caller must unlock entry.mu.
func (s *RideService) lock(riderID, rideID string) (*rideEntry, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	s.mu.RLock()
	entry, ok := s.rides[rideID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrRideNotFound
	}

	entry.mu.Lock()
	if entry.ride.RiderID != riderID {
		entry.mu.Unlock()
		return nil, ErrRideNotOwned
	}
	return entry, nil
}

// ApplyPromo redeems code against the ride's current total.
// Legal only while the ride is REQUESTED.
func (s *RideService) ApplyPromo(ctx context.Context, riderID, rideID, code string) (*domain.Ride, error) {
	entry, err := s.lock(riderID, rideID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	ride := entry.ride
	if ride.Status != domain.RideStatusRequested {
		return nil, ErrInvalidState
	}

	_, discount, err := s.promos.Apply(ride.RiderID, code, ride.Total)
	if err != nil {
		return nil, err
	}

	ride.Discount += discount
	ride.PromoCodes = append(ride.PromoCodes, normalizeCode(code))
	ride.RecalculateTotal()
	ride.UpdatedAt = s.now()

	return cloneRide(ride), nil
}

// ConfirmPayment settles the ride with method and moves it to CONFIRMED.
// WALLET debits the total; CASH is paid on the ride; anything else goes
// through the payment gateway. On failure the ride, the wallet and the
// driver hold are left exactly as they were.
func (s *RideService) ConfirmPayment(ctx context.Context, riderID, rideID string, method domain.PaymentMethod) (*domain.Ride, int64, error) {
	entry, err := s.lock(riderID, rideID)
	if err != nil {
		return nil, 0, err
	}
	defer entry.mu.Unlock()

	ride := entry.ride
	if !domain.CanTransition(ride.Status, domain.RideStatusConfirmed) {
		return nil, 0, ErrInvalidState
	}

	var (
		status  domain.PaymentStatus
		balance int64
	)

	switch method {
	case domain.PaymentMethodWallet:
		if ride.Total > 0 {
			desc := fmt.Sprintf("Ride %s: %s to %s", ride.ID, ride.Pickup.Name, ride.Destination.Name)
			balance, err = s.wallet.Debit(ride.RiderID, ride.Total, domain.TransactionRidePayment, desc, ride.ID)
			if err != nil {
				return nil, 0, err
			}
		} else {
			balance, err = s.wallet.Balance(ride.RiderID)
			if err != nil {
				return nil, 0, err
			}
		}
		status = domain.PaymentStatusPaid

	case domain.PaymentMethodCash:
		status = domain.PaymentStatusPayOnRide

	case domain.PaymentMethodCard, domain.PaymentMethodUPI:
		status, err = s.gateway.Initiate(ctx, cloneRide(ride), method)
		if err != nil {
			return nil, 0, fmt.Errorf("initiate %s payment: %w", method, err)
		}

	default:
		return nil, 0, ErrInvalidPaymentMethod
	}

	if method != domain.PaymentMethodWallet {
		balance, err = s.wallet.Balance(ride.RiderID)
		if err != nil {
			return nil, 0, err
		}
	}

	ride.Status = domain.RideStatusConfirmed
	ride.PaymentMethod = method
	ride.PaymentStatus = status
	ride.UpdatedAt = s.now()

	return cloneRide(ride), balance, nil
}

// Complete moves a CONFIRMED ride to COMPLETED and releases its driver.
func (s *RideService) Complete(ctx context.Context, riderID, rideID string) (*domain.Ride, error) {
	return s.finish(riderID, rideID, domain.RideStatusCompleted, "")
}

// Cancel moves a REQUESTED or CONFIRMED ride to CANCELLED and releases its
// driver. Paid rides are not refunded.
func (s *RideService) Cancel(ctx context.Context, riderID, rideID, reason string) (*domain.Ride, error) {
	return s.finish(riderID, rideID, domain.RideStatusCancelled, reason)
}

func (s *RideService) finish(riderID, rideID string, to domain.RideStatus, reason string) (*domain.Ride, error) {
	entry, err := s.lock(riderID, rideID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	ride := entry.ride
	if !domain.CanTransition(ride.Status, to) {
		return nil, ErrInvalidState
	}

	if ride.DriverID != "" {
		if err := s.pool.Release(ride.DriverID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	ride.Status = to
	ride.UpdatedAt = now
	switch to {
	case domain.RideStatusCompleted:
		ride.CompletedAt = now
	case domain.RideStatusCancelled:
		ride.CancelledAt = now
		ride.CancelReason = reason
	}

	return cloneRide(ride), nil
}

// Get returns a copy of a ride owned by riderID.
func (s *RideService) Get(ctx context.Context, riderID, rideID string) (*domain.Ride, error) {
	entry, err := s.lock(riderID, rideID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()
	return cloneRide(entry.ride), nil
}

// ListByRider returns the rider's rides, newest first.
func (s *RideService) ListByRider(ctx context.Context, riderID string) []*domain.Ride {
	var result []*domain.Ride
	for _, r := range s.List() {
		if r.RiderID == riderID {
			result = append(result, r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

// List returns copies of all rides ordered by creation time.
func (s *RideService) List() []*domain.Ride {
	s.mu.RLock()
	entries := make([]*rideEntry, 0, len(s.rides))
	for _, e := range s.rides {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	result := make([]*domain.Ride, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		result = append(result, cloneRide(e.ride))
		e.mu.Unlock()
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Load stores rides as they are. Driver holds are not touched.
func (s *RideService) Load(rides []*domain.Ride) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rides {
		if r == nil || r.ID == "" {
			continue
		}
		c := cloneRide(r)
		c.RecalculateTotal()
		s.rides[c.ID] = &rideEntry{ride: c}
	}
}

func cloneRide(r *domain.Ride) *domain.Ride {
	c := *r
	c.PromoCodes = append([]string(nil), r.PromoCodes...)
	if r.Pickup.Location != nil {
		loc := *r.Pickup.Location
		c.Pickup.Location = &loc
	}
	if r.Destination.Location != nil {
		loc := *r.Destination.Location
		c.Destination.Location = &loc
	}
	return &c
}
