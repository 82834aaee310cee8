package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"olago/internal/domain"
)

// DefaultInitialBalance is credited to riders who sign up without one.
const DefaultInitialBalance int64 = 500

// MaxInitialBalance caps the balance a rider can sign up with.
const MaxInitialBalance int64 = 1_000_000

// RideOutcome selects how CompleteOrCancelRide ends a ride.
type RideOutcome string

const (
	RideOutcomeComplete RideOutcome = "COMPLETE"
	RideOutcomeCancel   RideOutcome = "CANCEL"
)

// ParseRideOutcome validates an outcome string.
func ParseRideOutcome(s string) (RideOutcome, error) {
	switch RideOutcome(strings.ToUpper(strings.TrimSpace(s))) {
	case RideOutcomeComplete:
		return RideOutcomeComplete, nil
	case RideOutcomeCancel:
		return RideOutcomeCancel, nil
	default:
		return "", ErrInvalidOutcome
	}
}

// EngineConfig wires the engine's collaborators. A nil Gateway or empty
// Strategy gets the default; DefaultBalance is used as given.
type EngineConfig struct {
	Strategy       MatchStrategy
	Gateway        PaymentGateway
	Notifier       *NotificationService
	DefaultBalance int64
}

// Engine is the ride lifecycle and settlement engine. It composes the fare
// calculator, promo evaluator, driver pool, ride ledger and wallet ledger
// behind the external operations.
//
// Every operation holds mu for reading; Snapshot and Restore hold it
// exclusively, so a snapshot never observes half of an operation.
type Engine struct {
	mu sync.RWMutex

	pool     *DriverPool
	wallet   *WalletService
	promos   *PromoService
	rides    *RideService
	receipts *ReceiptService
	notifier *NotificationService

	strategy       MatchStrategy
	gateway        PaymentGateway
	defaultBalance int64
	now            func() time.Time
}

// NewEngine creates an empty engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.DefaultBalance < 0 {
		cfg.DefaultBalance = 0
	}

	pool := NewDriverPool(cfg.Strategy)
	wallet := NewWalletService()
	promos := NewPromoService()

	return &Engine{
		pool:           pool,
		wallet:         wallet,
		promos:         promos,
		rides:          NewRideService(pool, wallet, promos, cfg.Gateway),
		receipts:       NewReceiptService(),
		notifier:       cfg.Notifier,
		strategy:       cfg.Strategy,
		gateway:        cfg.Gateway,
		defaultBalance: cfg.DefaultBalance,
		now:            time.Now,
	}
}

// RegisterRiderCommand contains the parameters for signing up a rider.
type RegisterRiderCommand struct {
	ID             string // generated when empty
	Name           string
	InitialBalance *int64 // DefaultBalance when nil
}

// RegisterRider opens a rider account with its initial balance.
func (e *Engine) RegisterRider(ctx context.Context, cmd RegisterRiderCommand) (*domain.Rider, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, ErrInvalidRiderName
	}

	balance := e.defaultBalance
	if cmd.InitialBalance != nil {
		balance = *cmd.InitialBalance
	}
	if balance < 0 || balance > MaxInitialBalance {
		return nil, ErrInvalidAmount
	}

	id := strings.TrimSpace(cmd.ID)
	if id == "" {
		id = uuid.New().String()
	}

	rider := &domain.Rider{
		ID:             id,
		Name:           name,
		Balance:        balance,
		InitialBalance: balance,
		RideIDs:        []string{},
		Transactions:   []domain.WalletTransaction{},
		CreatedAt:      e.now(),
	}
	if err := e.wallet.Open(rider); err != nil {
		return nil, err
	}
	return e.wallet.Rider(id)
}

// GetRider returns the rider with its redeemed promo codes.
func (e *Engine) GetRider(ctx context.Context, riderID string) (*domain.Rider, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rider(riderID)
}

func (e *Engine) rider(riderID string) (*domain.Rider, error) {
	rider, err := e.wallet.Rider(riderID)
	if err != nil {
		return nil, err
	}
	rider.RedeemedPromos = e.promos.RedeemedBy(riderID)
	return rider, nil
}

// RequestRideCommand contains the parameters for requesting a ride.
type RequestRideCommand struct {
	RiderID     string
	Pickup      domain.Place
	Destination domain.Place
	Category    string
}

func validatePlace(p domain.Place) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidPlace
	}
	if p.Location != nil && !p.Location.Valid() {
		return ErrInvalidLocation
	}
	return nil
}

// RequestRide prices a ride and assigns a driver. When no driver is
// available no ride is created.
func (e *Engine) RequestRide(ctx context.Context, cmd RequestRideCommand) (*domain.Ride, error) {
	if cmd.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if err := validatePlace(cmd.Pickup); err != nil {
		return nil, err
	}
	if err := validatePlace(cmd.Destination); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	ride, err := e.rides.Create(ctx, CreateRideRequest{
		RiderID:     cmd.RiderID,
		Pickup:      cmd.Pickup,
		Destination: cmd.Destination,
		Category:    NormalizeCategory(cmd.Category),
	})
	if err != nil {
		return nil, err
	}

	driver, err := e.pool.Get(ride.DriverID)
	if err != nil && !errors.Is(err, ErrDriverNotFound) {
		return nil, err
	}
	_ = e.notifier.NotifyDriverAssigned(ctx, ride, driver)

	return ride, nil
}

// ApplyPromoCommand contains the parameters for applying a promo code.
type ApplyPromoCommand struct {
	RiderID string
	RideID  string
	Code    string
}

// ApplyPromo redeems a promo code against a REQUESTED ride.
func (e *Engine) ApplyPromo(ctx context.Context, cmd ApplyPromoCommand) (*domain.Ride, error) {
	code := normalizeCode(cmd.Code)
	if code == "" {
		return nil, ErrInvalidPromoCode
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	ride, err := e.rides.ApplyPromo(ctx, cmd.RiderID, cmd.RideID, code)
	if err != nil {
		return nil, err
	}

	_ = e.notifier.NotifyPromoApplied(ctx, ride, code)
	return ride, nil
}

// ConfirmPaymentCommand contains the parameters for settling a ride.
type ConfirmPaymentCommand struct {
	RiderID string
	RideID  string
	Method  string
}

// ConfirmPayment settles a REQUESTED ride and confirms it. It returns the
// rider's wallet balance after settlement.
func (e *Engine) ConfirmPayment(ctx context.Context, cmd ConfirmPaymentCommand) (*domain.Ride, int64, error) {
	method, err := ValidatePaymentMethod(cmd.Method)
	if err != nil {
		return nil, 0, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	ride, balance, err := e.rides.ConfirmPayment(ctx, cmd.RiderID, cmd.RideID, method)
	if err != nil {
		return nil, 0, err
	}

	_ = e.notifier.NotifyPaymentConfirmed(ctx, ride, balance)
	return ride, balance, nil
}

// FinishRideCommand contains the parameters for ending a ride.
type FinishRideCommand struct {
	RiderID string
	RideID  string
	Outcome RideOutcome
	Reason  string
}

// CompleteOrCancelRide moves a ride to a terminal state and frees its driver.
func (e *Engine) CompleteOrCancelRide(ctx context.Context, cmd FinishRideCommand) (*domain.Ride, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	switch cmd.Outcome {
	case RideOutcomeComplete:
		ride, err := e.rides.Complete(ctx, cmd.RiderID, cmd.RideID)
		if err != nil {
			return nil, err
		}
		_ = e.notifier.NotifyRideCompleted(ctx, ride)
		return ride, nil

	case RideOutcomeCancel:
		ride, err := e.rides.Cancel(ctx, cmd.RiderID, cmd.RideID, strings.TrimSpace(cmd.Reason))
		if err != nil {
			return nil, err
		}
		_ = e.notifier.NotifyRideCancelled(ctx, ride)
		return ride, nil

	default:
		return nil, ErrInvalidOutcome
	}
}

// GetRide returns a ride owned by riderID.
func (e *Engine) GetRide(ctx context.Context, riderID, rideID string) (*domain.Ride, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rides.Get(ctx, riderID, rideID)
}

// ListRides returns the rider's rides, newest first.
func (e *Engine) ListRides(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.wallet.Rider(riderID); err != nil {
		return nil, err
	}
	return e.rides.ListByRider(ctx, riderID), nil
}

// ListDrivers returns every driver with its current availability.
func (e *Engine) ListDrivers(ctx context.Context) []*domain.Driver {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pool.List()
}

// Receipt returns the fare breakdown of a completed ride.
func (e *Engine) Receipt(ctx context.Context, riderID, rideID string) (*domain.Receipt, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ride, err := e.rides.Get(ctx, riderID, rideID)
	if err != nil {
		return nil, err
	}
	driver, err := e.pool.Get(ride.DriverID)
	if err != nil && !errors.Is(err, ErrDriverNotFound) {
		return nil, err
	}
	return e.receipts.GenerateReceipt(ctx, ride, driver)
}

// FormatReceipt renders a receipt as plain text.
func (e *Engine) FormatReceipt(receipt *domain.Receipt) string {
	return e.receipts.FormatReceipt(receipt)
}

// TopUp credits the rider's wallet.
func (e *Engine) TopUp(ctx context.Context, riderID string, amount int64) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	balance, err := e.wallet.Credit(riderID, amount, domain.TransactionTopUp, "Wallet top-up")
	if err != nil {
		return 0, err
	}
	_ = e.notifier.NotifyWalletUpdated(ctx, riderID, domain.TransactionTopUp, amount, balance)
	return balance, nil
}

// Donate debits the rider's wallet as a donation.
func (e *Engine) Donate(ctx context.Context, riderID string, amount int64, note string) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	desc := "Donation"
	if note = strings.TrimSpace(note); note != "" {
		desc = fmt.Sprintf("Donation: %s", note)
	}
	balance, err := e.wallet.Debit(riderID, amount, domain.TransactionDonation, desc, "")
	if err != nil {
		return 0, err
	}
	_ = e.notifier.NotifyWalletUpdated(ctx, riderID, domain.TransactionDonation, -amount, balance)
	return balance, nil
}

// Transactions returns the rider's wallet history, oldest first.
func (e *Engine) Transactions(ctx context.Context, riderID string) ([]domain.WalletTransaction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.wallet.Transactions(riderID)
}

// Seed adds drivers and promo codes to the engine.
func (e *Engine) Seed(drivers []*domain.Driver, promos []*domain.PromoCode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, d := range drivers {
		if d == nil {
			continue
		}
		if err := e.pool.Add(d); err != nil {
			return fmt.Errorf("seed driver %s: %w", d.ID, err)
		}
	}
	for _, p := range promos {
		if p == nil {
			continue
		}
		e.promos.Add(p)
	}
	return nil
}

// Snapshot returns a consistent copy of the whole engine state.
func (e *Engine) Snapshot() *domain.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	riders := e.wallet.List()
	for _, r := range riders {
		r.RedeemedPromos = e.promos.RedeemedBy(r.ID)
	}

	return &domain.State{
		Riders:  riders,
		Drivers: e.pool.List(),
		Rides:   e.rides.List(),
		Promos:  e.promos.List(),
		SavedAt: e.now(),
	}
}

// Restore replaces the engine state with a snapshot. Driver availability is
// recomputed from the rides: a driver is held iff a non-terminal ride
// references it. Null entries are skipped. On error the engine keeps its
// previous state.
func (e *Engine) Restore(state *domain.State) error {
	if state == nil {
		return errors.New("restore: nil state")
	}

	pool := NewDriverPool(e.strategy)
	wallet := NewWalletService()
	promos := NewPromoService()
	rides := NewRideService(pool, wallet, promos, e.gateway)

	held := make(map[string]bool)
	for _, r := range state.Rides {
		if r != nil && !r.Status.Terminal() && r.DriverID != "" {
			held[r.DriverID] = true
		}
	}

	for _, d := range state.Drivers {
		if d == nil {
			continue
		}
		c := cloneDriver(d)
		c.Available = !held[c.ID]
		if err := pool.Add(c); err != nil {
			return fmt.Errorf("restore driver %s: %w", d.ID, err)
		}
	}
	for _, r := range state.Riders {
		if r == nil {
			continue
		}
		if err := wallet.Open(r); err != nil {
			return fmt.Errorf("restore rider %q: %w", r.ID, err)
		}
	}
	for _, p := range state.Promos {
		promos.Add(p)
	}
	rides.Load(state.Rides)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.pool = pool
	e.wallet = wallet
	e.promos = promos
	e.rides = rides
	return nil
}

// DefaultDrivers is the demo driver roster.
func DefaultDrivers() []*domain.Driver {
	return []*domain.Driver{
		{ID: "drv-001", Name: "Rahul Kumar", Rating: 4.8, Vehicle: "Swift Dzire", Available: true,
			Location: &domain.Location{Lat: 12.9716, Lng: 77.5946}},
		{ID: "drv-002", Name: "Amit Singh", Rating: 4.6, Vehicle: "WagonR", Available: true,
			Location: &domain.Location{Lat: 12.9352, Lng: 77.6245}},
		{ID: "drv-003", Name: "Deepak Yadav", Rating: 4.9, Vehicle: "Innova", Available: true,
			Location: &domain.Location{Lat: 13.0358, Lng: 77.5970}},
	}
}

// DefaultPromos is the demo promo catalogue.
func DefaultPromos() []*domain.PromoCode {
	return []*domain.PromoCode{
		{Code: "SAVE50", Discount: 50},
		{Code: "WELCOME20", Discount: 20},
	}
}
