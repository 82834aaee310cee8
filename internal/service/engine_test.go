package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"olago/internal/domain"
	"olago/internal/service"
)

// ──────────────────────────────────────────────
// HELPERS
// ──────────────────────────────────────────────

func newEngine(t *testing.T, drivers ...*domain.Driver) *service.Engine {
	t.Helper()

	e := service.NewEngine(service.EngineConfig{
		Strategy:       service.MatchNearest,
		Notifier:       service.NewNotificationService(zap.NewNop()),
		DefaultBalance: service.DefaultInitialBalance,
	})
	if drivers == nil {
		drivers = service.DefaultDrivers()
	}
	require.NoError(t, e.Seed(drivers, service.DefaultPromos()))
	return e
}

func registerRider(t *testing.T, e *service.Engine, id string, balance int64) *domain.Rider {
	t.Helper()

	r, err := e.RegisterRider(context.Background(), service.RegisterRiderCommand{
		ID:             id,
		Name:           "Rider " + id,
		InitialBalance: &balance,
	})
	require.NoError(t, err)
	return r
}

func requestStandardRide(t *testing.T, e *service.Engine, riderID string) *domain.Ride {
	t.Helper()

	ride, err := e.RequestRide(context.Background(), service.RequestRideCommand{
		RiderID:     riderID,
		Pickup:      domain.Place{Name: "MG Road", Location: &domain.Location{Lat: 12.9756, Lng: 77.6066}},
		Destination: domain.Place{Name: "Airport"},
		Category:    "standard",
	})
	require.NoError(t, err)
	return ride
}

func assertRiderLedgerBalanced(t *testing.T, e *service.Engine, riderID string) {
	t.Helper()

	r, err := e.GetRider(context.Background(), riderID)
	require.NoError(t, err)

	var sum int64
	for _, tx := range r.Transactions {
		sum += tx.Amount
	}
	assert.Equal(t, r.InitialBalance+sum, r.Balance)
}

func driverAvailable(t *testing.T, e *service.Engine, driverID string) bool {
	t.Helper()

	for _, d := range e.ListDrivers(context.Background()) {
		if d.ID == driverID {
			return d.Available
		}
	}
	t.Fatalf("driver %s not in pool", driverID)
	return false
}

// ──────────────────────────────────────────────
// SCENARIOS
// ──────────────────────────────────────────────

func TestScenarioA_WalletPayment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-a", 500)

	ride := requestStandardRide(t, e, "rider-a")
	assert.Equal(t, int64(70), ride.BaseFare)
	assert.Equal(t, int64(30), ride.Tax)
	assert.Equal(t, int64(100), ride.Total)
	assert.Equal(t, domain.RideStatusRequested, ride.Status)
	assert.NotEmpty(t, ride.DriverID)

	confirmed, balance, err := e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{
		RiderID: "rider-a",
		RideID:  ride.ID,
		Method:  "wallet",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(400), balance)
	assert.Equal(t, domain.PaymentStatusPaid, confirmed.PaymentStatus)
	assert.Equal(t, domain.PaymentMethodWallet, confirmed.PaymentMethod)
	assert.Equal(t, domain.RideStatusConfirmed, confirmed.Status)

	rider, err := e.GetRider(ctx, "rider-a")
	require.NoError(t, err)
	assert.Equal(t, int64(400), rider.Balance)
	require.Len(t, rider.Transactions, 1)
	assert.Equal(t, domain.TransactionRidePayment, rider.Transactions[0].Type)
	assert.Equal(t, int64(-100), rider.Transactions[0].Amount)
	assert.Equal(t, []string{ride.ID}, rider.RideIDs)
	assertRiderLedgerBalanced(t, e, "rider-a")
}

func TestScenarioB_PromoThenWalletPayment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-b", 500)

	ride := requestStandardRide(t, e, "rider-b")

	discounted, err := e.ApplyPromo(ctx, service.ApplyPromoCommand{RiderID: "rider-b", RideID: ride.ID, Code: "SAVE50"})
	require.NoError(t, err)
	assert.Equal(t, int64(50), discounted.Discount)
	assert.Equal(t, int64(50), discounted.Total)
	assert.Equal(t, []string{"SAVE50"}, discounted.PromoCodes)

	_, balance, err := e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-b", RideID: ride.ID, Method: "WALLET"})
	require.NoError(t, err)
	assert.Equal(t, int64(450), balance)

	rider, err := e.GetRider(ctx, "rider-b")
	require.NoError(t, err)
	assert.Equal(t, []string{"SAVE50"}, rider.RedeemedPromos)
	assertRiderLedgerBalanced(t, e, "rider-b")
}

func TestScenarioC_InsufficientFundsChangesNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-c", 10)

	ride := requestStandardRide(t, e, "rider-c")
	require.Equal(t, int64(100), ride.Total)

	_, _, err := e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-c", RideID: ride.ID, Method: "WALLET"})
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	rider, err := e.GetRider(ctx, "rider-c")
	require.NoError(t, err)
	assert.Equal(t, int64(10), rider.Balance)
	assert.Empty(t, rider.Transactions)

	after, err := e.GetRide(ctx, "rider-c", ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusRequested, after.Status)
	assert.Equal(t, domain.PaymentStatusUnpaid, after.PaymentStatus)
	assert.Empty(t, after.PaymentMethod)
	assert.False(t, driverAvailable(t, e, ride.DriverID), "driver stays held")
}

func TestScenarioD_NoDriverAvailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t, []*domain.Driver{}...)
	registerRider(t, e, "rider-d", 500)

	_, err := e.RequestRide(ctx, service.RequestRideCommand{
		RiderID:     "rider-d",
		Pickup:      domain.Place{Name: "Home"},
		Destination: domain.Place{Name: "Office"},
	})
	assert.ErrorIs(t, err, service.ErrNoDriverAvailable)

	rides, err := e.ListRides(ctx, "rider-d")
	require.NoError(t, err)
	assert.Empty(t, rides)

	rider, err := e.GetRider(ctx, "rider-d")
	require.NoError(t, err)
	assert.Empty(t, rider.RideIDs)
}

func TestScenarioE_CancelConfirmedRideReleasesDriver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-e", 500)

	ride := requestStandardRide(t, e, "rider-e")
	require.False(t, driverAvailable(t, e, ride.DriverID))

	_, _, err := e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-e", RideID: ride.ID, Method: "CASH"})
	require.NoError(t, err)

	cancelled, err := e.CompleteOrCancelRide(ctx, service.FinishRideCommand{
		RiderID: "rider-e",
		RideID:  ride.ID,
		Outcome: service.RideOutcomeCancel,
		Reason:  "changed plans",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusCancelled, cancelled.Status)
	assert.Equal(t, "changed plans", cancelled.CancelReason)
	assert.False(t, cancelled.CancelledAt.IsZero())
	assert.True(t, driverAvailable(t, e, ride.DriverID))
}

// ──────────────────────────────────────────────
// STATE MACHINE
// ──────────────────────────────────────────────

func TestApplyPromo_OnlyWhileRequested(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)

	ride := requestStandardRide(t, e, "rider-1")
	_, _, err := e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-1", RideID: ride.ID, Method: "CASH"})
	require.NoError(t, err)

	_, err = e.ApplyPromo(ctx, service.ApplyPromoCommand{RiderID: "rider-1", RideID: ride.ID, Code: "SAVE50"})
	assert.ErrorIs(t, err, service.ErrInvalidState)

	rider, err := e.GetRider(ctx, "rider-1")
	require.NoError(t, err)
	assert.Empty(t, rider.RedeemedPromos, "failed apply must not redeem")
}

func TestApplyPromo_SecondUseOnAnotherRide(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)

	first := requestStandardRide(t, e, "rider-1")
	_, err := e.ApplyPromo(ctx, service.ApplyPromoCommand{RiderID: "rider-1", RideID: first.ID, Code: "SAVE50"})
	require.NoError(t, err)

	second := requestStandardRide(t, e, "rider-1")
	_, err = e.ApplyPromo(ctx, service.ApplyPromoCommand{RiderID: "rider-1", RideID: second.ID, Code: "save50"})
	assert.ErrorIs(t, err, service.ErrPromoAlreadyUsed)

	after, err := e.GetRide(ctx, "rider-1", second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), after.Total)
}

func TestApplyPromo_StackedCodesNeverGoNegative(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)
	require.NoError(t, e.Seed(nil, []*domain.PromoCode{{Code: "BIG80", Discount: 80}}))

	ride := requestStandardRide(t, e, "rider-1")

	r, err := e.ApplyPromo(ctx, service.ApplyPromoCommand{RiderID: "rider-1", RideID: ride.ID, Code: "BIG80"})
	require.NoError(t, err)
	assert.Equal(t, int64(20), r.Total)

	r, err = e.ApplyPromo(ctx, service.ApplyPromoCommand{RiderID: "rider-1", RideID: ride.ID, Code: "SAVE50"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.Total)
	assert.Equal(t, int64(100), r.Discount)
	assert.Equal(t, max(int64(0), r.BaseFare+r.Tax-r.Discount), r.Total)

	// A zero total paid from the wallet records no transaction.
	confirmed, balance, err := e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-1", RideID: ride.ID, Method: "WALLET"})
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)
	assert.Equal(t, domain.PaymentStatusPaid, confirmed.PaymentStatus)

	txs, err := e.Transactions(ctx, "rider-1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestConfirmPayment_Methods(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		method      string
		wantStatus  domain.PaymentStatus
		wantBalance int64
	}{
		{method: "WALLET", wantStatus: domain.PaymentStatusPaid, wantBalance: 400},
		{method: "cash", wantStatus: domain.PaymentStatusPayOnRide, wantBalance: 500},
		{method: "CARD", wantStatus: domain.PaymentStatusPending, wantBalance: 500},
		{method: "upi", wantStatus: domain.PaymentStatusPending, wantBalance: 500},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.method, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			e := newEngine(t)
			registerRider(t, e, "rider-1", 500)
			ride := requestStandardRide(t, e, "rider-1")

			confirmed, balance, err := e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-1", RideID: ride.ID, Method: tc.method})
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, confirmed.PaymentStatus)
			assert.Equal(t, tc.wantBalance, balance)
			assert.Equal(t, domain.RideStatusConfirmed, confirmed.Status)
		})
	}
}

func TestConfirmPayment_InvalidMethod(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)
	ride := requestStandardRide(t, e, "rider-1")

	_, _, err := e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-1", RideID: ride.ID, Method: "BITCOIN"})
	assert.ErrorIs(t, err, service.ErrInvalidPaymentMethod)
}

func TestConfirmPayment_Twice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)
	ride := requestStandardRide(t, e, "rider-1")

	_, _, err := e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-1", RideID: ride.ID, Method: "WALLET"})
	require.NoError(t, err)

	_, _, err = e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-1", RideID: ride.ID, Method: "WALLET"})
	assert.ErrorIs(t, err, service.ErrInvalidState)

	rider, err := e.GetRider(ctx, "rider-1")
	require.NoError(t, err)
	assert.Equal(t, int64(400), rider.Balance, "second confirmation must not debit")
}

func TestComplete_RequiresConfirmed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)
	ride := requestStandardRide(t, e, "rider-1")

	_, err := e.CompleteOrCancelRide(ctx, service.FinishRideCommand{RiderID: "rider-1", RideID: ride.ID, Outcome: service.RideOutcomeComplete})
	assert.ErrorIs(t, err, service.ErrInvalidState)
	assert.False(t, driverAvailable(t, e, ride.DriverID))

	_, _, err = e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-1", RideID: ride.ID, Method: "WALLET"})
	require.NoError(t, err)

	done, err := e.CompleteOrCancelRide(ctx, service.FinishRideCommand{RiderID: "rider-1", RideID: ride.ID, Outcome: service.RideOutcomeComplete})
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusCompleted, done.Status)
	assert.False(t, done.CompletedAt.IsZero())
	assert.True(t, driverAvailable(t, e, ride.DriverID))
}

func TestTerminalRidesRejectEveryOperation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)
	ride := requestStandardRide(t, e, "rider-1")

	_, err := e.CompleteOrCancelRide(ctx, service.FinishRideCommand{RiderID: "rider-1", RideID: ride.ID, Outcome: service.RideOutcomeCancel})
	require.NoError(t, err)

	_, err = e.CompleteOrCancelRide(ctx, service.FinishRideCommand{RiderID: "rider-1", RideID: ride.ID, Outcome: service.RideOutcomeCancel})
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = e.CompleteOrCancelRide(ctx, service.FinishRideCommand{RiderID: "rider-1", RideID: ride.ID, Outcome: service.RideOutcomeComplete})
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = e.ApplyPromo(ctx, service.ApplyPromoCommand{RiderID: "rider-1", RideID: ride.ID, Code: "SAVE50"})
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, _, err = e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-1", RideID: ride.ID, Method: "CASH"})
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestCancelPaidRideIsNotRefunded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)
	ride := requestStandardRide(t, e, "rider-1")

	_, _, err := e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-1", RideID: ride.ID, Method: "WALLET"})
	require.NoError(t, err)

	cancelled, err := e.CompleteOrCancelRide(ctx, service.FinishRideCommand{RiderID: "rider-1", RideID: ride.ID, Outcome: service.RideOutcomeCancel})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, cancelled.PaymentStatus)

	rider, err := e.GetRider(ctx, "rider-1")
	require.NoError(t, err)
	assert.Equal(t, int64(400), rider.Balance)
}

func TestInvalidOutcome(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	_, err := e.CompleteOrCancelRide(context.Background(), service.FinishRideCommand{RiderID: "r", RideID: "x", Outcome: "PAUSE"})
	assert.ErrorIs(t, err, service.ErrInvalidOutcome)

	_, err = service.ParseRideOutcome("pause")
	assert.ErrorIs(t, err, service.ErrInvalidOutcome)

	got, err := service.ParseRideOutcome(" complete")
	require.NoError(t, err)
	assert.Equal(t, service.RideOutcomeComplete, got)
}

// ──────────────────────────────────────────────
// LOOKUPS AND VALIDATION
// ──────────────────────────────────────────────

func TestRequestRide_Validation(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)

	testCases := []struct {
		name    string
		cmd     service.RequestRideCommand
		wantErr error
	}{
		{
			name:    "missing rider",
			cmd:     service.RequestRideCommand{Pickup: domain.Place{Name: "A"}, Destination: domain.Place{Name: "B"}},
			wantErr: service.ErrInvalidRiderID,
		},
		{
			name:    "unknown rider",
			cmd:     service.RequestRideCommand{RiderID: "ghost", Pickup: domain.Place{Name: "A"}, Destination: domain.Place{Name: "B"}},
			wantErr: service.ErrRiderNotFound,
		},
		{
			name:    "missing pickup",
			cmd:     service.RequestRideCommand{RiderID: "rider-1", Destination: domain.Place{Name: "B"}},
			wantErr: service.ErrInvalidPlace,
		},
		{
			name:    "missing destination",
			cmd:     service.RequestRideCommand{RiderID: "rider-1", Pickup: domain.Place{Name: "A"}},
			wantErr: service.ErrInvalidPlace,
		},
		{
			name: "latitude out of range",
			cmd: service.RequestRideCommand{
				RiderID:     "rider-1",
				Pickup:      domain.Place{Name: "A", Location: &domain.Location{Lat: 91, Lng: 0}},
				Destination: domain.Place{Name: "B"},
			},
			wantErr: service.ErrInvalidLocation,
		},
	}

	for _, tc := range testCases {
		_, err := e.RequestRide(context.Background(), tc.cmd)
		assert.ErrorIs(t, err, tc.wantErr, tc.name)
	}

	for _, d := range e.ListDrivers(context.Background()) {
		assert.True(t, d.Available, "failed requests must not hold %s", d.ID)
	}
}

func TestRequestRide_UnknownCategoryUsesStandard(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)

	ride, err := e.RequestRide(context.Background(), service.RequestRideCommand{
		RiderID:     "rider-1",
		Pickup:      domain.Place{Name: "A"},
		Destination: domain.Place{Name: "B"},
		Category:    "spaceship",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RideCategoryStandard, ride.Category)
	assert.Equal(t, int64(100), ride.Total)
}

func TestRequestRide_AssignsNearestDriver(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)

	// Closest to drv-003 (13.0358, 77.5970).
	ride, err := e.RequestRide(context.Background(), service.RequestRideCommand{
		RiderID:     "rider-1",
		Pickup:      domain.Place{Name: "Hebbal", Location: &domain.Location{Lat: 13.04, Lng: 77.59}},
		Destination: domain.Place{Name: "MG Road"},
		Category:    "OUTSTATION",
	})
	require.NoError(t, err)
	assert.Equal(t, "drv-003", ride.DriverID)
	assert.Equal(t, int64(708), ride.Total)
}

func TestRideOwnership(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "owner", 500)
	registerRider(t, e, "other", 500)
	ride := requestStandardRide(t, e, "owner")

	_, err := e.GetRide(ctx, "other", ride.ID)
	assert.ErrorIs(t, err, service.ErrRideNotOwned)

	_, _, err = e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "other", RideID: ride.ID, Method: "WALLET"})
	assert.ErrorIs(t, err, service.ErrRideNotOwned)

	_, err = e.GetRide(ctx, "owner", "missing")
	assert.ErrorIs(t, err, service.ErrRideNotFound)

	_, err = e.GetRide(ctx, "owner", "")
	assert.ErrorIs(t, err, service.ErrInvalidRideID)

	other, err := e.GetRider(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(500), other.Balance)
}

func TestRegisterRider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)

	r, err := e.RegisterRider(ctx, service.RegisterRiderCommand{Name: "Priya"})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, service.DefaultInitialBalance, r.Balance)
	assert.Equal(t, r.Balance, r.InitialBalance)

	_, err = e.RegisterRider(ctx, service.RegisterRiderCommand{Name: "  "})
	assert.ErrorIs(t, err, service.ErrInvalidRiderName)

	negative := int64(-1)
	_, err = e.RegisterRider(ctx, service.RegisterRiderCommand{Name: "Neg", InitialBalance: &negative})
	assert.ErrorIs(t, err, service.ErrInvalidAmount)

	_, err = e.RegisterRider(ctx, service.RegisterRiderCommand{ID: r.ID, Name: "Dup"})
	assert.ErrorIs(t, err, service.ErrRiderExists)

	tooRich := service.MaxInitialBalance + 1
	_, err = e.RegisterRider(ctx, service.RegisterRiderCommand{Name: "Rich", InitialBalance: &tooRich})
	assert.ErrorIs(t, err, service.ErrInvalidAmount)
}

func TestTopUpAndDonate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 100)

	balance, err := e.TopUp(ctx, "rider-1", 250)
	require.NoError(t, err)
	assert.Equal(t, int64(350), balance)

	balance, err = e.Donate(ctx, "rider-1", 50, "flood relief")
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)

	_, err = e.Donate(ctx, "rider-1", 1000, "")
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	_, err = e.TopUp(ctx, "rider-1", 0)
	assert.ErrorIs(t, err, service.ErrInvalidAmount)

	txs, err := e.Transactions(ctx, "rider-1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, domain.TransactionTopUp, txs[0].Type)
	assert.Equal(t, domain.TransactionDonation, txs[1].Type)
	assert.Equal(t, "Donation: flood relief", txs[1].Description)
	assertRiderLedgerBalanced(t, e, "rider-1")
}

func TestReceipt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)
	ride := requestStandardRide(t, e, "rider-1")

	_, err := e.Receipt(ctx, "rider-1", ride.ID)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = e.ApplyPromo(ctx, service.ApplyPromoCommand{RiderID: "rider-1", RideID: ride.ID, Code: "WELCOME20"})
	require.NoError(t, err)
	_, _, err = e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-1", RideID: ride.ID, Method: "WALLET"})
	require.NoError(t, err)
	_, err = e.CompleteOrCancelRide(ctx, service.FinishRideCommand{RiderID: "rider-1", RideID: ride.ID, Outcome: service.RideOutcomeComplete})
	require.NoError(t, err)

	receipt, err := e.Receipt(ctx, "rider-1", ride.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.ID, receipt.RideID)
	assert.Equal(t, int64(70), receipt.BaseFare)
	assert.Equal(t, int64(30), receipt.Tax)
	assert.Equal(t, int64(20), receipt.Discount)
	assert.Equal(t, int64(80), receipt.Total)
	assert.Equal(t, domain.PaymentStatusPaid, receipt.PaymentStatus)
	assert.Equal(t, "MG Road", receipt.Pickup)
	assert.NotEmpty(t, receipt.DriverName)

	again, err := e.Receipt(ctx, "rider-1", ride.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.ID, again.ID, "receipt id is stable per ride")

	text := e.FormatReceipt(receipt)
	assert.Contains(t, text, "TOTAL:       80")
	assert.Contains(t, text, "WELCOME20")
}

// ──────────────────────────────────────────────
// SNAPSHOT / RESTORE
// ──────────────────────────────────────────────

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)

	held := requestStandardRide(t, e, "rider-1")
	_, err := e.ApplyPromo(ctx, service.ApplyPromoCommand{RiderID: "rider-1", RideID: held.ID, Code: "SAVE50"})
	require.NoError(t, err)
	_, _, err = e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-1", RideID: held.ID, Method: "WALLET"})
	require.NoError(t, err)

	freed := requestStandardRide(t, e, "rider-1")
	_, err = e.CompleteOrCancelRide(ctx, service.FinishRideCommand{RiderID: "rider-1", RideID: freed.ID, Outcome: service.RideOutcomeCancel})
	require.NoError(t, err)

	state := e.Snapshot()
	require.Len(t, state.Rides, 2)
	require.Len(t, state.Riders, 1)
	assert.Equal(t, []string{"SAVE50"}, state.Riders[0].RedeemedPromos)

	// Availability in the snapshot is ignored on restore and recomputed.
	for _, d := range state.Drivers {
		d.Available = false
	}

	restored := service.NewEngine(service.EngineConfig{})
	require.NoError(t, restored.Restore(state))

	for _, d := range restored.ListDrivers(ctx) {
		assert.Equal(t, d.ID != held.DriverID, d.Available, d.ID)
	}

	rider, err := restored.GetRider(ctx, "rider-1")
	require.NoError(t, err)
	assert.Equal(t, int64(450), rider.Balance)
	assert.Equal(t, []string{"SAVE50"}, rider.RedeemedPromos)
	assertRiderLedgerBalanced(t, restored, "rider-1")

	another := requestStandardRide(t, restored, "rider-1")
	_, err = restored.ApplyPromo(ctx, service.ApplyPromoCommand{RiderID: "rider-1", RideID: another.ID, Code: "SAVE50"})
	assert.ErrorIs(t, err, service.ErrPromoAlreadyUsed)

	_, err = restored.CompleteOrCancelRide(ctx, service.FinishRideCommand{RiderID: "rider-1", RideID: held.ID, Outcome: service.RideOutcomeComplete})
	require.NoError(t, err)
}

func TestRestore_NilState(t *testing.T) {
	t.Parallel()

	e := service.NewEngine(service.EngineConfig{})
	assert.Error(t, e.Restore(nil))
}

func TestRestore_SkipsNullEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := service.NewEngine(service.EngineConfig{DefaultBalance: service.DefaultInitialBalance})

	state := &domain.State{
		Riders:  []*domain.Rider{nil, {ID: "rider-1", Name: "Asha", Balance: 500, InitialBalance: 500}},
		Drivers: []*domain.Driver{nil, driverAt("drv-1", 0, 0)},
		Rides:   []*domain.Ride{nil},
		Promos:  []*domain.PromoCode{nil, {Code: "SAVE50", Discount: 50}},
	}
	require.NoError(t, e.Restore(state))

	r, err := e.GetRider(ctx, "rider-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), r.Balance)
	assert.Len(t, e.ListDrivers(ctx), 1)

	ride := requestStandardRide(t, e, "rider-1")
	_, err = e.ApplyPromo(ctx, service.ApplyPromoCommand{RiderID: "rider-1", RideID: ride.ID, Code: "SAVE50"})
	require.NoError(t, err)
}

func TestRestore_FailureKeepsPreviousState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)
	ride := requestStandardRide(t, e, "rider-1")

	bad := &domain.State{
		Riders:  []*domain.Rider{{ID: "rider-2", Name: "B"}},
		Drivers: []*domain.Driver{driverAt("drv-1", 0, 0), driverAt("drv-1", 1, 1)},
	}
	assert.ErrorIs(t, e.Restore(bad), service.ErrDuplicateDriver)

	got, err := e.GetRide(ctx, "rider-1", ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusRequested, got.Status)
	assert.Len(t, e.ListDrivers(ctx), 3)

	_, err = e.GetRider(ctx, "rider-2")
	assert.ErrorIs(t, err, service.ErrRiderNotFound)
}

func TestRequestRide_NotifiesWithDriverDetails(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	e := service.NewEngine(service.EngineConfig{
		Notifier:       service.NewNotificationService(zap.New(core)),
		DefaultBalance: service.DefaultInitialBalance,
	})
	require.NoError(t, e.Seed(service.DefaultDrivers(), nil))
	registerRider(t, e, "rider-1", 500)

	ride := requestStandardRide(t, e, "rider-1")

	names := make(map[string]string)
	for _, d := range service.DefaultDrivers() {
		names[d.ID] = d.Name
	}

	assigned := logs.FilterField(zap.String("type", string(service.NotificationDriverAssigned))).All()
	require.Len(t, assigned, 1)
	assert.Contains(t, assigned[0].ContextMap()["message"], names[ride.DriverID])
}

func TestSeed_SkipsNullEntries(t *testing.T) {
	t.Parallel()

	e := service.NewEngine(service.EngineConfig{})
	require.NoError(t, e.Seed([]*domain.Driver{nil}, []*domain.PromoCode{nil}))
	assert.Empty(t, e.ListDrivers(context.Background()))
}

// ──────────────────────────────────────────────
// CONCURRENCY
// ──────────────────────────────────────────────

func TestConcurrentRequestsNeverShareADriver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)

	const riders = 20
	for i := 0; i < riders; i++ {
		registerRider(t, e, string(rune('A'+i)), 500)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		drivers   = make(map[string]int)
		noDriver  atomic.Int32
		unexpectd atomic.Int32
	)
	wg.Add(riders)
	for i := 0; i < riders; i++ {
		riderID := string(rune('A' + i))
		go func() {
			defer wg.Done()
			ride, err := e.RequestRide(ctx, service.RequestRideCommand{
				RiderID:     riderID,
				Pickup:      domain.Place{Name: "A"},
				Destination: domain.Place{Name: "B"},
			})
			switch {
			case err == nil:
				mu.Lock()
				drivers[ride.DriverID]++
				mu.Unlock()
			case errors.Is(err, service.ErrNoDriverAvailable):
				noDriver.Add(1)
			default:
				unexpectd.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, drivers, 3)
	for id, n := range drivers {
		assert.Equal(t, 1, n, "driver %s held by %d rides", id, n)
	}
	assert.Equal(t, int32(riders-3), noDriver.Load())
	assert.Zero(t, unexpectd.Load())
}

func TestConcurrentConfirmationsDebitOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 500)
	ride := requestStandardRide(t, e, "rider-1")

	const goroutines = 20
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		invalid   atomic.Int32
	)
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_, _, err := e.ConfirmPayment(ctx, service.ConfirmPaymentCommand{RiderID: "rider-1", RideID: ride.ID, Method: "WALLET"})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, service.ErrInvalidState):
				invalid.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(goroutines-1), invalid.Load())

	rider, err := e.GetRider(ctx, "rider-1")
	require.NoError(t, err)
	assert.Equal(t, int64(400), rider.Balance)
	assertRiderLedgerBalanced(t, e, "rider-1")
}

func TestConcurrentSnapshotsDuringTraffic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	registerRider(t, e, "rider-1", 10000)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, _ = e.TopUp(ctx, "rider-1", 10)
			_, _ = e.Donate(ctx, "rider-1", 5, "")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			state := e.Snapshot()
			for _, r := range state.Riders {
				var sum int64
				for _, tx := range r.Transactions {
					sum += tx.Amount
				}
				assert.Equal(t, r.InitialBalance+sum, r.Balance)
			}
		}
	}()
	wg.Wait()
}
