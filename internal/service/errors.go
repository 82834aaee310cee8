package service

import (
	"errors"
	"fmt"

	"olago/internal/repository"
)

var (
	// ErrRiderNotFound is returned when a rider id is unknown.
	ErrRiderNotFound = fmt.Errorf("rider: %w", repository.ErrNotFound)

	// ErrRideNotFound is returned when a ride id is unknown.
	ErrRideNotFound = fmt.Errorf("ride: %w", repository.ErrNotFound)

	// ErrDriverNotFound is returned when a driver id is unknown.
	ErrDriverNotFound = fmt.Errorf("driver: %w", repository.ErrNotFound)

	// ErrPromoNotFound is returned when a promo code is unknown.
	ErrPromoNotFound = fmt.Errorf("promo code: %w", repository.ErrNotFound)

	// ErrNoDriverAvailable is returned when no driver can be matched.
	ErrNoDriverAvailable = errors.New("no driver available")

	// ErrInvalidState is returned when an operation is illegal for the ride's current status.
	ErrInvalidState = errors.New("operation not allowed in current ride state")

	// ErrInsufficientFunds is returned when a wallet debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrPromoAlreadyUsed is returned when a rider redeems the same code twice.
	ErrPromoAlreadyUsed = errors.New("promo code already used")

	// ErrInvalidAmount is returned for non-positive wallet amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrRideNotOwned is returned when a rider acts on another rider's ride.
	ErrRideNotOwned = errors.New("ride belongs to another rider")

	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidRiderName is returned when a rider signs up without a name.
	ErrInvalidRiderName = errors.New("rider name is required")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidPlace is returned when pickup or destination is missing.
	ErrInvalidPlace = errors.New("pickup and destination are required")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidPaymentMethod is returned when payment method is invalid.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidOutcome is returned when a finish outcome is neither COMPLETE nor CANCEL.
	ErrInvalidOutcome = errors.New("invalid ride outcome")

	// ErrInvalidPromoCode is returned when a promo code is empty.
	ErrInvalidPromoCode = errors.New("invalid promo code")

	// ErrRiderExists is returned when opening an account for a known rider id.
	ErrRiderExists = errors.New("rider already exists")

	// ErrDuplicateDriver is returned when seeding a driver id twice.
	ErrDuplicateDriver = errors.New("driver already exists")
)
