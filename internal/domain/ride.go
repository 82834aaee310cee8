package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested RideStatus = "REQUESTED"
	RideStatusConfirmed RideStatus = "CONFIRMED"
	RideStatusCompleted RideStatus = "COMPLETED"
	RideStatusCancelled RideStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s RideStatus) Terminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// AllowedTransitions is the ride state machine.
var AllowedTransitions = map[RideStatus][]RideStatus{
	RideStatusRequested: {RideStatusConfirmed, RideStatusCancelled},
	RideStatusConfirmed: {RideStatusCompleted, RideStatusCancelled},
}

// CanTransition reports whether from -> to is a legal ride transition.
func CanTransition(from, to RideStatus) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// RideCategory selects the fare tier.
type RideCategory string

const (
	RideCategoryStandard   RideCategory = "STANDARD"
	RideCategoryRental     RideCategory = "RENTAL"
	RideCategoryOutstation RideCategory = "OUTSTATION"
)

// PaymentMethod represents the payment method for a ride.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodWallet PaymentMethod = "WALLET"
	PaymentMethodUPI    PaymentMethod = "UPI"
)

// PaymentStatus represents the settlement state of a ride.
type PaymentStatus string

const (
	PaymentStatusUnpaid    PaymentStatus = "UNPAID"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusPayOnRide PaymentStatus = "PAY_ON_RIDE"
)

// Ride represents a ride request in the system.
type Ride struct {
	ID            string        `json:"id"`
	RiderID       string        `json:"rider_id"`
	Pickup        Place         `json:"pickup"`
	Destination   Place         `json:"destination"`
	Category      RideCategory  `json:"category"`
	DriverID      string        `json:"driver_id,omitempty"`
	BaseFare      int64         `json:"base_fare"`
	Tax           int64         `json:"tax"`
	Discount      int64         `json:"discount"`
	PromoCodes    []string      `json:"promo_codes,omitempty"`
	Total         int64         `json:"total"`
	Status        RideStatus    `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	CompletedAt   time.Time     `json:"completed_at,omitempty"`
	CancelledAt   time.Time     `json:"cancelled_at,omitempty"`
	CancelReason  string        `json:"cancel_reason,omitempty"`
}

// RecalculateTotal sets Total to max(0, BaseFare+Tax-Discount).
func (r *Ride) RecalculateTotal() {
	total := r.BaseFare + r.Tax - r.Discount
	if total < 0 {
		total = 0
	}
	r.Total = total
}
