package domain

import "time"

// Rider represents a registered rider and their wallet.
type Rider struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Balance        int64               `json:"balance"`
	InitialBalance int64               `json:"initial_balance"`
	RideIDs        []string            `json:"ride_ids"`
	RedeemedPromos []string            `json:"redeemed_promos,omitempty"`
	Transactions   []WalletTransaction `json:"transactions"`
	CreatedAt      time.Time           `json:"created_at"`
}

// TransactionType classifies a wallet movement.
type TransactionType string

const (
	TransactionRidePayment TransactionType = "RIDE_PAYMENT"
	TransactionDonation    TransactionType = "DONATION"
	TransactionTopUp       TransactionType = "TOPUP"
)

// WalletTransaction is an append-only wallet entry. Amount is signed:
// debits are negative.
type WalletTransaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      int64           `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	Description string          `json:"description"`
	RideID      string          `json:"ride_id,omitempty"`
}
