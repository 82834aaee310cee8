package service

import (
	"context"
	"strings"

	"olago/internal/domain"
)

// PaymentGateway models an external payment method. Only the outcome is
// modelled: no money moves through it.
type PaymentGateway interface {
	Initiate(ctx context.Context, ride *domain.Ride, method domain.PaymentMethod) (domain.PaymentStatus, error)
}

// PendingGateway is the default gateway. It accepts every request and
// leaves it PENDING for out-of-band settlement.
type PendingGateway struct{}

// NewPendingGateway creates a new PendingGateway.
func NewPendingGateway() *PendingGateway {
	return &PendingGateway{}
}

// Initiate always reports PENDING.
func (g *PendingGateway) Initiate(ctx context.Context, ride *domain.Ride, method domain.PaymentMethod) (domain.PaymentStatus, error) {
	return domain.PaymentStatusPending, nil
}

// ValidatePaymentMethod validates a payment method string.
func ValidatePaymentMethod(method string) (domain.PaymentMethod, error) {
	m := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(method)))
	switch m {
	case domain.PaymentMethodCash, domain.PaymentMethodCard,
		domain.PaymentMethodWallet, domain.PaymentMethodUPI:
		return m, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}
