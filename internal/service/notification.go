package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"olago/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationDriverAssigned   NotificationType = "DRIVER_ASSIGNED"
	NotificationPromoApplied     NotificationType = "PROMO_APPLIED"
	NotificationPaymentConfirmed NotificationType = "PAYMENT_CONFIRMED"
	NotificationRideCompleted    NotificationType = "RIDE_COMPLETED"
	NotificationRideCancelled    NotificationType = "RIDE_CANCELLED"
	NotificationWalletUpdated    NotificationType = "WALLET_UPDATED"
)

// Notification represents a notification to be sent.
type Notification struct {
	ID          string
	Type        NotificationType
	RecipientID string // rider or driver id
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService emits ride lifecycle events. Delivery is a structured
// log record; a nil service or a nil logger drops everything.
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(logger *zap.Logger) *NotificationService {
	return &NotificationService{logger: logger}
}

// NotifyDriverAssigned notifies the rider that a driver has been assigned.
func (s *NotificationService) NotifyDriverAssigned(ctx context.Context, ride *domain.Ride, driver *domain.Driver) error {
	name := ride.DriverID
	vehicle := ""
	if driver != nil {
		name = driver.Name
		vehicle = driver.Vehicle
	}
	return s.send(ctx, Notification{
		Type:        NotificationDriverAssigned,
		RecipientID: ride.RiderID,
		Title:       "Driver Assigned",
		Message:     fmt.Sprintf("%s is on the way in a %s", name, vehicle),
		Data: map[string]interface{}{
			"ride_id":   ride.ID,
			"driver_id": ride.DriverID,
			"total":     ride.Total,
		},
	})
}

// NotifyPromoApplied notifies the rider of a redeemed promo code.
func (s *NotificationService) NotifyPromoApplied(ctx context.Context, ride *domain.Ride, code string) error {
	return s.send(ctx, Notification{
		Type:        NotificationPromoApplied,
		RecipientID: ride.RiderID,
		Title:       "Promo Applied",
		Message:     fmt.Sprintf("Code %s applied, new total %d", code, ride.Total),
		Data: map[string]interface{}{
			"ride_id":  ride.ID,
			"code":     code,
			"discount": ride.Discount,
			"total":    ride.Total,
		},
	})
}

// NotifyPaymentConfirmed notifies the rider and driver that the ride is confirmed.
func (s *NotificationService) NotifyPaymentConfirmed(ctx context.Context, ride *domain.Ride, balance int64) error {
	data := map[string]interface{}{
		"ride_id":        ride.ID,
		"method":         ride.PaymentMethod,
		"payment_status": ride.PaymentStatus,
		"total":          ride.Total,
	}
	if err := s.send(ctx, Notification{
		Type:        NotificationPaymentConfirmed,
		RecipientID: ride.RiderID,
		Title:       "Ride Confirmed",
		Message:     fmt.Sprintf("Payment %s via %s, wallet balance %d", ride.PaymentStatus, ride.PaymentMethod, balance),
		Data:        data,
	}); err != nil {
		return err
	}
	if ride.DriverID == "" {
		return nil
	}
	return s.send(ctx, Notification{
		Type:        NotificationPaymentConfirmed,
		RecipientID: ride.DriverID,
		Title:       "Ride Confirmed",
		Message:     fmt.Sprintf("Pickup at %s", ride.Pickup.Name),
		Data:        data,
	})
}

// NotifyRideCompleted notifies the rider that the ride has ended.
func (s *NotificationService) NotifyRideCompleted(ctx context.Context, ride *domain.Ride) error {
	return s.send(ctx, Notification{
		Type:        NotificationRideCompleted,
		RecipientID: ride.RiderID,
		Title:       "Ride Completed",
		Message:     fmt.Sprintf("You have arrived at %s. Total fare: %d", ride.Destination.Name, ride.Total),
		Data: map[string]interface{}{
			"ride_id":      ride.ID,
			"total":        ride.Total,
			"completed_at": ride.CompletedAt,
		},
	})
}

// NotifyRideCancelled notifies the assigned driver about a cancellation.
func (s *NotificationService) NotifyRideCancelled(ctx context.Context, ride *domain.Ride) error {
	if ride.DriverID == "" {
		return nil // no one to notify
	}
	return s.send(ctx, Notification{
		Type:        NotificationRideCancelled,
		RecipientID: ride.DriverID,
		Title:       "Ride Cancelled",
		Message:     "The rider has cancelled the ride",
		Data: map[string]interface{}{
			"ride_id": ride.ID,
			"reason":  ride.CancelReason,
		},
	})
}

// NotifyWalletUpdated notifies the rider of a top-up or donation.
func (s *NotificationService) NotifyWalletUpdated(ctx context.Context, riderID string, txType domain.TransactionType, amount, balance int64) error {
	return s.send(ctx, Notification{
		Type:        NotificationWalletUpdated,
		RecipientID: riderID,
		Title:       "Wallet Updated",
		Message:     fmt.Sprintf("%s of %d, balance %d", txType, amount, balance),
		Data: map[string]interface{}{
			"type":    txType,
			"amount":  amount,
			"balance": balance,
		},
	})
}

func (s *NotificationService) send(ctx context.Context, n Notification) error {
	if s == nil || s.logger == nil {
		return nil
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	s.logger.Info("notification",
		zap.String("id", n.ID),
		zap.String("type", string(n.Type)),
		zap.String("recipient", n.RecipientID),
		zap.String("title", n.Title),
		zap.String("message", n.Message),
		zap.Any("data", n.Data),
		zap.Time("created_at", n.CreatedAt),
	)
	return nil
}
