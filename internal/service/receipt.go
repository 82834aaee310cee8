package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"olago/internal/domain"
)

// ReceiptService handles receipt generation.
type ReceiptService struct {
	now func() time.Time
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService() *ReceiptService {
	return &ReceiptService{now: time.Now}
}

// GenerateReceipt builds the fare breakdown of a completed ride.
// driver may be nil when it is no longer in the pool.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, ride *domain.Ride, driver *domain.Driver) (*domain.Receipt, error) {
	if ride == nil {
		return nil, ErrInvalidRideID
	}
	if ride.Status != domain.RideStatusCompleted {
		return nil, ErrInvalidState
	}

	receipt := &domain.Receipt{
		ID:            uuid.NewSHA1(uuid.NameSpaceOID, []byte("receipt:"+ride.ID)).String(),
		RideID:        ride.ID,
		RiderID:       ride.RiderID,
		DriverID:      ride.DriverID,
		Pickup:        ride.Pickup.Name,
		Destination:   ride.Destination.Name,
		Category:      ride.Category,
		BaseFare:      ride.BaseFare,
		Tax:           ride.Tax,
		Discount:      ride.Discount,
		PromoCodes:    append([]string(nil), ride.PromoCodes...),
		Total:         ride.Total,
		PaymentMethod: ride.PaymentMethod,
		PaymentStatus: ride.PaymentStatus,
		CompletedAt:   ride.CompletedAt,
		CreatedAt:     s.now(),
	}
	if driver != nil {
		receipt.DriverName = driver.Name
		receipt.Vehicle = driver.Vehicle
	}

	return receipt, nil
}

// FormatReceipt formats the receipt as plain text (for email/print).
func (s *ReceiptService) FormatReceipt(receipt *domain.Receipt) string {
	var b strings.Builder
	b.WriteString("=====================================\n")
	b.WriteString("            RIDE RECEIPT\n")
	b.WriteString("=====================================\n")
	fmt.Fprintf(&b, "Receipt ID: %s\n", receipt.ID)
	fmt.Fprintf(&b, "Ride ID:    %s\n", receipt.RideID)
	fmt.Fprintf(&b, "Date:       %s\n\n", receipt.CompletedAt.Format("Jan 02, 2006 3:04 PM"))

	b.WriteString("RIDE DETAILS\n")
	b.WriteString("-------------------------------------\n")
	fmt.Fprintf(&b, "Pickup:      %s\n", receipt.Pickup)
	fmt.Fprintf(&b, "Destination: %s\n", receipt.Destination)
	fmt.Fprintf(&b, "Category:    %s\n", receipt.Category)
	if receipt.DriverName != "" {
		fmt.Fprintf(&b, "Driver:      %s (%s)\n", receipt.DriverName, receipt.Vehicle)
	}

	b.WriteString("\nFARE BREAKDOWN\n")
	b.WriteString("-------------------------------------\n")
	fmt.Fprintf(&b, "Base Fare:   %d\n", receipt.BaseFare)
	fmt.Fprintf(&b, "Tax:         %d\n", receipt.Tax)
	if receipt.Discount > 0 {
		fmt.Fprintf(&b, "Discount:   -%d (%s)\n", receipt.Discount, strings.Join(receipt.PromoCodes, ", "))
	}
	b.WriteString("-------------------------------------\n")
	fmt.Fprintf(&b, "TOTAL:       %d\n\n", receipt.Total)

	b.WriteString("PAYMENT\n")
	b.WriteString("-------------------------------------\n")
	fmt.Fprintf(&b, "Method: %s\n", receipt.PaymentMethod)
	fmt.Fprintf(&b, "Status: %s\n", receipt.PaymentStatus)
	b.WriteString("=====================================\n")
	return b.String()
}
