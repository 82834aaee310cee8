package domain

import "time"

// Receipt represents the fare breakdown of a completed ride.
type Receipt struct {
	ID            string        `json:"id"`
	RideID        string        `json:"ride_id"`
	RiderID       string        `json:"rider_id"`
	DriverID      string        `json:"driver_id"`
	DriverName    string        `json:"driver_name,omitempty"`
	Vehicle       string        `json:"vehicle,omitempty"`
	Pickup        string        `json:"pickup"`
	Destination   string        `json:"destination"`
	Category      RideCategory  `json:"category"`
	BaseFare      int64         `json:"base_fare"`
	Tax           int64         `json:"tax"`
	Discount      int64         `json:"discount"`
	PromoCodes    []string      `json:"promo_codes,omitempty"`
	Total         int64         `json:"total"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CompletedAt   time.Time     `json:"completed_at"`
	CreatedAt     time.Time     `json:"created_at"`
}
