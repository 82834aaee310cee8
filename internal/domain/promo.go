package domain

import "time"

// PromoCode is a discount token redeemable once per rider.
type PromoCode struct {
	Code       string               `json:"code"`
	Discount   int64                `json:"discount"`
	RedeemedBy map[string]time.Time `json:"redeemed_by"`
}
