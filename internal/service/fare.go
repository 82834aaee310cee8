package service

import (
	"strings"

	"olago/internal/domain"
)

// fareRate is the fixed base fare and tax of a ride category.
type fareRate struct {
	BaseFare int64
	Tax      int64
}

var fareRates = map[domain.RideCategory]fareRate{
	domain.RideCategoryStandard:   {BaseFare: 70, Tax: 30},
	domain.RideCategoryRental:     {BaseFare: 250, Tax: 45},
	domain.RideCategoryOutstation: {BaseFare: 600, Tax: 108},
}

// NormalizeCategory maps free-form input to a known category.
// Unknown or empty input falls back to STANDARD.
func NormalizeCategory(category string) domain.RideCategory {
	c := domain.RideCategory(strings.ToUpper(strings.TrimSpace(category)))
	if _, ok := fareRates[c]; ok {
		return c
	}
	return domain.RideCategoryStandard
}

// ComputeFare returns the base fare and tax for a category.
func ComputeFare(category domain.RideCategory) (baseFare, tax int64) {
	rate, ok := fareRates[category]
	if !ok {
		rate = fareRates[domain.RideCategoryStandard]
	}
	return rate.BaseFare, rate.Tax
}
