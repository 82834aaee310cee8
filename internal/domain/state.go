package domain

import "time"

// State is the full snapshot handed to the persistence store.
type State struct {
	Riders  []*Rider     `json:"riders"`
	Drivers []*Driver    `json:"drivers"`
	Rides   []*Ride      `json:"rides"`
	Promos  []*PromoCode `json:"promos"`
	SavedAt time.Time    `json:"saved_at"`
}
