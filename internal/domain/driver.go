package domain

// Driver represents a driver in the pool.
type Driver struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  *Location `json:"location,omitempty"`
	Available bool      `json:"available"`
	Vehicle   string    `json:"vehicle"`
	Rating    float64   `json:"rating"`
}
