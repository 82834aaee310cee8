package service

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"olago/internal/domain"
)

// MatchStrategy decides which available driver is picked for a ride.
type MatchStrategy string

const (
	// MatchNearest picks the closest available driver to the pickup,
	// falling back to first-available when the pickup has no location.
	MatchNearest MatchStrategy = "nearest"

	// MatchFirstAvailable ignores location and picks the lowest driver id.
	MatchFirstAvailable MatchStrategy = "first"

	// MatchRandom picks uniformly among available drivers.
	MatchRandom MatchStrategy = "random"
)

// ParseMatchStrategy validates a strategy name. Empty means MatchNearest.
func ParseMatchStrategy(s string) (MatchStrategy, error) {
	switch MatchStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchNearest:
		return MatchNearest, nil
	case MatchFirstAvailable:
		return MatchFirstAvailable, nil
	case MatchRandom:
		return MatchRandom, nil
	default:
		return "", fmt.Errorf("unknown match strategy %q", s)
	}
}

// DriverPool tracks driver availability and hands out drivers for new rides.
// A single mutex covers the whole pool so select-and-flip is atomic.
type DriverPool struct {
	mu       sync.Mutex
	drivers  map[string]*domain.Driver
	strategy MatchStrategy
	rng      *rand.Rand
}

// NewDriverPool creates an empty pool using the given strategy.
func NewDriverPool(strategy MatchStrategy) *DriverPool {
	if strategy == "" {
		strategy = MatchNearest
	}
	return &DriverPool{
		drivers:  make(map[string]*domain.Driver),
		strategy: strategy,
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}
}

// Add registers a driver. The driver's Available flag is kept as given.
func (p *DriverPool) Add(driver *domain.Driver) error {
	if driver == nil || driver.ID == "" {
		return ErrDriverNotFound
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.drivers[driver.ID]; exists {
		return ErrDuplicateDriver
	}
	p.drivers[driver.ID] = cloneDriver(driver)
	return nil
}

// Select picks a driver for a pickup and marks it unavailable in the same step.
func (p *DriverPool) Select(pickup *domain.Location) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := make([]*domain.Driver, 0, len(p.drivers))
	for _, d := range p.drivers {
		if d.Available {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return "", ErrNoDriverAvailable
	}

	// Deterministic base order; every strategy breaks ties by lowest id.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	var chosen *domain.Driver
	switch {
	case p.strategy == MatchRandom:
		chosen = candidates[p.rng.Intn(len(candidates))]
	case p.strategy == MatchNearest && pickup != nil:
		chosen = nearestDriver(candidates, *pickup)
	default:
		chosen = candidates[0]
	}

	chosen.Available = false
	return chosen.ID, nil
}

// nearestDriver expects candidates sorted by id so the first minimum wins ties.
func nearestDriver(candidates []*domain.Driver, pickup domain.Location) *domain.Driver {
	var best *domain.Driver
	bestDist := 0.0
	for _, d := range candidates {
		if d.Location == nil {
			continue
		}
		dist := d.Location.DistanceTo(pickup)
		if best == nil || dist < bestDist {
			best = d
			bestDist = dist
		}
	}
	if best == nil {
		// No candidate has a known position.
		return candidates[0]
	}
	return best
}

// Release marks a driver available again.
func (p *DriverPool) Release(driverID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, ok := p.drivers[driverID]
	if !ok {
		return ErrDriverNotFound
	}
	d.Available = true
	return nil
}

// Get returns a copy of a driver.
func (p *DriverPool) Get(driverID string) (*domain.Driver, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, ok := p.drivers[driverID]
	if !ok {
		return nil, ErrDriverNotFound
	}
	return cloneDriver(d), nil
}

// List returns copies of all drivers ordered by id.
func (p *DriverPool) List() []*domain.Driver {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]*domain.Driver, 0, len(p.drivers))
	for _, d := range p.drivers {
		result = append(result, cloneDriver(d))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func cloneDriver(d *domain.Driver) *domain.Driver {
	c := *d
	if d.Location != nil {
		loc := *d.Location
		c.Location = &loc
	}
	return &c
}
