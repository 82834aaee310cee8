package service

import (
	"sort"
	"strings"
	"sync"
	"time"

	"olago/internal/domain"
)

// PromoService owns promo codes and their redemption sets.
type PromoService struct {
	mu     sync.Mutex
	promos map[string]*domain.PromoCode
	now    func() time.Time
}

// NewPromoService creates an empty PromoService.
func NewPromoService() *PromoService {
	return &PromoService{
		promos: make(map[string]*domain.PromoCode),
		now:    time.Now,
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Add registers a promo code, replacing any code with the same name.
func (s *PromoService) Add(promo *domain.PromoCode) {
	if promo == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := clonePromo(promo)
	c.Code = normalizeCode(c.Code)
	s.promos[c.Code] = c
}

// Get returns a copy of the promo code.
func (s *PromoService) Get(code string) (*domain.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promos[normalizeCode(code)]
	if !ok {
		return nil, ErrPromoNotFound
	}
	return clonePromo(p), nil
}

// Apply redeems code for riderID against currentTotal.
// The discount is capped at currentTotal so the result never goes negative.
// Redemption is permanent once Apply succeeds.
func (s *PromoService) Apply(riderID, code string, currentTotal int64) (newTotal, discount int64, err error) {
	if riderID == "" {
		return 0, 0, ErrInvalidRiderID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promos[normalizeCode(code)]
	if !ok {
		return 0, 0, ErrPromoNotFound
	}
	if _, used := p.RedeemedBy[riderID]; used {
		return 0, 0, ErrPromoAlreadyUsed
	}

	if currentTotal < 0 {
		currentTotal = 0
	}
	discount = p.Discount
	if discount > currentTotal {
		discount = currentTotal
	}
	if discount < 0 {
		discount = 0
	}

	if p.RedeemedBy == nil {
		p.RedeemedBy = make(map[string]time.Time)
	}
	p.RedeemedBy[riderID] = s.now()

	return currentTotal - discount, discount, nil
}

// RedeemedBy lists the codes riderID has redeemed, sorted.
func (s *PromoService) RedeemedBy(riderID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var codes []string
	for code, p := range s.promos {
		if _, ok := p.RedeemedBy[riderID]; ok {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// List returns copies of all promo codes ordered by code.
func (s *PromoService) List() []*domain.PromoCode {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.PromoCode, 0, len(s.promos))
	for _, p := range s.promos {
		result = append(result, clonePromo(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result
}

func clonePromo(p *domain.PromoCode) *domain.PromoCode {
	c := *p
	c.RedeemedBy = make(map[string]time.Time, len(p.RedeemedBy))
	for k, v := range p.RedeemedBy {
		c.RedeemedBy[k] = v
	}
	return &c
}
