package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredential is returned for missing, malformed, expired or
// wrongly signed credentials.
var ErrInvalidCredential = errors.New("invalid credential")

// Resolver turns an opaque credential into a rider id.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (string, error)
}

// Claims represents the JWT claims issued to riders.
type Claims struct {
	RiderID string `json:"rider_id"`
	jwt.RegisteredClaims
}

// JWTProvider issues and verifies HS256 bearer tokens.
type JWTProvider struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTProvider creates a new JWTProvider.
func NewJWTProvider(secret string, ttl time.Duration, issuer string) *JWTProvider {
	return &JWTProvider{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
}

var _ Resolver = (*JWTProvider)(nil)

// Issue creates a signed token for riderID.
func (p *JWTProvider) Issue(riderID string) (string, error) {
	if riderID == "" {
		return "", fmt.Errorf("issue token: empty rider id")
	}

	now := p.now()
	claims := &Claims{
		RiderID: riderID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   riderID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    p.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Resolve verifies the token and returns its rider id.
func (p *JWTProvider) Resolve(ctx context.Context, credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", ErrInvalidCredential
	}

	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.RiderID == "" {
		return "", ErrInvalidCredential
	}
	return claims.RiderID, nil
}
