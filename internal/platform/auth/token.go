package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Subject is the identity a token is minted for.
type Subject struct {
	UserID   string
	Name     string
	Roles    []string
	DoctorID string
}

// Issuer signs HS256 access tokens that JWTMiddleware accepts.
type Issuer struct {
	cfg JWTConfig
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(cfg JWTConfig, ttl time.Duration) (*Issuer, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("auth: signing key is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{cfg: cfg, ttl: ttl, now: time.Now}, nil
}

// Issue returns the signed token and its expiry.
func (i *Issuer) Issue(s Subject) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   s.UserID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Name:     s.Name,
		Roles:    s.Roles,
		DoctorID: s.DoctorID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}
