package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/CHris23132/Movienta-app/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 60 * time.Minute

// ErrInvalidToken covers every verification failure: bad signature, wrong
// algorithm, expiry, malformed claims.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload: subject is the account id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies the HS256 tokens that guard owner endpoints.
// The signing secret is shared with the companion frontend.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(cfg models.AuthConfig) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	ttl := defaultTokenTTL
	if cfg.TokenTTLMins > 0 {
		ttl = time.Duration(cfg.TokenTTLMins) * time.Minute
	}

	return &Service{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// IssueToken mints a token for the given account.
func (s *Service) IssueToken(accountID, email string) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("account id is required")
	}

	now := s.now().UTC()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a token, returning its claims.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time {
		return s.now()
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
