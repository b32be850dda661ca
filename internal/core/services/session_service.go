package services

import (
	"errors"
	"time"

	"dataplug/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// SessionService resolves bearer session tokens issued by the account
// provider into identities.
type SessionService interface {
	IssueToken(identity domain.Identity) (string, error)
	ResolveToken(tokenString string) (*domain.Identity, error)
}

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type sessionService struct {
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewSessionService(jwtSecret string, ttl time.Duration) SessionService {
	return &sessionService{
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *sessionService) IssueToken(identity domain.Identity) (string, error) {
	now := s.now()
	claims := &Claims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(identity.AccountID),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *sessionService) ResolveToken(tokenString string) (*domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &domain.Identity{
		AccountID: domain.AccountID(claims.Subject),
		Email:     claims.Email,
	}, nil
}
