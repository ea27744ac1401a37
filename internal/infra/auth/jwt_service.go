// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bidhub/config"
	"bidhub/internal/domain/entity"
	domainerrors "bidhub/internal/domain/errors"
	"bidhub/internal/domain/service"
	"bidhub/internal/errors"
)

// sessionKey is the signing material of one account kind.
type sessionKey struct {
	secret []byte
	ttl    time.Duration
}

// jwtService is a concrete implementation of the SessionTokenService interface using the JWT standard.
type jwtService struct {
	keys   map[entity.AccountKind]sessionKey
	issuer string
	clock  service.Clock
}

// sessionClaims are the claims carried by a session token.
type sessionClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// NewJWTService is the constructor for jwtService.
// Every session kind must have its own secret.
func NewJWTService(cfg *config.Config, clock service.Clock) (service.SessionTokenService, error) {
	kinds := map[entity.AccountKind]config.SessionKindConfig{
		entity.KindCompany: cfg.Session.Kinds.Company,
		entity.KindWorker:  cfg.Session.Kinds.Worker,
		entity.KindAdmin:   cfg.Session.Kinds.Admin,
	}

	keys := make(map[entity.AccountKind]sessionKey, len(kinds))
	for kind, kindCfg := range kinds {
		if kindCfg.Secret == "" {
			return nil, errors.Errorf("session secret for %s must be provided", kind)
		}
		ttl := kindCfg.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		keys[kind] = sessionKey{secret: []byte(kindCfg.Secret), ttl: ttl}
	}

	return &jwtService{
		keys:   keys,
		issuer: cfg.Session.Issuer,
		clock:  clock,
	}, nil
}

// Issue creates a signed session token for the account.
func (s *jwtService) Issue(accountID uuid.UUID, kind entity.AccountKind) (*entity.SessionToken, error) {
	key, ok := s.keys[kind]
	if !ok {
		return nil, errors.Wrapf(domainerrors.ErrInvalidAccountKind, "issue session for %q", kind)
	}

	now := s.clock.Now()
	expiresAt := now.Add(key.ttl)
	tokenID := uuid.NewString()

	claims := sessionClaims{
		Kind: kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   accountID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.secret)
	if err != nil {
		return nil, errors.Wrap(err, "sign session token")
	}

	return &entity.SessionToken{
		Token:     signed,
		ID:        tokenID,
		AccountID: accountID,
		Kind:      kind,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks the token against the expected kind's secret only.
func (s *jwtService) Verify(tokenString string, expectedKind entity.AccountKind) (*entity.SessionClaims, error) {
	key, ok := s.keys[expectedKind]
	if !ok {
		return nil, errors.Wrapf(domainerrors.ErrInvalidAccountKind, "verify session for %q", expectedKind)
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return key.secret, nil
	},
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Wrap(domainerrors.ErrSessionExpired, err.Error())
		}

		return nil, errors.Wrap(domainerrors.ErrSessionInvalid, err.Error())
	}

	if claims.Kind != expectedKind.String() {
		return nil, errors.Wrapf(domainerrors.ErrSessionInvalid, "token kind %q, want %q", claims.Kind, expectedKind)
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrSessionInvalid, "malformed subject")
	}

	return &entity.SessionClaims{
		TokenID:   claims.ID,
		AccountID: accountID,
		Kind:      expectedKind,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// TTL returns the session lifetime of the kind.
func (s *jwtService) TTL(kind entity.AccountKind) time.Duration {
	return s.keys[kind].ttl
}
