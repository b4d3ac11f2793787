package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tracknest/tracknest/internal/apperror"
)

// accessClaims is the payload of a signed access token. The token is
// stateless: verification checks signature and expiry only, no store
// round-trip.
type accessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// Issuer mints and verifies the two session credentials: short-lived
// signed access tokens and long-lived opaque refresh tokens. It owns the
// revocation policy against the refresh-token store.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshTokenRepository
}

// NewIssuer creates an issuer signing with the given secret.
func NewIssuer(secret []byte, accessTTL, refreshTTL time.Duration, store RefreshTokenRepository) *Issuer {
	return &Issuer{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
	}
}

// IssueSession mints a fresh access/refresh pair for the user and
// persists the refresh token (hashed) with its expiry. Called on login
// and registration.
func (i *Issuer) IssueSession(ctx context.Context, userID string) (*SessionCredentials, error) {
	access, accessExp, err := i.IssueAccessToken(userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("issuing access token: %w", err))
	}

	refresh, err := newOpaqueToken()
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("generating refresh token: %w", err))
	}
	refreshExp := time.Now().Add(i.refreshTTL)

	row := &RefreshToken{
		UserID:    userID,
		TokenHash: HashToken(refresh),
		ExpiresAt: refreshExp,
	}
	if err := i.store.Create(ctx, row); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("storing refresh token: %w", err))
	}

	return &SessionCredentials{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccessToken mints a signed stateless access token embedding the
// user id with the configured validity window.
func (i *Issuer) IssueAccessToken(userID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(i.accessTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: userID,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccessToken checks signature and expiry and returns the embedded
// user id. No store lookup happens here.
func (i *Issuer) VerifyAccessToken(raw string) (string, error) {
	claims := &accessClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with a different algorithm.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperror.NewInvalidOrExpired("access token expired")
		}
		return "", apperror.NewInvalidOrExpired("invalid access token")
	}
	if !token.Valid || claims.UserID == "" {
		return "", apperror.NewInvalidOrExpired("invalid access token")
	}

	return claims.UserID, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is NOT rotated: it stays valid until its own
// expiry or explicit logout. A stolen refresh token therefore replays
// until then — accepted tradeoff for multi-tab and flaky-network clients,
// kept deliberately simple.
func (i *Issuer) Refresh(ctx context.Context, raw string) (string, time.Time, error) {
	row, err := i.store.FindByHash(ctx, HashToken(raw))
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return "", time.Time{}, apperror.NewRefreshRejected()
		}
		return "", time.Time{}, apperror.NewInternal(fmt.Errorf("looking up refresh token: %w", err))
	}
	if row.IsExpired() {
		return "", time.Time{}, apperror.NewRefreshRejected()
	}

	access, exp, err := i.IssueAccessToken(row.UserID)
	if err != nil {
		return "", time.Time{}, apperror.NewInternal(fmt.Errorf("issuing access token: %w", err))
	}
	return access, exp, nil
}

// Revoke deletes the refresh token row. Idempotent: revoking an unknown
// token is not an error.
func (i *Issuer) Revoke(ctx context.Context, raw string) error {
	if err := i.store.DeleteByHash(ctx, HashToken(raw)); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting refresh token: %w", err))
	}
	return nil
}

// RevokeAllForUser deletes every refresh token of the user, ending all
// sessions. Used after a password change.
func (i *Issuer) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := i.store.DeleteForUser(ctx, userID); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting refresh tokens: %w", err))
	}
	return nil
}
