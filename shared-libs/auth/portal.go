package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errMissingIdentity = errors.New("token missing email or subject claim")

// portalVerifier validates the HS256 tokens issued by the portal auth blueprint.
// Those tokens carry email, name and age claims instead of a Clerk subject.
type portalVerifier struct {
	secret []byte
}

func newPortalVerifier(cfg Config) (Verifier, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("portal auth requires SECRET_KEY")
	}
	return &portalVerifier{secret: []byte(cfg.Secret)}, nil
}

func (v *portalVerifier) Verify(_ context.Context, token string) (AuthenticatedUser, error) {
	t, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(5*time.Second))
	if err != nil {
		return AuthenticatedUser{}, fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return AuthenticatedUser{}, errors.New("unexpected claims type")
	}

	user := userFromClaims(claims, token)
	if user.UserID == "" {
		return AuthenticatedUser{}, errMissingIdentity
	}
	return user, nil
}
