package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

var errMissingSubject = errors.New("token missing subject claim")

// clerkVerifier validates Clerk-issued JWTs using JWKS.
type clerkVerifier struct {
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
}

func newClerkVerifier(cfg Config) (Verifier, error) {
	if cfg.JWKSURL == "" {
		return nil, fmt.Errorf("clerk JWKS URL is required")
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		RefreshInterval:   10 * time.Minute,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(error) {
			// The next Verify call surfaces a usable error if keys stay stale.
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}

	return &clerkVerifier{jwks: jwks, audience: cfg.Audience, issuer: cfg.Issuer}, nil
}

func (v *clerkVerifier) Verify(_ context.Context, token string) (AuthenticatedUser, error) {
	options := []jwt.ParserOption{jwt.WithLeeway(5 * time.Second)}
	if v.audience != "" {
		options = append(options, jwt.WithAudience(v.audience))
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	t, err := jwt.Parse(token, v.jwks.Keyfunc, options...)
	if err != nil {
		return AuthenticatedUser{}, fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return AuthenticatedUser{}, errors.New("unexpected claims type")
	}

	user := userFromClaims(claims, token)
	if user.UserID == "" {
		return AuthenticatedUser{}, errMissingSubject
	}
	return user, nil
}

// userFromClaims maps the registered and profile claims shared by both JWT modes.
func userFromClaims(claims jwt.MapClaims, token string) AuthenticatedUser {
	subject, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	sessionID, _ := claims["sid"].(string)

	userID := subject
	if userID == "" {
		userID = email
	}

	expiresAt := int64(0)
	if expRaw, ok := claims["exp"].(float64); ok {
		expiresAt = int64(expRaw)
	}

	return AuthenticatedUser{
		UserID:    userID,
		SessionID: sessionID,
		Email:     email,
		Name:      name,
		Age:       ageClaim(claims["age"]),
		ExpiresAt: expiresAt,
		Token:     token,
	}
}

func ageClaim(raw any) *int {
	value, ok := raw.(float64)
	if !ok || value != value || value <= 0 || value > 130 {
		return nil
	}
	age := int(value)
	return &age
}
