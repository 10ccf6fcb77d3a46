// README: Caller identity and the verifier abstraction shared by the auth providers.
package infra

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidToken is returned for tokens that fail verification or carry no subject.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the verified caller.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// DisplayName is the caller's name, falling back to the email address.
func (i Identity) DisplayName() string {
	if strings.TrimSpace(i.Name) != "" {
		return i.Name
	}
	return i.Email
}

// TokenVerifier verifies a raw bearer token and returns the caller identity.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Identity, error)
}

func stringClaim(claims map[string]any, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
