// README: HS256 access-token verifier for identity providers that sign with a shared secret (e.g. Supabase).
package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type userMetadata struct {
	FullName string `json:"full_name"`
	Name     string `json:"name"`
}

type accessClaims struct {
	Email        string       `json:"email"`
	UserMetadata userMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

type jwtVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier verifies HS256 tokens signed with secret. A non-empty issuer is enforced.
func NewJWTVerifier(secret, issuer string) (TokenVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt verifier: empty secret")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &jwtVerifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}, nil
}

func (v *jwtVerifier) VerifyIDToken(_ context.Context, idToken string) (*Identity, error) {
	var claims accessClaims
	_, err := v.parser.ParseWithClaims(idToken, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	name := claims.UserMetadata.FullName
	if name == "" {
		name = claims.UserMetadata.Name
	}
	return &Identity{UID: claims.Subject, Email: claims.Email, Name: name}, nil
}
