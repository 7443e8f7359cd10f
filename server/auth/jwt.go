package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier validates HMAC-signed bearer tokens and maps the subject
// claim to the caller identity.
type JWTVerifier struct {
	Secret   []byte
	Issuer   string
	Audience string
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil {
		return "", &Error{
			Type:    ErrInvalidToken,
			Message: "token verification failed",
			Err:     err,
		}
	}
	if claims.Subject == "" {
		return "", &Error{
			Type:    ErrInvalidToken,
			Message: "token has no subject",
		}
	}
	return claims.Subject, nil
}
