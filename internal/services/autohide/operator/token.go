package operator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/autohidehost/internal/platform/errors"
	"github.com/louisbranch/autohidehost/internal/services/autohide/commands"
)

// RoleHost grants placement commands. Every other role is an observer.
const RoleHost = "host"

const minSecretBytes = 16

// Claims are the verified fields of an operator token.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// Caller converts the claims into a command caller.
func (c Claims) Caller() commands.Caller {
	return commands.Caller{Name: c.Subject, Privileged: c.Role == RoleHost}
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Verifier checks HS256 operator tokens.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier returns a verifier for tokens signed with secret. An empty
// issuer accepts any issuer.
func NewVerifier(secret, issuer string, now func() time.Time) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("operator token secret must be at least %d bytes", minSecretBytes)
	}
	if now == nil {
		now = time.Now
	}
	return &Verifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer), now: now}, nil
}

// Verify parses and validates a raw token.
func (v *Verifier) Verify(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, apperrors.New(apperrors.CodeOperatorTokenInvalid, "operator token is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, apperrors.New(apperrors.CodeOperatorTokenInvalid, "operator token sub is required")
	}
	return Claims{
		Subject:   parsed.Subject,
		Role:      strings.TrimSpace(parsed.Role),
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}, nil
}

// Issue signs a token for subject with role, valid for ttl.
func (v *Verifier) Issue(subject, role string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("subject is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}
	now := v.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.New(apperrors.CodeOperatorTokenExpired, "operator token is expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.New(apperrors.CodeOperatorTokenInvalid, "operator token signature is invalid")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.New(apperrors.CodeOperatorTokenInvalid, "operator token alg is invalid")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return apperrors.New(apperrors.CodeOperatorTokenInvalid, "operator token issuer mismatch")
	default:
		return apperrors.Wrap(apperrors.CodeOperatorTokenInvalid, "operator token is invalid", err)
	}
}
