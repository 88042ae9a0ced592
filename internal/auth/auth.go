// Package auth resolves the caller of a request from a bearer token.
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/victornm/examiner/internal/errors"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func (r Role) valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	default:
		return false
	}
}

// Staff reports whether the role may see unpublished exams.
func (r Role) Staff() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// Identity is the authenticated caller.
type Identity struct {
	Subject string
	Role    Role
}

const (
	issuer     = "examiner"
	defaultTTL = 8 * time.Hour
)

type claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

// Verifier issues and verifies HS256 tokens.
type Verifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewVerifier(c Config) *Verifier {
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	return &Verifier{
		secret: []byte(c.Secret),
		ttl:    c.TTL,
		now:    c.Now,
	}
}

// Issue signs a token for the identity.
func (v *Verifier) Issue(id Identity) (string, error) {
	if id.Subject == "" || !id.Role.valid() {
		return "", errors.InvalidArgument("invalid identity: subject=%q role=%q", id.Subject, id.Role)
	}

	now := v.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	})

	return t.SignedString(v.secret)
}

// Verify parses a token and returns the identity it carries.
func (v *Verifier) Verify(token string) (*Identity, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("invalid token"), errors.WithCause(err))
	}

	if c.Subject == "" || !c.Role.valid() {
		return nil, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("invalid token claims"))
	}

	return &Identity{Subject: c.Subject, Role: c.Role}, nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok && id != nil
}
