package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/victornm/examiner/internal/auth"
	"github.com/victornm/examiner/internal/errors"
)

func TestVerifier(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	v := auth.NewVerifier(auth.Config{Secret: "s3cret", TTL: time.Hour, Now: clock})

	tests := map[string]struct {
		arrange func(t *testing.T) string
		assert  func(t *testing.T, id *auth.Identity, err error)
	}{
		"should accept a token it issued": {
			arrange: func(t *testing.T) string {
				tok, err := v.Issue(auth.Identity{Subject: "s1", Role: auth.RoleStudent})
				require.NoError(t, err)
				return tok
			},
			assert: func(t *testing.T, id *auth.Identity, err error) {
				require.NoError(t, err)
				require.Equal(t, &auth.Identity{Subject: "s1", Role: auth.RoleStudent}, id)
			},
		},

		"should reject an expired token": {
			arrange: func(t *testing.T) string {
				old := auth.NewVerifier(auth.Config{Secret: "s3cret", TTL: time.Minute, Now: func() time.Time { return now.Add(-time.Hour) }})
				tok, err := old.Issue(auth.Identity{Subject: "s1", Role: auth.RoleStudent})
				require.NoError(t, err)
				return tok
			},
			assert: func(t *testing.T, _ *auth.Identity, err error) {
				require.True(t, errors.Is(err, errors.CodeUnauthenticated), "got %v", err)
			},
		},

		"should reject a token signed with another secret": {
			arrange: func(t *testing.T) string {
				other := auth.NewVerifier(auth.Config{Secret: "other", Now: clock})
				tok, err := other.Issue(auth.Identity{Subject: "s1", Role: auth.RoleTeacher})
				require.NoError(t, err)
				return tok
			},
			assert: func(t *testing.T, _ *auth.Identity, err error) {
				require.True(t, errors.Is(err, errors.CodeUnauthenticated), "got %v", err)
			},
		},

		"should reject an unsigned token": {
			arrange: func(t *testing.T) string {
				tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
					"sub":  "s1",
					"role": "admin",
					"iss":  "examiner",
					"exp":  now.Add(time.Hour).Unix(),
				}).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return tok
			},
			assert: func(t *testing.T, _ *auth.Identity, err error) {
				require.True(t, errors.Is(err, errors.CodeUnauthenticated), "got %v", err)
			},
		},

		"should reject an unknown role": {
			arrange: func(t *testing.T) string {
				tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"sub":  "s1",
					"role": "root",
					"iss":  "examiner",
					"exp":  now.Add(time.Hour).Unix(),
				}).SignedString([]byte("s3cret"))
				require.NoError(t, err)
				return tok
			},
			assert: func(t *testing.T, _ *auth.Identity, err error) {
				require.True(t, errors.Is(err, errors.CodeUnauthenticated), "got %v", err)
			},
		},

		"should reject garbage": {
			arrange: func(*testing.T) string { return "not.a.token" },
			assert: func(t *testing.T, _ *auth.Identity, err error) {
				require.True(t, errors.Is(err, errors.CodeUnauthenticated), "got %v", err)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			id, err := v.Verify(tt.arrange(t))
			tt.assert(t, id, err)
		})
	}
}

func TestVerifier_IssueRejectsInvalidIdentity(t *testing.T) {
	v := auth.NewVerifier(auth.Config{Secret: "s3cret"})

	_, err := v.Issue(auth.Identity{Role: auth.RoleStudent})
	require.True(t, errors.Is(err, errors.CodeInvalidArgument), "got %v", err)

	_, err = v.Issue(auth.Identity{Subject: "s1", Role: "root"})
	require.True(t, errors.Is(err, errors.CodeInvalidArgument), "got %v", err)
}

func TestContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	require.False(t, ok)

	ctx := auth.WithIdentity(context.Background(), &auth.Identity{Subject: "s1", Role: auth.RoleAdmin})
	id, ok := auth.FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "s1", id.Subject)
	require.True(t, id.Role.Staff())
}
