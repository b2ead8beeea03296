package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/permission"
)

const testSecret = "test-secret-key-for-jwt-signing-32b"

func TestGenerateAndParse(t *testing.T) {
	v := NewVerifier(testSecret, "idp", "propertyd")

	token, err := v.GenerateToken("alice", []string{"operators"}, time.Minute)
	require.NoError(t, err)

	claims, err := v.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, []string{"operators"}, claims.Groups)
	assert.NotEmpty(t, claims.ID)

	user := claims.User()
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.InGroup("operators"))
	assert.True(t, user.InGroup(permission.GroupEveryone))
}

func TestParseRejects(t *testing.T) {
	v := NewVerifier(testSecret, "idp", "propertyd")
	good, err := v.GenerateToken("alice", nil, time.Minute)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "idp",
		Audience:  jwt.ClaimStrings{"propertyd"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer: "idp", Audience: jwt.ClaimStrings{"propertyd"},
	}}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name     string
		verifier *Verifier
		token    string
		want     error
	}{
		{"wrong secret", NewVerifier("another-secret-key-for-jwt-signing", "idp", "propertyd"), good, ErrTokenInvalid},
		{"wrong issuer", NewVerifier(testSecret, "other", "propertyd"), good, ErrTokenInvalid},
		{"wrong audience", NewVerifier(testSecret, "idp", "other"), good, ErrTokenInvalid},
		{"expired", v, expired, ErrTokenExpired},
		{"missing subject", v, noSubject, ErrTokenInvalid},
		{"garbage", v, "not.a.token", ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.Parse(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = NewVerifier(testSecret, "", "").Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestUserContext(t *testing.T) {
	assert.Nil(t, UserFromContext(context.Background()))
	u := permission.NewUser("bob", "admin")
	assert.Same(t, u, UserFromContext(WithUser(context.Background(), u)))
}
