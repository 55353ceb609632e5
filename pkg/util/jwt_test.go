package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtTestSecret = "unit-test-signing-secret"

func issueTestPair(t *testing.T, userID uint, email, role string) *TokenPair {
	t.Helper()

	tokens, err := GenerateTokenPair(userID, email, role, jwtTestSecret, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	require.NotNil(t, tokens)
	return tokens
}

func TestGenerateTokenPair_ProducesDistinctTokens(t *testing.T) {
	for _, role := range []string{"user", "moderator", "admin"} {
		t.Run(role, func(t *testing.T) {
			tokens := issueTestPair(t, 7, "member@plannery.app", role)

			assert.NotEmpty(t, tokens.AccessToken)
			assert.NotEmpty(t, tokens.RefreshToken)
			assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)
		})
	}
}

func TestValidateToken(t *testing.T) {
	tokens := issueTestPair(t, 123, "member@plannery.app", "user")

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{name: "access token", token: tokens.AccessToken, secret: jwtTestSecret},
		{name: "refresh token", token: tokens.RefreshToken, secret: jwtTestSecret},
		{name: "wrong secret", token: tokens.AccessToken, secret: "another-secret", wantErr: ErrInvalidToken},
		{name: "garbage token", token: "not.a.jwt", secret: jwtTestSecret, wantErr: ErrInvalidToken},
		{name: "empty token", token: "", secret: jwtTestSecret, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, claims)
			assert.Equal(t, uint(123), claims.UserID)
			assert.Equal(t, "member@plannery.app", claims.Email)
			assert.Equal(t, "user", claims.Role)
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	tokens, err := GenerateTokenPair(1, "member@plannery.app", "user", jwtTestSecret, time.Nanosecond, time.Nanosecond)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	claims, err := ValidateToken(tokens.AccessToken, jwtTestSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestValidateToken_CarriesClaims(t *testing.T) {
	tokens := issueTestPair(t, 42, "mod@plannery.app", "moderator")

	claims, err := ValidateToken(tokens.AccessToken, jwtTestSecret)
	require.NoError(t, err)
	require.NotNil(t, claims)

	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "mod@plannery.app", claims.Email)
	assert.Equal(t, "moderator", claims.Role)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, claims.IssuedAt.Before(claims.ExpiresAt.Time))
}
