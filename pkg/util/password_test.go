package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$2a$"), "expected a bcrypt hash, got %q", hash)
	assert.NotEqual(t, "correct horse battery staple", hash)
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	first, err := HashPassword("same-password")
	require.NoError(t, err)

	second, err := HashPassword("same-password")
	require.NoError(t, err)

	// bcrypt salts each hash; both still verify.
	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword(first, "same-password"))
	assert.True(t, VerifyPassword(second, "same-password"))
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-value")
	require.NoError(t, err)

	tests := []struct {
		name     string
		hash     string
		password string
		want     bool
	}{
		{name: "matching password", hash: hash, password: "s3cret-value", want: true},
		{name: "wrong password", hash: hash, password: "s3cret-valu3", want: false},
		{name: "empty password", hash: hash, password: "", want: false},
		{name: "malformed hash", hash: "not-a-bcrypt-hash", password: "s3cret-value", want: false},
		{name: "empty hash", hash: "", password: "s3cret-value", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyPassword(tt.hash, tt.password))
		})
	}
}
