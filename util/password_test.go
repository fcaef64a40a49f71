package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashAndVerifyPassword(t *testing.T) {
	salt, err := GenerateSalt()
	assert.NoError(t, err)
	assert.NotEmpty(t, salt)

	hash, err := HashPasswordArgon2("correct horse battery staple", salt)
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	match, err := VerifyPassword("correct horse battery staple", hash, salt)
	assert.NoError(t, err)
	assert.True(t, match)
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	salt, err := GenerateSalt()
	assert.NoError(t, err)
	hash, err := HashPasswordArgon2("right-password", salt)
	assert.NoError(t, err)

	match, err := VerifyPassword("wrong-password", hash, salt)
	assert.NoError(t, err)
	assert.False(t, match)
}

func TestVerifyPassword_DifferentSaltsDiffer(t *testing.T) {
	salt1, _ := GenerateSalt()
	salt2, _ := GenerateSalt()
	assert.NotEqual(t, salt1, salt2)

	hash1, err := HashPasswordArgon2("same-password", salt1)
	assert.NoError(t, err)
	hash2, err := HashPasswordArgon2("same-password", salt2)
	assert.NoError(t, err)
	assert.NotEqual(t, hash1, hash2)
}

func TestVerifyPassword_EmptyStoredHash(t *testing.T) {
	// Accounts provisioned by an external identity provider carry no local
	// password; they must never verify.
	match, err := VerifyPassword("anything", "", "")
	assert.NoError(t, err)
	assert.False(t, match)
}

func TestGenerateSalt_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		salt, err := GenerateSalt()
		assert.NoError(t, err)
		assert.False(t, seen[salt], "duplicate salt generated")
		seen[salt] = true
	}
}
