package service

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := hashPassword("secret123", "pepper")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, checkPasswordHash("secret123", hash, "pepper"))
	assert.False(t, checkPasswordHash("wrong", hash, "pepper"))
	// Другой перец = другой пароль
	assert.False(t, checkPasswordHash("secret123", hash, "other-pepper"))
}

func TestHashPasswordWithoutPepper(t *testing.T) {
	hash, err := hashPassword("secret123", "")
	require.NoError(t, err)
	assert.True(t, checkPasswordHash("secret123", hash, ""))
	assert.False(t, checkPasswordHash("wrong", hash, ""))
}

func TestIsLegacyHash(t *testing.T) {
	sum := sha256.Sum256([]byte("secret123"))
	legacy := hex.EncodeToString(sum[:])

	assert.True(t, isLegacyHash(legacy))

	bcryptHash, err := hashPassword("secret123", "")
	require.NoError(t, err)
	assert.False(t, isLegacyHash(bcryptHash))

	assert.False(t, isLegacyHash(""))
	assert.False(t, isLegacyHash("не hex, но длина может совпасть с шестьюдесятью четырьмя - нет"))
}

func TestCheckLegacyHash(t *testing.T) {
	sum := sha256.Sum256([]byte("secret123"))
	legacy := hex.EncodeToString(sum[:])

	assert.True(t, checkLegacyHash("secret123", legacy))
	assert.False(t, checkLegacyHash("wrong", legacy))
}
