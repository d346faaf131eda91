package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	passwords := []string{"password123", "correct horse battery staple", "ünïcødé-pässwörd"}
	for _, password := range passwords {
		t.Run(password, func(t *testing.T) {
			digest, err := hasher.Hash(password)
			require.NoError(t, err)
			assert.NotEqual(t, password, digest)

			assert.True(t, hasher.Verify(password, digest))
			assert.False(t, hasher.Verify(password+"x", digest))
			assert.False(t, hasher.Verify("", digest))
		})
	}
}

func TestPasswordHasher_SaltsEachDigest(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	first, err := hasher.Hash("password123")
	require.NoError(t, err)
	second, err := hasher.Hash("password123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("password123", first))
	assert.True(t, hasher.Verify("password123", second))
}

func TestPasswordHasher_MalformedDigest(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)
	assert.False(t, hasher.Verify("password123", "not-a-bcrypt-digest"))
}

func TestNewPasswordHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(99).cost)
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(bcrypt.MinCost).cost)
}
