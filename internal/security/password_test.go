package security_test

import (
	"internship-auth/internal/security"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := security.HashPassword("P@ssw0rd123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 12, cost)

	assert.True(t, security.CheckPassword("P@ssw0rd123", hash))
	assert.False(t, security.CheckPassword("wrong", hash))
	assert.False(t, security.CheckPassword("P@ssw0rd123", "not-a-hash"))
}
