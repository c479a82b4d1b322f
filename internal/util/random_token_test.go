package util

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	first, err := GenerateOpaqueToken()
	require.NoError(t, err)
	second, err := GenerateOpaqueToken()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	raw, err := base64.RawURLEncoding.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashToken(""))
	assert.Len(t, HashToken("token"), 64)
	assert.NotEqual(t, HashToken("a"), HashToken("b"))
}
