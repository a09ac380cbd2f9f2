package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA1HexKnownVector(t *testing.T) {
	assert.Equal(t, "2fd4e1c67a2d28fced849ee1bb76e7391b93eb12", SHA1Hex([]byte("The quick brown fox jumps over the lazy dog")))
}

func TestSHA256HexIsDeterministic(t *testing.T) {
	assert.Equal(t, SHA256Hex([]byte("hello")), SHA256Hex([]byte("hello")))
	assert.NotEqual(t, SHA256Hex([]byte("hello")), SHA256Hex([]byte("world")))
}

func TestBcryptRoundTrip(t *testing.T) {
	hash, err := BcryptHash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, BcryptCompare(hash, "correct horse battery staple"))
	assert.False(t, BcryptCompare(hash, "wrong password"))
}

func TestRandomTokenIsUnique(t *testing.T) {
	a, err := RandomToken(32)
	require.NoError(t, err)
	b, err := RandomToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("abc", "abc"))
	assert.False(t, ConstantTimeEqual("abc", "abd"))
	assert.False(t, ConstantTimeEqual("abc", "abcd"))
}
