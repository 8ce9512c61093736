package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	raw, hash, err := New()
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.Len(t, hash, 64)
	assert.NotEqual(t, raw, hash)
	assert.Equal(t, Hash(raw), hash)

	other, _, err := New()
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)
}

func TestHash(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Hash(""))
	assert.NotEqual(t, Hash("a"), Hash("b"))
}
