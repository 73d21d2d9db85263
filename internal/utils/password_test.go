package utils

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
    hash, err := HashPassword("s3cret-pass", 4)
    require.NoError(t, err)
    require.NotEqual(t, "s3cret-pass", hash)

    assert.True(t, VerifyPassword(hash, "s3cret-pass"))
    assert.False(t, VerifyPassword(hash, "wrong-pass"))
}

func TestPasswordHashRejectsWeakCost(t *testing.T) {
    // A zero cost from a missing config value must not produce a hash
    // weaker than bcrypt's default.
    hash, err := HashPassword("s3cret-pass", 0)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(hash, "s3cret-pass"))
}
