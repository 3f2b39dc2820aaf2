package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse(t *testing.T) {
	token, err := Generate(1, "admin", true, time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.AdminID)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.IsSudo)
}

func TestParse_Expired(t *testing.T) {
	token, err := Generate(1, "admin", false, -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalid)
}
