package serviceorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/apperror"
)

func TestNewApproval(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	token, a, err := NewApproval(now, 0)
	require.NoError(t, err)

	assert.Len(t, token, TokenBytes*2)
	assert.Equal(t, HashToken(token), a.TokenHash)
	assert.NotEqual(t, token, a.TokenHash)
	assert.Equal(t, now.Add(DefaultLinkTTL), a.ExpiresAt)
	assert.False(t, a.Used)

	other, _, err := NewApproval(now, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestCheckUsable_ExpiryWinsOverUsed(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	_, a, err := NewApproval(now, time.Hour)
	require.NoError(t, err)

	require.NoError(t, a.CheckUsable(now))

	decision := DecisionApproved
	a.Used = true
	a.Decision = &decision
	err = a.CheckUsable(now)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyDecided))
	assert.NoError(t, a.CheckReadable(now))

	err = a.CheckUsable(now.Add(2 * time.Hour))
	assert.True(t, apperror.HasCode(err, apperror.CodeLinkExpired))
	assert.True(t, apperror.HasCode(a.CheckReadable(now.Add(2*time.Hour)), apperror.CodeLinkExpired))
}
