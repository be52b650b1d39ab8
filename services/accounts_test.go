package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"restaurant-core/logger"
	"restaurant-core/models"
	"restaurant-core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldownSecondsForFailCount(t *testing.T) {
	tests := []struct {
		failCount int
		want      int
	}{
		{0, 1},   // 2^0=1
		{1, 2},   // 2^1=2
		{2, 4},   // 2^2=4
		{3, 8},   // 2^3=8
		{4, 16},  // 2^4=16
		{5, 30},  // 2^5=32 -> cap 30
		{6, 30},  // 2^6=64 -> cap 30
		{10, 30}, // cap 30
	}
	for _, tt := range tests {
		got := CooldownSecondsForFailCount(tt.failCount)
		if got != tt.want {
			t.Errorf("CooldownSecondsForFailCount(%d) = %d, want %d", tt.failCount, got, tt.want)
		}
	}
}

func TestLoginThrottle(t *testing.T) {
	ctx := context.Background()
	users := store.NewMemoryUsers()
	_, err := users.Save(ctx, &models.User{ID: 3, Name: "Dan", Role: models.RoleDriver})
	require.NoError(t, err)

	a := NewAccounts(users, users, logger.Discard())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }
	require.NoError(t, a.SetPassword(ctx, 3, "s3cret!"))

	// 1) wrong password sets a 2s cooldown
	_, err = a.Login(ctx, 3, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// 2) even the right password waits while cooling down
	_, err = a.Login(ctx, 3, "s3cret!")
	var throttled *ThrottledError
	require.True(t, errors.As(err, &throttled), "err = %v", err)
	assert.Equal(t, 2*time.Second, throttled.Wait)

	// 3) after the cooldown the right password works and resets the counter
	now = now.Add(3 * time.Second)
	u, err := a.Login(ctx, 3, "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "Dan", u.Name)
	c, err := users.FindCredential(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, c.FailCount)
	assert.True(t, c.CooldownUntil.IsZero())

	// 4) cooldown caps at 30s
	for i := 0; i < 8; i++ {
		now = now.Add(time.Minute)
		_, _ = a.Login(ctx, 3, "wrong")
	}
	_, err = a.Login(ctx, 3, "s3cret!")
	require.True(t, errors.As(err, &throttled))
	assert.LessOrEqual(t, throttled.Wait, time.Duration(CooldownCapSeconds)*time.Second)
}

func TestLoginUnknownOrInactive(t *testing.T) {
	ctx := context.Background()
	users := store.NewMemoryUsers()
	a := NewAccounts(users, users, logger.Discard())

	_, err := a.Login(ctx, 42, "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	hash, err := HashPassword("pw")
	require.NoError(t, err)
	require.NoError(t, users.SaveCredential(ctx, &models.Credential{UserID: 42, PasswordHash: hash, Active: false}))
	_, err = a.Login(ctx, 42, "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGenerateSecurePassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		p, err := GenerateSecurePassword()
		require.NoError(t, err)
		assert.Len(t, p, passwordLen)
		for _, set := range []string{upperLetters, lowerLetters, digits, symbols} {
			assert.True(t, strings.ContainsAny(p, set), "%q lacks one of %q", p, set)
		}
		seen[p] = true
	}
	assert.Greater(t, len(seen), 1)
}
