package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPasswordConfig_Defaults(t *testing.T) {
	t.Setenv("BCRYPT_COST", "")
	t.Setenv("PASSWORD_PEPPER", "")
	t.Setenv("PASSWORD_MIN_LENGTH", "")

	cfg, err := NewPasswordConfig()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 8, cfg.MinLength)
	assert.Empty(t, cfg.Pepper)
}

func TestNewPasswordConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cost string
		min  string
	}{
		{name: "cost too low", cost: "4"},
		{name: "cost too high", cost: "15"},
		{name: "cost not a number", cost: "strong"},
		{name: "zero min length", cost: "10", min: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BCRYPT_COST", tt.cost)
			t.Setenv("PASSWORD_MIN_LENGTH", tt.min)

			cfg, err := NewPasswordConfig()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: 10, MinLength: 8}

	hash, err := cfg.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, cfg.VerifyPassword("correct horse", hash))
	assert.False(t, cfg.VerifyPassword("wrong horse", hash))
}

func TestPepperIsRequiredToVerify(t *testing.T) {
	peppered := &PasswordConfig{BcryptCost: 10, Pepper: "pepper", MinLength: 8}
	plain := &PasswordConfig{BcryptCost: 10, MinLength: 8}

	hash, err := peppered.HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, peppered.VerifyPassword("correct horse", hash))
	assert.False(t, plain.VerifyPassword("correct horse", hash))
}

func TestCheckStrength(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: 10, MinLength: 8}

	assert.NoError(t, cfg.CheckStrength("12345678"))
	assert.Error(t, cfg.CheckStrength("1234567"))
	assert.Error(t, cfg.CheckStrength(strings.Repeat("x", 73)))
}
