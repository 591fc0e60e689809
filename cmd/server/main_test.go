package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nawaem/backend/internal/config"
)

func TestValidateSecurityConfig(t *testing.T) {
	strong := "0123456789abcdef0123456789abcdef"

	assert.Error(t, validateSecurityConfig(config.Config{AuthSecret: "short", ManagerPIN: "482916"}))
	assert.Error(t, validateSecurityConfig(config.Config{AuthSecret: strong, ManagerPIN: "4829"}))
	assert.Error(t, validateSecurityConfig(config.Config{AuthSecret: strong, ManagerPIN: "123456"}))
	assert.NoError(t, validateSecurityConfig(config.Config{AuthSecret: strong, ManagerPIN: "739154"}))
}

func TestValidatePINStrength(t *testing.T) {
	for _, pin := range []string{"000000", "234567", "987654", "12a456", "121212", "159753"} {
		assert.Error(t, validatePINStrength(pin), pin)
	}
	assert.NoError(t, validatePINStrength("482916"))
	assert.NoError(t, validatePINStrength("13579024"))
}
