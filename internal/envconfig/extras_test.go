package envconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtrasTypedAccessors(t *testing.T) {
	env := Environment{
		Name: "dev",
		Extras: map[string]any{
			"host":     "api.dev.example.com",
			"port":     float64(8443),
			"ratio":    0.75,
			"insecure": true,
		},
	}

	host, ok := env.ExtraString("host")
	require.True(t, ok)
	assert.Equal(t, "api.dev.example.com", host)

	port, ok := env.ExtraInt("port")
	require.True(t, ok)
	assert.Equal(t, 8443, port)

	ratio, ok := env.ExtraFloat("ratio")
	require.True(t, ok)
	assert.Equal(t, 0.75, ratio)

	insecure, ok := env.ExtraBool("insecure")
	require.True(t, ok)
	assert.True(t, insecure)
}

func TestExtrasTypeMismatch(t *testing.T) {
	env := Environment{
		Name: "dev",
		Extras: map[string]any{
			"port":  "8443",
			"ratio": 0.75,
		},
	}

	_, ok := env.ExtraInt("port")
	assert.False(t, ok, "string value is not an int")

	_, ok = env.ExtraInt("ratio")
	assert.False(t, ok, "fractional number is not an int")

	_, ok = env.ExtraBool("port")
	assert.False(t, ok)

	_, ok = env.ExtraString("ratio")
	assert.False(t, ok)
}

func TestExtrasAbsentKey(t *testing.T) {
	env := Environment{Name: "dev"}

	_, ok := env.Extra("anything")
	assert.False(t, ok)

	_, ok = env.ExtraString("anything")
	assert.False(t, ok)
}

func TestExtraIntAcceptsNativeInts(t *testing.T) {
	// YAML decoding produces native ints rather than float64.
	env := Environment{Name: "dev", Extras: map[string]any{"port": 8443}}

	port, ok := env.ExtraInt("port")
	require.True(t, ok)
	assert.Equal(t, 8443, port)

	f, ok := env.ExtraFloat("port")
	require.True(t, ok)
	assert.Equal(t, 8443.0, f)
}
