package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_MissingSecretReturnsConfigError(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	var err error
	require.NotPanics(t, func() {
		err = run(context.Background())
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
