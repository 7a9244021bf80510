package sharednotes_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharednotes/sharednotes.go"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("SHAREDNOTES_TEST_VALUE", "")
	assert.Equal(t, "fallback", sharednotes.GetEnvOrDefault("SHAREDNOTES_TEST_VALUE", "fallback"))

	t.Setenv("SHAREDNOTES_TEST_VALUE", "set")
	assert.Equal(t, "set", sharednotes.GetEnvOrDefault("SHAREDNOTES_TEST_VALUE", "fallback"))
}

func TestGetEnvDurationOrDefault(t *testing.T) {
	t.Setenv("SHAREDNOTES_TEST_TIMEOUT", "")
	d, err := sharednotes.GetEnvDurationOrDefault("SHAREDNOTES_TEST_TIMEOUT", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	t.Setenv("SHAREDNOTES_TEST_TIMEOUT", "250ms")
	d, err = sharednotes.GetEnvDurationOrDefault("SHAREDNOTES_TEST_TIMEOUT", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	t.Setenv("SHAREDNOTES_TEST_TIMEOUT", "soon")
	_, err = sharednotes.GetEnvDurationOrDefault("SHAREDNOTES_TEST_TIMEOUT", time.Second)
	require.ErrorContains(t, err, "SHAREDNOTES_TEST_TIMEOUT")
}
