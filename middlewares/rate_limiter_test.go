package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomRate(t *testing.T) {
	rate, err := ParseCustomRate("20-1m")
	require.NoError(t, err)
	assert.Equal(t, int64(20), rate.Limit)
	assert.Equal(t, time.Minute, rate.Period)

	rate, err = ParseCustomRate("5-30s")
	require.NoError(t, err)
	assert.Equal(t, int64(5), rate.Limit)
	assert.Equal(t, 30*time.Second, rate.Period)

	rate, err = ParseCustomRate("100-2h")
	require.NoError(t, err)
	assert.Equal(t, int64(100), rate.Limit)
	assert.Equal(t, 2*time.Hour, rate.Period)
}

func TestParseCustomRateRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "10", "10-", "-1m", "ten-1m", "10-1d", "10-x"} {
		_, err := ParseCustomRate(s)
		assert.Error(t, err, "rate %q should be rejected", s)
	}
}
