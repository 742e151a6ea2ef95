package share

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenFormat(t *testing.T) {
	tok, err := NewToken()
	require.NoError(t, err)

	parts := strings.Split(tok, "-")
	require.Len(t, parts, 3)

	ts, err := strconv.ParseInt(parts[0], 36, 64)
	require.NoError(t, err)
	issued := time.UnixMilli(ts)
	assert.WithinDuration(t, time.Now(), issued, time.Minute)

	// Two random segments, hex-encoded.
	assert.Len(t, parts[1], segmentBytes*2)
	assert.Len(t, parts[2], segmentBytes*2)
	for _, seg := range parts[1:] {
		_, err := strconv.ParseUint(seg[:8], 16, 64)
		assert.NoError(t, err)
	}
}

func TestNewTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		tok, err := NewToken()
		require.NoError(t, err)
		assert.False(t, seen[tok], "duplicate token %q", tok)
		seen[tok] = true
	}
}
