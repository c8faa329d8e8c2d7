package gitlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHash_RoundTrip(t *testing.T) {
	t.Parallel()

	hex := "0123456789abcdef0123456789abcdef01234567"
	h := NewHash(hex)

	assert.Equal(t, hex, h.String())
	assert.False(t, h.IsZero())
}

func TestHash_Short(t *testing.T) {
	t.Parallel()

	h := NewHash("deadbeef89abcdef0123456789abcdef01234567")

	assert.Equal(t, "deadbeef", h.Short())
}

func TestZeroHash_IsZero(t *testing.T) {
	t.Parallel()

	assert.True(t, ZeroHash().IsZero())
	assert.Equal(t, "0000000000000000000000000000000000000000", ZeroHash().String())
}

func TestHash_ToOid_RoundTrip(t *testing.T) {
	t.Parallel()

	h := NewHash("0123456789abcdef0123456789abcdef01234567")
	oid := h.ToOid()

	assert.Equal(t, h, HashFromOid(oid))
}

func TestNewHash_UppercaseInput(t *testing.T) {
	t.Parallel()

	h := NewHash("ABCDEF0123456789ABCDEF0123456789ABCDEF01")

	assert.Equal(t, "abcdef0123456789abcdef0123456789abcdef01", h.String())
}

func TestTruncateLines(t *testing.T) {
	t.Parallel()

	text := "a\nb\nc\nd\ne"

	assert.Equal(t, text, truncateLines(text, 0))
	assert.Equal(t, text, truncateLines(text, 5))
	assert.Contains(t, truncateLines(text, 2), "(truncated, 3 more lines)")
}
