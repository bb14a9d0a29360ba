package word_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jorgearias2404/virtual-machine/internal/word"
)

func TestRoundTrip(t *testing.T) {
	values := []int{0, 1, -1, 42, -42, word.MaxMagnitude, -word.MaxMagnitude, 9999999, 12345}
	for _, v := range values {
		w := word.FromInt(v, nil)
		got, ok := w.ToInt()
		assert.True(t, ok, "value %d should decode", v)
		assert.Equal(t, v, got)
	}
}

func TestFromIntOverflow(t *testing.T) {
	var logged []string
	logf := func(format string, args ...any) { logged = append(logged, format) }

	w := word.FromInt(word.MaxMagnitude+1, logf)
	assert.Equal(t, word.SentinelOverflow, w)
	assert.NotEmpty(t, logged)

	_, ok := w.ToInt()
	assert.False(t, ok, "OVERFLOW sentinel must not decode as an integer")
}

func TestToIntLoggedOnMalformedWord(t *testing.T) {
	bad := word.Word{'X', '0', '0', '0', '0', '0', '0', '0'}

	var logged int
	got := bad.ToIntLogged(func(string, ...any) { logged++ })

	assert.Equal(t, 0, got)
	assert.Equal(t, 1, logged)
}

func TestSentinelsAreNotDecodable(t *testing.T) {
	sentinels := []word.Word{
		word.SentinelOSReserved,
		word.SentinelMemErr,
		word.SentinelAddrErr,
		word.SentinelPrivErr,
		word.SentinelOverflow,
		word.SentinelError,
	}
	for _, s := range sentinels {
		_, ok := s.ToInt()
		assert.False(t, ok, "sentinel %q must not decode", s.String())
		assert.True(t, word.IsSentinel(s))
	}
}

func TestZeroWordDecodesToZero(t *testing.T) {
	v, ok := word.Zero.ToInt()
	assert.True(t, ok)
	assert.Equal(t, 0, v)
}
