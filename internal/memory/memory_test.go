package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jorgearias2404/virtual-machine/internal/memory"
	"github.com/jorgearias2404/virtual-machine/internal/register"
	"github.com/jorgearias2404/virtual-machine/internal/vmlog"
	"github.com/jorgearias2404/virtual-machine/internal/word"
)

func newHarness() (*memory.Unit, *register.File) {
	var regs register.File
	regs.Init()
	return memory.New(&regs, vmlog.Discard), &regs
}

func TestReadWriteRoundTrip(t *testing.T) {
	m, _ := newHarness()
	m.Write(500, word.FromInt(42, nil))
	v, code := m.Read(500)
	assert.Nil(t, code)
	n, ok := v.ToInt()
	assert.True(t, ok)
	assert.Equal(t, 42, n)
}

// TestPhysicalBoundsViolationReturnsNilCode covers spec.md §4.3 step 2:
// a logical access whose translated physical address lands outside
// [0, Size) must log and return a sentinel, but unlike steps 1 and 3 it
// must never report a fault code for the caller to raise.
func TestPhysicalBoundsViolationReturnsNilCode(t *testing.T) {
	m, _ := newHarness()
	m.SetRegion(1900, 200) // [1900, 2100): legal window reaches past real memory

	v, code := m.Read(150) // physical 2050, out of [0, 2000)
	assert.Nil(t, code)
	assert.Equal(t, word.SentinelAddrErr, v)

	code = m.Write(150, word.FromInt(1, nil))
	assert.Nil(t, code)
}

func TestTranslateViolationRaisesFault(t *testing.T) {
	m, _ := newHarness()
	m.SetRegion(300, 10) // [300, 310)

	_, code := m.Read(50) // physical 350, outside the window
	assert.NotNil(t, code)

	code = m.Write(50, word.FromInt(1, nil))
	assert.NotNil(t, code)
}

func TestUserReadOfOSRegionRaisesFault(t *testing.T) {
	m, regs := newHarness()
	regs.PSW.Mode = register.ModeUser

	_, code := m.Read(10)
	assert.NotNil(t, code)
}
