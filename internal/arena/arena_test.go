package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocAlignsAndBumps(t *testing.T) {
	a, err := New(4096)
	require.NoError(t, err)
	defer a.Close()

	off1 := a.Alloc(3, 1)
	require.Equal(t, 0, off1)

	off2 := a.Alloc(4, 8)
	require.Equal(t, 8, off2) // rounded up from 3 to the next multiple of 8

	off3 := a.Alloc(1, 16)
	require.Equal(t, 16, off3)
}

func TestAllocPanicsOnOverflow(t *testing.T) {
	a, err := New(1)
	require.NoError(t, err)
	defer a.Close()

	require.Panics(t, func() {
		a.Alloc(a.Cap()+1, 1)
	})
}

func TestContains(t *testing.T) {
	a, err := New(64)
	require.NoError(t, err)
	defer a.Close()

	off := a.Alloc(16, 1)
	addr := a.Addr(off)
	require.True(t, a.Contains(addr))
	require.True(t, a.Contains(a.Base()+uintptr(a.Cap())-1))
	require.False(t, a.Contains(a.Base()+uintptr(a.Cap())))
	require.False(t, a.Contains(0))
}

func TestClose(t *testing.T) {
	a, err := New(64)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.Equal(t, 0, a.Cap())
}

func TestWritableAndExecutable(t *testing.T) {
	a, err := New(64)
	require.NoError(t, err)
	defer a.Close()

	// Only writability is checked here, by writing a byte and reading it
	// back; the execute permission New requests is not exercised.
	mem := a.Bytes()
	mem[0] = 0xc3 // ret
	require.Equal(t, byte(0xc3), a.Bytes()[0])
}
