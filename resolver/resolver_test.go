package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNone(t *testing.T) {
	_, ok := None.Resolve("anything")
	require.False(t, ok)
}

func TestMap(t *testing.T) {
	r := Map(map[string]uintptr{"strlen": 0x1234})

	addr, ok := r.Resolve("strlen")
	require.True(t, ok)
	require.EqualValues(t, 0x1234, addr)

	_, ok = r.Resolve("missing")
	require.False(t, ok)
}

func TestChain(t *testing.T) {
	first := Map(map[string]uintptr{"a": 1})
	second := Map(map[string]uintptr{"b": 2})
	chained := Chain(first, second, nil)

	addr, ok := chained.Resolve("a")
	require.True(t, ok)
	require.EqualValues(t, 1, addr)

	addr, ok = chained.Resolve("b")
	require.True(t, ok)
	require.EqualValues(t, 2, addr)

	_, ok = chained.Resolve("c")
	require.False(t, ok)
}

func TestChainEmpty(t *testing.T) {
	_, ok := Chain().Resolve("anything")
	require.False(t, ok)
}
