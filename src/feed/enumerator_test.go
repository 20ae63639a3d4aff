package feed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnqueueEnumerator_Semantics(t *testing.T) {
	e := NewEnqueueEnumerator()

	require.True(t, e.Advance())
	_, ok := e.Current()
	require.False(t, ok, "advance on an empty queue yields Current=absent")

	item := tickItem("SPY", 100)
	e.Enqueue(item)

	require.True(t, e.Advance())
	cur, ok := e.Current()
	require.True(t, ok)
	require.Equal(t, item.Symbol.Key(), cur.Symbol.Key())

	require.True(t, e.Advance())
	_, ok = e.Current()
	require.False(t, ok)

	e.Stop()
	require.False(t, e.Advance(), "advance must return false once stopped and drained")
	require.False(t, e.Advance(), "terminal state must stick")
}

func TestEnqueueEnumerator_StopWithPendingItemsDrainsFirst(t *testing.T) {
	e := NewEnqueueEnumerator()
	e.Enqueue(tickItem("SPY", 1))
	e.Stop()

	require.True(t, e.Advance(), "pending item must still be delivered after Stop")
	_, ok := e.Current()
	require.True(t, ok)

	require.False(t, e.Advance())
}
