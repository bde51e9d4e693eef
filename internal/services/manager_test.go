package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRoomID(t *testing.T) {
	assert.Equal(t, "DEMO01", NormalizeRoomID("  demo01 "))
	assert.Equal(t, "SPRINT-7", NormalizeRoomID("sprint-7"))
	assert.Empty(t, NormalizeRoomID("   "))
}

func TestManager_Attach(t *testing.T) {
	t.Run("same identifier routes to the same actor", func(t *testing.T) {
		m := NewManager(NewMetrics())

		c1, err := m.Attach("DEMO01", &fakeConn{})
		require.NoError(t, err)
		c2, err := m.Attach("DEMO01", &fakeConn{})
		require.NoError(t, err)

		assert.Same(t, c1.actor, c2.actor)
		assert.Equal(t, 1, m.RoomCount())
	})

	t.Run("different identifiers get isolated actors", func(t *testing.T) {
		m := NewManager(NewMetrics())

		c1, err := m.Attach("DEMO01", &fakeConn{})
		require.NoError(t, err)
		c2, err := m.Attach("OTHER", &fakeConn{})
		require.NoError(t, err)

		assert.NotSame(t, c1.actor, c2.actor)
		assert.Equal(t, 2, m.RoomCount())
	})

	t.Run("actor is evicted once its last connection detaches", func(t *testing.T) {
		m := NewManager(NewMetrics())

		client, err := m.Attach("DEMO01", &fakeConn{})
		require.NoError(t, err)
		require.Equal(t, 1, m.RoomCount())

		client.actor.Detach(client)

		require.Eventually(t, func() bool {
			return m.RoomCount() == 0
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("a new connection after eviction gets a fresh actor", func(t *testing.T) {
		m := NewManager(NewMetrics())

		first, err := m.Attach("DEMO01", &fakeConn{})
		require.NoError(t, err)
		first.actor.Detach(first)
		require.Eventually(t, func() bool {
			return m.RoomCount() == 0
		}, 2*time.Second, 10*time.Millisecond)

		second, err := m.Attach("DEMO01", &fakeConn{})
		require.NoError(t, err)
		assert.NotSame(t, first.actor, second.actor)
	})
}
