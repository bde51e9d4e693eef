package services

import (
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/stefan-vatov/nightwatch-deck/internal/config"
)

// ErrTooManyRooms is returned when the per-instance room cap is reached.
var ErrTooManyRooms = errors.New("too many active rooms")

// Manager maps normalized room identifiers to actor instances, creating
// them lazily: same identifier, same instance. Actors whose last
// connection is gone evict themselves through release; the manager lock
// serializes eviction against new attaches.
type Manager struct {
	mu      sync.Mutex
	rooms   map[string]*RoomActor
	metrics *Metrics
	log     *logrus.Entry
}

func NewManager(metrics *Metrics) *Manager {
	return &Manager{
		rooms:   make(map[string]*RoomActor),
		metrics: metrics,
		log:     logrus.WithField("component", "manager"),
	}
}

// NormalizeRoomID trims and uppercases a raw room identifier.
func NormalizeRoomID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Attach routes a freshly upgraded connection to the actor for roomID. The
// returned client is registered but its pumps are not started yet; the
// caller starts them.
func (m *Manager) Attach(roomID string, conn Conn) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		actor, ok := m.rooms[roomID]
		if !ok {
			if len(m.rooms) >= config.MaxRoomsPerInstance {
				return nil, ErrTooManyRooms
			}
			actor = newRoomActor(roomID, m, m.metrics)
			m.rooms[roomID] = actor
			m.metrics.IncrementRooms()
			go actor.Run()
			m.log.WithField("room", roomID).Info("room created")
		}

		client := newClient(conn, actor)
		if actor.tryAttach(client) {
			return client, nil
		}

		// The actor stopped before the attach landed; drop the stale entry
		// and route to a fresh instance.
		if m.rooms[roomID] == actor {
			delete(m.rooms, roomID)
		}
	}
}

// RoomCount returns the number of live room actors.
func (m *Manager) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// release is called from an actor goroutine when its last connection is
// gone. Attaches are serialized through the manager lock, so an empty
// command buffer under the lock proves no attach is in flight; the actor
// may then stop. A pending command aborts the eviction.
func (m *Manager) release(a *RoomActor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(a.commands) > 0 {
		return false
	}
	if m.rooms[a.id] == a {
		delete(m.rooms, a.id)
		m.metrics.DecrementRooms()
	}
	close(a.done)
	m.log.WithField("room", a.id).Info("room evicted")
	return true
}
