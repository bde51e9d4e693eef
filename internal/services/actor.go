package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stefan-vatov/nightwatch-deck/internal/config"
	"github.com/stefan-vatov/nightwatch-deck/internal/models"
	"github.com/stefan-vatov/nightwatch-deck/internal/security"
)

type commandKind int

const (
	cmdAttach commandKind = iota
	cmdMessage
	cmdDetach
)

type command struct {
	kind   commandKind
	client *Client
	data   []byte
}

// RoomActor is the single serialization point for one room. Every inbound
// command is processed to completion, including its broadcast, before the
// next command from any connection starts. Room state and the connection
// registry are owned exclusively by the actor goroutine; no locks.
type RoomActor struct {
	id       string
	room     *models.Room
	registry *Registry
	commands chan command
	done     chan struct{}
	manager  *Manager
	metrics  *Metrics
	log      *logrus.Entry
}

func newRoomActor(id string, manager *Manager, metrics *Metrics) *RoomActor {
	return &RoomActor{
		id:       id,
		room:     models.NewRoom(id),
		registry: NewRegistry(),
		commands: make(chan command, config.ActorCommandBufferSize),
		done:     make(chan struct{}),
		manager:  manager,
		metrics:  metrics,
		log:      logrus.WithField("room", id),
	}
}

// ID returns the normalized room identifier the actor was created for.
func (a *RoomActor) ID() string {
	return a.id
}

// Run consumes commands until the last connection is gone and the manager
// confirms eviction. It must run on its own goroutine, started by the
// manager.
func (a *RoomActor) Run() {
	a.log.Info("room actor started")
	for {
		cmd := <-a.commands
		a.handle(cmd)

		if a.registry.Len() == 0 && len(a.commands) == 0 {
			if a.manager.release(a) {
				a.log.Info("room actor stopped")
				return
			}
		}
	}
}

// tryAttach queues a new connection. Returns false when the actor has
// already stopped; the manager then routes to a fresh instance. Callers
// must hold the manager lock so attach and eviction stay serialized.
func (a *RoomActor) tryAttach(c *Client) bool {
	select {
	case <-a.done:
		return false
	default:
	}
	select {
	case a.commands <- command{kind: cmdAttach, client: c}:
		return true
	case <-a.done:
		return false
	}
}

// Dispatch queues a raw client message for serialized processing.
func (a *RoomActor) Dispatch(c *Client, data []byte) {
	select {
	case a.commands <- command{kind: cmdMessage, client: c, data: data}:
	case <-a.done:
	}
}

// Detach queues the transport-close cleanup for a connection.
func (a *RoomActor) Detach(c *Client) {
	select {
	case a.commands <- command{kind: cmdDetach, client: c}:
	case <-a.done:
	}
}

func (a *RoomActor) handle(cmd command) {
	switch cmd.kind {
	case cmdAttach:
		a.handleAttach(cmd.client)
	case cmdMessage:
		a.handleMessage(cmd.client, cmd.data)
	case cmdDetach:
		a.handleDetach(cmd.client)
	}
}

func (a *RoomActor) handleAttach(c *Client) {
	if a.registry.Len() >= config.MaxConnectionsPerRoom {
		a.log.Warn("room full, refusing connection")
		c.Close(websocket.StatusTryAgainLater, "Room is full")
		return
	}

	a.registry.Add(c)
	a.metrics.IncrementConnections()
	a.log.WithField("connections", a.registry.Len()).Debug("connection attached")
}

// handleDetach unregisters a connection after a transport close or error.
// Only the connection currently bound to a participant removes that
// participant; a connection superseded by a replacement join was unbound
// when it was replaced.
func (a *RoomActor) handleDetach(c *Client) {
	if !a.registry.Has(c) {
		return
	}

	playerID := a.registry.PlayerFor(c)
	a.registry.Remove(c)
	a.metrics.DecrementConnections()
	a.log.WithField("connections", a.registry.Len()).Debug("connection detached")

	if playerID != "" && a.removeParticipant(playerID) {
		a.broadcast(nil)
	}
}

func (a *RoomActor) handleMessage(c *Client, data []byte) {
	if !a.registry.Has(c) {
		// Connection already torn down; late message, drop it.
		return
	}

	msg, err := models.DecodeClientMessage(data)
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedMessage) {
			a.sendError(c, "Unsupported message type")
		} else {
			a.sendError(c, "Invalid payload")
		}
		return
	}

	switch msg.Type {
	case models.MsgTypeJoin:
		a.handleJoin(c, msg)
	case models.MsgTypeVote:
		a.handleVote(c, msg)
	case models.MsgTypeReveal:
		a.handleReveal(c, msg)
	case models.MsgTypeReset:
		a.handleReset(c, msg)
	case models.MsgTypeLeave:
		a.handleLeave(c, msg)
	case models.MsgTypePing:
		a.send(c, models.PongMessage())
	}
}

func (a *RoomActor) handleJoin(c *Client, msg *models.ClientMessage) {
	name := models.NormalizeName(msg.Name)
	if name == "" {
		a.sendError(c, "Name is required")
		return
	}
	if msg.PlayerID == "" {
		a.sendError(c, "Player id is required")
		return
	}
	if err := security.ValidatePlayerID(msg.PlayerID); err != nil {
		a.sendError(c, "Invalid player id")
		return
	}

	// A second session for the same player replaces the first.
	if old := a.registry.ClientFor(msg.PlayerID); old != nil && old != c {
		a.log.WithField("player", msg.PlayerID).Info("session replaced")
		old.Close(websocket.StatusNormalClosure, "Replaced by a new session")
		a.registry.Remove(old)
		a.metrics.DecrementConnections()
	}

	a.room.Join(msg.PlayerID, name, time.Now())
	a.registry.Bind(c, msg.PlayerID)

	a.log.WithFields(logrus.Fields{
		"player":       msg.PlayerID,
		"participants": len(a.room.Participants),
	}).Info("participant joined")

	a.send(c, models.RoomInitMessage(a.room.Snapshot(), msg.PlayerID))
	a.broadcast(c)
}

func (a *RoomActor) handleVote(c *Client, msg *models.ClientMessage) {
	if !a.room.Has(msg.PlayerID) {
		a.sendError(c, "Unknown participant")
		return
	}
	if msg.Value == nil || !msg.Value.InDeck() {
		a.sendError(c, "Estimate is not a valid card")
		return
	}

	a.room.SetEstimate(msg.PlayerID, *msg.Value)
	a.broadcast(nil)
}

func (a *RoomActor) handleReveal(c *Client, msg *models.ClientMessage) {
	if !a.assertOwner(c, msg.PlayerID) {
		return
	}

	a.room.Reveal()
	a.log.WithField("round", a.room.Round).Info("votes revealed")
	a.broadcast(nil)
}

func (a *RoomActor) handleReset(c *Client, msg *models.ClientMessage) {
	if !a.assertOwner(c, msg.PlayerID) {
		return
	}

	a.room.Reset()
	a.log.WithField("round", a.room.Round).Info("room reset")
	a.broadcast(nil)
}

// handleLeave removes the named participant regardless of ownership, lets
// the leaving connection see the final snapshot, then closes it. The
// connection stays registered: the transport-close detach that follows does
// the registry cleanup, which also removes the caller's own bound
// participant when it differs from the departing id.
func (a *RoomActor) handleLeave(c *Client, msg *models.ClientMessage) {
	if a.removeParticipant(msg.PlayerID) {
		a.broadcast(nil)
	}

	c.Close(websocket.StatusNormalClosure, "Left room")
}

func (a *RoomActor) assertOwner(c *Client, playerID string) bool {
	if !a.room.Has(playerID) {
		a.sendError(c, "Unknown participant")
		return false
	}
	if !a.room.IsOwner(playerID) {
		a.sendError(c, "Only the room owner can perform that action")
		return false
	}
	return true
}

// removeParticipant applies the shared removal algorithm: drop the record,
// unbind the participant's connection without closing it, and let room
// state elect a new owner or fall back to pristine. Returns false when the
// id was unknown.
func (a *RoomActor) removeParticipant(playerID string) bool {
	if !a.room.RemoveParticipant(playerID) {
		return false
	}
	if cl := a.registry.ClientFor(playerID); cl != nil {
		a.registry.Unbind(cl)
	}
	a.log.WithFields(logrus.Fields{
		"player":       playerID,
		"participants": len(a.room.Participants),
	}).Info("participant removed")
	return true
}

// broadcast serializes the current snapshot once and fans it out to every
// registered connection except skip. Failed deliveries are implicit
// disconnects: they are cleaned up after the delivery loop, never inside
// it, and any resulting state change is sent as one corrected snapshot.
func (a *RoomActor) broadcast(skip *Client) {
	for {
		if a.registry.Len() == 0 {
			return
		}

		data, err := json.Marshal(models.RoomUpdateMessage(a.room.Snapshot()))
		if err != nil {
			a.log.WithError(err).Error("failed to marshal snapshot")
			return
		}

		var failed []*Client
		for _, cl := range a.registry.Clients() {
			if cl == skip {
				continue
			}
			if !cl.Send(data) {
				failed = append(failed, cl)
			}
		}
		if len(failed) == 0 {
			return
		}

		changed := false
		for _, cl := range failed {
			a.metrics.IncrementBroadcastErrors()
			playerID := a.registry.PlayerFor(cl)
			a.registry.Remove(cl)
			a.metrics.DecrementConnections()
			if playerID != "" && a.removeParticipant(playerID) {
				changed = true
			}
		}
		if !changed {
			return
		}
		skip = nil
	}
}

// send delivers a direct reply; failures are left to the connection's own
// detach cleanup.
func (a *RoomActor) send(c *Client, msg *models.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		a.log.WithError(err).Error("failed to marshal message")
		return
	}
	c.Send(data)
}

// sendError reports a validation or parse failure to one connection. When
// even the error cannot be delivered the connection is closed abnormally.
func (a *RoomActor) sendError(c *Client, message string) {
	data, err := json.Marshal(models.ErrorMessage(message))
	if err != nil {
		return
	}
	if !c.Send(data) {
		c.Close(websocket.StatusInternalError, "Unable to deliver error")
	}
}
