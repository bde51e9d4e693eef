package models

import (
	"sort"
	"strings"
	"time"
)

// MaxNameLength is the longest participant name the room stores. Longer
// names are truncated, not rejected.
const MaxNameLength = 80

// Participant is one person in a room.
type Participant struct {
	ID       string
	Name     string
	Estimate *Estimate // nil until a vote is cast
	JoinedAt time.Time

	// seq breaks JoinedAt ties: insertion order is stable and deterministic.
	seq uint64
}

// Room is the in-memory state of one estimation session. It is owned and
// mutated exclusively by a single room actor, so it carries no locking.
type Room struct {
	ID           string
	Participants map[string]*Participant
	OwnerID      string // empty when the room has no owner
	Revealed     bool
	Round        int

	joinSeq uint64
}

// NewRoom creates a pristine room: no participants, round 1, hidden votes.
func NewRoom(id string) *Room {
	return &Room{
		ID:           id,
		Participants: make(map[string]*Participant),
		Round:        1,
	}
}

// NormalizeName trims a participant name and truncates it to MaxNameLength
// runes. Applied on every join, including rejoins.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > MaxNameLength {
		name = string(runes[:MaxNameLength])
	}
	return name
}

// Join upserts a participant. A rejoin updates the name only: JoinedAt and
// any previously cast estimate survive reconnects. The first participant, or
// any joiner while the current owner is gone, becomes the owner.
func (r *Room) Join(playerID, name string, now time.Time) *Participant {
	p, ok := r.Participants[playerID]
	if !ok {
		r.joinSeq++
		p = &Participant{ID: playerID, JoinedAt: now, seq: r.joinSeq}
		r.Participants[playerID] = p
	}
	p.Name = NormalizeName(name)

	if r.OwnerID == "" || r.Participants[r.OwnerID] == nil {
		r.OwnerID = playerID
	}
	return p
}

// SetEstimate records a participant's vote. Returns false for unknown ids.
func (r *Room) SetEstimate(playerID string, value Estimate) bool {
	p, ok := r.Participants[playerID]
	if !ok {
		return false
	}
	p.Estimate = &value
	return true
}

// Has reports whether a participant exists.
func (r *Room) Has(playerID string) bool {
	_, ok := r.Participants[playerID]
	return ok
}

// IsOwner reports whether the participant is the current room owner.
func (r *Room) IsOwner(playerID string) bool {
	return r.OwnerID != "" && r.OwnerID == playerID
}

// Reveal exposes all current estimates. Idempotent.
func (r *Room) Reveal() {
	r.Revealed = true
}

// Reset hides and clears every estimate and advances the round counter.
func (r *Room) Reset() {
	r.Revealed = false
	r.Round++
	for _, p := range r.Participants {
		p.Estimate = nil
	}
}

// RemoveParticipant deletes a participant, elects the earliest remaining
// joiner as owner when the owner left, and resets the room to pristine state
// when empty. Returns false when the id was unknown (no state change).
func (r *Room) RemoveParticipant(playerID string) bool {
	if _, ok := r.Participants[playerID]; !ok {
		return false
	}
	delete(r.Participants, playerID)

	if r.OwnerID == playerID {
		r.OwnerID = r.nextOwner()
	}
	if len(r.Participants) == 0 {
		r.OwnerID = ""
		r.Revealed = false
		r.Round = 1
	}
	return true
}

func (r *Room) nextOwner() string {
	var next *Participant
	for _, p := range r.Participants {
		if next == nil || earlier(p, next) {
			next = p
		}
	}
	if next == nil {
		return ""
	}
	return next.ID
}

func earlier(a, b *Participant) bool {
	if !a.JoinedAt.Equal(b.JoinedAt) {
		return a.JoinedAt.Before(b.JoinedAt)
	}
	return a.seq < b.seq
}

// Snapshot derives the outward-facing view: participants sorted by join
// time, each marked with ownership. Deterministic for identical state.
func (r *Room) Snapshot() *RoomSnapshot {
	players := make([]PlayerSnapshot, 0, len(r.Participants))
	ordered := make([]*Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool { return earlier(ordered[i], ordered[j]) })

	for _, p := range ordered {
		players = append(players, PlayerSnapshot{
			ID:       p.ID,
			Name:     p.Name,
			Estimate: p.Estimate,
			IsOwner:  p.ID == r.OwnerID,
		})
	}

	return &RoomSnapshot{
		ID:       r.ID,
		Players:  players,
		Revealed: r.Revealed,
		Round:    r.Round,
	}
}
