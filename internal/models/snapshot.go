package models

// PlayerSnapshot is one participant as seen by every client. Estimate stays
// an explicit null until a vote is cast.
type PlayerSnapshot struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Estimate *Estimate `json:"estimate"`
	IsOwner  bool      `json:"isOwner"`
}

// RoomSnapshot is the complete visible state of a room.
type RoomSnapshot struct {
	ID       string           `json:"id"`
	Players  []PlayerSnapshot `json:"players"`
	Revealed bool             `json:"revealed"`
	Round    int              `json:"round"`
}
