package services

// Registry tracks which live connection is bound to which participant id.
// The two directions are views of a single relation, mutated only through
// Bind/Unbind/Remove so they can never diverge. The registry is confined to
// its room actor's goroutine and needs no locking.
type Registry struct {
	players  map[*Client]string // registered connections; "" while unbound
	byPlayer map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		players:  make(map[*Client]string),
		byPlayer: make(map[string]*Client),
	}
}

// Add registers a connection with no bound participant.
func (r *Registry) Add(c *Client) {
	if _, ok := r.players[c]; !ok {
		r.players[c] = ""
	}
}

// Has reports whether the connection is registered.
func (r *Registry) Has(c *Client) bool {
	_, ok := r.players[c]
	return ok
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	return len(r.players)
}

// Clients returns all registered connections.
func (r *Registry) Clients() []*Client {
	out := make([]*Client, 0, len(r.players))
	for c := range r.players {
		out = append(out, c)
	}
	return out
}

// Bind associates a connection with a participant id, displacing any prior
// binding of either side. At most one connection is bound to a given id.
func (r *Registry) Bind(c *Client, playerID string) {
	if prev, ok := r.players[c]; ok && prev != "" {
		delete(r.byPlayer, prev)
	}
	if prevConn, ok := r.byPlayer[playerID]; ok && prevConn != c {
		r.players[prevConn] = ""
	}
	r.players[c] = playerID
	r.byPlayer[playerID] = c
}

// Unbind clears a connection's participant binding without unregistering it.
func (r *Registry) Unbind(c *Client) {
	if playerID, ok := r.players[c]; ok && playerID != "" {
		delete(r.byPlayer, playerID)
		r.players[c] = ""
	}
}

// Remove unregisters a connection, dropping its binding if any.
func (r *Registry) Remove(c *Client) {
	r.Unbind(c)
	delete(r.players, c)
}

// PlayerFor returns the participant id bound to a connection, or "".
func (r *Registry) PlayerFor(c *Client) string {
	return r.players[c]
}

// ClientFor returns the connection bound to a participant id, or nil.
func (r *Registry) ClientFor(playerID string) *Client {
	return r.byPlayer[playerID]
}
