package roomrt

// Presence tracks the one connected session allowed per player within a
// room. It is only ever touched from that room's actor goroutine, so no
// locking is needed (§5 single-writer actor).
type Presence struct {
	byPlayer map[string]*Client
}

func NewPresence() *Presence {
	return &Presence{byPlayer: make(map[string]*Client)}
}

// Adopt registers client as the active session for playerID. If a different
// session was already active for that player, it is replaced and returned;
// Adopt does not close it, closing the evicted session is the caller's job.
func (p *Presence) Adopt(playerID string, client *Client) *Client {
	var evicted *Client
	if old, ok := p.byPlayer[playerID]; ok && old != client {
		evicted = old
	}
	p.byPlayer[playerID] = client
	return evicted
}

// Remove drops a player's presence if client is still its active session
// (a stale reconnect's defer must not evict the session that replaced it).
func (p *Presence) Remove(playerID string, client *Client) {
	if current, ok := p.byPlayer[playerID]; ok && current == client {
		delete(p.byPlayer, playerID)
	}
}

// Get returns the active client for a player, if any.
func (p *Presence) Get(playerID string) (*Client, bool) {
	c, ok := p.byPlayer[playerID]
	return c, ok
}

// Count returns the number of distinct connected players.
func (p *Presence) Count() int {
	return len(p.byPlayer)
}

// Each iterates every connected (playerID, client) pair.
func (p *Presence) Each(fn func(playerID string, client *Client)) {
	for id, c := range p.byPlayer {
		fn(id, c)
	}
}
