package gateway

import (
	"slices"
	"sync"
)

// Presence counts live connections per member. A member with two tabs open
// counts as two clients.
type Presence struct {
	mu      sync.RWMutex
	clients map[string]string // clientID -> memberID
	members map[string]int    // memberID -> open connections
}

func NewPresence() *Presence {
	return &Presence{
		clients: make(map[string]string),
		members: make(map[string]int),
	}
}

// Join records a new connection and returns the total client count.
func (p *Presence) Join(memberID, clientID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.clients[clientID]; !ok {
		p.clients[clientID] = memberID
		p.members[memberID]++
	}
	return len(p.clients)
}

// Leave forgets a connection. It returns the member it belonged to and the
// remaining total.
func (p *Presence) Leave(clientID string) (memberID string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	memberID, ok := p.clients[clientID]
	if ok {
		delete(p.clients, clientID)
		if p.members[memberID]--; p.members[memberID] <= 0 {
			delete(p.members, memberID)
		}
	}
	return memberID, len(p.clients)
}

// TotalClients returns the number of open connections.
func (p *Presence) TotalClients() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

// IsOnline reports whether memberID has at least one connection.
func (p *Presence) IsOnline(memberID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.members[memberID] > 0
}

// Members returns online member IDs, sorted.
func (p *Presence) Members() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.members))
	for id := range p.members {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
