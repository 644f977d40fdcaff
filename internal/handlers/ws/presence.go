package ws

import "sync"

// Presence maps users to the set of connections they currently hold. A user
// is online while at least one connection is tracked; the transition
// callbacks fire only on the 0→1 and 1→0 edges, so multi-tab users flap
// nothing. Callbacks run under the presence lock so transitions are
// delivered in state order; they must not call back into Presence.
type Presence struct {
	mux   sync.RWMutex
	users map[string]map[string]bool

	onOnline  func(userID string)
	onOffline func(userID string)
}

func NewPresence(onOnline, onOffline func(userID string)) *Presence {
	return &Presence{
		users:     make(map[string]map[string]bool),
		onOnline:  onOnline,
		onOffline: onOffline,
	}
}

// Track records a connection for the user and fires onOnline when it is
// their first.
func (p *Presence) Track(userID, connID string) {
	p.mux.Lock()
	defer p.mux.Unlock()

	first := len(p.users[userID]) == 0
	if p.users[userID] == nil {
		p.users[userID] = make(map[string]bool)
	}
	p.users[userID][connID] = true

	if first && p.onOnline != nil {
		p.onOnline(userID)
	}
}

// Untrack drops a connection and fires onOffline when it was the user's
// last. The owning user is found by scan; connection counts are small.
func (p *Presence) Untrack(connID string) {
	p.mux.Lock()
	defer p.mux.Unlock()

	for userID, conns := range p.users {
		if conns[connID] {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(p.users, userID)
				if p.onOffline != nil {
					p.onOffline(userID)
				}
			}
			break
		}
	}
}

// IsOnline reports whether the user has at least one live connection.
func (p *Presence) IsOnline(userID string) bool {
	p.mux.RLock()
	defer p.mux.RUnlock()
	return len(p.users[userID]) > 0
}

// OnlineUsers returns the ids of all currently online users.
func (p *Presence) OnlineUsers() []string {
	p.mux.RLock()
	defer p.mux.RUnlock()

	users := make([]string, 0, len(p.users))
	for userID := range p.users {
		users = append(users, userID)
	}
	return users
}

// ConnectionCount returns how many connections the user holds.
func (p *Presence) ConnectionCount(userID string) int {
	p.mux.RLock()
	defer p.mux.RUnlock()
	return len(p.users[userID])
}
