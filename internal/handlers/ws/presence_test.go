package ws

import (
	"fmt"
	"sync"
	"testing"
)

type presenceRecorder struct {
	mux     sync.Mutex
	online  []string
	offline []string
}

func (r *presenceRecorder) onOnline(userID string) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.online = append(r.online, userID)
}

func (r *presenceRecorder) onOffline(userID string) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.offline = append(r.offline, userID)
}

func TestPresenceEdgeTransitions(t *testing.T) {
	rec := &presenceRecorder{}
	p := NewPresence(rec.onOnline, rec.onOffline)

	// First connection flips the user online
	p.Track("U", "c1")
	if len(rec.online) != 1 || rec.online[0] != "U" {
		t.Fatalf("expected one userOnline for U, got %v", rec.online)
	}

	// Second connection for the same user emits nothing
	p.Track("U", "c2")
	if len(rec.online) != 1 {
		t.Errorf("second connection must not re-emit online, got %v", rec.online)
	}
	if p.ConnectionCount("U") != 2 {
		t.Errorf("expected 2 connections, got %d", p.ConnectionCount("U"))
	}

	// Dropping one of two connections keeps the user online
	p.Untrack("c1")
	if len(rec.offline) != 0 {
		t.Errorf("user still has a connection, got offline events %v", rec.offline)
	}
	if !p.IsOnline("U") {
		t.Error("user should still be online")
	}

	// Dropping the last connection flips the user offline
	p.Untrack("c2")
	if len(rec.offline) != 1 || rec.offline[0] != "U" {
		t.Fatalf("expected one userOffline for U, got %v", rec.offline)
	}
	if p.IsOnline("U") {
		t.Error("user should be offline")
	}
}

func TestPresenceUntrackUnknownConnection(t *testing.T) {
	rec := &presenceRecorder{}
	p := NewPresence(rec.onOnline, rec.onOffline)

	p.Untrack("ghost")
	if len(rec.offline) != 0 {
		t.Errorf("unknown connection must not emit offline, got %v", rec.offline)
	}
}

func TestPresenceOnlineUsers(t *testing.T) {
	p := NewPresence(nil, nil)
	p.Track("A", "c1")
	p.Track("B", "c2")
	p.Track("B", "c3")

	users := p.OnlineUsers()
	if len(users) != 2 {
		t.Fatalf("expected 2 online users, got %v", users)
	}

	seen := map[string]bool{}
	for _, u := range users {
		seen[u] = true
	}
	if !seen["A"] || !seen["B"] {
		t.Errorf("expected A and B online, got %v", users)
	}
}

func TestPresenceTrackSameConnectionTwice(t *testing.T) {
	rec := &presenceRecorder{}
	p := NewPresence(rec.onOnline, rec.onOffline)

	p.Track("U", "c1")
	p.Track("U", "c1")
	if p.ConnectionCount("U") != 1 {
		t.Errorf("duplicate track must not double-count, got %d", p.ConnectionCount("U"))
	}

	p.Untrack("c1")
	if !waitForOffline(rec, "U") {
		t.Error("expected offline after dropping the only connection")
	}
}

func TestPresenceTransitionOrdering(t *testing.T) {
	var mux sync.Mutex
	var events []string
	p := NewPresence(
		func(string) {
			mux.Lock()
			events = append(events, "online")
			mux.Unlock()
		},
		func(string) {
			mux.Lock()
			events = append(events, "offline")
			mux.Unlock()
		},
	)

	// Connect/disconnect churn from concurrent goroutines must never
	// deliver a stale transition (offline before its matching online)
	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				connID := fmt.Sprintf("c%d-%d", g, i)
				p.Track("U", connID)
				p.Untrack(connID)
			}
		}(g)
	}
	wg.Wait()

	mux.Lock()
	defer mux.Unlock()
	if len(events)%2 != 0 {
		t.Fatalf("expected paired transitions, got %d events", len(events))
	}
	for i, event := range events {
		want := "online"
		if i%2 == 1 {
			want = "offline"
		}
		if event != want {
			t.Fatalf("event %d = %q, want %q: transitions delivered out of order", i, event, want)
		}
	}
}

func waitForOffline(rec *presenceRecorder, userID string) bool {
	rec.mux.Lock()
	defer rec.mux.Unlock()
	for _, u := range rec.offline {
		if u == userID {
			return true
		}
	}
	return false
}
