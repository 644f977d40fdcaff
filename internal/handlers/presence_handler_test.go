package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/cache"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/handlers/ws"
)

func newPresenceApp(presence *ws.Presence) *fiber.App {
	app := fiber.New()
	handler := NewPresenceHandler(presence, cache.NewUserCache(nil))
	app.Get("/api/users/online", handler.GetOnlineUsers)
	app.Get("/api/users/:userId/online", handler.GetUserStatus)
	return app
}

func TestGetUserStatus(t *testing.T) {
	presence := ws.NewPresence(nil, nil)
	presence.Track("U", "c1")
	app := newPresenceApp(presence)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/users/U/online", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		UserID   string `json:"userId"`
		IsOnline bool   `json:"isOnline"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.UserID != "U" || !body.IsOnline {
		t.Errorf("expected U online, got %+v", body)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/api/users/V/online", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.IsOnline {
		t.Error("user with no connections must report offline")
	}
}

func TestGetOnlineUsers(t *testing.T) {
	presence := ws.NewPresence(nil, nil)
	presence.Track("B", "c1")
	presence.Track("A", "c2")
	presence.Track("A", "c3")
	app := newPresenceApp(presence)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/users/online", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Users []string `json:"users"`
		Count int      `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Count != 2 || len(body.Users) != 2 {
		t.Fatalf("expected 2 online users, got %+v", body)
	}
	if body.Users[0] != "A" || body.Users[1] != "B" {
		t.Errorf("expected sorted ids [A B], got %v", body.Users)
	}
}
