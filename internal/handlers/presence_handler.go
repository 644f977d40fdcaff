package handlers

import (
	"log"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/cache"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/handlers/ws"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/httpx"
)

// PresenceHandler answers online-status queries over HTTP. It reads the
// in-process tracker first and merges in the Redis mirror, which covers
// users connected through other nodes.
type PresenceHandler struct {
	presence  *ws.Presence
	userCache *cache.UserCache
}

func NewPresenceHandler(presence *ws.Presence, userCache *cache.UserCache) *PresenceHandler {
	return &PresenceHandler{presence: presence, userCache: userCache}
}

func (h *PresenceHandler) GetOnlineUsers(c *fiber.Ctx) error {
	seen := make(map[string]bool)
	for _, userID := range h.presence.OnlineUsers() {
		seen[userID] = true
	}

	mirrored, err := h.userCache.GetOnlineUsers()
	if err != nil {
		log.Printf("Failed to read online users mirror: %v", err)
	}
	for _, userID := range mirrored {
		seen[userID] = true
	}

	users := make([]string, 0, len(seen))
	for userID := range seen {
		users = append(users, userID)
	}
	sort.Strings(users)

	return c.JSON(fiber.Map{"users": users, "count": len(users)})
}

func (h *PresenceHandler) GetUserStatus(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return httpx.BadRequest(c, "missing_user", "userId is required")
	}

	isOnline := h.presence.IsOnline(userID) || h.userCache.IsUserOnline(userID)
	return c.JSON(fiber.Map{"userId": userID, "isOnline": isOnline})
}
