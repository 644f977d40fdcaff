package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/cache"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/handlers/ws"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/service"
)

// clientEnvelope is the wire format for every client-to-server event.
type clientEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinRoomPayload struct {
	Room   string `json:"room"`
	UserID string `json:"userId"`
}

type sendMessagePayload struct {
	Content  string `json:"content"`
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	FileIDs  []uint `json:"fileIds"`
	ParentID *uint  `json:"parentId"`
}

type reactionPayload struct {
	RoomID    string `json:"roomId"`
	MessageID uint   `json:"messageId"`
	UserID    string `json:"userId"`
	Emoji     string `json:"emoji"`
	Action    string `json:"action"`
}

type typingPayload struct {
	Room     string `json:"room"`
	IsTyping bool   `json:"isTyping"`
	UserName string `json:"userName"`
}

type userIDPayload struct {
	UserID string `json:"userId"`
}

type WebSocketHandler struct {
	hub             *ws.Hub
	presence        *ws.Presence
	chatService     *service.ChatService
	reactionService *service.ReactionService
	userCache       *cache.UserCache
}

func NewWebSocketHandler(hub *ws.Hub, presence *ws.Presence, chatService *service.ChatService, reactionService *service.ReactionService, userCache *cache.UserCache) *WebSocketHandler {
	return &WebSocketHandler{
		hub:             hub,
		presence:        presence,
		chatService:     chatService,
		reactionService: reactionService,
		userCache:       userCache,
	}
}

func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	connID := uuid.NewString()
	authUserID, _ := c.Locals("userID").(string)

	h.hub.Register(connID, c)
	defer func() {
		h.hub.Unregister(connID)
		h.presence.Untrack(connID)
	}()

	// Pongs extend the read deadline; a silent peer errors the read loop
	// within the pong timeout and runs the teardown above.
	c.SetReadDeadline(time.Now().Add(ws.PongTimeout))
	c.SetPongHandler(func(string) error {
		h.hub.Pong(connID)
		return c.SetReadDeadline(time.Now().Add(ws.PongTimeout))
	})

	log.Printf("Connection %s opened (user=%s)", connID, authUserID)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			log.Printf("Connection %s read error: %v", connID, err)
			break
		}

		var envelope clientEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			h.sendError(connID, "invalid message format")
			continue
		}

		h.dispatch(connID, authUserID, envelope)
	}

	log.Printf("Connection %s closed", connID)
}

func (h *WebSocketHandler) dispatch(connID, authUserID string, envelope clientEnvelope) {
	switch envelope.Event {
	case "joinRoom":
		h.handleJoinRoom(connID, envelope.Data)
	case "leaveRoom":
		h.handleLeaveRoom(connID, envelope.Data)
	case "sendMessage":
		h.handleSendMessage(connID, authUserID, envelope.Data)
	case "messageReaction":
		h.handleReaction(connID, authUserID, envelope.Data)
	case "typing":
		h.handleTyping(connID, envelope.Data)
	case "getOnlineStatus":
		h.handleOnlineStatus(connID, envelope.Data)
	case "joinNotifications":
		h.handleJoinNotifications(connID, envelope.Data)
	case "leaveNotifications":
		h.handleLeaveNotifications(connID, envelope.Data)
	default:
		h.sendError(connID, "unknown event "+envelope.Event)
	}
}

func (h *WebSocketHandler) handleJoinRoom(connID string, data json.RawMessage) {
	var payload joinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		h.sendError(connID, "room is required")
		return
	}

	h.hub.Join(connID, payload.Room)
	if payload.UserID != "" {
		h.presence.Track(payload.UserID, connID)
	}

	h.ack(connID, "joinedRoom", map[string]interface{}{"room": payload.Room})
}

func (h *WebSocketHandler) handleLeaveRoom(connID string, data json.RawMessage) {
	var payload joinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		h.sendError(connID, "room is required")
		return
	}

	h.hub.Leave(connID, payload.Room)
	h.ack(connID, "leftRoom", map[string]interface{}{"room": payload.Room})
}

func (h *WebSocketHandler) handleSendMessage(connID, authUserID string, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(connID, "invalid sendMessage payload")
		return
	}

	userID := payload.UserID
	if userID == "" {
		userID = authUserID
	}
	if userID == "" {
		h.sendError(connID, "userId is required")
		return
	}

	dest, err := service.ParseRoomID(payload.RoomID)
	if err != nil {
		h.sendError(connID, err.Error())
		return
	}

	message, err := h.chatService.SendMessage(userID, dest, service.SendMessageInput{
		Content:  payload.Content,
		RoomID:   payload.RoomID,
		FileIDs:  payload.FileIDs,
		ParentID: payload.ParentID,
	})
	if err != nil {
		h.sendError(connID, err.Error())
		return
	}

	h.hub.BroadcastToRoom(dest.Room(), "newMessage", message)

	if dest.Kind == service.DestinationChannel {
		h.hub.BroadcastToAll("channelMessageNotification", map[string]interface{}{
			"channelId": dest.ID,
			"userId":    userID,
			"messageId": message.ID,
		})
	}
}

func (h *WebSocketHandler) handleReaction(connID, authUserID string, data json.RawMessage) {
	var payload reactionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(connID, "invalid messageReaction payload")
		return
	}

	userID := payload.UserID
	if userID == "" {
		userID = authUserID
	}

	result, err := h.reactionService.React(service.ReactionInput{
		MessageID: payload.MessageID,
		UserID:    userID,
		Emoji:     payload.Emoji,
		Action:    service.ReactionAction(payload.Action),
	})
	if err != nil {
		log.Printf("Reaction on message %d by user %s failed: %v", payload.MessageID, userID, err)
		h.sendError(connID, "could not update reaction")
		return
	}

	h.hub.BroadcastToRoom(payload.RoomID, "reactionUpdated", result)
}

func (h *WebSocketHandler) handleTyping(connID string, data json.RawMessage) {
	var payload typingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		return
	}
	h.hub.BroadcastToRoomExcept(payload.Room, "typing", payload, connID)
}

func (h *WebSocketHandler) handleOnlineStatus(connID string, data json.RawMessage) {
	var payload userIDPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		h.sendError(connID, "userId is required")
		return
	}

	// The local tracker is authoritative for this node; the Redis mirror
	// covers users connected elsewhere.
	isOnline := h.presence.IsOnline(payload.UserID) || h.userCache.IsUserOnline(payload.UserID)

	h.ack(connID, "onlineStatus", map[string]interface{}{
		"userId":   payload.UserID,
		"isOnline": isOnline,
	})
}

func (h *WebSocketHandler) handleJoinNotifications(connID string, data json.RawMessage) {
	var payload userIDPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		h.sendError(connID, "userId is required")
		return
	}
	h.hub.Join(connID, service.NotificationRoom(payload.UserID))
}

func (h *WebSocketHandler) handleLeaveNotifications(connID string, data json.RawMessage) {
	var payload userIDPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		return
	}
	h.hub.Leave(connID, service.NotificationRoom(payload.UserID))
}

func (h *WebSocketHandler) ack(connID, event string, payload interface{}) {
	if err := h.hub.SendToConn(connID, event, payload); err != nil {
		log.Printf("Error acking %s to connection %s: %v", event, connID, err)
	}
}

// sendError delivers the flat error shape clients pattern-match on. It goes
// to the caller only, never to a room.
func (h *WebSocketHandler) sendError(connID, message string) {
	if err := h.hub.SendToConn(connID, "error", map[string]interface{}{
		"status":  "error",
		"message": message,
	}); err != nil {
		log.Printf("Error sending error to connection %s: %v", connID, err)
	}
}

