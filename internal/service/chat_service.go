package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/repository"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/validation"
)

type DestinationKind string

const (
	DestinationChannel     DestinationKind = "channel"
	DestinationPrivateChat DestinationKind = "private"
)

// Destination is the parsed form of a "<type>:<id>" room id.
type Destination struct {
	Kind DestinationKind
	ID   uint
}

func (d Destination) Room() string {
	return fmt.Sprintf("%s:%d", d.Kind, d.ID)
}

var (
	ErrInvalidDestination = errors.New("invalid destination")
	ErrInvalidContent     = errors.New("invalid message content")
)

// ParseRoomID validates and splits a "<type>:<id>" room id into a tagged
// destination.
func ParseRoomID(roomID string) (Destination, error) {
	kind, idStr, found := strings.Cut(roomID, ":")
	if !found {
		return Destination{}, fmt.Errorf("%w: %q", ErrInvalidDestination, roomID)
	}

	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: bad id in %q", ErrInvalidDestination, roomID)
	}

	switch DestinationKind(kind) {
	case DestinationChannel, DestinationPrivateChat:
		return Destination{Kind: DestinationKind(kind), ID: uint(id)}, nil
	default:
		return Destination{}, fmt.Errorf("%w: unknown room type %q", ErrInvalidDestination, kind)
	}
}

// NotificationCreator is the slice of the notification service the fan-out
// path needs.
type NotificationCreator interface {
	Create(input CreateNotificationInput) (*models.NotificationEnvelope, error)
}

// AttachmentSigner resolves stored object keys to fetchable URLs.
type AttachmentSigner interface {
	PresignURL(ctx context.Context, key string) (string, error)
}

type SendMessageInput struct {
	Content  string `json:"content"`
	RoomID   string `json:"roomId"`
	FileIDs  []uint `json:"fileIds"`
	ParentID *uint  `json:"parentId"`
}

type ChatService struct {
	messageRepo    repository.MessageRepositoryInterface
	userRepo       repository.UserRepositoryInterface
	fileRepo       repository.FileRepositoryInterface
	membershipRepo repository.MembershipRepositoryInterface
	notifications  NotificationCreator
	signer         AttachmentSigner // optional
}

func NewChatService(
	messageRepo repository.MessageRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	fileRepo repository.FileRepositoryInterface,
	membershipRepo repository.MembershipRepositoryInterface,
	notifications NotificationCreator,
	signer AttachmentSigner,
) *ChatService {
	return &ChatService{
		messageRepo:    messageRepo,
		userRepo:       userRepo,
		fileRepo:       fileRepo,
		membershipRepo: membershipRepo,
		notifications:  notifications,
		signer:         signer,
	}
}

// SendMessage persists a message for the destination and assembles the
// delivery payload. Identity, attachment and parent resolution are
// best-effort; only the destination parse and the message write can fail the
// send. Notification fan-out runs detached so a slow or failing pipeline
// never delays the sender.
func (s *ChatService) SendMessage(userID string, dest Destination, input SendMessageInput) (*models.MessagePayload, error) {
	if !validation.ValidateMessageContent(input.Content) {
		return nil, ErrInvalidContent
	}

	message := &models.Message{
		UserID:   userID,
		Content:  input.Content,
		Type:     models.TextMessage,
		ParentID: input.ParentID,
	}
	switch dest.Kind {
	case DestinationChannel:
		message.ChannelID = &dest.ID
	case DestinationPrivateChat:
		message.PrivateChatID = &dest.ID
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDestination, dest.Kind)
	}

	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}

	if len(input.FileIDs) > 0 {
		// File ids are taken on trust; a bad id just yields no metadata below.
		if err := s.fileRepo.LinkToMessage(message.ID, input.FileIDs); err != nil {
			log.Printf("Error linking files to message %d: %v", message.ID, err)
		}
	}

	payload := &models.MessagePayload{
		ID:            message.ID,
		ChannelID:     message.ChannelID,
		PrivateChatID: message.PrivateChatID,
		Content:       message.Content,
		CreatedAt:     message.CreatedAt,
		UserID:        userID,
		UserName:      "Unknown",
		Type:          message.Type,
		ParentID:      message.ParentID,
		Reactions:     []models.ReactionGroup{},
		Status:        "sent",
	}

	sender, err := s.userRepo.FindByID(userID)
	if err != nil {
		log.Printf("Error resolving sender %s: %v", userID, err)
		sender = nil
	} else {
		payload.UserName = sender.Name
		payload.UserEmail = sender.Email
		payload.UserImage = sender.Image
	}

	payload.Files = s.resolveFiles(input.FileIDs)
	payload.ParentMessage = s.resolveParent(input.ParentID)

	senderName := payload.UserName
	go s.notifyRecipients(dest, userID, senderName, input.Content)

	return payload, nil
}

func (s *ChatService) resolveFiles(fileIDs []uint) []models.FilePayload {
	if len(fileIDs) == 0 {
		return nil
	}

	files, err := s.fileRepo.FindByIDs(fileIDs)
	if err != nil {
		log.Printf("Error fetching files %v: %v", fileIDs, err)
		return nil
	}
	if len(files) == 0 {
		return nil
	}

	payloads := make([]models.FilePayload, 0, len(files))
	for i := range files {
		p := files[i].ToPayload()
		if s.signer != nil && !strings.HasPrefix(files[i].Path, "http") {
			if signed, err := s.signer.PresignURL(context.Background(), files[i].Path); err == nil {
				p.URL = signed
			}
		}
		payloads = append(payloads, p)
	}
	return payloads
}

func (s *ChatService) resolveParent(parentID *uint) *models.ParentPreview {
	if parentID == nil {
		return nil
	}

	parent, err := s.messageRepo.FindByIDWithUser(*parentID)
	if err != nil {
		log.Printf("Error resolving parent message %d: %v", *parentID, err)
		return nil
	}

	userName := parent.User.Name
	if userName == "" {
		userName = "Unknown"
	}
	return &models.ParentPreview{
		ID:       parent.ID,
		Content:  parent.Content,
		UserName: userName,
		UserID:   parent.UserID,
	}
}

// notifyRecipients creates one notification per fan-out recipient. Channel
// messages reach channel members (private) or the whole owning team
// (public); private chats reach the other participants. The sender is never
// a recipient. All failures are logged only.
func (s *ChatService) notifyRecipients(dest Destination, senderID, senderName, content string) {
	switch dest.Kind {
	case DestinationPrivateChat:
		s.notifyPrivateChat(dest.ID, senderID, senderName, content)
	case DestinationChannel:
		s.notifyChannel(dest.ID, senderID, senderName, content)
	}
}

func (s *ChatService) notifyPrivateChat(chatID uint, senderID, senderName, content string) {
	members, err := s.membershipRepo.PrivateChatMemberIDs(chatID)
	if err != nil {
		log.Printf("Error resolving private chat %d members: %v", chatID, err)
		return
	}

	notifiableType := "PrivateChat"
	sendEmail := true
	for _, memberID := range members {
		if memberID == senderID {
			continue
		}
		_, err := s.notifications.Create(CreateNotificationInput{
			UserID:  memberID,
			Title:   fmt.Sprintf("📩 Nuevo mensaje de %s", senderName),
			Message: truncate(content, 50),
			Data: map[string]interface{}{
				"action_url":      fmt.Sprintf("/chats/%d", chatID),
				"actionUrl":       fmt.Sprintf("/chats/%d", chatID),
				"senderId":        senderID,
				"chatId":          chatID,
				"email_template":  "new-message",
				"sender_name":     senderName,
				"message_content": content,
			},
			NotifiableType: &notifiableType,
			NotifiableID:   &chatID,
			SendEmail:      &sendEmail,
		})
		if err != nil {
			log.Printf("Error creating notification for user %s in chat %d: %v", memberID, chatID, err)
		}
	}
}

func (s *ChatService) notifyChannel(channelID uint, senderID, senderName, content string) {
	channel, err := s.membershipRepo.FindChannel(channelID)
	if err != nil {
		log.Printf("Error resolving channel %d: %v", channelID, err)
		return
	}

	var recipients []string
	var title string
	if channel.IsPrivate {
		recipients, err = s.membershipRepo.ChannelMemberIDs(channelID)
		title = fmt.Sprintf("🔒 Nuevo mensaje en #%s", channelName(channel.Name, "canal privado"))
	} else {
		recipients, err = s.membershipRepo.TeamMemberIDs(channel.TeamID)
		title = fmt.Sprintf("💬 Nuevo mensaje en #%s", channelName(channel.Name, "canal"))
	}
	if err != nil {
		log.Printf("Error resolving recipients for channel %d: %v", channelID, err)
		return
	}

	notifiableType := "Channel"
	for _, memberID := range recipients {
		if memberID == senderID {
			continue
		}
		_, err := s.notifications.Create(CreateNotificationInput{
			UserID:  memberID,
			Title:   title,
			Message: fmt.Sprintf("%s: %s", senderName, truncate(content, 100)),
			Data: map[string]interface{}{
				"action_url": fmt.Sprintf("/teams/%d?channelId=%d", channel.TeamID, channelID),
				"channelId":  channelID,
				"teamId":     channel.TeamID,
				"senderId":   senderID,
				"senderName": senderName,
			},
			NotifiableType: &notifiableType,
			NotifiableID:   &channelID,
		})
		if err != nil {
			log.Printf("Error creating notification for user %s in channel %d: %v", memberID, channelID, err)
		}
	}
}

func channelName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// truncate cuts content to max runes with an ellipsis.
func truncate(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
