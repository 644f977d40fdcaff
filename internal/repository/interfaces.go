package repository

import (
	"time"

	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
)

// UserRepositoryInterface defines the contract for user lookups
type UserRepositoryInterface interface {
	FindByID(id string) (*models.User, error)
}

// MessageRepositoryInterface defines the contract for message persistence
type MessageRepositoryInterface interface {
	Create(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	FindByIDWithUser(id uint) (*models.Message, error)
	Delete(id uint) error
}

// ReactionRepositoryInterface defines the contract for reaction persistence
type ReactionRepositoryInterface interface {
	FindByMessageAndUser(messageID uint, userID string) (*models.MessageReaction, error)
	Create(reaction *models.MessageReaction) error
	UpdateEmoji(id uint, emoji string) error
	Delete(id uint) error
	ListForMessage(messageID uint) ([]ReactionRow, error)
}

// MembershipRepositoryInterface resolves channels, teams and private chats to
// their member sets for notification fan-out
type MembershipRepositoryInterface interface {
	FindChannel(channelID uint) (*models.Channel, error)
	ChannelMemberIDs(channelID uint) ([]string, error)
	TeamMemberIDs(teamID uint) ([]string, error)
	PrivateChatMemberIDs(privateChatID uint) ([]string, error)
}

// FileRepositoryInterface defines the contract for file metadata and links
type FileRepositoryInterface interface {
	LinkToMessage(messageID uint, fileIDs []uint) error
	FindByIDs(fileIDs []uint) ([]models.File, error)
}

// NotificationRepositoryInterface defines the contract for notification persistence
type NotificationRepositoryInterface interface {
	Create(notification *models.Notification) error
	ListByUser(userID string, offset, limit int) ([]models.Notification, error)
	CountUnread(userID string) (int64, error)
	MarkAsRead(id uint, userID string, readAt time.Time) error
	MarkAllAsRead(userID string, readAt time.Time) error
}

// TemplateRepositoryInterface defines the contract for notification template persistence
type TemplateRepositoryInterface interface {
	Create(template *models.NotificationTemplate) error
	FindByID(id uint) (*models.NotificationTemplate, error)
	FindByNotifiable(notifiableType string, notifiableID uint) (*models.NotificationTemplate, error)
	Update(template *models.NotificationTemplate) error
	DeleteByNotifiable(notifiableType string, notifiableID uint) error
	FindDue(now time.Time) ([]models.NotificationTemplate, error)
	SetLastSentAt(id uint, at time.Time) error
	SetNextSendAt(id uint, next *time.Time) error
	Deactivate(id uint) error
}
