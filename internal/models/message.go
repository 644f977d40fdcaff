package models

import (
	"time"
)

type MessageType string

const (
	TextMessage MessageType = "text"
)

// Message belongs to exactly one of a channel or a private chat. ParentID
// supports one level of reply quoting; deleting a message cascades to its
// replies and reactions.
type Message struct {
	ID            uint       `gorm:"primarykey" json:"id"`
	UserID        string     `gorm:"type:varchar(36);not null;index" json:"user_id"`
	User          User       `gorm:"foreignKey:UserID" json:"user"`
	ChannelID     *uint      `gorm:"index" json:"channel_id"`     // null for private chat messages
	PrivateChatID *uint      `gorm:"index" json:"private_chat_id"` // null for channel messages
	Content       string     `gorm:"type:text" json:"content"`
	Type          MessageType `gorm:"type:varchar(255);default:'text';not null" json:"type"`
	ParentID      *uint      `gorm:"index" json:"parent_id"`
	Parent        *Message   `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"parent,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// MessageReaction holds at most one emoji per (message, user); the unique
// index backs the toggle/replace semantics in the reaction service.
type MessageReaction struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_message_user" json:"message_id"`
	Message   Message   `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_message_user" json:"user_id"`
	Emoji     string    `gorm:"not null" json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReactionGroup is the per-emoji aggregate returned after every reaction
// mutation, ordered by first-seen emoji.
type ReactionGroup struct {
	Emoji   string         `json:"emoji"`
	Count   int            `json:"count"`
	Users   []ReactionUser `json:"users"`
	UserIDs []string       `json:"userIds"`
}

type ReactionUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MessagePayload is the delivery-ready shape broadcast to room members after
// a successful send.
type MessagePayload struct {
	ID            uint            `json:"id"`
	ChannelID     *uint           `json:"channelId,omitempty"`
	PrivateChatID *uint           `json:"privateChatId,omitempty"`
	Content       string          `json:"content"`
	CreatedAt     time.Time       `json:"createdAt"`
	UserID        string          `json:"userId"`
	UserName      string          `json:"userName"`
	UserEmail     string          `json:"userEmail"`
	UserImage     string          `json:"userImage,omitempty"`
	Type          MessageType     `json:"type"`
	Files         []FilePayload   `json:"files,omitempty"`
	ParentID      *uint           `json:"parentId"`
	ParentMessage *ParentPreview  `json:"parentMessage"`
	Reactions     []ReactionGroup `json:"reactions"`
	Status        string          `json:"status"`
}

// ParentPreview is the one-level reply quote; no recursive ancestor walk.
type ParentPreview struct {
	ID       uint   `json:"id"`
	Content  string `json:"content"`
	UserName string `json:"userName"`
	UserID   string `json:"userId,omitempty"`
}
