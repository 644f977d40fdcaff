package models

import (
	"time"
)

type Team struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TeamMember struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	TeamID    uint      `gorm:"not null;index;uniqueIndex:idx_team_user" json:"team_id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_team_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeamMember) TableName() string { return "team_user" }

// Channel is a team-scoped chat room. Private channels restrict message
// fan-out to explicit members; public channels fan out to the whole team.
type Channel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	TeamID    uint      `gorm:"not null;index" json:"team_id"`
	Name      string    `gorm:"not null" json:"name"`
	IsPrivate bool      `gorm:"default:false" json:"is_private"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Channel) TableName() string { return "team_channels" }

type ChannelMember struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ChannelID uint      `gorm:"not null;index;uniqueIndex:idx_channel_user" json:"channel_id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_channel_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ChannelMember) TableName() string { return "channel_user" }

type PrivateChat struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PrivateChatMember struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	PrivateChatID uint      `gorm:"not null;index;uniqueIndex:idx_chat_user" json:"private_chat_id"`
	UserID        string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_chat_user" json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (PrivateChatMember) TableName() string { return "private_chat_user" }
