package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type TemplateType string

const (
	TemplateImmediate TemplateType = "immediate"
	TemplateScheduled TemplateType = "scheduled"
	TemplateRecurring TemplateType = "recurring"
	TemplateReminder  TemplateType = "reminder"
)

type RecurringInterval string

const (
	IntervalDaily   RecurringInterval = "daily"
	IntervalWeekly  RecurringInterval = "weekly"
	IntervalMonthly RecurringInterval = "monthly"
	IntervalDays    RecurringInterval = "days"
	IntervalHours   RecurringInterval = "hours"
	IntervalMinutes RecurringInterval = "minutes"
)

// RecurringPattern is stored as JSON on the template. Day pins the
// day-of-month for monthly schedules; Value carries the numeric amount for
// the days/hours/minutes intervals.
type RecurringPattern struct {
	Interval RecurringInterval `json:"interval"`
	Day      int               `json:"day,omitempty"`
	Value    int               `json:"value,omitempty"`
}

type Notification struct {
	ID             uint              `gorm:"primarykey" json:"id"`
	TemplateID     *uint             `gorm:"index" json:"template_id"`
	UserID         string            `gorm:"type:varchar(36);not null;index:idx_user_read" json:"user_id"`
	Title          string            `gorm:"not null" json:"title"`
	Message        string            `gorm:"type:text;not null" json:"message"`
	Data           datatypes.JSONMap `json:"data"`
	NotifiableType *string           `gorm:"index:idx_notifiable" json:"notifiable_type"`
	NotifiableID   *uint             `gorm:"index:idx_notifiable" json:"notifiable_id"`
	ReadAt         *time.Time        `gorm:"index:idx_user_read" json:"read_at"`
	SentAt         *time.Time        `json:"sent_at"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NotificationTemplate drives the scheduler. Inactive templates are never
// selected by the due-scan; NextSendAt is recomputed on every relevant field
// update and after every send.
type NotificationTemplate struct {
	ID               uint              `gorm:"primarykey" json:"id"`
	Type             TemplateType      `gorm:"type:text;not null;index:idx_type_active_next" json:"type"`
	Title            string            `gorm:"not null" json:"title"`
	Message          string            `gorm:"type:text;not null" json:"message"`
	Data             datatypes.JSONMap `json:"data"`
	UserID           string            `gorm:"type:varchar(36);not null;index:idx_user_active" json:"user_id"`
	NotifiableType   *string           `gorm:"index:idx_tmpl_notifiable" json:"notifiable_type"`
	NotifiableID     *uint             `gorm:"index:idx_tmpl_notifiable" json:"notifiable_id"`
	ScheduledAt      *time.Time        `json:"scheduled_at"`
	RecurringPattern datatypes.JSON    `gorm:"column:recurring_pattern" json:"recurring_pattern"`
	ReminderDays     *int              `json:"reminder_days"`
	EventDate        *time.Time        `json:"event_date"`
	LastSentAt       *time.Time        `json:"last_sent_at"`
	NextSendAt       *time.Time        `gorm:"index:idx_type_active_next" json:"next_send_at"`
	IsActive         bool              `gorm:"default:true;not null;index:idx_type_active_next;index:idx_user_active" json:"is_active"`
	SendEmail        bool              `gorm:"default:false;not null" json:"send_email"`
	ExpiresAt        *time.Time        `json:"expires_at"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Pattern decodes the stored recurring pattern; returns nil when absent or
// malformed.
func (t *NotificationTemplate) Pattern() *RecurringPattern {
	if len(t.RecurringPattern) == 0 {
		return nil
	}
	var p RecurringPattern
	if err := json.Unmarshal(t.RecurringPattern, &p); err != nil {
		return nil
	}
	if p.Interval == "" {
		return nil
	}
	return &p
}

// NotificationEnvelope is the wire shape published to the durable log and
// emitted to notification rooms.
type NotificationEnvelope struct {
	ID             uint                   `json:"id"`
	TemplateID     *uint                  `json:"templateId"`
	UserID         string                 `json:"userId"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Data           map[string]interface{} `json:"data"`
	NotifiableType *string                `json:"notifiableType"`
	NotifiableID   *uint                  `json:"notifiableId"`
	ReadAt         *time.Time             `json:"readAt"`
	SentAt         *time.Time             `json:"sentAt"`
	CreatedAt      time.Time              `json:"createdAt"`
	UnreadCount    int64                  `json:"unreadCount"`
	SendEmail      *bool                  `json:"sendEmail,omitempty"`
}

func (n *Notification) ToEnvelope(unreadCount int64, sendEmail *bool) NotificationEnvelope {
	return NotificationEnvelope{
		ID:             n.ID,
		TemplateID:     n.TemplateID,
		UserID:         n.UserID,
		Title:          n.Title,
		Message:        n.Message,
		Data:           map[string]interface{}(n.Data),
		NotifiableType: n.NotifiableType,
		NotifiableID:   n.NotifiableID,
		ReadAt:         n.ReadAt,
		SentAt:         n.SentAt,
		CreatedAt:      n.CreatedAt,
		UnreadCount:    unreadCount,
		SendEmail:      sendEmail,
	}
}
