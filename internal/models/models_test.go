package models

import (
	"testing"
	"time"

	"gorm.io/datatypes"
)

func TestUserToResponse(t *testing.T) {
	user := &User{
		ID:    "u-123",
		Name:  "John Doe",
		Email: "john@example.com",
		Image: "avatars/john.jpg",
	}

	response := user.ToResponse()

	if response.ID != user.ID {
		t.Errorf("ToResponse ID = %q, want %q", response.ID, user.ID)
	}
	if response.Name != user.Name {
		t.Errorf("ToResponse Name = %q, want %q", response.Name, user.Name)
	}
	if response.Email != user.Email {
		t.Errorf("ToResponse Email = %q, want %q", response.Email, user.Email)
	}
	if response.Image != user.Image {
		t.Errorf("ToResponse Image = %q, want %q", response.Image, user.Image)
	}
}

func TestFileToPayloadRelativePath(t *testing.T) {
	file := &File{
		ID:       7,
		Name:     "report.pdf",
		Path:     "uploads/report.pdf",
		MimeType: "application/pdf",
		Size:     2048,
	}

	payload := file.ToPayload()

	if payload.URL != "/uploads/report.pdf" {
		t.Errorf("ToPayload URL = %q, want %q", payload.URL, "/uploads/report.pdf")
	}
	if payload.Name != file.Name {
		t.Errorf("ToPayload Name = %q, want %q", payload.Name, file.Name)
	}
	if payload.Size != file.Size {
		t.Errorf("ToPayload Size = %d, want %d", payload.Size, file.Size)
	}
}

func TestFileToPayloadAbsoluteURL(t *testing.T) {
	file := &File{ID: 8, Name: "pic.png", Path: "https://cdn.example.com/pic.png"}

	payload := file.ToPayload()

	if payload.URL != file.Path {
		t.Errorf("ToPayload URL = %q, want %q", payload.URL, file.Path)
	}
}

func TestTemplatePattern(t *testing.T) {
	tmpl := &NotificationTemplate{
		RecurringPattern: datatypes.JSON([]byte(`{"interval":"monthly","day":15}`)),
	}

	p := tmpl.Pattern()
	if p == nil {
		t.Fatal("Pattern() returned nil for valid pattern")
	}
	if p.Interval != IntervalMonthly {
		t.Errorf("Pattern Interval = %q, want %q", p.Interval, IntervalMonthly)
	}
	if p.Day != 15 {
		t.Errorf("Pattern Day = %d, want 15", p.Day)
	}
}

func TestTemplatePatternMissing(t *testing.T) {
	tmpl := &NotificationTemplate{}
	if p := tmpl.Pattern(); p != nil {
		t.Errorf("Pattern() = %+v, want nil for empty pattern", p)
	}

	tmpl.RecurringPattern = datatypes.JSON([]byte(`{"day":3}`))
	if p := tmpl.Pattern(); p != nil {
		t.Errorf("Pattern() = %+v, want nil when interval absent", p)
	}
}

func TestNotificationToEnvelope(t *testing.T) {
	now := time.Now()
	notifiableType := "Channel"
	notifiableID := uint(12)
	sendEmail := true

	n := &Notification{
		ID:             42,
		UserID:         "u-9",
		Title:          "New message",
		Message:        "hello",
		Data:           datatypes.JSONMap{"action_url": "/chats/3"},
		NotifiableType: &notifiableType,
		NotifiableID:   &notifiableID,
		CreatedAt:      now,
	}

	env := n.ToEnvelope(5, &sendEmail)

	if env.ID != n.ID {
		t.Errorf("envelope ID = %d, want %d", env.ID, n.ID)
	}
	if env.UnreadCount != 5 {
		t.Errorf("envelope UnreadCount = %d, want 5", env.UnreadCount)
	}
	if env.SendEmail == nil || !*env.SendEmail {
		t.Error("envelope SendEmail should be true")
	}
	if env.Data["action_url"] != "/chats/3" {
		t.Errorf("envelope Data[action_url] = %v, want /chats/3", env.Data["action_url"])
	}
	if env.NotifiableType == nil || *env.NotifiableType != "Channel" {
		t.Error("envelope NotifiableType should be Channel")
	}
}
