package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
	"gorm.io/gorm"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id, name, email string) *models.User {
	if id == "" {
		id = "user-1"
	}
	if name == "" {
		name = "Test User"
	}
	if email == "" {
		email = "test@example.com"
	}

	return &models.User{
		ID:        id,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// CreateTestMessage creates a test channel message with default values
func (h *TestHelper) CreateTestMessage(id uint, userID, content string) *models.Message {
	if id == 0 {
		id = 1
	}
	if userID == "" {
		userID = "user-1"
	}
	if content == "" {
		content = "Test message"
	}

	channelID := uint(1)
	return &models.Message{
		ID:        id,
		UserID:    userID,
		ChannelID: &channelID,
		Content:   content,
		Type:      models.TextMessage,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		User: models.User{
			ID:    userID,
			Name:  "Test User",
			Email: "test@example.com",
		},
	}
}

// CreateTestTemplate creates an active notification template with default
// values
func (h *TestHelper) CreateTestTemplate(id uint, templateType models.TemplateType) *models.NotificationTemplate {
	if id == 0 {
		id = 1
	}
	if templateType == "" {
		templateType = models.TemplateImmediate
	}

	now := time.Now()
	return &models.NotificationTemplate{
		ID:         id,
		Type:       templateType,
		Title:      "Test notification",
		Message:    "Test body",
		UserID:     "user-1",
		IsActive:   true,
		NextSendAt: &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("DATABASE_URL", "")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("DATABASE_URL")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// GetRecordNotFoundError returns the store's missing-row sentinel
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}
