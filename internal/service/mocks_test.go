package service

import (
	"errors"
	"sync"
	"time"

	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/repository"
	"gorm.io/gorm"
)

// MockUserRepository is an in-memory implementation of UserRepositoryInterface
type MockUserRepository struct {
	users map[string]*models.User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*models.User)}
}

func (m *MockUserRepository) Add(user *models.User) {
	m.users[user.ID] = user
}

func (m *MockUserRepository) FindByID(id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// MockMessageRepository is an in-memory implementation of MessageRepositoryInterface
type MockMessageRepository struct {
	messages map[uint]*models.Message
	nextID   uint
	failNext bool
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{messages: make(map[uint]*models.Message), nextID: 1}
}

func (m *MockMessageRepository) Create(message *models.Message) error {
	if m.failNext {
		m.failNext = false
		return errors.New("store unavailable")
	}
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	message.CreatedAt = time.Now()
	m.messages[message.ID] = message
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	if msg, ok := m.messages[id]; ok {
		return msg, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) FindByIDWithUser(id uint) (*models.Message, error) {
	return m.FindByID(id)
}

func (m *MockMessageRepository) Delete(id uint) error {
	delete(m.messages, id)
	return nil
}

// MockReactionRepository is an in-memory implementation of ReactionRepositoryInterface
type MockReactionRepository struct {
	reactions map[uint]*models.MessageReaction
	userNames map[string]string
	nextID    uint
}

func NewMockReactionRepository() *MockReactionRepository {
	return &MockReactionRepository{
		reactions: make(map[uint]*models.MessageReaction),
		userNames: make(map[string]string),
		nextID:    1,
	}
}

func (m *MockReactionRepository) FindByMessageAndUser(messageID uint, userID string) (*models.MessageReaction, error) {
	for _, r := range m.reactions {
		if r.MessageID == messageID && r.UserID == userID {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockReactionRepository) Create(reaction *models.MessageReaction) error {
	// Mirror the unique (message, user) index
	if _, err := m.FindByMessageAndUser(reaction.MessageID, reaction.UserID); err == nil {
		return errors.New("duplicate reaction")
	}
	reaction.ID = m.nextID
	m.nextID++
	m.reactions[reaction.ID] = reaction
	return nil
}

func (m *MockReactionRepository) UpdateEmoji(id uint, emoji string) error {
	r, ok := m.reactions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Emoji = emoji
	return nil
}

func (m *MockReactionRepository) Delete(id uint) error {
	delete(m.reactions, id)
	return nil
}

func (m *MockReactionRepository) ListForMessage(messageID uint) ([]repository.ReactionRow, error) {
	rows := make([]repository.ReactionRow, 0)
	// Iterate in insertion order via id
	for id := uint(1); id < m.nextID; id++ {
		r, ok := m.reactions[id]
		if !ok || r.MessageID != messageID {
			continue
		}
		row := repository.ReactionRow{Emoji: r.Emoji, UserID: r.UserID}
		if name, ok := m.userNames[r.UserID]; ok {
			row.UserName = &name
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *MockReactionRepository) CountForUser(messageID uint, userID string) int {
	count := 0
	for _, r := range m.reactions {
		if r.MessageID == messageID && r.UserID == userID {
			count++
		}
	}
	return count
}

// MockMembershipRepository is an in-memory implementation of MembershipRepositoryInterface
type MockMembershipRepository struct {
	channels           map[uint]*models.Channel
	channelMembers     map[uint][]string
	teamMembers        map[uint][]string
	privateChatMembers map[uint][]string
}

func NewMockMembershipRepository() *MockMembershipRepository {
	return &MockMembershipRepository{
		channels:           make(map[uint]*models.Channel),
		channelMembers:     make(map[uint][]string),
		teamMembers:        make(map[uint][]string),
		privateChatMembers: make(map[uint][]string),
	}
}

func (m *MockMembershipRepository) FindChannel(channelID uint) (*models.Channel, error) {
	if ch, ok := m.channels[channelID]; ok {
		return ch, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMembershipRepository) ChannelMemberIDs(channelID uint) ([]string, error) {
	return m.channelMembers[channelID], nil
}

func (m *MockMembershipRepository) TeamMemberIDs(teamID uint) ([]string, error) {
	return m.teamMembers[teamID], nil
}

func (m *MockMembershipRepository) PrivateChatMemberIDs(privateChatID uint) ([]string, error) {
	return m.privateChatMembers[privateChatID], nil
}

// MockFileRepository is an in-memory implementation of FileRepositoryInterface
type MockFileRepository struct {
	files map[uint]*models.File
	links map[uint][]uint
}

func NewMockFileRepository() *MockFileRepository {
	return &MockFileRepository{files: make(map[uint]*models.File), links: make(map[uint][]uint)}
}

func (m *MockFileRepository) Add(file *models.File) {
	m.files[file.ID] = file
}

func (m *MockFileRepository) LinkToMessage(messageID uint, fileIDs []uint) error {
	m.links[messageID] = append(m.links[messageID], fileIDs...)
	return nil
}

func (m *MockFileRepository) FindByIDs(fileIDs []uint) ([]models.File, error) {
	var result []models.File
	for _, id := range fileIDs {
		if f, ok := m.files[id]; ok {
			result = append(result, *f)
		}
	}
	return result, nil
}

// MockNotificationRepository is an in-memory implementation of NotificationRepositoryInterface
type MockNotificationRepository struct {
	mux           sync.Mutex
	notifications []*models.Notification
	nextID        uint
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{nextID: 1}
}

func (m *MockNotificationRepository) Create(notification *models.Notification) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	notification.ID = m.nextID
	m.nextID++
	notification.CreatedAt = time.Now()
	m.notifications = append(m.notifications, notification)
	return nil
}

func (m *MockNotificationRepository) ListByUser(userID string, offset, limit int) ([]models.Notification, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	var result []models.Notification
	for i := len(m.notifications) - 1; i >= 0; i-- {
		if m.notifications[i].UserID == userID {
			result = append(result, *m.notifications[i])
		}
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockNotificationRepository) CountUnread(userID string) (int64, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *MockNotificationRepository) MarkAsRead(id uint, userID string, readAt time.Time) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	for _, n := range m.notifications {
		if n.ID == id && n.UserID == userID {
			at := readAt
			n.ReadAt = &at
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *MockNotificationRepository) MarkAllAsRead(userID string, readAt time.Time) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	for _, n := range m.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			at := readAt
			n.ReadAt = &at
		}
	}
	return nil
}

func (m *MockNotificationRepository) All() []*models.Notification {
	m.mux.Lock()
	defer m.mux.Unlock()
	result := make([]*models.Notification, len(m.notifications))
	copy(result, m.notifications)
	return result
}

// MockTemplateRepository is an in-memory implementation of TemplateRepositoryInterface
type MockTemplateRepository struct {
	mux       sync.Mutex
	templates map[uint]*models.NotificationTemplate
	nextID    uint
}

func NewMockTemplateRepository() *MockTemplateRepository {
	return &MockTemplateRepository{templates: make(map[uint]*models.NotificationTemplate), nextID: 1}
}

func (m *MockTemplateRepository) Add(template *models.NotificationTemplate) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if template.ID == 0 {
		template.ID = m.nextID
		m.nextID++
	} else if template.ID >= m.nextID {
		m.nextID = template.ID + 1
	}
	m.templates[template.ID] = template
}

func (m *MockTemplateRepository) Create(template *models.NotificationTemplate) error {
	m.Add(template)
	return nil
}

func (m *MockTemplateRepository) FindByID(id uint) (*models.NotificationTemplate, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if t, ok := m.templates[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockTemplateRepository) FindByNotifiable(notifiableType string, notifiableID uint) (*models.NotificationTemplate, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	for _, t := range m.templates {
		if t.NotifiableType != nil && *t.NotifiableType == notifiableType &&
			t.NotifiableID != nil && *t.NotifiableID == notifiableID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockTemplateRepository) Update(template *models.NotificationTemplate) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	if _, ok := m.templates[template.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *template
	m.templates[template.ID] = &copied
	return nil
}

func (m *MockTemplateRepository) DeleteByNotifiable(notifiableType string, notifiableID uint) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	for id, t := range m.templates {
		if t.NotifiableType != nil && *t.NotifiableType == notifiableType &&
			t.NotifiableID != nil && *t.NotifiableID == notifiableID {
			delete(m.templates, id)
		}
	}
	return nil
}

func (m *MockTemplateRepository) FindDue(now time.Time) ([]models.NotificationTemplate, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	var due []models.NotificationTemplate
	for _, t := range m.templates {
		if t.IsActive && t.NextSendAt != nil && !t.NextSendAt.After(now) {
			due = append(due, *t)
		}
	}
	return due, nil
}

func (m *MockTemplateRepository) SetLastSentAt(id uint, at time.Time) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sent := at
	t.LastSentAt = &sent
	return nil
}

func (m *MockTemplateRepository) SetNextSendAt(id uint, next *time.Time) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.NextSendAt = next
	return nil
}

func (m *MockTemplateRepository) Deactivate(id uint) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.IsActive = false
	return nil
}

// MockQueue records published messages instead of persisting them
type MockQueue struct {
	mux       sync.Mutex
	published []MockPublished
	handlers  map[string]func(data []byte) error
	failNext  bool
}

type MockPublished struct {
	Subject string
	Payload interface{}
}

func NewMockQueue() *MockQueue {
	return &MockQueue{handlers: make(map[string]func(data []byte) error)}
}

func (m *MockQueue) Publish(subject string, v interface{}) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("log unavailable")
	}
	m.published = append(m.published, MockPublished{Subject: subject, Payload: v})
	return nil
}

func (m *MockQueue) Consume(subject string, handler func(data []byte) error) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.handlers[subject] = handler
	return nil
}

func (m *MockQueue) Close() {}

func (m *MockQueue) Published(subject string) []MockPublished {
	m.mux.Lock()
	defer m.mux.Unlock()
	var result []MockPublished
	for _, p := range m.published {
		if p.Subject == subject {
			result = append(result, p)
		}
	}
	return result
}

// MockBroadcaster records room broadcasts
type MockBroadcaster struct {
	mux    sync.Mutex
	events []MockBroadcast
}

type MockBroadcast struct {
	Room    string
	Event   string
	Payload interface{}
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) BroadcastToRoom(room, event string, payload interface{}) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.events = append(m.events, MockBroadcast{Room: room, Event: event, Payload: payload})
}

func (m *MockBroadcaster) Events() []MockBroadcast {
	m.mux.Lock()
	defer m.mux.Unlock()
	result := make([]MockBroadcast, len(m.events))
	copy(result, m.events)
	return result
}

// MockMailer records sent emails
type MockMailer struct {
	mux  sync.Mutex
	sent []MockEmail
}

type MockEmail struct {
	To       string
	Subject  string
	Template string
	Context  map[string]interface{}
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) Send(to, subject, templateName string, context map[string]interface{}) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.sent = append(m.sent, MockEmail{To: to, Subject: subject, Template: templateName, Context: context})
	return nil
}

func (m *MockMailer) Sent() []MockEmail {
	m.mux.Lock()
	defer m.mux.Unlock()
	result := make([]MockEmail, len(m.sent))
	copy(result, m.sent)
	return result
}

// MockNotificationCreator records fan-out notification requests
type MockNotificationCreator struct {
	mux     sync.Mutex
	created []CreateNotificationInput
}

func NewMockNotificationCreator() *MockNotificationCreator {
	return &MockNotificationCreator{}
}

func (m *MockNotificationCreator) Create(input CreateNotificationInput) (*models.NotificationEnvelope, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.created = append(m.created, input)
	return &models.NotificationEnvelope{UserID: input.UserID, Title: input.Title}, nil
}

func (m *MockNotificationCreator) Created() []CreateNotificationInput {
	m.mux.Lock()
	defer m.mux.Unlock()
	result := make([]CreateNotificationInput, len(m.created))
	copy(result, m.created)
	return result
}

// waitFor polls until cond returns true or the deadline passes, for
// assertions on work running in detached goroutines
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
