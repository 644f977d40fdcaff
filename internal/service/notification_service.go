package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Samurd/erp-elite24studio-next-sub000/internal/cache"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/queue"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/repository"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RoomBroadcaster is the slice of the hub the notification pipeline needs:
// emitting an event to every live connection in a named room.
type RoomBroadcaster interface {
	BroadcastToRoom(room, event string, payload interface{})
}

// NotificationRoom is the per-user delivery room joined via
// joinNotifications.
func NotificationRoom(userID string) string {
	return "notifications:" + userID
}

// inflightTTL bounds how long a queued-but-unprocessed template suppresses
// re-publishing; after this the due-scan will publish it again rather than
// stall forever on a lost message.
const inflightTTL = 5 * time.Minute

var ErrTemplateNotFound = errors.New("notification template not found")

type CreateNotificationInput struct {
	UserID         string                 `json:"userId"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Data           map[string]interface{} `json:"data"`
	NotifiableType *string                `json:"notifiableType"`
	NotifiableID   *uint                  `json:"notifiableId"`
	TemplateID     *uint                  `json:"templateId"`
	SendEmail      *bool                  `json:"sendEmail"`
}

type CreateTemplateInput struct {
	Type             models.TemplateType      `json:"type"`
	Title            string                   `json:"title"`
	Message          string                   `json:"message"`
	Data             map[string]interface{}   `json:"data"`
	UserID           string                   `json:"userId"`
	NotifiableType   *string                  `json:"notifiableType"`
	NotifiableID     *uint                    `json:"notifiableId"`
	ScheduledAt      *time.Time               `json:"scheduledAt"`
	RecurringPattern *models.RecurringPattern `json:"recurringPattern"`
	ReminderDays     *int                     `json:"reminderDays"`
	EventDate        *time.Time               `json:"eventDate"`
	SendEmail        bool                     `json:"sendEmail"`
	ExpiresAt        *time.Time               `json:"expiresAt"`
}

type UpdateTemplateInput struct {
	Type             *models.TemplateType     `json:"type"`
	Title            *string                  `json:"title"`
	Message          *string                  `json:"message"`
	Data             map[string]interface{}   `json:"data"`
	ScheduledAt      *time.Time               `json:"scheduledAt"`
	RecurringPattern *models.RecurringPattern `json:"recurringPattern"`
	ReminderDays     *int                     `json:"reminderDays"`
	EventDate        *time.Time               `json:"eventDate"`
	SendEmail        *bool                    `json:"sendEmail"`
	IsActive         *bool                    `json:"isActive"`
	ExpiresAt        *time.Time               `json:"expiresAt"`
}

type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
}

type NotificationService struct {
	notificationRepo repository.NotificationRepositoryInterface
	templateRepo     repository.TemplateRepositoryInterface
	userRepo         repository.UserRepositoryInterface
	log              queue.Queue
	broadcaster      RoomBroadcaster
	mailer           Mailer
	notifCache       *cache.NotificationCache

	inflightMux sync.Mutex
	inflight    map[uint]time.Time
}

func NewNotificationService(
	notificationRepo repository.NotificationRepositoryInterface,
	templateRepo repository.TemplateRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	logQueue queue.Queue,
	broadcaster RoomBroadcaster,
	mailer Mailer,
	notifCache *cache.NotificationCache,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		templateRepo:     templateRepo,
		userRepo:         userRepo,
		log:              logQueue,
		broadcaster:      broadcaster,
		mailer:           mailer,
		notifCache:       notifCache,
		inflight:         make(map[uint]time.Time),
	}
}

// Create persists a notification and publishes it onto the durable log for
// presence-aware delivery. A nil error guarantees both the row and the log
// entry exist.
func (s *NotificationService) Create(input CreateNotificationInput) (*models.NotificationEnvelope, error) {
	notification := &models.Notification{
		TemplateID:     input.TemplateID,
		UserID:         input.UserID,
		Title:          input.Title,
		Message:        input.Message,
		Data:           datatypes.JSONMap(input.Data),
		NotifiableType: input.NotifiableType,
		NotifiableID:   input.NotifiableID,
	}
	if err := s.notificationRepo.Create(notification); err != nil {
		return nil, err
	}
	s.notifCache.Invalidate(input.UserID)

	unread, err := s.notificationRepo.CountUnread(input.UserID)
	if err != nil {
		log.Printf("Error counting unread for user %s: %v", input.UserID, err)
	}

	envelope := notification.ToEnvelope(unread, input.SendEmail)
	if err := s.log.Publish(queue.SubjectImmediate, envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

// Deliver pushes a notification to the recipient's live connections and,
// unless the envelope disables it, emails them. Email failures never
// propagate; a failed notification must not undo the work that produced it.
func (s *NotificationService) Deliver(envelope models.NotificationEnvelope) {
	s.broadcaster.BroadcastToRoom(NotificationRoom(envelope.UserID), "notification", envelope)

	if envelope.SendEmail != nil && !*envelope.SendEmail {
		return
	}
	if s.mailer == nil {
		return
	}

	user, err := s.userRepo.FindByID(envelope.UserID)
	if err != nil {
		log.Printf("Cannot email user %s: %v", envelope.UserID, err)
		return
	}
	if user.Email == "" {
		log.Printf("User %s has no email address", envelope.UserID)
		return
	}

	context := map[string]interface{}{
		"title": envelope.Title,
		"body":  envelope.Message,
	}
	for k, v := range envelope.Data {
		context[k] = v
	}
	if _, ok := context["actionUrl"]; !ok {
		if v, ok := envelope.Data["action_url"]; ok {
			context["actionUrl"] = v
		}
	}

	if err := s.mailer.Send(user.Email, envelope.Title, emailTemplateFor(envelope), context); err != nil {
		log.Printf("Error sending email to user %s: %v", envelope.UserID, err)
	}
}

// emailTemplateFor picks a template from an explicit data hint, falling back
// to title keywords, then to the generic notification template.
func emailTemplateFor(envelope models.NotificationEnvelope) string {
	if v, ok := envelope.Data["email_template"].(string); ok && v != "" {
		return v
	}

	title := strings.ToLower(envelope.Title)
	switch {
	case strings.Contains(title, "birthday") || strings.Contains(title, "cumpleaños"):
		return "birthday"
	case strings.Contains(title, "message") || strings.Contains(title, "mensaje"):
		return "new-message"
	case strings.Contains(title, "task") || strings.Contains(title, "tarea"):
		return "task-assigned"
	case strings.Contains(title, "team") || strings.Contains(title, "equipo") || strings.Contains(title, "invitación"):
		return "team-invitation"
	default:
		return "notification"
	}
}

// HandleImmediate is the durable consumer callback for
// notifications.immediate.
func (s *NotificationService) HandleImmediate(data []byte) error {
	var envelope models.NotificationEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decode immediate notification: %w", err)
	}
	s.Deliver(envelope)
	return nil
}

// HandleProcess is the durable consumer callback for notifications.process.
func (s *NotificationService) HandleProcess(data []byte) error {
	var template models.NotificationTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return fmt.Errorf("decode due template: %w", err)
	}
	return s.ProcessTemplate(&template)
}

func (s *NotificationService) List(userID string, page, perPage int) (*NotificationList, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}

	if page == 1 && perPage == 20 {
		if cached, ok := s.notifCache.GetList(userID); ok {
			unread, cachedCount := s.notifCache.GetUnreadCount(userID)
			if !cachedCount {
				var err error
				unread, err = s.notificationRepo.CountUnread(userID)
				if err != nil {
					return nil, err
				}
			}
			return &NotificationList{Notifications: cached, UnreadCount: unread}, nil
		}
	}

	notifications, err := s.notificationRepo.ListByUser(userID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, err
	}
	unread, err := s.notificationRepo.CountUnread(userID)
	if err != nil {
		return nil, err
	}

	if page == 1 && perPage == 20 {
		s.notifCache.SetList(userID, notifications)
		s.notifCache.SetUnreadCount(userID, unread)
	}

	return &NotificationList{Notifications: notifications, UnreadCount: unread}, nil
}

func (s *NotificationService) MarkAsRead(id uint, userID string) error {
	if err := s.notificationRepo.MarkAsRead(id, userID, time.Now()); err != nil {
		return err
	}
	s.notifCache.Invalidate(userID)
	return nil
}

func (s *NotificationService) MarkAllAsRead(userID string) error {
	if err := s.notificationRepo.MarkAllAsRead(userID, time.Now()); err != nil {
		return err
	}
	s.notifCache.Invalidate(userID)
	return nil
}

func (s *NotificationService) CreateTemplate(input CreateTemplateInput) (*models.NotificationTemplate, error) {
	if !validation.ValidateTemplateType(string(input.Type)) {
		return nil, fmt.Errorf("unknown template type %q", input.Type)
	}
	if input.NotifiableType != nil && !validation.ValidateNotifiableKind(*input.NotifiableType) {
		return nil, fmt.Errorf("unknown notifiable kind %q", *input.NotifiableType)
	}

	template := &models.NotificationTemplate{
		Type:           input.Type,
		Title:          input.Title,
		Message:        input.Message,
		Data:           datatypes.JSONMap(input.Data),
		UserID:         input.UserID,
		NotifiableType: input.NotifiableType,
		NotifiableID:   input.NotifiableID,
		ScheduledAt:    input.ScheduledAt,
		ReminderDays:   input.ReminderDays,
		EventDate:      input.EventDate,
		IsActive:       true,
		SendEmail:      input.SendEmail,
		ExpiresAt:      input.ExpiresAt,
	}
	if input.RecurringPattern != nil {
		raw, err := json.Marshal(input.RecurringPattern)
		if err != nil {
			return nil, err
		}
		template.RecurringPattern = datatypes.JSON(raw)
	}

	template.NextSendAt = s.ComputeNextSendAt(template)

	if err := s.templateRepo.Create(template); err != nil {
		return nil, err
	}
	return template, nil
}

func (s *NotificationService) GetTemplateByNotifiable(notifiableType string, notifiableID uint) (*models.NotificationTemplate, error) {
	template, err := s.templateRepo.FindByNotifiable(notifiableType, notifiableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return template, nil
}

// UpdateTemplateByNotifiable applies a partial update and recomputes
// NextSendAt whenever a scheduling-relevant field changed. The subject
// reference itself is immutable.
func (s *NotificationService) UpdateTemplateByNotifiable(notifiableType string, notifiableID uint, input UpdateTemplateInput) (*models.NotificationTemplate, error) {
	template, err := s.templateRepo.FindByNotifiable(notifiableType, notifiableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	reschedule := false
	if input.Type != nil {
		if !validation.ValidateTemplateType(string(*input.Type)) {
			return nil, fmt.Errorf("unknown template type %q", *input.Type)
		}
		template.Type = *input.Type
		reschedule = true
	}
	if input.Title != nil {
		template.Title = *input.Title
	}
	if input.Message != nil {
		template.Message = *input.Message
	}
	if input.Data != nil {
		template.Data = datatypes.JSONMap(input.Data)
	}
	if input.ScheduledAt != nil {
		template.ScheduledAt = input.ScheduledAt
		reschedule = true
	}
	if input.RecurringPattern != nil {
		raw, err := json.Marshal(input.RecurringPattern)
		if err != nil {
			return nil, err
		}
		template.RecurringPattern = datatypes.JSON(raw)
		reschedule = true
	}
	if input.ReminderDays != nil {
		template.ReminderDays = input.ReminderDays
		reschedule = true
	}
	if input.EventDate != nil {
		template.EventDate = input.EventDate
		reschedule = true
	}
	if input.SendEmail != nil {
		template.SendEmail = *input.SendEmail
	}
	if input.IsActive != nil {
		template.IsActive = *input.IsActive
	}
	if input.ExpiresAt != nil {
		template.ExpiresAt = input.ExpiresAt
	}

	if reschedule {
		template.NextSendAt = s.ComputeNextSendAt(template)
	}

	if err := s.templateRepo.Update(template); err != nil {
		return nil, err
	}
	return template, nil
}

func (s *NotificationService) DeleteTemplateByNotifiable(notifiableType string, notifiableID uint) error {
	return s.templateRepo.DeleteByNotifiable(notifiableType, notifiableID)
}

// QueueScheduledTemplates publishes every due active template onto the
// durable log for the process consumer. A template stays in the inflight set
// until its processing lands, so a fast re-tick does not double-publish it.
func (s *NotificationService) QueueScheduledTemplates() {
	now := time.Now()

	due, err := s.templateRepo.FindDue(now)
	if err != nil {
		log.Printf("Error scanning due templates: %v", err)
		return
	}
	if len(due) > 0 {
		log.Printf("Found %d due notification templates", len(due))
	}

	for i := range due {
		template := &due[i]

		if template.ExpiresAt != nil && template.ExpiresAt.Before(now) {
			if err := s.templateRepo.Deactivate(template.ID); err != nil {
				log.Printf("Error deactivating expired template %d: %v", template.ID, err)
			}
			continue
		}

		if !s.markInflight(template.ID, now) {
			continue
		}

		if err := s.log.Publish(queue.SubjectProcess, template); err != nil {
			// Picked up again on the next tick; nothing mutated yet.
			log.Printf("Error queuing template %d: %v", template.ID, err)
			s.clearInflight(template.ID)
		}
	}
}

// ProcessTemplate materializes a due template into a notification, delivers
// it, and advances the template's schedule: recurring templates get a fresh
// NextSendAt computed from now, every other type is one-shot and deactivates.
func (s *NotificationService) ProcessTemplate(template *models.NotificationTemplate) error {
	defer s.clearInflight(template.ID)

	// Re-read bookkeeping fields; the logged copy may be stale by the time
	// the consumer sees it.
	current, err := s.templateRepo.FindByID(template.ID)
	if err == nil {
		template = current
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if !template.IsActive {
		return nil
	}

	now := time.Now()
	if template.ExpiresAt != nil && template.ExpiresAt.Before(now) {
		return s.templateRepo.Deactivate(template.ID)
	}

	notification := &models.Notification{
		TemplateID:     &template.ID,
		UserID:         template.UserID,
		Title:          template.Title,
		Message:        template.Message,
		Data:           template.Data,
		NotifiableType: template.NotifiableType,
		NotifiableID:   template.NotifiableID,
	}
	if err := s.notificationRepo.Create(notification); err != nil {
		return err
	}
	s.notifCache.Invalidate(template.UserID)

	unread, err := s.notificationRepo.CountUnread(template.UserID)
	if err != nil {
		log.Printf("Error counting unread for user %s: %v", template.UserID, err)
	}

	sendEmail := template.SendEmail
	s.Deliver(notification.ToEnvelope(unread, &sendEmail))

	if err := s.templateRepo.SetLastSentAt(template.ID, now); err != nil {
		log.Printf("Error updating lastSentAt for template %d: %v", template.ID, err)
	}

	if template.Type == models.TemplateRecurring {
		next := nextFromPattern(now, template.Pattern())
		if next == nil {
			// No further occurrences can be computed
			if err := s.templateRepo.Deactivate(template.ID); err != nil {
				return err
			}
		} else if err := s.templateRepo.SetNextSendAt(template.ID, next); err != nil {
			return err
		}
	} else {
		// immediate, scheduled and reminder templates fire once
		if err := s.templateRepo.Deactivate(template.ID); err != nil {
			return err
		}
	}

	log.Printf("Processed template %d (%s)", template.ID, template.Type)
	return nil
}

// ComputeNextSendAt resolves the first send time for a template. Recurring
// templates with an explicit start use it verbatim; without one the pattern
// is applied to now.
func (s *NotificationService) ComputeNextSendAt(template *models.NotificationTemplate) *time.Time {
	now := time.Now()

	switch template.Type {
	case models.TemplateImmediate:
		return &now
	case models.TemplateScheduled:
		return template.ScheduledAt
	case models.TemplateRecurring:
		if template.ScheduledAt != nil {
			return template.ScheduledAt
		}
		return nextFromPattern(now, template.Pattern())
	case models.TemplateReminder:
		if template.EventDate == nil || template.ReminderDays == nil {
			return nil
		}
		at := template.EventDate.Add(-time.Duration(*template.ReminderDays) * 24 * time.Hour)
		return &at
	default:
		return nil
	}
}

// nextFromPattern advances from now by the pattern interval. The next
// occurrence is anchored to processing time, not the previous schedule, so
// a lagging consumer shifts the cadence rather than bursting to catch up.
func nextFromPattern(now time.Time, pattern *models.RecurringPattern) *time.Time {
	if pattern == nil {
		return nil
	}

	var next time.Time
	switch pattern.Interval {
	case models.IntervalDaily:
		next = now.Add(24 * time.Hour)
	case models.IntervalWeekly:
		next = now.Add(7 * 24 * time.Hour)
	case models.IntervalMonthly:
		next = now.AddDate(0, 1, 0)
		if pattern.Day > 0 {
			next = time.Date(next.Year(), next.Month(), pattern.Day,
				next.Hour(), next.Minute(), next.Second(), next.Nanosecond(), next.Location())
		}
	case models.IntervalDays:
		if pattern.Value <= 0 {
			return nil
		}
		next = now.Add(time.Duration(pattern.Value) * 24 * time.Hour)
	case models.IntervalHours:
		if pattern.Value <= 0 {
			return nil
		}
		next = now.Add(time.Duration(pattern.Value) * time.Hour)
	case models.IntervalMinutes:
		if pattern.Value <= 0 {
			return nil
		}
		next = now.Add(time.Duration(pattern.Value) * time.Minute)
	default:
		return nil
	}
	return &next
}

func (s *NotificationService) markInflight(id uint, now time.Time) bool {
	s.inflightMux.Lock()
	defer s.inflightMux.Unlock()
	if queued, ok := s.inflight[id]; ok && now.Sub(queued) < inflightTTL {
		return false
	}
	s.inflight[id] = now
	return true
}

func (s *NotificationService) clearInflight(id uint) {
	s.inflightMux.Lock()
	defer s.inflightMux.Unlock()
	delete(s.inflight, id)
}
