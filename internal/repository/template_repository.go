package repository

import (
	"time"

	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
	"gorm.io/gorm"
)

type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(template *models.NotificationTemplate) error {
	return r.db.Create(template).Error
}

func (r *TemplateRepository) FindByID(id uint) (*models.NotificationTemplate, error) {
	var template models.NotificationTemplate
	err := r.db.First(&template, id).Error
	return &template, err
}

func (r *TemplateRepository) FindByNotifiable(notifiableType string, notifiableID uint) (*models.NotificationTemplate, error) {
	var template models.NotificationTemplate
	err := r.db.Where("notifiable_type = ? AND notifiable_id = ?", notifiableType, notifiableID).
		First(&template).Error
	return &template, err
}

func (r *TemplateRepository) Update(template *models.NotificationTemplate) error {
	return r.db.Save(template).Error
}

func (r *TemplateRepository) DeleteByNotifiable(notifiableType string, notifiableID uint) error {
	return r.db.Where("notifiable_type = ? AND notifiable_id = ?", notifiableType, notifiableID).
		Delete(&models.NotificationTemplate{}).Error
}

// FindDue returns active templates whose next send time has passed. Inactive
// templates are never selected.
func (r *TemplateRepository) FindDue(now time.Time) ([]models.NotificationTemplate, error) {
	var templates []models.NotificationTemplate
	err := r.db.Where("is_active = ? AND next_send_at IS NOT NULL AND next_send_at <= ?", true, now).
		Find(&templates).Error
	return templates, err
}

func (r *TemplateRepository) SetLastSentAt(id uint, at time.Time) error {
	return r.db.Model(&models.NotificationTemplate{}).Where("id = ?", id).
		Update("last_sent_at", at).Error
}

func (r *TemplateRepository) SetNextSendAt(id uint, next *time.Time) error {
	return r.db.Model(&models.NotificationTemplate{}).Where("id = ?", id).
		Update("next_send_at", next).Error
}

func (r *TemplateRepository) Deactivate(id uint) error {
	return r.db.Model(&models.NotificationTemplate{}).Where("id = ?", id).
		Update("is_active", false).Error
}
