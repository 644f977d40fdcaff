package repository

import (
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	return &message, err
}

func (r *MessageRepository) FindByIDWithUser(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("User").First(&message, id).Error
	return &message, err
}

// Delete removes a message; replies and reactions go with it via the cascade
// constraints on parent_id and message_id.
func (r *MessageRepository) Delete(id uint) error {
	return r.db.Delete(&models.Message{}, id).Error
}
