package repository

import (
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
	"gorm.io/gorm"
)

// ReactionRow is a reaction joined with the reacting user's display name.
type ReactionRow struct {
	Emoji    string
	UserID   string
	UserName *string
}

type ReactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

func (r *ReactionRepository) FindByMessageAndUser(messageID uint, userID string) (*models.MessageReaction, error) {
	var reaction models.MessageReaction
	err := r.db.Where("message_id = ? AND user_id = ?", messageID, userID).First(&reaction).Error
	return &reaction, err
}

func (r *ReactionRepository) Create(reaction *models.MessageReaction) error {
	return r.db.Create(reaction).Error
}

func (r *ReactionRepository) UpdateEmoji(id uint, emoji string) error {
	return r.db.Model(&models.MessageReaction{}).Where("id = ?", id).Update("emoji", emoji).Error
}

func (r *ReactionRepository) Delete(id uint) error {
	return r.db.Delete(&models.MessageReaction{}, id).Error
}

// ListForMessage returns all reactions on a message with the user name
// left-joined, in insertion order so emoji grouping is first-seen stable.
func (r *ReactionRepository) ListForMessage(messageID uint) ([]ReactionRow, error) {
	var rows []ReactionRow
	err := r.db.Model(&models.MessageReaction{}).
		Select("message_reactions.emoji, message_reactions.user_id, users.name AS user_name").
		Joins("LEFT JOIN users ON users.id = message_reactions.user_id").
		Where("message_reactions.message_id = ?", messageID).
		Order("message_reactions.id ASC").
		Scan(&rows).Error
	return rows, err
}
