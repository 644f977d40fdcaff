package repository

import (
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
	"gorm.io/gorm"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) FindChannel(channelID uint) (*models.Channel, error) {
	var channel models.Channel
	err := r.db.First(&channel, channelID).Error
	return &channel, err
}

func (r *MembershipRepository) ChannelMemberIDs(channelID uint) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.ChannelMember{}).
		Where("channel_id = ?", channelID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *MembershipRepository) TeamMemberIDs(teamID uint) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.TeamMember{}).
		Where("team_id = ?", teamID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *MembershipRepository) PrivateChatMemberIDs(privateChatID uint) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.PrivateChatMember{}).
		Where("private_chat_id = ?", privateChatID).
		Pluck("user_id", &ids).Error
	return ids, err
}
