package repository

import (
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
	"gorm.io/gorm"
)

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// LinkToMessage attaches files to a message without verifying the file rows
// exist; unresolvable ids simply produce no metadata at read time.
func (r *FileRepository) LinkToMessage(messageID uint, fileIDs []uint) error {
	if len(fileIDs) == 0 {
		return nil
	}
	links := make([]models.FileLink, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		links = append(links, models.FileLink{
			FileID:       fileID,
			FileableType: models.MessageFileableType,
			FileableID:   messageID,
		})
	}
	return r.db.Create(&links).Error
}

func (r *FileRepository) FindByIDs(fileIDs []uint) ([]models.File, error) {
	var files []models.File
	if len(fileIDs) == 0 {
		return files, nil
	}
	err := r.db.Where("id IN ?", fileIDs).Find(&files).Error
	return files, err
}
