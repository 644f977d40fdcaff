package models

import (
	"strings"
	"time"
)

// File metadata is written by the cloud module of the main application; the
// chat service only links and reads it.
type File struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Path      string    `gorm:"not null" json:"path"`
	MimeType  string    `gorm:"column:mime_type" json:"mime_type"`
	Size      int64     `json:"size"`
	UserID    *string   `gorm:"type:varchar(36)" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const MessageFileableType = "App\\Models\\Message"

// FileLink attaches a file to an arbitrary owner via (fileableType,
// fileableID). File existence is not verified at link time; unresolvable
// links are dropped at read time.
type FileLink struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	FileID       uint      `gorm:"not null;uniqueIndex:idx_file_fileable" json:"file_id"`
	FileableType string    `gorm:"not null;uniqueIndex:idx_file_fileable;index:idx_fileable" json:"fileable_type"`
	FileableID   uint      `gorm:"not null;uniqueIndex:idx_file_fileable;index:idx_fileable" json:"fileable_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (FileLink) TableName() string { return "files_links" }

type FilePayload struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

func (f *File) ToPayload() FilePayload {
	url := f.Path
	if !strings.HasPrefix(url, "http") {
		url = "/" + url
	}
	return FilePayload{
		ID:       f.ID,
		Name:     f.Name,
		Path:     f.Path,
		URL:      url,
		Size:     f.Size,
		MimeType: f.MimeType,
	}
}
