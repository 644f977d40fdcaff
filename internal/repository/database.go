package repository

import (
	"fmt"
	"os"

	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB() (*gorm.DB, error) {
	// Build connection string
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
	)

	// Connect to database
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate the tables this service owns. User/Team/File rows are
	// written by the main application; migrating them here keeps local
	// development self-contained and is a no-op against the shared schema.
	if err := db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Channel{},
		&models.ChannelMember{},
		&models.PrivateChat{},
		&models.PrivateChatMember{},
		&models.Message{},
		&models.MessageReaction{},
		&models.File{},
		&models.FileLink{},
		&models.NotificationTemplate{},
		&models.Notification{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
