package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// Models lists every persisted model in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Lms{},
		&models.Enrollment{},
		&models.ModuleContent{},
		&models.Assignment{},
		&models.Quiz{},
		&models.Video{},
		&models.ExternalURL{},
		&models.FileResource{},
		&models.AssignmentSubmission{},
		&models.QuizSubmission{},
		&models.GradeRecord{},
		&models.UploadRecord{},
		&models.DocumentEmbedding{},
		&models.ChatbotMessage{},
		&models.Invoice{},
		&models.Notification{},
		&models.ActivityLog{},
	}
}

// Migrate prepares database extensions and applies the schema for all models.
func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("failed to enable pgvector: %w", err)
		}
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
