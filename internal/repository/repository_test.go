package repository

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-go-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
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
		&models.ChatbotMessage{},
		&models.DocumentEmbedding{},
		&models.Invoice{},
		&models.Notification{},
		&models.ActivityLog{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role string) models.User {
	t.Helper()
	user := models.User{Name: "User " + role, Email: uuid.NewString() + "@example.com", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedLms(t *testing.T, db *gorm.DB, code string) models.Lms {
	t.Helper()
	lms := models.Lms{Code: code, Title: "Course " + code}
	require.NoError(t, db.Create(&lms).Error)
	return lms
}
