package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
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

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(ctx context.Context, event string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []dto.NotificationCreateRequest
}

func (n *recordingNotifier) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, payload)
	return dto.NotificationResponse{ID: uuid.New(), UserID: payload.UserID, Type: payload.Type, Title: payload.Title, Message: payload.Message}, nil
}

func (n *recordingNotifier) all() []dto.NotificationCreateRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]dto.NotificationCreateRequest(nil), n.sent...)
}

// courseFixture is a course with one teacher, one student and one admin.
type courseFixture struct {
	db       *gorm.DB
	lms      models.Lms
	admin    Actor
	teacher  Actor
	student  Actor
	outsider Actor

	courses     repository.LmsRepository
	enrollments repository.EnrollmentRepository
	contents    repository.ContentRepository
	access      AccessChecker
	events      *recordingPublisher
	notifier    *recordingNotifier
}

func newCourseFixture(t *testing.T) *courseFixture {
	t.Helper()
	db := setupServiceDB(t)

	f := &courseFixture{
		db:          db,
		courses:     repository.NewLmsRepository(db),
		enrollments: repository.NewEnrollmentRepository(db),
		contents:    repository.NewContentRepository(db),
		events:      &recordingPublisher{},
		notifier:    &recordingNotifier{},
	}
	f.access = NewAccessChecker(f.courses, f.enrollments, testLogger())

	f.lms = models.Lms{Code: "GO-101", Title: "Practical Go"}
	require.NoError(t, db.Create(&f.lms).Error)

	f.admin = f.seedUser(t, models.RoleAdmin)
	f.teacher = f.seedUser(t, models.RoleTeacher)
	f.student = f.seedUser(t, models.RoleStudent)
	f.outsider = f.seedUser(t, models.RoleStudent)

	f.enroll(t, f.teacher, models.RoleTeacher, models.EnrollmentStatusActive)
	f.enroll(t, f.student, models.RoleStudent, models.EnrollmentStatusActive)
	return f
}

func (f *courseFixture) seedUser(t *testing.T, role string) Actor {
	t.Helper()
	user := models.User{Name: "User " + role, Email: uuid.NewString() + "@example.com", Role: role}
	require.NoError(t, f.db.Create(&user).Error)
	return Actor{ID: user.ID, Role: role}
}

func (f *courseFixture) enroll(t *testing.T, actor Actor, role, status string) {
	t.Helper()
	enrollment := models.Enrollment{LmsID: f.lms.ID, UserID: actor.ID, Role: role, Status: status}
	require.NoError(t, f.db.Create(&enrollment).Error)
}

func (f *courseFixture) contentService() ContentService {
	return NewContentService(ContentServiceDeps{Contents: f.contents, Access: f.access}, testValidator(), testLogger())
}

func (f *courseFixture) publishService() PublishService {
	return NewPublishService(PublishServiceDeps{Contents: f.contents, Access: f.access, Events: f.events}, testLogger())
}

func (f *courseFixture) gradeService() GradeService {
	return NewGradeService(repository.NewGradeRepository(f.db), f.access, testLogger())
}

func (f *courseFixture) submissionDeps() SubmissionServiceDeps {
	return SubmissionServiceDeps{
		Assignments:           repository.NewAssignmentRepository(f.db),
		Quizzes:               repository.NewQuizRepository(f.db),
		AssignmentSubmissions: repository.NewAssignmentSubmissionRepository(f.db),
		QuizSubmissions:       repository.NewQuizSubmissionRepository(f.db),
		Contents:              f.contents,
		Access:                f.access,
		Grades:                f.gradeService(),
		Notifier:              f.notifier,
		Events:                f.events,
	}
}

// createNode creates a node as the teacher and publishes it immediately.
func (f *courseFixture) createNode(t *testing.T, req dto.ContentCreateRequest) dto.ContentResponse {
	t.Helper()
	ctx := context.Background()
	created, err := f.contentService().Create(ctx, f.teacher, f.lms.ID, req)
	require.NoError(t, err)
	_, _, err = f.publishService().Publish(ctx, f.teacher, f.lms.ID, created.ID, dto.PublishRequest{})
	require.NoError(t, err)
	return created
}

// publishedSection creates a published top-level section.
func (f *courseFixture) publishedSection(t *testing.T) dto.ContentResponse {
	t.Helper()
	return f.createNode(t, dto.ContentCreateRequest{ContentType: models.ContentTypeSection, Title: "Week 1"})
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func stringPtr(v string) *string {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}
