package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/repository"
)

// GradeInput describes a graded attempt to be written to the gradebook.
type GradeInput struct {
	LmsID              uuid.UUID
	StudentID          uuid.UUID
	ContentID          uuid.UUID
	SubmissionType     string
	SubmissionID       uuid.UUID
	RawScore           float64
	MaxScore           float64
	Late               bool
	LatePenaltyPercent float64
	Feedback           string
	GradedBy           uuid.UUID
	GradedAt           time.Time
}

// GradeService maintains the gradebook.
type GradeService interface {
	Record(ctx context.Context, input GradeInput) (dto.GradeResponse, error)
	ListForLms(ctx context.Context, actor Actor, lmsID uuid.UUID) (dto.GradebookResponse, error)
	ListMine(ctx context.Context, actor Actor) (dto.GradebookResponse, error)
}

type gradeService struct {
	repo   repository.GradeRepository
	access AccessChecker
	logger zerolog.Logger
}

// NewGradeService constructs the gradebook service.
func NewGradeService(repo repository.GradeRepository, access AccessChecker, logger zerolog.Logger) GradeService {
	return &gradeService{
		repo:   repo,
		access: access,
		logger: logger.With().Str("component", "grade_service").Logger(),
	}
}

func (s *gradeService) Record(ctx context.Context, input GradeInput) (dto.GradeResponse, error) {
	penalty, final, percentage := computeGrade(input.RawScore, input.MaxScore, input.LatePenaltyPercent, input.Late)

	gradeRecord := models.GradeRecord{
		LmsID:          input.LmsID,
		StudentID:      input.StudentID,
		ContentID:      input.ContentID,
		SubmissionType: input.SubmissionType,
		SubmissionID:   input.SubmissionID,
		RawScore:       input.RawScore,
		Penalty:        penalty,
		FinalScore:     final,
		MaxScore:       input.MaxScore,
		Percentage:     percentage,
		Letter:         models.LetterFor(percentage),
		Feedback:       input.Feedback,
		GradedBy:       input.GradedBy,
		GradedAt:       input.GradedAt,
	}

	err := invokeErr(ctx, s.logger, op{
		name:   "grade.upsert",
		fields: fields("submission_type", input.SubmissionType, "submission_id", input.SubmissionID),
	}, func(ctx context.Context) error {
		return s.repo.Upsert(ctx, &gradeRecord)
	})
	if err != nil {
		return dto.GradeResponse{}, err
	}

	return dto.NewGradeResponse(gradeRecord), nil
}

func (s *gradeService) ListForLms(ctx context.Context, actor Actor, lmsID uuid.UUID) (dto.GradebookResponse, error) {
	access, err := s.access.RequireMember(ctx, actor, lmsID)
	if err != nil {
		return dto.GradebookResponse{}, err
	}

	filter := repository.GradeFilter{LmsID: &lmsID}
	if !access.CanManage() {
		studentID := actor.ID
		filter.StudentID = &studentID
	}
	return s.list(ctx, filter)
}

func (s *gradeService) ListMine(ctx context.Context, actor Actor) (dto.GradebookResponse, error) {
	if actor.ID == uuid.Nil {
		return dto.GradebookResponse{}, apperror.Unauthorized("authentication required")
	}
	studentID := actor.ID
	return s.list(ctx, repository.GradeFilter{StudentID: &studentID})
}

func (s *gradeService) list(ctx context.Context, filter repository.GradeFilter) (dto.GradebookResponse, error) {
	records, err := invoke(ctx, s.logger, op{name: "grade.list"}, func(ctx context.Context) ([]models.GradeRecord, error) {
		return s.repo.List(ctx, filter)
	})
	if err != nil {
		return dto.GradebookResponse{}, err
	}

	items := make([]dto.GradeResponse, 0, len(records))
	total := 0.0
	for _, gradeRecord := range records {
		items = append(items, dto.NewGradeResponse(gradeRecord))
		total += gradeRecord.Percentage
	}

	response := dto.GradebookResponse{Items: items}
	if len(records) > 0 {
		response.AveragePercentage = round2(total / float64(len(records)))
		response.Letter = models.LetterFor(response.AveragePercentage)
	}
	return response, nil
}

// computeGrade applies the late penalty as a percentage of the raw score.
func computeGrade(raw, maxScore, penaltyPercent float64, late bool) (penalty, final, percentage float64) {
	if late && penaltyPercent > 0 {
		penalty = round2(raw * penaltyPercent / 100)
	}
	final = round2(raw - penalty)
	if final < 0 {
		final = 0
	}
	if maxScore > 0 {
		percentage = round2(final / maxScore * 100)
	}
	return penalty, final, percentage
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
