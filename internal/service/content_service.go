package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/repository"
)

var contentNotFound = apperror.Overrides{apperror.KindNotFound: "content not found"}

// ContentService manages the content tree of a course.
type ContentService interface {
	Create(ctx context.Context, actor Actor, lmsID uuid.UUID, req dto.ContentCreateRequest) (dto.ContentResponse, error)
	Tree(ctx context.Context, actor Actor, lmsID uuid.UUID) ([]dto.ContentResponse, error)
	Get(ctx context.Context, actor Actor, lmsID, id uuid.UUID) (dto.ContentResponse, error)
	Update(ctx context.Context, actor Actor, lmsID, id uuid.UUID, req dto.ContentUpdateRequest) (dto.ContentResponse, error)
	Delete(ctx context.Context, actor Actor, lmsID, id uuid.UUID, direct bool) error
	AttachFile(ctx context.Context, actor Actor, lmsID, id uuid.UUID, file *multipart.FileHeader) (dto.ContentResponse, error)
}

// ContentServiceDeps groups the collaborators of the content service.
type ContentServiceDeps struct {
	Contents repository.ContentRepository
	Access   AccessChecker
	Uploads  UploadService
	Activity ActivityRecorder
	Trees    *TreeCache
}

type contentService struct {
	contents  repository.ContentRepository
	access    AccessChecker
	uploads   UploadService
	activity  ActivityRecorder
	trees     *TreeCache
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

type contentPayloads struct {
	assignment  *dto.AssignmentPatch
	quiz        *dto.QuizPatch
	video       *dto.VideoPayload
	externalURL *dto.ExternalURLPayload
	file        *dto.FilePayload
}

// NewContentService constructs the content tree service.
func NewContentService(deps ContentServiceDeps, validate *validator.Validate, logger zerolog.Logger) ContentService {
	return &contentService{
		contents:  deps.Contents,
		access:    deps.Access,
		uploads:   deps.Uploads,
		activity:  deps.Activity,
		trees:     deps.Trees,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "content_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/lms-go-api/internal/service/content"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *contentService) Create(ctx context.Context, actor Actor, lmsID uuid.UUID, req dto.ContentCreateRequest) (dto.ContentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "content.create", trace.WithAttributes(
		attribute.String("lms.id", lmsID.String()),
		attribute.String("content.type", req.ContentType),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.ContentResponse{}, err
	}
	if err := s.access.RequireManager(ctx, actor, lmsID); err != nil {
		return dto.ContentResponse{}, err
	}

	nodes, err := s.listNodes(ctx, lmsID)
	if err != nil {
		return dto.ContentResponse{}, err
	}

	var parentID *uuid.UUID
	var parentType *string
	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) != "" {
		id, err := uuid.Parse(*req.ParentID)
		if err != nil {
			return dto.ContentResponse{}, apperror.BadRequest("parent_id must be a valid uuid")
		}
		parent, ok := findNode(nodes, id)
		if !ok {
			return dto.ContentResponse{}, apperror.BadRequest("parent content not found in this lms")
		}
		parentID = &parent.ID
		parentType = &parent.ContentType
	}

	if !models.AllowsChild(parentType, req.ContentType) {
		return dto.ContentResponse{}, apperror.BadRequest(placementMessage(parentType, req.ContentType))
	}

	node := models.ModuleContent{
		LmsID:       lmsID,
		ParentID:    parentID,
		ContentType: req.ContentType,
		Title:       strings.TrimSpace(req.Title),
		Description: s.sanitizer.Sanitize(req.Description),
	}
	if req.Position != nil {
		node.Position = *req.Position
	} else {
		node.Position = countSiblings(nodes, parentID)
	}

	payloads := contentPayloads{
		assignment:  req.Assignment.Patch(),
		quiz:        req.Quiz.Patch(),
		video:       req.Video,
		externalURL: req.ExternalURL,
		file:        req.File,
	}
	if err := s.applyPayloads(&node, payloads, true); err != nil {
		return dto.ContentResponse{}, err
	}

	err = invokeErr(ctx, s.logger, op{
		name:      "content.create",
		fields:    fields("lms_id", lmsID, "content_type", node.ContentType),
		overrides: apperror.Overrides{apperror.KindForeignKey: "parent content does not exist"},
	}, func(ctx context.Context) error {
		return s.contents.Create(ctx, &node)
	})
	if err != nil {
		span.RecordError(err)
		return dto.ContentResponse{}, err
	}
	s.trees.Invalidate(ctx, lmsID)

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "content.created",
		EntityType: "module_content",
		EntityID:   &node.ID,
		Metadata:   map[string]interface{}{"lms_id": lmsID.String(), "content_type": node.ContentType},
	})

	return dto.NewContentResponse(node, s.now(), true), nil
}

func (s *contentService) Tree(ctx context.Context, actor Actor, lmsID uuid.UUID) ([]dto.ContentResponse, error) {
	access, err := s.access.RequireMember(ctx, actor, lmsID)
	if err != nil {
		return nil, err
	}
	manager := access.CanManage()
	if tree, ok := s.trees.Get(ctx, lmsID, manager); ok {
		return tree, nil
	}

	nodes, err := s.listNodes(ctx, lmsID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !manager {
		nodes = filterVisible(nodes, now)
	}

	tree := buildTree(nodes, nil, now, manager)
	s.trees.Set(ctx, lmsID, manager, tree)
	return tree, nil
}

func (s *contentService) Get(ctx context.Context, actor Actor, lmsID, id uuid.UUID) (dto.ContentResponse, error) {
	access, err := s.access.RequireMember(ctx, actor, lmsID)
	if err != nil {
		return dto.ContentResponse{}, err
	}

	nodes, err := s.listNodes(ctx, lmsID)
	if err != nil {
		return dto.ContentResponse{}, err
	}

	now := s.now()
	if !access.CanManage() {
		nodes = filterVisible(nodes, now)
	}

	node, ok := findNode(nodes, id)
	if !ok {
		return dto.ContentResponse{}, apperror.NotFound("content not found")
	}

	response := dto.NewContentResponse(node, now, access.CanManage())
	response.Children = buildTree(nodes, &node.ID, now, access.CanManage())
	return response, nil
}

func (s *contentService) Update(ctx context.Context, actor Actor, lmsID, id uuid.UUID, req dto.ContentUpdateRequest) (dto.ContentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ContentResponse{}, err
	}
	if err := s.access.RequireManager(ctx, actor, lmsID); err != nil {
		return dto.ContentResponse{}, err
	}

	node, err := s.load(ctx, lmsID, id)
	if err != nil {
		return dto.ContentResponse{}, err
	}

	if req.Title != nil {
		node.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		node.Description = s.sanitizer.Sanitize(*req.Description)
	}
	if req.Position != nil {
		node.Position = *req.Position
	}

	payloads := contentPayloads{
		assignment:  req.Assignment,
		quiz:        req.Quiz,
		video:       req.Video,
		externalURL: req.ExternalURL,
		file:        req.File,
	}
	if err := s.applyPayloads(&node, payloads, false); err != nil {
		return dto.ContentResponse{}, err
	}
	if !payloads.any() {
		// only the node row changes
		node.Assignment, node.Quiz, node.Video, node.ExternalURL, node.FileResource = nil, nil, nil, nil, nil
	}

	err = invokeErr(ctx, s.logger, op{name: "content.update", fields: fields("content_id", id), overrides: contentNotFound}, func(ctx context.Context) error {
		return s.contents.Update(ctx, &node)
	})
	if err != nil {
		return dto.ContentResponse{}, err
	}
	s.trees.Invalidate(ctx, lmsID)

	fresh, err := s.load(ctx, lmsID, id)
	if err != nil {
		return dto.ContentResponse{}, err
	}
	return dto.NewContentResponse(fresh, s.now(), true), nil
}

func (s *contentService) Delete(ctx context.Context, actor Actor, lmsID, id uuid.UUID, direct bool) error {
	if err := s.access.RequireManager(ctx, actor, lmsID); err != nil {
		return err
	}

	ids, err := invoke(ctx, s.logger, op{name: "content.descendants", fields: fields("content_id", id), overrides: contentNotFound}, func(ctx context.Context) ([]uuid.UUID, error) {
		return s.contents.DescendantIDs(ctx, lmsID, id)
	})
	if err != nil {
		return err
	}

	err = invokeErr(ctx, s.logger, op{
		name:   "content.delete",
		fields: fields("content_id", id, "nodes", len(ids), "direct", direct),
		overrides: apperror.Overrides{
			apperror.KindForeignKey: "content is still referenced by submissions",
		},
	}, func(ctx context.Context) error {
		return s.contents.Delete(ctx, ids, direct)
	})
	if err != nil {
		return err
	}
	s.trees.Invalidate(ctx, lmsID)

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "content.deleted",
		EntityType: "module_content",
		EntityID:   &id,
		Metadata:   map[string]interface{}{"lms_id": lmsID.String(), "direct": direct, "nodes": len(ids)},
	})
	return nil
}

func (s *contentService) AttachFile(ctx context.Context, actor Actor, lmsID, id uuid.UUID, file *multipart.FileHeader) (dto.ContentResponse, error) {
	if err := s.access.RequireManager(ctx, actor, lmsID); err != nil {
		return dto.ContentResponse{}, err
	}

	node, err := s.load(ctx, lmsID, id)
	if err != nil {
		return dto.ContentResponse{}, err
	}
	if node.ContentType != models.ContentTypeFile {
		return dto.ContentResponse{}, apperror.BadRequest("files can only be attached to file content")
	}

	uploaderID := actor.ID
	uploaded, err := s.uploads.Upload(ctx, file, &uploaderID)
	if err != nil {
		return dto.ContentResponse{}, err
	}

	resource := models.FileResource{
		ModuleContentID: node.ID,
		FileName:        uploaded.FileName,
		URL:             uploaded.URL,
		MimeType:        uploaded.MimeType,
		SizeBytes:       uploaded.SizeBytes,
	}
	if node.FileResource != nil {
		resource.ID = node.FileResource.ID
	}

	err = invokeErr(ctx, s.logger, op{name: "content.attach_file", fields: fields("content_id", id)}, func(ctx context.Context) error {
		return s.contents.UpsertFileResource(ctx, &resource)
	})
	if err != nil {
		return dto.ContentResponse{}, err
	}
	s.trees.Invalidate(ctx, lmsID)

	node.FileResource = &resource
	return dto.NewContentResponse(node, s.now(), true), nil
}

func (s *contentService) applyPayloads(node *models.ModuleContent, p contentPayloads, creating bool) error {
	for _, entry := range p.presence() {
		if entry.present && entry.contentType != node.ContentType {
			return apperror.BadRequest(fmt.Sprintf("%s payload is not allowed on %s content", entry.contentType, node.ContentType))
		}
	}

	switch node.ContentType {
	case models.ContentTypeAssignment:
		if p.assignment == nil && !creating {
			return nil
		}
		node.Assignment = s.assignmentFrom(node.Assignment, p.assignment)
	case models.ContentTypeQuiz:
		if p.quiz == nil && !creating {
			return nil
		}
		quiz, err := s.quizFrom(node.Quiz, p.quiz)
		if err != nil {
			return err
		}
		node.Quiz = quiz
	case models.ContentTypeVideo:
		if p.video == nil {
			if creating {
				return apperror.BadRequest("video payload is required")
			}
			return nil
		}
		if err := s.validator.Struct(p.video); err != nil {
			return err
		}
		video := node.Video
		if video == nil {
			video = &models.Video{}
		}
		video.URL = strings.TrimSpace(p.video.URL)
		video.Provider = strings.ToLower(strings.TrimSpace(p.video.Provider))
		if video.Provider == "" {
			video.Provider = detectVideoProvider(video.URL)
		}
		video.DurationSeconds = p.video.DurationSeconds
		node.Video = video
	case models.ContentTypeExternalURL:
		if p.externalURL == nil {
			if creating {
				return apperror.BadRequest("external_url payload is required")
			}
			return nil
		}
		if err := s.validator.Struct(p.externalURL); err != nil {
			return err
		}
		link := node.ExternalURL
		if link == nil {
			link = &models.ExternalURL{}
		}
		link.URL = strings.TrimSpace(p.externalURL.URL)
		link.OpenInNewTab = p.externalURL.OpenInNewTab == nil || *p.externalURL.OpenInNewTab
		node.ExternalURL = link
	case models.ContentTypeFile:
		if p.file == nil {
			return nil
		}
		if err := s.validator.Struct(p.file); err != nil {
			return err
		}
		resource := node.FileResource
		if resource == nil {
			resource = &models.FileResource{}
		}
		resource.FileName = sanitizeFileName(p.file.FileName)
		resource.URL = strings.TrimSpace(p.file.URL)
		resource.MimeType = normalizeMime(p.file.MimeType)
		resource.SizeBytes = p.file.SizeBytes
		node.FileResource = resource
	}
	return nil
}

func (s *contentService) assignmentFrom(existing *models.Assignment, p *dto.AssignmentPatch) *models.Assignment {
	assignment := existing
	if assignment == nil {
		assignment = &models.Assignment{MaxScore: 100, MaxAttempts: 1}
	}
	if p == nil {
		return assignment
	}

	if p.Instructions != nil {
		assignment.Instructions = s.sanitizer.Sanitize(*p.Instructions)
	}
	if p.MaxScore != nil && *p.MaxScore > 0 {
		assignment.MaxScore = *p.MaxScore
	}
	if p.DueDate != nil || p.ClearDueDate {
		assignment.DueDate = utcPtr(p.DueDate)
	}
	if p.MaxAttempts != nil {
		assignment.MaxAttempts = *p.MaxAttempts
	}
	if p.AllowLateSubmission != nil {
		assignment.AllowLateSubmission = *p.AllowLateSubmission
	}
	if p.LatePenaltyPercent != nil {
		assignment.LatePenaltyPercent = *p.LatePenaltyPercent
	}
	return assignment
}

func (s *contentService) quizFrom(existing *models.Quiz, p *dto.QuizPatch) (*models.Quiz, error) {
	quiz := existing
	if quiz == nil {
		quiz = &models.Quiz{MaxScore: 100, MaxAttempts: 1, Questions: datatypes.NewJSONType([]models.QuizQuestion{})}
	}
	if p == nil {
		return quiz, nil
	}

	if p.Instructions != nil {
		quiz.Instructions = s.sanitizer.Sanitize(*p.Instructions)
	}
	if p.MaxScore != nil && *p.MaxScore > 0 {
		quiz.MaxScore = *p.MaxScore
	}
	if p.DueDate != nil || p.ClearDueDate {
		quiz.DueDate = utcPtr(p.DueDate)
	}
	if p.MaxAttempts != nil {
		quiz.MaxAttempts = *p.MaxAttempts
	}
	if p.TimeLimitMinutes != nil {
		quiz.TimeLimitMinutes = *p.TimeLimitMinutes
	}
	if p.AutoGrade != nil {
		quiz.AutoGrade = *p.AutoGrade
	}

	if len(p.Questions) > 0 {
		questions, err := parseQuizQuestions(p.Questions)
		if err != nil {
			return nil, err
		}
		quiz.Questions = datatypes.NewJSONType(questions)
	}
	return quiz, nil
}

func (s *contentService) listNodes(ctx context.Context, lmsID uuid.UUID) ([]models.ModuleContent, error) {
	return invoke(ctx, s.logger, op{name: "content.list", fields: fields("lms_id", lmsID)}, func(ctx context.Context) ([]models.ModuleContent, error) {
		return s.contents.ListByLms(ctx, lmsID)
	})
}

func (s *contentService) load(ctx context.Context, lmsID, id uuid.UUID) (models.ModuleContent, error) {
	return invoke(ctx, s.logger, op{name: "content.get", fields: fields("content_id", id), overrides: contentNotFound}, func(ctx context.Context) (models.ModuleContent, error) {
		return s.contents.GetByID(ctx, lmsID, id)
	})
}

type payloadPresence struct {
	contentType string
	present     bool
}

func (p contentPayloads) presence() []payloadPresence {
	return []payloadPresence{
		{models.ContentTypeAssignment, p.assignment != nil},
		{models.ContentTypeQuiz, p.quiz != nil},
		{models.ContentTypeVideo, p.video != nil},
		{models.ContentTypeExternalURL, p.externalURL != nil},
		{models.ContentTypeFile, p.file != nil},
	}
}

func (p contentPayloads) any() bool {
	for _, entry := range p.presence() {
		if entry.present {
			return true
		}
	}
	return false
}

// filterVisible keeps the nodes a learner may see at the reference time: published nodes
// whose ancestors are all published.
func filterVisible(nodes []models.ModuleContent, reference time.Time) []models.ModuleContent {
	visible := visibleSet(nodes, reference)
	out := make([]models.ModuleContent, 0, len(nodes))
	for _, node := range nodes {
		if visible[node.ID] {
			out = append(out, node)
		}
	}
	return out
}

func visibleSet(nodes []models.ModuleContent, reference time.Time) map[uuid.UUID]bool {
	byID := make(map[uuid.UUID]models.ModuleContent, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = node
	}

	memo := make(map[uuid.UUID]bool, len(nodes))
	var visit func(id uuid.UUID) bool
	visit = func(id uuid.UUID) bool {
		if v, ok := memo[id]; ok {
			return v
		}
		memo[id] = false
		node, ok := byID[id]
		if !ok {
			return false
		}
		v := node.IsPublishedAt(reference) && (node.ParentID == nil || visit(*node.ParentID))
		memo[id] = v
		return v
	}

	for _, node := range nodes {
		visit(node.ID)
	}
	return memo
}

// learnerCanSee reports whether contentID is visible to learners of lmsID at the reference time.
func learnerCanSee(ctx context.Context, contents repository.ContentRepository, lmsID, contentID uuid.UUID, reference time.Time) (bool, error) {
	nodes, err := contents.ListByLms(ctx, lmsID)
	if err != nil {
		return false, err
	}
	return visibleSet(nodes, reference)[contentID], nil
}

func buildTree(nodes []models.ModuleContent, parentID *uuid.UUID, reference time.Time, revealAnswers bool) []dto.ContentResponse {
	children := make(map[uuid.UUID][]models.ModuleContent)
	var roots []models.ModuleContent
	for _, node := range nodes {
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		children[*node.ParentID] = append(children[*node.ParentID], node)
	}

	var build func(level []models.ModuleContent) []dto.ContentResponse
	build = func(level []models.ModuleContent) []dto.ContentResponse {
		out := make([]dto.ContentResponse, 0, len(level))
		for _, node := range level {
			response := dto.NewContentResponse(node, reference, revealAnswers)
			if kids := children[node.ID]; len(kids) > 0 {
				response.Children = build(kids)
			}
			out = append(out, response)
		}
		return out
	}

	if parentID == nil {
		return build(roots)
	}
	kids := children[*parentID]
	if len(kids) == 0 {
		return nil
	}
	return build(kids)
}

func findNode(nodes []models.ModuleContent, id uuid.UUID) (models.ModuleContent, bool) {
	for _, node := range nodes {
		if node.ID == id {
			return node, true
		}
	}
	return models.ModuleContent{}, false
}

func countSiblings(nodes []models.ModuleContent, parentID *uuid.UUID) int {
	count := 0
	for _, node := range nodes {
		switch {
		case parentID == nil && node.ParentID == nil:
			count++
		case parentID != nil && node.ParentID != nil && *node.ParentID == *parentID:
			count++
		}
	}
	return count
}

func placementMessage(parentType *string, childType string) string {
	if parentType == nil {
		return fmt.Sprintf("%s content must be placed inside a section", childType)
	}
	return fmt.Sprintf("%s content cannot be placed under a %s", childType, *parentType)
}

func detectVideoProvider(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "external"
	}
	host := strings.ToLower(parsed.Hostname())
	switch {
	case strings.Contains(host, "youtube.com"), strings.Contains(host, "youtu.be"):
		return "youtube"
	case strings.Contains(host, "vimeo.com"):
		return "vimeo"
	default:
		return "external"
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
