package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-go-api/internal/config"
	"github.com/noah-isme/lms-go-api/internal/database"
	"github.com/noah-isme/lms-go-api/internal/handler"
	"github.com/noah-isme/lms-go-api/internal/middleware"
	"github.com/noah-isme/lms-go-api/internal/repository"
	"github.com/noah-isme/lms-go-api/internal/router"
	"github.com/noah-isme/lms-go-api/internal/service"
	"github.com/noah-isme/lms-go-api/pkg/ai"
	cloud "github.com/noah-isme/lms-go-api/pkg/cloudinary"
	"github.com/noah-isme/lms-go-api/pkg/payment"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.IsProduction() {
		logger = logger.Level(zerolog.InfoLevel)
	} else {
		logger = logger.Level(zerolog.DebugLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set; vector search cache, content tree cache and notification fan-out disabled")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cloudinary client")
	}

	var llm interface {
		ai.Embedder
		ai.ChatCompleter
	} = ai.Disabled{}
	if cfg.OpenAIAPIKey != "" {
		client, err := ai.NewOpenAIClient(ai.OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbeddingModel,
			MaxTokens:      cfg.ChatMaxTokens,
			Temperature:    0.2,
			Logger:         logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create openai client")
		}
		llm = client
	} else {
		logger.Warn().Msg("openai api key not set; chatbot and document ingest are unavailable")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	lmsRepo := repository.NewLmsRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	contentRepo := repository.NewContentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	assignmentSubmissionRepo := repository.NewAssignmentSubmissionRepository(db)
	quizSubmissionRepo := repository.NewQuizSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	chatbotRepo := repository.NewChatbotMessageRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	events := service.NewEventPublisher(natsConn, cfg.EventsSubjectPrefix, logger)
	activityService := service.NewActivityService(activityRepo, validate, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, "lms", validate, logger)
	access := service.NewAccessChecker(lmsRepo, enrollmentRepo, logger)
	uploadService := service.NewUploadService(uploader, uploadRepo, cfg.UploadMaxSizeMB, logger)
	gradeService := service.NewGradeService(gradeRepo, access, logger)
	treeCache := service.NewTreeCache(redisClient, cfg.ContentTreeCacheTTL, logger)

	userService := service.NewUserService(userRepo, validate, logger)
	lmsService := service.NewLmsService(service.LmsServiceDeps{
		Courses:     lmsRepo,
		Enrollments: enrollmentRepo,
		Users:       userRepo,
		Access:      access,
		Activity:    activityService,
		Events:      events,
	}, validate, logger)
	contentService := service.NewContentService(service.ContentServiceDeps{
		Contents: contentRepo,
		Access:   access,
		Uploads:  uploadService,
		Activity: activityService,
		Trees:    treeCache,
	}, validate, logger)
	publishService := service.NewPublishService(service.PublishServiceDeps{
		Contents: contentRepo,
		Access:   access,
		Activity: activityService,
		Events:   events,
		Trees:    treeCache,
	}, logger)

	submissionDeps := service.SubmissionServiceDeps{
		Assignments:           assignmentRepo,
		Quizzes:               quizRepo,
		AssignmentSubmissions: assignmentSubmissionRepo,
		QuizSubmissions:       quizSubmissionRepo,
		Contents:              contentRepo,
		Access:                access,
		Grades:                gradeService,
		Notifier:              notificationService,
		Events:                events,
	}
	assignmentSubmissionService := service.NewAssignmentSubmissionService(submissionDeps, validate, logger)
	quizSubmissionService := service.NewQuizSubmissionService(submissionDeps, validate, logger)

	searchDefaults := service.SearchDefaults{Limit: cfg.VectorSearchLimit, Threshold: cfg.VectorSearchThreshold}
	vectorSearch := service.NewVectorSearchService(llm, documentRepo, searchDefaults, logger)
	cachedSearch := service.NewCachedVectorSearchService(vectorSearch, redisClient, cfg.ChatbotCacheTTL, searchDefaults, logger)
	chatbotService := service.NewChatbotService(cachedSearch, llm, chatbotRepo, access, validate, logger)
	documentService := service.NewDocumentService(llm, documentRepo, access, activityService, validate, logger)

	billingService := service.NewBillingService(service.BillingServiceDeps{
		Courses:     lmsRepo,
		Users:       userRepo,
		Enrollments: enrollmentRepo,
		Invoices:    invoiceRepo,
		Gateway:     payment.NewSnapGateway(cfg.MidtransServerKey, cfg.MidtransProduction),
		Notifier:    notificationService,
		Activity:    activityService,
		Events:      events,
	}, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:    &logger,
		AccessLog: !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		UserHandler:           handler.NewUserHandler(userService, logger),
		LmsHandler:            handler.NewLmsHandler(lmsService, logger),
		ContentHandler:        handler.NewContentHandler(contentService, publishService, logger),
		SubmissionHandler:     handler.NewSubmissionHandler(assignmentSubmissionService, logger),
		QuizSubmissionHandler: handler.NewQuizSubmissionHandler(quizSubmissionService, logger),
		GradeHandler:          handler.NewGradeHandler(gradeService, logger),
		UploadHandler:         handler.NewUploadHandler(uploadService, logger),
		ChatbotHandler:        handler.NewChatbotHandler(chatbotService, documentService, validate, logger),
		BillingHandler:        handler.NewBillingHandler(billingService, logger),
		NotificationHandler:   handler.NewNotificationHandler(notificationService, logger),
		ActivityHandler:       handler.NewActivityHandler(activityService, logger),
		HealthProbes:          healthProbes(db, redisClient),
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := service.NewPublishScheduler(publishService, cfg.PublishScheduleSpec, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.PublishScheduleSpec).Msg("failed to start publish scheduler")
	}

	if len(cfg.ChatbotWarmQueries) > 0 {
		cachedSearch.Warm(cfg.ChatbotWarmQueries)
	}

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(ctx, app, logger)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return probes
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
