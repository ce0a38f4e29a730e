package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/models"
	"github.com/noah-isme/lms-go-api/internal/observability"
	"github.com/noah-isme/lms-go-api/internal/repository"
	"github.com/noah-isme/lms-go-api/pkg/payment"
)

// Midtrans transaction statuses.
const (
	transactionCapture    = "capture"
	transactionSettlement = "settlement"
	transactionPending    = "pending"
	transactionDeny       = "deny"
	transactionCancel     = "cancel"
	transactionFailure    = "failure"
	transactionExpire     = "expire"
	fraudChallenge        = "challenge"
)

var invoiceNotFound = apperror.Overrides{apperror.KindNotFound: "invoice not found"}

// PaymentGateway creates hosted checkouts and authenticates their notifications.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error)
	VerifySignature(orderID, statusCode, grossAmount, signature string) bool
}

// BillingService handles course checkout and payment notifications.
type BillingService interface {
	Checkout(ctx context.Context, actor Actor, lmsID uuid.UUID) (dto.CheckoutResponse, error)
	HandleNotification(ctx context.Context, req dto.MidtransNotification) (dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, actor Actor) ([]dto.InvoiceResponse, error)
}

// BillingServiceDeps groups the collaborators of the billing service.
type BillingServiceDeps struct {
	Courses     repository.LmsRepository
	Users       repository.UserRepository
	Enrollments repository.EnrollmentRepository
	Invoices    repository.InvoiceRepository
	Gateway     PaymentGateway
	Notifier    Notifier
	Activity    ActivityRecorder
	Events      EventPublisher
}

type billingService struct {
	courses     repository.LmsRepository
	users       repository.UserRepository
	enrollments repository.EnrollmentRepository
	invoices    repository.InvoiceRepository
	gateway     PaymentGateway
	notifier    Notifier
	activity    ActivityRecorder
	events      EventPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewBillingService constructs the checkout flow.
func NewBillingService(deps BillingServiceDeps, validate *validator.Validate, logger zerolog.Logger) BillingService {
	return &billingService{
		courses:     deps.Courses,
		users:       deps.Users,
		enrollments: deps.Enrollments,
		invoices:    deps.Invoices,
		gateway:     deps.Gateway,
		notifier:    deps.Notifier,
		activity:    deps.Activity,
		events:      deps.Events,
		validator:   validate,
		logger:      logger.With().Str("component", "billing_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/lms-go-api/internal/service/billing"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Checkout enrolls the actor as a student. Free courses activate immediately; paid courses
// leave the enrollment pending until the gateway confirms payment.
func (s *billingService) Checkout(ctx context.Context, actor Actor, lmsID uuid.UUID) (dto.CheckoutResponse, error) {
	ctx, span := s.tracer.Start(ctx, "billing.checkout", trace.WithAttributes(
		attribute.String("lms.id", lmsID.String()),
		attribute.String("user.id", actor.ID.String()),
	))
	defer span.End()

	course, err := invoke(ctx, s.logger, op{name: "lms.get", fields: fields("lms_id", lmsID), overrides: lmsNotFound}, func(ctx context.Context) (models.Lms, error) {
		return s.courses.GetByID(ctx, lmsID)
	})
	if err != nil {
		return dto.CheckoutResponse{}, err
	}

	user, err := invoke(ctx, s.logger, op{
		name:      "user.get",
		fields:    fields("user_id", actor.ID),
		overrides: apperror.Overrides{apperror.KindNotFound: "user not found"},
	}, func(ctx context.Context) (models.User, error) {
		return s.users.GetByID(ctx, actor.ID)
	})
	if err != nil {
		return dto.CheckoutResponse{}, err
	}

	status := models.EnrollmentStatusActive
	if course.EnrollmentFeeIDR > 0 {
		status = models.EnrollmentStatusPendingPayment
	}

	enrollment, err := s.upsertEnrollment(ctx, lmsID, actor.ID, status)
	if err != nil {
		return dto.CheckoutResponse{}, err
	}
	enrollment.User = user

	if status == models.EnrollmentStatusActive {
		s.afterActivation(ctx, actor, enrollment)
		return dto.CheckoutResponse{Enrollment: dto.NewEnrollmentResponse(enrollment)}, nil
	}

	invoice := models.Invoice{
		LmsID:     lmsID,
		UserID:    actor.ID,
		OrderID:   newOrderID(),
		AmountIDR: course.EnrollmentFeeIDR,
		Status:    models.InvoiceStatusPending,
	}
	if err := invokeErr(ctx, s.logger, op{
		name:      "invoice.create",
		fields:    fields("lms_id", lmsID, "order_id", invoice.OrderID),
		overrides: apperror.Overrides{apperror.KindDuplicate: "order already exists"},
	}, func(ctx context.Context) error {
		return s.invoices.Create(ctx, &invoice)
	}); err != nil {
		return dto.CheckoutResponse{}, err
	}

	session, err := s.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		OrderID:   invoice.OrderID,
		AmountIDR: invoice.AmountIDR,
		ItemID:    course.ID.String(),
		ItemName:  course.Title,
		Customer:  payment.Customer{Name: user.Name, Email: user.Email},
	})
	if err != nil {
		span.RecordError(err)
		invoice.Status = models.InvoiceStatusFailed
		if updateErr := s.invoices.Update(ctx, &invoice); updateErr != nil {
			s.logger.Warn().Err(updateErr).Str("order_id", invoice.OrderID).Msg("failed to mark invoice failed")
		}
		if errors.Is(err, payment.ErrGatewayDisabled) {
			return dto.CheckoutResponse{}, apperror.New(http.StatusServiceUnavailable, "payments are not available", err)
		}
		s.logger.Error().Err(err).Str("order_id", invoice.OrderID).Msg("failed to create checkout")
		return dto.CheckoutResponse{}, apperror.New(http.StatusBadGateway, "payment gateway error", err)
	}

	invoice.SnapToken = session.Token
	invoice.RedirectURL = session.RedirectURL
	if err := invokeErr(ctx, s.logger, op{name: "invoice.update", fields: fields("order_id", invoice.OrderID)}, func(ctx context.Context) error {
		return s.invoices.Update(ctx, &invoice)
	}); err != nil {
		return dto.CheckoutResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "invoice.created",
		EntityType: "invoice",
		EntityID:   &invoice.ID,
		Metadata:   map[string]interface{}{"lms_id": lmsID.String(), "order_id": invoice.OrderID, "amount_idr": invoice.AmountIDR},
	})

	response := dto.NewInvoiceResponse(invoice)
	return dto.CheckoutResponse{Enrollment: dto.NewEnrollmentResponse(enrollment), Invoice: &response}, nil
}

func (s *billingService) upsertEnrollment(ctx context.Context, lmsID, userID uuid.UUID, status string) (models.Enrollment, error) {
	existing, err := s.enrollments.Get(ctx, lmsID, userID)
	switch {
	case err == nil && existing.IsActive():
		return models.Enrollment{}, apperror.Conflict("you are already enrolled in this lms")
	case err == nil:
		existing.Status = status
		existing.Role = models.RoleStudent
		if err := invokeErr(ctx, s.logger, op{name: "enrollment.update", fields: fields("enrollment_id", existing.ID)}, func(ctx context.Context) error {
			return s.enrollments.Update(ctx, &existing)
		}); err != nil {
			return models.Enrollment{}, err
		}
		return existing, nil
	case !isNotFound(err):
		return models.Enrollment{}, apperror.FromDatabase(err, nil)
	}

	enrollment := models.Enrollment{
		LmsID:  lmsID,
		UserID: userID,
		Role:   models.RoleStudent,
		Status: status,
	}
	if err := invokeErr(ctx, s.logger, op{
		name:      "enrollment.create",
		fields:    fields("lms_id", lmsID, "user_id", userID),
		overrides: apperror.Overrides{apperror.KindDuplicate: "you are already enrolled in this lms"},
	}, func(ctx context.Context) error {
		return s.enrollments.Create(ctx, &enrollment)
	}); err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

// HandleNotification applies a gateway notification to its invoice. Notifications for
// invoices that already left the pending state are acknowledged without changes.
func (s *billingService) HandleNotification(ctx context.Context, req dto.MidtransNotification) (dto.InvoiceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.InvoiceResponse{}, err
	}

	status := strings.ToLower(strings.TrimSpace(req.TransactionStatus))
	observability.PaymentNotifications().WithLabelValues(status).Inc()

	if !s.gateway.VerifySignature(req.OrderID, req.StatusCode, req.GrossAmount, req.SignatureKey) {
		s.logger.Warn().Str("order_id", req.OrderID).Msg("rejected notification with invalid signature")
		return dto.InvoiceResponse{}, apperror.Forbidden("invalid notification signature")
	}

	invoice, err := invoke(ctx, s.logger, op{name: "invoice.get", fields: fields("order_id", req.OrderID), overrides: invoiceNotFound}, func(ctx context.Context) (models.Invoice, error) {
		return s.invoices.GetByOrderID(ctx, req.OrderID)
	})
	if err != nil {
		return dto.InvoiceResponse{}, err
	}

	if invoice.IsSettled() {
		return dto.NewInvoiceResponse(invoice), nil
	}

	next := invoiceStatusFor(status, strings.ToLower(req.FraudStatus))
	if next == models.InvoiceStatusPending {
		return dto.NewInvoiceResponse(invoice), nil
	}

	invoice.Status = next
	if next == models.InvoiceStatusPaid {
		paidAt := s.now()
		invoice.PaidAt = &paidAt
	}
	if err := invokeErr(ctx, s.logger, op{name: "invoice.update", fields: fields("order_id", invoice.OrderID, "status", next)}, func(ctx context.Context) error {
		return s.invoices.Update(ctx, &invoice)
	}); err != nil {
		return dto.InvoiceResponse{}, err
	}

	if next == models.InvoiceStatusPaid {
		if err := s.activatePaidEnrollment(ctx, invoice); err != nil {
			return dto.InvoiceResponse{}, err
		}
	}

	notify(ctx, s.notifier, s.logger, dto.NotificationCreateRequest{
		UserID:  invoice.UserID,
		Type:    models.NotificationTypePayment,
		Title:   "Payment update",
		Message: fmt.Sprintf("Your payment for order %s is %s.", invoice.OrderID, invoice.Status),
	})

	return dto.NewInvoiceResponse(invoice), nil
}

func (s *billingService) activatePaidEnrollment(ctx context.Context, invoice models.Invoice) error {
	enrollment, err := invoke(ctx, s.logger, op{
		name:      "enrollment.get",
		fields:    fields("lms_id", invoice.LmsID, "user_id", invoice.UserID),
		overrides: apperror.Overrides{apperror.KindNotFound: "enrollment not found"},
	}, func(ctx context.Context) (models.Enrollment, error) {
		return s.enrollments.Get(ctx, invoice.LmsID, invoice.UserID)
	})
	if err != nil {
		return err
	}

	if !enrollment.IsActive() {
		enrollment.Status = models.EnrollmentStatusActive
		if err := invokeErr(ctx, s.logger, op{name: "enrollment.update", fields: fields("enrollment_id", enrollment.ID)}, func(ctx context.Context) error {
			return s.enrollments.Update(ctx, &enrollment)
		}); err != nil {
			return err
		}
	}

	s.afterActivation(ctx, Actor{ID: invoice.UserID, Role: models.RoleStudent}, enrollment)
	emit(ctx, s.events, s.logger, EventInvoicePaid, map[string]interface{}{
		"invoice_id": invoice.ID,
		"order_id":   invoice.OrderID,
		"lms_id":     invoice.LmsID,
		"user_id":    invoice.UserID,
		"amount_idr": invoice.AmountIDR,
	})
	return nil
}

func (s *billingService) ListInvoices(ctx context.Context, actor Actor) ([]dto.InvoiceResponse, error) {
	invoices, err := invoke(ctx, s.logger, op{name: "invoice.list", fields: fields("user_id", actor.ID)}, func(ctx context.Context) ([]models.Invoice, error) {
		return s.invoices.ListByUser(ctx, actor.ID)
	})
	if err != nil {
		return nil, err
	}

	out := make([]dto.InvoiceResponse, 0, len(invoices))
	for _, invoice := range invoices {
		out = append(out, dto.NewInvoiceResponse(invoice))
	}
	return out, nil
}

func (s *billingService) afterActivation(ctx context.Context, actor Actor, enrollment models.Enrollment) {
	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "enrollment.activated",
		EntityType: "enrollment",
		EntityID:   &enrollment.ID,
		Metadata:   map[string]interface{}{"lms_id": enrollment.LmsID.String(), "role": enrollment.Role},
	})
	emit(ctx, s.events, s.logger, EventEnrollmentActivated, map[string]interface{}{
		"lms_id":  enrollment.LmsID,
		"user_id": enrollment.UserID,
		"role":    enrollment.Role,
	})
}

func invoiceStatusFor(transactionStatus, fraudStatus string) string {
	switch transactionStatus {
	case transactionCapture:
		if fraudStatus == fraudChallenge {
			return models.InvoiceStatusPending
		}
		return models.InvoiceStatusPaid
	case transactionSettlement:
		return models.InvoiceStatusPaid
	case transactionDeny, transactionCancel, transactionFailure:
		return models.InvoiceStatusFailed
	case transactionExpire:
		return models.InvoiceStatusExpired
	case transactionPending:
		return models.InvoiceStatusPending
	default:
		return models.InvoiceStatusPending
	}
}

func newOrderID() string {
	return "LMS-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:20])
}
