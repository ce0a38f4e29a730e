package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/lms-go-api/internal/models"
)

// InvoiceResponse is the public view of an invoice.
type InvoiceResponse struct {
	ID          uuid.UUID  `json:"id"`
	LmsID       uuid.UUID  `json:"lms_id"`
	OrderID     string     `json:"order_id"`
	AmountIDR   int64      `json:"amount_idr"`
	Status      string     `json:"status"`
	SnapToken   string     `json:"snap_token,omitempty"`
	RedirectURL string     `json:"redirect_url,omitempty"`
	PaidAt      *time.Time `json:"paid_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewInvoiceResponse converts an invoice.
func NewInvoiceResponse(model models.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:          model.ID,
		LmsID:       model.LmsID,
		OrderID:     model.OrderID,
		AmountIDR:   model.AmountIDR,
		Status:      model.Status,
		SnapToken:   model.SnapToken,
		RedirectURL: model.RedirectURL,
		PaidAt:      model.PaidAt,
		CreatedAt:   model.CreatedAt,
	}
}

// CheckoutResponse is returned when a student enrolls in a course.
type CheckoutResponse struct {
	Enrollment EnrollmentResponse `json:"enrollment"`
	Invoice    *InvoiceResponse   `json:"invoice,omitempty"`
}

// MidtransNotification is the HTTP notification body sent by Midtrans.
type MidtransNotification struct {
	OrderID           string `json:"order_id" validate:"required"`
	StatusCode        string `json:"status_code" validate:"required"`
	GrossAmount       string `json:"gross_amount" validate:"required"`
	SignatureKey      string `json:"signature_key" validate:"required"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`
}
