// Package payment wraps the Midtrans Snap API used for paid course enrollments.
package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// ErrGatewayDisabled is returned when no server key is configured.
var ErrGatewayDisabled = errors.New("payment gateway is not configured")

// Customer identifies the payer on the hosted checkout page.
type Customer struct {
	Name  string
	Email string
}

// CheckoutRequest describes a single-item checkout.
type CheckoutRequest struct {
	OrderID   string
	AmountIDR int64
	ItemID    string
	ItemName  string
	Customer  Customer
}

// CheckoutSession is the hosted checkout created by the gateway.
type CheckoutSession struct {
	Token       string
	RedirectURL string
}

// SnapGateway creates Snap transactions and verifies Midtrans notifications.
type SnapGateway struct {
	client    snap.Client
	serverKey string
}

// NewSnapGateway builds a gateway for the sandbox or production environment.
func NewSnapGateway(serverKey string, production bool) *SnapGateway {
	gateway := &SnapGateway{serverKey: strings.TrimSpace(serverKey)}
	if production {
		gateway.client.New(gateway.serverKey, midtrans.Production)
	} else {
		gateway.client.New(gateway.serverKey, midtrans.Sandbox)
	}
	return gateway
}

// CreateCheckout requests a Snap token for the order.
func (g *SnapGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (CheckoutSession, error) {
	if g.serverKey == "" {
		return CheckoutSession{}, ErrGatewayDisabled
	}
	if req.AmountIDR <= 0 {
		return CheckoutSession{}, errors.New("checkout amount must be positive")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return CheckoutSession{}, errors.New("order id is required")
	}

	first, last := splitName(req.Customer.Name)
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.AmountIDR,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: first,
			LName: last,
			Email: req.Customer.Email,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:       req.ItemID,
			Name:     truncate(req.ItemName, 50),
			Price:    req.AmountIDR,
			Qty:      1,
			Category: "course",
		}},
	}

	resp, midtransErr := g.client.CreateTransaction(snapReq)
	if midtransErr != nil {
		return CheckoutSession{}, fmt.Errorf("create snap transaction: %w", midtransErr)
	}

	return CheckoutSession{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// VerifySignature checks the signature_key of an HTTP notification:
// sha512(order_id + status_code + gross_amount + server_key).
func (g *SnapGateway) VerifySignature(orderID, statusCode, grossAmount, signature string) bool {
	if g.serverKey == "" || signature == "" {
		return false
	}
	expected := Signature(orderID, statusCode, grossAmount, g.serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}

// Signature computes the Midtrans notification signature.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// truncate keeps at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
