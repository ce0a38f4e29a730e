package payment

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	gateway := NewSnapGateway("server-key", false)
	signature := Signature("LMS-1", "200", "150000.00", "server-key")

	require.Len(t, signature, 128)
	require.True(t, gateway.VerifySignature("LMS-1", "200", "150000.00", signature))
	require.False(t, gateway.VerifySignature("LMS-1", "200", "150001.00", signature))
	require.False(t, gateway.VerifySignature("LMS-1", "200", "150000.00", ""))
}

func TestCreateCheckoutRequiresServerKey(t *testing.T) {
	gateway := NewSnapGateway("", false)
	_, err := gateway.CreateCheckout(context.Background(), CheckoutRequest{OrderID: "x", AmountIDR: 1000})
	require.ErrorIs(t, err, ErrGatewayDisabled)
	require.False(t, gateway.VerifySignature("x", "200", "1000.00", "abc"))
}

func TestSplitName(t *testing.T) {
	first, last := splitName("  Siti Nur Aisyah ")
	require.Equal(t, "Siti", first)
	require.Equal(t, "Nur Aisyah", last)
}

func TestTruncateKeepsWholeRunes(t *testing.T) {
	require.Equal(t, "Go", truncate("Go", 50))
	require.Equal(t, "Pemrograman", truncate("Pemrograman Go", 11))

	title := "Kursus 日本語 lanjutan"
	cut := truncate(title, 9)
	require.True(t, utf8.ValidString(cut))
	require.Equal(t, "Kursus 日本", cut)
}
