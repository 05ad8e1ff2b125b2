package qr

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCode() InvoiceCode {
	return InvoiceCode{
		SaleID:      "sale-1",
		UserID:      "user-1",
		ItemCount:   3,
		Total:       decimal.RequireFromString("220.00"),
		PurchasedAt: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestEncodeProducesPNG(t *testing.T) {
	png, err := NewQRGenerator("test-secret-key").Encode(sampleCode())
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestTokenRoundTrip(t *testing.T) {
	gen := NewQRGenerator("test-secret-key")

	token, err := gen.Token(sampleCode())
	require.NoError(t, err)
	assert.NotContains(t, token, "sale-1")

	code, err := gen.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "sale-1", code.SaleID)
	assert.Equal(t, 3, code.ItemCount)
	assert.True(t, code.Total.Equal(decimal.NewFromInt(220)))
	assert.True(t, code.PurchasedAt.Equal(sampleCode().PurchasedAt))
}

func TestTokensUseFreshIV(t *testing.T) {
	gen := NewQRGenerator("test-secret-key")
	a, err := gen.Token(sampleCode())
	require.NoError(t, err)
	b, err := gen.Token(sampleCode())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecodeWithWrongSecretFails(t *testing.T) {
	token, err := NewQRGenerator("one").Token(sampleCode())
	require.NoError(t, err)

	_, err = NewQRGenerator("two").Decode(token)
	assert.Error(t, err)

	_, err = NewQRGenerator("one").Decode("short")
	assert.Error(t, err)
}
