package receipt

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cupoftea4/pos-mysql/internal/config"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

func testRenderer() *Renderer {
	return NewRenderer(config.Default().Receipt, time.UTC)
}

func TestRender(t *testing.T) {
	o := model.Order{
		OrderID:        42,
		CreatedAt:      time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC),
		TotalPrice:     decimal.NewFromInt(4500),
		PaymentMethod:  model.PayWavePay,
		SellMode:       model.SellRetail,
		CreatedByEmail: "staff@example.com",
		Lines: []model.OrderLine{
			{ItemID: 1, Name: "Lipstick", Quantity: 2, Price: decimal.NewFromInt(1000)},
			{ItemID: 2, Name: "Mascara", Quantity: 1, Price: decimal.NewFromInt(2500)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, testRenderer().Render(&buf, o))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}

func TestRenderEmptyOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testRenderer().Render(&buf, model.Order{OrderID: 1}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestMoney(t *testing.T) {
	r := testRenderer()
	assert.Equal(t, "12,500 Ks", r.money(decimal.NewFromInt(12500)))
	assert.Equal(t, "0 Ks", r.money(decimal.Zero))
	assert.Equal(t, "1,234.50 Ks", r.money(decimal.RequireFromString("1234.5")))
}

func TestPaymentLabel(t *testing.T) {
	assert.Equal(t, "Kpay", paymentLabel(""))
	assert.Equal(t, "Cash", paymentLabel(model.PayCash))
	assert.Equal(t, "Banking", paymentLabel(model.PayBanking))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "receipt_order_7.pdf", FileName(7))
}
