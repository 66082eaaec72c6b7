package pdf

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medorder/backend/internal/domain"
)

func sampleData() *domain.OrderStatementData {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	return &domain.OrderStatementData{
		UserID:    "3f2a9c1e-aaaa-bbbb-cccc-000000000001",
		StartDate: start,
		EndDate:   end,
		Orders: []domain.OrderStatementRecord{
			{OrderNumber: "ORD-1001", OrderDate: start.AddDate(0, 0, 3), OrderStatus: domain.OrderStatusCompleted,
				PaymentStatus: domain.PaymentStatusPaid, OrderAmount: 1250.5, PaidAmount: 1250.5},
		},
		Summary:     &domain.OrderStatementSummary{TotalOrders: 1, TotalAmount: 1250.5, TotalPaid: 1250.5, PeriodStart: start, PeriodEnd: end},
		UserInfo:    domain.StatementUserInfo{FirstName: "Dana", LastName: "Reyes", CompanyName: "Acme! Pharmacy#1"},
		CompanyInfo: domain.CompanyInfo{Name: "MedSupply Co", Email: "billing@medsupply.test"},
	}
}

func TestStatementRendererProducesPDF(t *testing.T) {
	blob, err := Generate(context.Background(), NewStatementRenderer(), sampleData())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(blob), "%PDF"))
}

func TestStatementRendererHandlesNoOrders(t *testing.T) {
	data := sampleData()
	data.Orders = nil
	data.Summary = &domain.OrderStatementSummary{}

	blob, err := Generate(context.Background(), NewStatementRenderer(), data)
	require.NoError(t, err)
	assert.NotEmpty(t, blob)
}

type blobRenderer []byte

func (b blobRenderer) Render(context.Context, *domain.OrderStatementData) ([]byte, error) {
	return b, nil
}

func TestGenerateRejectsEmptyOutput(t *testing.T) {
	_, err := Generate(context.Background(), blobRenderer(nil), sampleData())
	assert.ErrorIs(t, err, ErrEmptyPDF)
	assert.Equal(t, "Generated PDF is empty or invalid.", err.Error())

	_, err = Generate(context.Background(), blobRenderer("<html>"), sampleData())
	assert.ErrorIs(t, err, ErrEmptyPDF)
}

func TestGenerateHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, NewStatementRenderer(), sampleData())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Acme_Pharmacy_1", Sanitize("Acme! Pharmacy#1"))
	assert.Equal(t, "a_b", Sanitize("__a   b__"))
	assert.Equal(t, "Northwest_Regional_H", Sanitize("Northwest Regional Hospital Supply"))
	assert.Equal(t, "", Sanitize("!!!"))
}

func TestFilenameIdentifierFallbacks(t *testing.T) {
	data := sampleData()
	assert.Equal(t, "order-statement_Acme_Pharmacy_1_2026-01-01_to_2026-01-31.pdf", Filename(data))

	data.UserInfo.CompanyName = ""
	assert.Equal(t, "order-statement_Dana_Reyes_2026-01-01_to_2026-01-31.pdf", Filename(data))

	data.UserInfo = domain.StatementUserInfo{}
	assert.Equal(t, "order-statement_3f2a9c1e_2026-01-01_to_2026-01-31.pdf", Filename(data))
}
