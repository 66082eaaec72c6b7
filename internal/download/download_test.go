package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/metrics"
	"medorder/backend/internal/pdf"
)

func statementData() *domain.OrderStatementData {
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	return &domain.OrderStatementData{
		UserID:    "user-1234567890",
		StartDate: start,
		EndDate:   end,
		Orders: []domain.OrderStatementRecord{
			{OrderNumber: "ORD-1", OrderDate: start, OrderStatus: domain.OrderStatusCompleted,
				PaymentStatus: domain.PaymentStatusPaid, OrderAmount: 42, PaidAmount: 42},
		},
		Summary:  &domain.OrderStatementSummary{TotalOrders: 1, TotalAmount: 42, TotalPaid: 42},
		UserInfo: domain.StatementUserInfo{CompanyName: "Acme! Pharmacy#1"},
	}
}

type flakySink struct {
	failures int
	calls    int
	err      error
}

func (s *flakySink) Deliver(_ context.Context, filename string, _ []byte) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", s.err
	}
	return "/exports/" + filename, nil
}

func newManager() *Manager {
	return NewManager(pdf.NewStatementRenderer(), Options{MaxAttempts: 3, RetryDelay: time.Millisecond}, nil, metrics.New())
}

func TestPreflightMessages(t *testing.T) {
	assert.EqualError(t, Preflight(nil), "Statement data is required")

	data := statementData()
	data.UserID = ""
	assert.EqualError(t, Preflight(data), "Valid user ID is required")

	data = statementData()
	data.StartDate = time.Time{}
	assert.EqualError(t, Preflight(data), "Valid start date is required")

	data = statementData()
	data.Orders = nil
	assert.EqualError(t, Preflight(data), "Orders data is required")

	data = statementData()
	data.Summary = nil
	assert.EqualError(t, Preflight(data), "Summary data is required")

	data = statementData()
	data.Orders = []domain.OrderStatementRecord{}
	assert.NoError(t, Preflight(data))
}

func TestDownloadRetriesUntilSuccess(t *testing.T) {
	sink := &flakySink{failures: 2, err: errors.New("network unreachable")}
	var retries []int
	var stages []Stage

	res, err := newManager().Download(context.Background(), statementData(), sink, Options{
		OnRetry:    func(attempt int, _ error) { retries = append(retries, attempt) },
		OnProgress: func(p Progress) { stages = append(stages, p.Stage) },
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, sink.calls)
	assert.Equal(t, []int{1, 2}, retries)
	assert.Equal(t, "order-statement_Acme_Pharmacy_1_2026-04-01_to_2026-04-30.pdf", res.Filename)
	assert.Equal(t, StageComplete, stages[len(stages)-1])
}

func TestDownloadExhaustsRetries(t *testing.T) {
	sink := &flakySink{failures: 10, err: errors.New("disk full")}
	retryCalls := 0

	_, err := newManager().Download(context.Background(), statementData(), sink, Options{
		OnRetry: func(int, error) { retryCalls++ },
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, sink.calls)
	assert.Equal(t, 2, retryCalls)
	assert.Equal(t, "The download failed after several attempts. Please try again later.", FriendlyMessage(err))
}

func TestQuickDownloadSingleAttempt(t *testing.T) {
	sink := &flakySink{failures: 1, err: errors.New("connection reset")}

	_, err := newManager().QuickDownload(context.Background(), statementData(), sink)
	require.Error(t, err)
	assert.Equal(t, 1, sink.calls)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
}

type emptyRenderer struct{}

func (emptyRenderer) Render(context.Context, *domain.OrderStatementData) ([]byte, error) {
	return nil, nil
}

func TestDownloadEmptyPDFFailsFast(t *testing.T) {
	sink := &flakySink{}
	m := NewManager(emptyRenderer{}, Options{MaxAttempts: 3}, nil, nil)

	_, err := m.Download(context.Background(), statementData(), sink, Options{})
	assert.ErrorIs(t, err, pdf.ErrEmptyPDF)
	assert.Equal(t, 0, sink.calls)
}

func TestDownloadStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &flakySink{failures: 10, err: errors.New("network down")}
	m := NewManager(pdf.NewStatementRenderer(), Options{MaxAttempts: 5, RetryDelay: time.Hour}, nil, nil)

	_, err := m.Download(ctx, statementData(), sink, Options{
		OnRetry: func(int, error) { cancel() },
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sink.calls)
}

func TestFileSinkPublishesAtomically(t *testing.T) {
	dir := t.TempDir()
	res, err := newManager().Download(context.Background(), statementData(), FileSink{Dir: dir}, Options{})
	require.NoError(t, err)

	blob, err := os.ReadFile(filepath.Join(dir, res.Filename))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(blob), "%PDF"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestResponseSinkWritesAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	res, err := newManager().QuickDownload(context.Background(), statementData(), ResponseSink{W: rec})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), res.Filename)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestFriendlyMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.New("Feature not supported"), "PDF download is not supported here. Please try a different browser or device."},
		{errors.New("user must login first"), "Please log in again to download your statement."},
		{ErrOrdersRequired, "No statement data is available for the selected period."},
		{pdf.ErrEmptyPDF, "We couldn't generate the PDF. Please try again."},
		{errors.New("network write failed"), "A network error occurred. Check your connection and try again."},
		{context.DeadlineExceeded, "The download timed out. Please try again."},
		{errors.New("kaboom"), "Something went wrong while downloading your statement. Please try again."},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FriendlyMessage(tc.err), tc.err.Error())
	}
	assert.Equal(t, "", FriendlyMessage(nil))
}
