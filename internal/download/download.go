// Package download delivers rendered statement PDFs to a sink with bounded
// retries, progress callbacks and user-facing error messages.
package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/metrics"
	"medorder/backend/internal/pdf"
)

var (
	ErrRetriesExhausted = errors.New("download failed after all retry attempts")

	ErrStatementRequired = errors.New("Statement data is required")
	ErrUserIDRequired    = errors.New("Valid user ID is required")
	ErrStartDateRequired = errors.New("Valid start date is required")
	ErrOrdersRequired    = errors.New("Orders data is required")
	ErrSummaryRequired   = errors.New("Summary data is required")
)

type Stage string

const (
	StageValidating Stage = "validating"
	StageGenerating Stage = "generating"
	StageDelivering Stage = "delivering"
	StageRetrying   Stage = "retrying"
	StageComplete   Stage = "complete"
)

type Progress struct {
	Stage   Stage
	Attempt int
	Percent int
}

type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
	// Timeout bounds a single delivery attempt. Zero means no bound.
	Timeout    time.Duration
	OnProgress func(Progress)
	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

func DefaultOptions() Options {
	return Options{MaxAttempts: 3, RetryDelay: time.Second, Timeout: 30 * time.Second}
}

// Sink receives a finished PDF. It reports where the document went.
type Sink interface {
	Deliver(ctx context.Context, filename string, blob []byte) (string, error)
}

type Result struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
	Size     int    `json:"size"`
	Attempts int    `json:"attempts"`
}

type Manager struct {
	renderer pdf.Renderer
	defaults Options
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewManager(renderer pdf.Renderer, defaults Options, logger *zap.Logger, m *metrics.Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.MaxAttempts < 1 {
		defaults.MaxAttempts = 1
	}
	return &Manager{renderer: renderer, defaults: defaults, logger: logger, metrics: m}
}

// Preflight rejects statement data that cannot be rendered.
func Preflight(data *domain.OrderStatementData) error {
	switch {
	case data == nil:
		return ErrStatementRequired
	case data.UserID == "":
		return ErrUserIDRequired
	case data.StartDate.IsZero():
		return ErrStartDateRequired
	case data.Orders == nil:
		return ErrOrdersRequired
	case data.Summary == nil:
		return ErrSummaryRequired
	}
	return nil
}

// Download renders data once and delivers it, retrying delivery up to
// MaxAttempts times. Zero fields in opts take the manager defaults.
func (m *Manager) Download(ctx context.Context, data *domain.OrderStatementData, sink Sink, opts Options) (*Result, error) {
	opts = m.merge(opts)
	res, err := m.run(ctx, data, sink, opts, "retry")
	m.metrics.DownloadResult("retry", err == nil)
	return res, err
}

// QuickDownload makes a single attempt without retries.
func (m *Manager) QuickDownload(ctx context.Context, data *domain.OrderStatementData, sink Sink) (*Result, error) {
	opts := m.merge(Options{})
	opts.MaxAttempts = 1
	res, err := m.run(ctx, data, sink, opts, "quick")
	m.metrics.DownloadResult("quick", err == nil)
	return res, err
}

func (m *Manager) merge(opts Options) Options {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = m.defaults.MaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = m.defaults.RetryDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = m.defaults.Timeout
	}
	return opts
}

func (m *Manager) run(ctx context.Context, data *domain.OrderStatementData, sink Sink, opts Options, mode string) (*Result, error) {
	report := func(stage Stage, attempt int, percent int) {
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Stage: stage, Attempt: attempt, Percent: percent})
		}
	}

	report(StageValidating, 0, 5)
	if err := Preflight(data); err != nil {
		return nil, err
	}

	report(StageGenerating, 0, 25)
	blob, err := pdf.Generate(ctx, m.renderer, data)
	if err != nil {
		m.logger.Error("statement pdf generation failed", zap.String("user_id", data.UserID), zap.Error(err))
		return nil, err
	}
	filename := pdf.Filename(data)

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		report(StageDelivering, attempt, 60)
		location, err := m.deliver(ctx, sink, filename, blob, opts.Timeout)
		m.metrics.DownloadAttempt(mode, err == nil)
		if err == nil {
			report(StageComplete, attempt, 100)
			m.logger.Info("statement delivered",
				zap.String("user_id", data.UserID),
				zap.String("filename", filename),
				zap.Int("attempt", attempt),
				zap.Int("bytes", len(blob)),
			)
			return &Result{Filename: filename, Location: location, Size: len(blob), Attempts: attempt}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.logger.Warn("statement delivery attempt failed",
			zap.String("filename", filename),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", opts.MaxAttempts),
			zap.Error(err),
		)
		if attempt == opts.MaxAttempts {
			break
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}
		report(StageRetrying, attempt, 60)
		timer := time.NewTimer(opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if opts.MaxAttempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w (%d attempts): %v", ErrRetriesExhausted, opts.MaxAttempts, lastErr)
}

func (m *Manager) deliver(ctx context.Context, sink Sink, filename string, blob []byte, timeout time.Duration) (string, error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	location, err := sink.Deliver(attemptCtx, filename, blob)
	if err == nil && attemptCtx.Err() != nil {
		err = attemptCtx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return "", fmt.Errorf("delivery timeout after %s: %w", timeout, err)
	}
	return location, err
}
