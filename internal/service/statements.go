package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/download"
	"medorder/backend/internal/statement"
	"medorder/backend/internal/store"
)

type StatementRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

func (r StatementRequest) dates() (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, r.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	end, err := time.Parse(time.DateOnly, r.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	return start, end, nil
}

// Statement builds the order statement for one customer and period.
func (s *Service) Statement(ctx context.Context, req StatementRequest) (*domain.OrderStatementData, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	start, end, err := req.dates()
	if err != nil {
		return nil, err
	}
	data, err := s.statements.FetchOrderData(ctx, req.UserID, start, end)
	if err != nil {
		return nil, err
	}
	s.metrics.StatementBuilt(statement.ValidateFinancialCalculations(data).Valid)
	return data, nil
}

// StatementPDF renders the statement and hands it to sink in one attempt.
func (s *Service) StatementPDF(ctx context.Context, req StatementRequest, sink download.Sink) (*download.Result, error) {
	data, err := s.Statement(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.downloads.QuickDownload(ctx, data, sink)
}

// ExportStatement renders the statement into the export directory,
// retrying the write with the manager's configured policy.
func (s *Service) ExportStatement(ctx context.Context, req StatementRequest) (*download.Result, error) {
	data, err := s.Statement(ctx, req)
	if err != nil {
		return nil, err
	}
	res, err := s.downloads.Download(ctx, data, download.FileSink{Dir: s.exportDir}, download.Options{})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "statement.export", "customer", data.UserID,
		fmt.Sprintf("file=%s size=%d attempts=%d", res.Filename, res.Size, res.Attempts))
	return res, nil
}
