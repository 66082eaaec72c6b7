// Package statement builds customer order statements: it fetches orders for
// a date range, normalizes their statuses, splits paid and pending amounts
// and reconciles the summary.
package statement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/money"
	"medorder/backend/internal/store"
)

var ErrInvalidDateRange = errors.New("invalid statement date range")

// Source is the slice of the repository a statement needs.
type Source interface {
	ListOrdersForStatement(ctx context.Context, profileID string, from time.Time, to time.Time) ([]domain.Order, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
}

type Builder struct {
	source  Source
	company domain.CompanyInfo
	logger  *zap.Logger
}

func NewBuilder(source Source, company domain.CompanyInfo, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{source: source, company: company, logger: logger}
}

// FetchOrderData builds the statement for userID covering start through the
// end of endDate's day. A range with no orders yields an empty statement.
func (b *Builder) FetchOrderData(ctx context.Context, userID string, start time.Time, end time.Time) (*domain.OrderStatementData, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", store.ErrInvalidInput)
	}
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", ErrInvalidDateRange)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start date %s must be before end date %s",
			ErrInvalidDateRange, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	queryEnd := EndOfDay(end)

	var (
		orders  []domain.Order
		profile *domain.Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = b.source.ListOrdersForStatement(gctx, userID, start, queryEnd)
		if err != nil {
			return fmt.Errorf("fetch statement orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		p, err := b.source.GetCustomer(gctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				b.logger.Warn("statement profile not found, using empty header", zap.String("user_id", userID))
				return nil
			}
			return fmt.Errorf("fetch statement profile: %w", err)
		}
		profile = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]domain.OrderStatementRecord, 0, len(orders))
	for _, order := range orders {
		records = append(records, ToRecord(order))
	}
	summary := Summarize(records, start, end)

	data := &domain.OrderStatementData{
		UserID:      userID,
		StartDate:   start,
		EndDate:     end,
		Orders:      records,
		Summary:     &summary,
		UserInfo:    userInfo(profile),
		CompanyInfo: b.company,
	}

	check := ValidateFinancialCalculations(data)
	if !check.Valid {
		b.logger.Error("statement reconciliation failed",
			zap.String("user_id", userID),
			zap.Strings("errors", check.Errors),
			zap.Strings("warnings", check.Warnings),
		)
	} else if len(check.Warnings) > 0 {
		b.logger.Warn("statement reconciliation warnings",
			zap.String("user_id", userID),
			zap.Strings("warnings", check.Warnings),
		)
	}

	return data, nil
}

// EndOfDay returns 23:59:59.999 on t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func ToRecord(order domain.Order) domain.OrderStatementRecord {
	paymentStatus := NormalizePaymentStatus(order.PaymentStatus)
	amount := money.Round2(order.TotalAmount)
	paid, pending := SplitAmount(amount, paymentStatus)
	return domain.OrderStatementRecord{
		OrderNumber:   order.OrderNumber,
		OrderDate:     order.CreatedAt,
		OrderStatus:   NormalizeOrderStatus(order.Status),
		PaymentStatus: paymentStatus,
		OrderAmount:   amount,
		PaidAmount:    paid,
		PendingAmount: pending,
	}
}

var orderStatusTable = map[string]domain.OrderStatus{
	"pending":     domain.OrderStatusPending,
	"new":         domain.OrderStatusPending,
	"processing":  domain.OrderStatusProcessing,
	"confirmed":   domain.OrderStatusProcessing,
	"in_progress": domain.OrderStatusProcessing,
	"completed":   domain.OrderStatusCompleted,
	"shipped":     domain.OrderStatusCompleted,
	"delivered":   domain.OrderStatusCompleted,
	"cancelled":   domain.OrderStatusCancelled,
	"canceled":    domain.OrderStatusCancelled,
	"refunded":    domain.OrderStatusCancelled,
}

var paymentStatusTable = map[string]domain.PaymentStatus{
	"paid":           domain.PaymentStatusPaid,
	"completed":      domain.PaymentStatusPaid,
	"success":        domain.PaymentStatusPaid,
	"processed":      domain.PaymentStatusPaid,
	"pending":        domain.PaymentStatusPending,
	"unpaid":         domain.PaymentStatusPending,
	"draft":          domain.PaymentStatusPending,
	"sent":           domain.PaymentStatusPending,
	"partial":        domain.PaymentStatusPartial,
	"partially_paid": domain.PaymentStatusPartial,
	"failed":         domain.PaymentStatusFailed,
	"overdue":        domain.PaymentStatusFailed,
	"declined":       domain.PaymentStatusFailed,
}

// NormalizeOrderStatus maps a raw status; unknown values become pending.
func NormalizeOrderStatus(raw string) domain.OrderStatus {
	if status, ok := orderStatusTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return status
	}
	return domain.OrderStatusPending
}

// NormalizePaymentStatus maps a raw status; unknown values become pending.
func NormalizePaymentStatus(raw string) domain.PaymentStatus {
	if status, ok := paymentStatusTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return status
	}
	return domain.PaymentStatusPending
}

// SplitAmount divides an order amount into paid and pending parts.
// Partial payments are split evenly until per-payment ledger data exists.
func SplitAmount(amount float64, status domain.PaymentStatus) (paid float64, pending float64) {
	switch status {
	case domain.PaymentStatusPaid:
		return amount, 0
	case domain.PaymentStatusPartial:
		return money.Half(amount)
	default:
		return 0, amount
	}
}

func Summarize(records []domain.OrderStatementRecord, start time.Time, end time.Time) domain.OrderStatementSummary {
	amounts := make([]float64, 0, len(records))
	paid := make([]float64, 0, len(records))
	pending := make([]float64, 0, len(records))
	for _, r := range records {
		amounts = append(amounts, r.OrderAmount)
		paid = append(paid, r.PaidAmount)
		pending = append(pending, r.PendingAmount)
	}
	return domain.OrderStatementSummary{
		TotalOrders:  len(records),
		TotalAmount:  money.Sum(amounts...),
		TotalPaid:    money.Sum(paid...),
		TotalPending: money.Sum(pending...),
		PeriodStart:  start,
		PeriodEnd:    end,
	}
}

func userInfo(profile *domain.Customer) domain.StatementUserInfo {
	if profile == nil {
		return domain.StatementUserInfo{}
	}
	info := domain.StatementUserInfo{
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		CompanyName: profile.CompanyName,
		Email:       profile.Email,
		Phone:       profile.Phone,
	}
	if profile.Billing != nil {
		a := profile.Billing.Address
		info.Address = strings.TrimSpace(fmt.Sprintf("%s, %s, %s %s", a.Street, a.City, a.State, a.ZipCode))
		info.Address = strings.Trim(info.Address, ", ")
	}
	return info
}
