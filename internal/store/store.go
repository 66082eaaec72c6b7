package store

import (
	"context"
	"errors"
	"time"

	"medorder/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

type Repository interface {
	ListCustomers(ctx context.Context, query domain.CustomerQuery) (domain.CustomerPage, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	// CreateOrder persists the order with its items, bumps usage of every
	// offer it references and settles reward points in one unit of work.
	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	ListOrdersForStatement(ctx context.Context, profileID string, from time.Time, to time.Time) ([]domain.Order, error)
	ListRecentOrders(ctx context.Context, profileID string, limit int) ([]domain.Order, error)

	GetOfferByCode(ctx context.Context, code string) (*domain.Offer, error)
	ListActiveOffers(ctx context.Context) ([]domain.Offer, error)
	GetRewardsConfig(ctx context.Context) (domain.RewardsConfig, error)

	CreateNote(ctx context.Context, note domain.CustomerNote) (*domain.CustomerNote, error)
	ListNotes(ctx context.Context, customerID string) ([]domain.CustomerNote, error)
	DeleteNote(ctx context.Context, id string) error
	CreateTask(ctx context.Context, task domain.CustomerTask) (*domain.CustomerTask, error)
	ListTasks(ctx context.Context, customerID string, status string) ([]domain.CustomerTask, error)
	CompleteTask(ctx context.Context, id string, at time.Time) (*domain.CustomerTask, error)
	DeleteTask(ctx context.Context, id string) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
	DeleteUser(ctx context.Context, id string) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage clamps pagination inputs to sane bounds.
func NormalizePage(limit int, offset int) (int, int) {
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
