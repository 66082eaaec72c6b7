package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/gateway"
	"medorder/backend/internal/store"
	"medorder/backend/internal/xid"
)

const recentOrderLimit = 10

type CreateCustomerRequest struct {
	Email        string                  `json:"email" validate:"required,email,max=254"`
	Password     string                  `json:"password" validate:"required,min=8,max=72"`
	FirstName    string                  `json:"first_name" validate:"required,max=100"`
	LastName     string                  `json:"last_name" validate:"required,max=100"`
	CompanyName  string                  `json:"company_name" validate:"max=200"`
	Phone        string                  `json:"phone" validate:"max=32"`
	TaxPercent   float64                 `json:"tax_percent" validate:"gte=0,lte=100"`
	FreeShipping bool                    `json:"free_shipping"`
	Billing      *domain.BillingAddress  `json:"billing_address"`
	Shipping     *domain.ShippingAddress `json:"shipping_address"`
}

// UpdateCustomerRequest patches a profile; nil fields are left unchanged.
type UpdateCustomerRequest struct {
	FirstName    *string                 `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName     *string                 `json:"last_name" validate:"omitempty,min=1,max=100"`
	CompanyName  *string                 `json:"company_name" validate:"omitempty,max=200"`
	Phone        *string                 `json:"phone" validate:"omitempty,max=32"`
	TaxPercent   *float64                `json:"tax_percent" validate:"omitempty,gte=0,lte=100"`
	FreeShipping *bool                   `json:"free_shipping"`
	Status       *string                 `json:"status" validate:"omitempty,oneof=active inactive"`
	Billing      *domain.BillingAddress  `json:"billing_address"`
	Shipping     *domain.ShippingAddress `json:"shipping_address"`
}

type CustomerResult struct {
	Customer domain.Customer `json:"customer"`
	Warnings []string        `json:"warnings,omitempty"`
}

type CustomerProfile struct {
	Customer     domain.Customer       `json:"customer"`
	RecentOrders []domain.Order        `json:"recent_orders"`
	Notes        []domain.CustomerNote `json:"notes"`
	OpenTasks    []domain.CustomerTask `json:"open_tasks"`
}

type NoteRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

type TaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  string     `json:"assigned_to" validate:"max=100"`
}

func (s *Service) ListCustomers(ctx context.Context, query domain.CustomerQuery) (domain.CustomerPage, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.CustomerPage{}, err
	}
	query.Search = strings.TrimSpace(query.Search)
	query.Status = strings.TrimSpace(query.Status)
	if query.Status != "" && query.Status != domain.CustomerStatusActive && query.Status != domain.CustomerStatusInactive {
		return domain.CustomerPage{}, fieldError("status", "status must be one of: active inactive")
	}
	query.Limit, query.Offset = store.NormalizePage(query.Limit, query.Offset)
	return s.repo.ListCustomers(ctx, query)
}

// GetCustomerProfile loads the profile together with its recent orders,
// notes and open tasks.
func (s *Service) GetCustomerProfile(ctx context.Context, id string) (*CustomerProfile, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)

	profile := &CustomerProfile{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		customer, err := s.repo.GetCustomer(gctx, id)
		if err != nil {
			return err
		}
		profile.Customer = *customer
		return nil
	})
	g.Go(func() error {
		orders, err := s.repo.ListRecentOrders(gctx, id, recentOrderLimit)
		if err != nil {
			return fmt.Errorf("list recent orders: %w", err)
		}
		profile.RecentOrders = orders
		return nil
	})
	g.Go(func() error {
		notes, err := s.repo.ListNotes(gctx, id)
		if err != nil {
			return fmt.Errorf("list notes: %w", err)
		}
		profile.Notes = notes
		return nil
	})
	g.Go(func() error {
		tasks, err := s.repo.ListTasks(gctx, id, domain.TaskStatusOpen)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		profile.OpenTasks = tasks
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateCustomer registers the login account first and then the profile
// under the account's id. If the profile write fails the account is
// removed again. The welcome email is best effort.
func (s *Service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerResult, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	userID, err := s.identity.CreateUser(ctx, gateway.CreateUserRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.RoleCustomer,
	})
	if err != nil {
		return nil, fmt.Errorf("create identity account: %w", err)
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		ID:           userID,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		CompanyName:  req.CompanyName,
		Phone:        req.Phone,
		Role:         domain.RoleCustomer,
		Status:       domain.CustomerStatusActive,
		TaxPercent:   req.TaxPercent,
		FreeShipping: req.FreeShipping,
		Billing:      req.Billing,
		Shipping:     req.Shipping,
	})
	if err != nil {
		if rbErr := s.identity.DeleteUser(ctx, userID); rbErr != nil {
			s.logger.Warn("failed to roll back identity account",
				zap.String("user_id", userID),
				zap.Error(rbErr),
			)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	s.logAudit(ctx, "customer.create", "customer", created.ID, "email="+created.Email)

	result := &CustomerResult{Customer: *created}
	if err := s.mailer.SendEmail(ctx, gateway.Email{
		To:       created.Email,
		Subject:  "Welcome to your ordering account",
		Template: "customer-welcome",
		Data: map[string]string{
			"first_name": created.FirstName,
			"company":    created.CompanyName,
		},
	}); err != nil {
		s.logger.Warn("welcome email failed", zap.String("customer_id", created.ID), zap.Error(err))
		result.Warnings = append(result.Warnings, "Customer was created but the welcome email could not be sent.")
	}
	return result, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest) (*domain.Customer, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	current, err := s.repo.GetCustomer(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}

	next := *current
	if req.FirstName != nil {
		next.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		next.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.CompanyName != nil {
		next.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.Phone != nil {
		next.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.TaxPercent != nil {
		next.TaxPercent = *req.TaxPercent
	}
	if req.FreeShipping != nil {
		next.FreeShipping = *req.FreeShipping
	}
	if req.Status != nil {
		next.Status = *req.Status
	}
	if req.Billing != nil {
		next.Billing = req.Billing
	}
	if req.Shipping != nil {
		next.Shipping = req.Shipping
	}

	updated, err := s.repo.UpdateCustomer(ctx, next)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "customer.update", "customer", updated.ID, "")
	return updated, nil
}

// DeleteCustomer removes the identity account and then the profile. An
// account that is already gone does not block the profile delete.
func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if _, err := s.repo.GetCustomer(ctx, id); err != nil {
		return err
	}
	if err := s.identity.DeleteUser(ctx, id); err != nil {
		if !identityGone(err) {
			return fmt.Errorf("delete identity account: %w", err)
		}
		s.logger.Warn("identity account already removed", zap.String("customer_id", id))
	}
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "customer.delete", "customer", id, "")
	return nil
}

func (s *Service) CreateNote(ctx context.Context, customerID string, req NoteRequest) (*domain.CustomerNote, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	req.Body = strings.TrimSpace(req.Body)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	note, err := s.repo.CreateNote(ctx, domain.CustomerNote{
		ID:         xid.New("note"),
		CustomerID: strings.TrimSpace(customerID),
		Body:       req.Body,
		CreatedBy:  actor.Username,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "note.create", "customer", note.CustomerID, note.ID)
	return note, nil
}

func (s *Service) ListNotes(ctx context.Context, customerID string) ([]domain.CustomerNote, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListNotes(ctx, strings.TrimSpace(customerID))
}

func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if _, err := requireActor(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteNote(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "note.delete", "note", id, "")
	return nil
}

func (s *Service) CreateTask(ctx context.Context, customerID string, req TaskRequest) (*domain.CustomerTask, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.AssignedTo = strings.TrimSpace(req.AssignedTo)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	task, err := s.repo.CreateTask(ctx, domain.CustomerTask{
		ID:          xid.New("task"),
		CustomerID:  strings.TrimSpace(customerID),
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      domain.TaskStatusOpen,
		AssignedTo:  req.AssignedTo,
		CreatedBy:   actor.Username,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "task.create", "customer", task.CustomerID, task.ID)
	return task, nil
}

func (s *Service) ListTasks(ctx context.Context, customerID string, status string) ([]domain.CustomerTask, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	status = strings.TrimSpace(status)
	if status != "" && status != domain.TaskStatusOpen && status != domain.TaskStatusCompleted {
		return nil, fieldError("status", "status must be one of: open completed")
	}
	return s.repo.ListTasks(ctx, strings.TrimSpace(customerID), status)
}

func (s *Service) CompleteTask(ctx context.Context, id string) (*domain.CustomerTask, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	task, err := s.repo.CompleteTask(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "task.complete", "task", task.ID, "")
	return task, nil
}

func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if _, err := requireActor(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "task.delete", "task", id, "")
	return nil
}
