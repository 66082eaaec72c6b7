package wizard

import (
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/pricing"
)

var (
	ErrSubmitInProgress = errors.New("order submission already in progress")
	ErrAlreadySubmitted = errors.New("order already submitted")
)

// Session is one run of the order wizard. All methods are safe for concurrent use.
type Session struct {
	mu           sync.Mutex
	id           string
	createdBy    string
	createdAt    time.Time
	updatedAt    time.Time
	machine      *Machine
	data         StepData
	pricing      pricing.Config
	promoCode    string
	rewardPoints int
	submitting   bool
	orderID      string
}

// View is an immutable snapshot of a Session.
type View struct {
	ID           string         `json:"id"`
	CreatedBy    string         `json:"created_by"`
	State        State          `json:"state"`
	Data         StepData       `json:"data"`
	Pricing      pricing.Config `json:"pricing"`
	PromoCode    string         `json:"promo_code,omitempty"`
	RewardPoints int            `json:"reward_points,omitempty"`
	OrderID      string         `json:"order_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func NewSession(id string, createdBy string, now time.Time, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:        id,
		createdBy: createdBy,
		createdAt: now,
		updatedAt: now,
		machine:   NewMachine(TotalSteps, logger.With(zap.String("wizard_session", id))),
		data:      StepData{CartItems: []domain.CartItem{}},
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	data := s.data
	data.CartItems = append([]domain.CartItem{}, s.data.CartItems...)
	return View{
		ID:           s.id,
		CreatedBy:    s.createdBy,
		State:        s.machine.State(),
		Data:         data,
		Pricing:      s.pricing,
		PromoCode:    s.promoCode,
		RewardPoints: s.rewardPoints,
		OrderID:      s.orderID,
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
	}
}

// SetCustomer selects the customer and threads their tax and shipping terms
// into pricing. Saved addresses prefill empty address slots.
func (s *Session) SetCustomer(customer domain.Customer, cfg pricing.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if s.data.Customer != nil && s.data.Customer.ID != customer.ID {
		s.promoCode = ""
		s.rewardPoints = 0
	}
	s.data.Customer = &customer
	s.pricing = cfg
	if s.data.Billing == nil && customer.Billing != nil {
		billing := *customer.Billing
		s.data.Billing = &billing
	}
	if s.data.Shipping == nil && customer.Shipping != nil {
		shipping := *customer.Shipping
		s.data.Shipping = &shipping
	}
	s.touch()
	return nil
}

func (s *Session) SetAddresses(billing *domain.BillingAddress, shipping *domain.ShippingAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	s.data.Billing = billing
	s.data.Shipping = shipping
	s.touch()
	return nil
}

func (s *Session) SetCart(items []domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	s.data.CartItems = append([]domain.CartItem{}, items...)
	s.touch()
	return nil
}

func (s *Session) SetPromoCode(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	s.promoCode = strings.ToUpper(strings.TrimSpace(code))
	s.touch()
	return nil
}

func (s *Session) SetRewardPoints(points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if points < 0 {
		points = 0
	}
	s.rewardPoints = points
	s.touch()
	return nil
}

func (s *Session) SetPayment(payment domain.PaymentDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	s.data.Payment = &payment
	s.touch()
	return nil
}

// Next validates the current step and advances only when it passes.
func (s *Session) Next() (ValidationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := ValidateStep(s.machine.CurrentStep(), s.data)
	if !res.IsValid {
		return res, false
	}
	moved := s.machine.GoToNextStep()
	s.touch()
	return res, moved
}

func (s *Session) Previous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := s.machine.GoToPreviousStep()
	s.touch()
	return moved
}

func (s *Session) GoTo(step int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := s.machine.GoToStep(step)
	s.touch()
	return moved
}

// BeginSubmit reserves the session for submission. The caller must follow
// with FinishSubmit or AbortSubmit.
func (s *Session) BeginSubmit() (View, ValidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return View{}, ValidationResult{}, err
	}
	if !s.machine.IsLastStep() {
		res := result([]ValidationError{{
			Field:   "step",
			Message: "Complete every step before placing the order",
			Step:    s.machine.CurrentStep(),
		}})
		return s.viewLocked(), res, nil
	}
	var errs []ValidationError
	errs = append(errs, ValidateReview(s.data).Errors...)
	errs = append(errs, ValidatePayment(s.data.Payment).Errors...)
	res := result(errs)
	if res.IsValid {
		s.submitting = true
	}
	return s.viewLocked(), res, nil
}

func (s *Session) FinishSubmit(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.orderID = orderID
	s.machine.MarkStepComplete(s.machine.TotalSteps())
	s.touch()
}

func (s *Session) AbortSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
}

func (s *Session) mutableLocked() error {
	if s.orderID != "" {
		return ErrAlreadySubmitted
	}
	if s.submitting {
		return ErrSubmitInProgress
	}
	return nil
}
