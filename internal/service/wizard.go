package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/gateway"
	"medorder/backend/internal/pricing"
	"medorder/backend/internal/store"
	"medorder/backend/internal/wizard"
	"medorder/backend/internal/xid"
)

// StepResult is the outcome of a navigation request.
type StepResult struct {
	Session    wizard.View             `json:"session"`
	Validation wizard.ValidationResult `json:"validation"`
	Moved      bool                    `json:"moved"`
}

// Quote is the priced view of a wizard session. Promo and reward problems
// are reported instead of failing the quote.
type Quote struct {
	pricing.Totals
	PointsRedeemed int    `json:"points_redeemed"`
	PointsEarned   int    `json:"points_earned"`
	PromoError     string `json:"promo_error,omitempty"`
	RewardsError   string `json:"rewards_error,omitempty"`
}

type SubmitResult struct {
	Order    domain.Order `json:"order"`
	Warnings []string     `json:"warnings,omitempty"`
}

type AddressRequest struct {
	Billing  *domain.BillingAddress  `json:"billing_address"`
	Shipping *domain.ShippingAddress `json:"shipping_address"`
}

func (s *Service) StartWizard(ctx context.Context) (wizard.View, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return wizard.View{}, err
	}
	sess := s.sessions.Create(actor.Username)
	s.logger.Info("wizard started", zap.String("session_id", sess.ID()), zap.String("actor", actor.Username))
	return sess.View(), nil
}

func (s *Service) GetWizard(ctx context.Context, id string) (wizard.View, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return wizard.View{}, err
	}
	return sess.View(), nil
}

func (s *Service) CancelWizard(ctx context.Context, id string) error {
	if _, err := s.session(ctx, id); err != nil {
		return err
	}
	s.sessions.Remove(id)
	return nil
}

// SetCustomer loads the profile so the session prices with the customer's
// current tax and shipping terms.
func (s *Service) SetCustomer(ctx context.Context, id string, customerID string) (wizard.View, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return wizard.View{}, err
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return wizard.View{}, fieldError("customer_id", "customer_id is required")
	}
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return wizard.View{}, err
	}
	if customer.Status == domain.CustomerStatusInactive {
		return wizard.View{}, fieldError("customer_id", "customer is inactive")
	}
	cfg := pricing.Config{TaxPercent: customer.TaxPercent, FreeShipping: customer.FreeShipping}
	if err := sess.SetCustomer(*customer, cfg); err != nil {
		return wizard.View{}, err
	}
	return sess.View(), nil
}

func (s *Service) SetAddresses(ctx context.Context, id string, req AddressRequest) (wizard.View, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return wizard.View{}, err
	}
	if err := sess.SetAddresses(req.Billing, req.Shipping); err != nil {
		return wizard.View{}, err
	}
	return sess.View(), nil
}

func (s *Service) SetCart(ctx context.Context, id string, items []domain.CartItem) (wizard.View, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return wizard.View{}, err
	}
	if err := sess.SetCart(items); err != nil {
		return wizard.View{}, err
	}
	return sess.View(), nil
}

// ApplyPromo checks code against the current cart before storing it. An
// empty code clears the promo.
func (s *Service) ApplyPromo(ctx context.Context, id string, code string) (wizard.View, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return wizard.View{}, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code != "" {
		candidate := sess.View()
		candidate.PromoCode = code
		quote, err := s.price(ctx, candidate)
		if err != nil {
			return wizard.View{}, err
		}
		if quote.PromoError != "" {
			return wizard.View{}, fieldError("promo_code", quote.PromoError)
		}
	}
	if err := sess.SetPromoCode(code); err != nil {
		return wizard.View{}, err
	}
	s.logAudit(ctx, "wizard.promo", "wizard_session", id, "code="+code)
	return sess.View(), nil
}

// ApplyRewards checks the redemption against the customer's balance and
// the rewards rules before storing it. Zero clears the redemption.
func (s *Service) ApplyRewards(ctx context.Context, id string, points int) (wizard.View, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return wizard.View{}, err
	}
	if points < 0 {
		return wizard.View{}, fieldError("reward_points", pricing.ErrInvalidPoints.Error())
	}
	if points > 0 {
		candidate := sess.View()
		if candidate.Data.Customer == nil {
			return wizard.View{}, fieldError("reward_points", "select a customer before redeeming points")
		}
		candidate.RewardPoints = points
		quote, err := s.price(ctx, candidate)
		if err != nil {
			return wizard.View{}, err
		}
		if quote.RewardsError != "" {
			return wizard.View{}, fieldError("reward_points", quote.RewardsError)
		}
	}
	if err := sess.SetRewardPoints(points); err != nil {
		return wizard.View{}, err
	}
	return sess.View(), nil
}

func (s *Service) SetPayment(ctx context.Context, id string, payment domain.PaymentDetails) (wizard.View, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return wizard.View{}, err
	}
	payment.Method = strings.TrimSpace(payment.Method)
	payment.Reference = strings.TrimSpace(payment.Reference)
	if err := sess.SetPayment(payment); err != nil {
		return wizard.View{}, err
	}
	return sess.View(), nil
}

func (s *Service) WizardNext(ctx context.Context, id string) (StepResult, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return StepResult{}, err
	}
	res, moved := sess.Next()
	s.metrics.WizardTransition("next", moved)
	return StepResult{Session: sess.View(), Validation: res, Moved: moved}, nil
}

func (s *Service) WizardPrevious(ctx context.Context, id string) (StepResult, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return StepResult{}, err
	}
	moved := sess.Previous()
	s.metrics.WizardTransition("previous", moved)
	return StepResult{Session: sess.View(), Validation: wizard.ValidationResult{IsValid: true, Errors: []wizard.ValidationError{}}, Moved: moved}, nil
}

func (s *Service) WizardGoTo(ctx context.Context, id string, step int) (StepResult, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return StepResult{}, err
	}
	moved := sess.GoTo(step)
	s.metrics.WizardTransition("goto", moved)
	return StepResult{Session: sess.View(), Validation: wizard.ValidationResult{IsValid: true, Errors: []wizard.ValidationError{}}, Moved: moved}, nil
}

func (s *Service) WizardQuote(ctx context.Context, id string) (Quote, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	return s.price(ctx, sess.View())
}

// SubmitWizard turns a completed session into an order. Pricing is redone
// against current offers and balances; the order, offer usage and reward
// points are written together. A failed confirmation email does not undo
// the order and is reported as a warning.
func (s *Service) SubmitWizard(ctx context.Context, id string) (*SubmitResult, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	view, res, err := sess.BeginSubmit()
	if err != nil {
		return nil, err
	}
	if !res.IsValid {
		s.metrics.OrderSubmitted("rejected")
		return nil, &FieldErrors{Fields: res.Errors}
	}

	committed := false
	defer func() {
		if !committed {
			sess.AbortSubmit()
		}
	}()

	quote, err := s.price(ctx, view)
	if err != nil {
		s.metrics.OrderSubmitted("failed")
		return nil, err
	}
	if quote.PromoError != "" {
		s.metrics.OrderSubmitted("rejected")
		return nil, fieldError("promo_code", quote.PromoError)
	}
	if quote.RewardsError != "" {
		s.metrics.OrderSubmitted("rejected")
		return nil, fieldError("reward_points", quote.RewardsError)
	}

	order := buildOrder(view, quote, actor, s.now())
	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		s.metrics.OrderSubmitted("failed")
		return nil, fmt.Errorf("create order: %w", err)
	}
	committed = true
	sess.FinishSubmit(created.ID)
	s.metrics.OrderSubmitted("created")
	s.logAudit(ctx, "order.create", "order", created.ID,
		fmt.Sprintf("number=%s profile=%s total=%.2f", created.OrderNumber, created.ProfileID, created.TotalAmount))

	result := &SubmitResult{Order: *created}
	if err := s.mailer.SendEmail(ctx, confirmationEmail(view, *created)); err != nil {
		s.logger.Warn("order confirmation email failed",
			zap.String("order_id", created.ID),
			zap.Error(err),
		)
		result.Warnings = append(result.Warnings, "Order was placed but the confirmation email could not be sent.")
	}
	return result, nil
}

func (s *Service) session(ctx context.Context, id string) (*wizard.Session, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && sess.View().CreatedBy != actor.Username {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// price computes the totals of view. Only store failures are returned as
// errors.
func (s *Service) price(ctx context.Context, view wizard.View) (Quote, error) {
	now := s.now()
	items := view.Data.CartItems
	subtotal := pricing.Subtotal(items)

	var quote Quote
	var promo, offer, rewards *domain.AppliedDiscount

	if view.PromoCode != "" {
		found, err := s.repo.GetOfferByCode(ctx, view.PromoCode)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Quote{}, fmt.Errorf("lookup promo code: %w", err)
		}
		d, err := pricing.ValidatePromo(found, subtotal, now)
		if err != nil {
			quote.PromoError = err.Error()
		} else {
			promo = &d
		}
	}
	if promo == nil {
		offers, err := s.repo.ListActiveOffers(ctx)
		if err != nil {
			return Quote{}, fmt.Errorf("list offers: %w", err)
		}
		offer = pricing.BestOffer(offers, subtotal, now)
	}

	cfg, err := s.repo.GetRewardsConfig(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("load rewards config: %w", err)
	}
	if view.RewardPoints > 0 && view.Data.Customer != nil {
		customer, err := s.repo.GetCustomer(ctx, view.Data.Customer.ID)
		if err != nil {
			return Quote{}, fmt.Errorf("load reward balance: %w", err)
		}
		offerAmount := 0.0
		switch {
		case promo != nil:
			offerAmount = promo.Amount
		case offer != nil:
			offerAmount = offer.Amount
		}
		d, err := pricing.RewardsDiscount(view.RewardPoints, customer.RewardPoints, cfg, subtotal, offerAmount)
		if err != nil {
			quote.RewardsError = err.Error()
		} else {
			rewards = &d
			quote.PointsRedeemed = d.PointsUsed
		}
	}

	quote.Totals = pricing.Compute(items, view.Pricing, pricing.Stack(promo, offer, rewards))
	quote.PointsEarned = pricing.EarnedPoints(quote.FinalTotal, cfg)
	return quote, nil
}

func buildOrder(view wizard.View, quote Quote, actor domain.Actor, now time.Time) domain.Order {
	lines := make([]domain.OrderLine, 0, len(view.Data.CartItems))
	for _, item := range view.Data.CartItems {
		lines = append(lines, domain.OrderLine{
			ProductID:    item.ProductID,
			Name:         item.Name,
			Quantity:     item.Quantity,
			LineTotal:    item.Price,
			ShippingCost: item.ShippingCost,
			Sizes:        item.Sizes,
			Notes:        item.Notes,
		})
	}

	return domain.Order{
		ID:             xid.New("ord"),
		OrderNumber:    "ORD-" + now.Format("20060102") + "-" + xid.Short(6),
		ProfileID:      view.Data.Customer.ID,
		Status:         string(domain.OrderStatusPending),
		PaymentStatus:  string(domain.PaymentStatusPending),
		PaymentMethod:  view.Data.Payment.Method,
		Subtotal:       quote.Subtotal,
		TaxAmount:      quote.Tax,
		ShippingCost:   quote.Shipping,
		DiscountAmount: quote.DiscountTotal,
		TotalAmount:    quote.FinalTotal,
		Discounts:      quote.Discounts,
		Billing:        *view.Data.Billing,
		Shipping:       *view.Data.Shipping,
		Items:          lines,
		PointsRedeemed: quote.PointsRedeemed,
		PointsEarned:   quote.PointsEarned,
		CreatedBy:      actor.Username,
		CreatedAt:      now,
	}
}

func confirmationEmail(view wizard.View, order domain.Order) gateway.Email {
	to := view.Data.Customer.Email
	if view.Data.Shipping != nil && view.Data.Shipping.Email != "" {
		to = view.Data.Shipping.Email
	}
	return gateway.Email{
		To:       to,
		Subject:  "Order " + order.OrderNumber + " confirmed",
		Template: "order-confirmation",
		Data: map[string]string{
			"order_number": order.OrderNumber,
			"total":        fmt.Sprintf("%.2f", order.TotalAmount),
			"item_count":   strconv.Itoa(len(order.Items)),
		},
	}
}
