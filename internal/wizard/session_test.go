package wizard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/pricing"
)

func TestSessionNextRequiresValidStep(t *testing.T) {
	s := NewSession("wz-1", "admin", time.Now(), nil)

	res, moved := s.Next()
	assert.False(t, moved)
	assert.False(t, res.IsValid)
	assert.Equal(t, StepCustomer, s.View().State.CurrentStep)

	require.NoError(t, s.SetCustomer(*validCustomer(), pricing.Config{TaxPercent: 8}))
	res, moved = s.Next()
	assert.True(t, moved)
	assert.True(t, res.IsValid)
	assert.Equal(t, StepAddress, s.View().State.CurrentStep)
	assert.Equal(t, 8.0, s.View().Pricing.TaxPercent)
}

func TestSessionPrefillsSavedAddresses(t *testing.T) {
	s := NewSession("wz-2", "admin", time.Now(), nil)
	customer := *validCustomer()
	customer.Billing = validBilling()
	customer.Shipping = validShipping()

	require.NoError(t, s.SetCustomer(customer, pricing.Config{}))
	view := s.View()
	require.NotNil(t, view.Data.Billing)
	assert.Equal(t, "62701", view.Data.Billing.ZipCode)
	require.NotNil(t, view.Data.Shipping)
}

func TestSessionSubmitLifecycle(t *testing.T) {
	s := NewSession("wz-3", "admin", time.Now(), nil)
	data := validData()

	_, res, err := s.BeginSubmit()
	require.NoError(t, err)
	assert.False(t, res.IsValid, "cannot submit before reaching the last step")

	require.NoError(t, s.SetCustomer(*data.Customer, pricing.Config{}))
	s.Next()
	require.NoError(t, s.SetAddresses(data.Billing, data.Shipping))
	s.Next()
	require.NoError(t, s.SetCart(data.CartItems))
	s.Next()
	s.Next()
	require.True(t, s.View().State.CurrentStep == StepPayment)

	_, res, err = s.BeginSubmit()
	require.NoError(t, err)
	assert.False(t, res.IsValid, "payment step not filled in")

	require.NoError(t, s.SetPayment(*data.Payment))
	_, res, err = s.BeginSubmit()
	require.NoError(t, err)
	require.True(t, res.IsValid, "%+v", res.Errors)

	assert.ErrorIs(t, s.SetCart(nil), ErrSubmitInProgress)
	_, _, err = s.BeginSubmit()
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	s.FinishSubmit("ord-1")
	view := s.View()
	assert.Equal(t, "ord-1", view.OrderID)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, view.State.CompletedSteps)
	assert.ErrorIs(t, s.SetPromoCode("X"), ErrAlreadySubmitted)
}

func TestSessionChangingCustomerClearsDiscountInputs(t *testing.T) {
	s := NewSession("wz-4", "admin", time.Now(), nil)
	require.NoError(t, s.SetCustomer(domain.Customer{ID: "a", Email: "a@x.io"}, pricing.Config{}))
	require.NoError(t, s.SetPromoCode(" save10 "))
	require.NoError(t, s.SetRewardPoints(200))
	assert.Equal(t, "SAVE10", s.View().PromoCode)

	require.NoError(t, s.SetCustomer(domain.Customer{ID: "b", Email: "b@x.io"}, pricing.Config{}))
	assert.Empty(t, s.View().PromoCode)
	assert.Zero(t, s.View().RewardPoints)
}
