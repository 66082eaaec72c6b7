package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medorder/backend/internal/domain"
)

func validCustomer() *domain.Customer {
	return &domain.Customer{ID: "123", Email: "john@example.com", FirstName: "John", LastName: "Doe"}
}

func validBilling() *domain.BillingAddress {
	return &domain.BillingAddress{Address: domain.Address{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701"}}
}

func validShipping() *domain.ShippingAddress {
	return &domain.ShippingAddress{
		Address:  domain.Address{Street: "2 Oak Ave", City: "Springfield", State: "IL", ZipCode: "62701-1234"},
		FullName: "John Doe",
		Phone:    "555-0100",
		Email:    "john@example.com",
	}
}

func validData() StepData {
	return StepData{
		Customer:  validCustomer(),
		Billing:   validBilling(),
		Shipping:  validShipping(),
		CartItems: []domain.CartItem{{ProductID: "prod-1", Quantity: 2, Price: 10.99}},
		Payment:   &domain.PaymentDetails{Method: "credit_card", TermsAccepted: true, AccuracyConfirmed: true},
	}
}

func TestValidateStepAcceptsValidData(t *testing.T) {
	data := validData()
	for step := StepCustomer; step <= StepPayment; step++ {
		res := ValidateStep(step, data)
		assert.True(t, res.IsValid, "step %d: %+v", step, res.Errors)
		assert.Empty(t, res.Errors, "step %d", step)
	}
}

func TestValidateStepUnknownStepPasses(t *testing.T) {
	for _, step := range []int{0, 6, -1, 99} {
		res := ValidateStep(step, StepData{})
		assert.True(t, res.IsValid)
		assert.NotNil(t, res.Errors)
		assert.Empty(t, res.Errors)
	}
}

func TestValidateCustomer(t *testing.T) {
	res := ValidateCustomer(nil)
	require.False(t, res.IsValid)
	assert.Equal(t, "customer", res.Errors[0].Field)
	assert.Equal(t, StepCustomer, res.Errors[0].Step)

	res = ValidateCustomer(&domain.Customer{})
	assert.False(t, res.IsValid)
	assert.Len(t, res.Errors, 2)
}

func TestValidateAddress(t *testing.T) {
	res := ValidateAddress(nil, nil)
	assert.Len(t, res.Errors, 2)

	billing := validBilling()
	billing.ZipCode = "6270"
	shipping := validShipping()
	shipping.Email = "not-an-email"
	shipping.Phone = ""
	res = ValidateAddress(billing, shipping)
	require.False(t, res.IsValid)

	fields := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"billing_address.zip_code", "shipping_address.phone", "shipping_address.email"}, fields)

	res = ValidateAddress(&domain.BillingAddress{}, validShipping())
	assert.Len(t, res.Errors, 4)
}

func TestValidateProductsIndexesEachViolation(t *testing.T) {
	res := ValidateProducts(nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "cart", res.Errors[0].Field)

	res = ValidateProducts([]domain.CartItem{
		{ProductID: "ok", Quantity: 1, Price: 1},
		{ProductID: "", Quantity: 0, Price: -1},
	})
	require.Len(t, res.Errors, 3)
	assert.Equal(t, "items[1].product_id", res.Errors[0].Field)
	assert.Equal(t, "items[1].quantity", res.Errors[1].Field)
	assert.Equal(t, "items[1].price", res.Errors[2].Field)
}

func TestValidateReviewUnionsErrors(t *testing.T) {
	res := ValidateReview(StepData{})
	assert.False(t, res.IsValid)
	// customer + billing + shipping + cart
	assert.Len(t, res.Errors, 4)
}

func TestValidatePaymentIndependentFailures(t *testing.T) {
	res := ValidatePayment(&domain.PaymentDetails{Method: "credit_card"})
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "payment.terms_accepted", res.Errors[0].Field)
	assert.Equal(t, "payment.accuracy_confirmed", res.Errors[1].Field)

	assert.Len(t, ValidatePayment(nil).Errors, 3)
}
