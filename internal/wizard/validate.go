package wizard

import (
	"fmt"
	"regexp"
	"strings"

	"medorder/backend/internal/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Step    int    `json:"step,omitempty"`
}

type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

// StepData is everything the wizard has collected so far.
type StepData struct {
	Customer  *domain.Customer        `json:"customer,omitempty"`
	Billing   *domain.BillingAddress  `json:"billing_address,omitempty"`
	Shipping  *domain.ShippingAddress `json:"shipping_address,omitempty"`
	CartItems []domain.CartItem       `json:"cart_items"`
	Payment   *domain.PaymentDetails  `json:"payment,omitempty"`
}

var (
	zipPattern   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func result(errs []ValidationError) ValidationResult {
	if errs == nil {
		errs = []ValidationError{}
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func ValidateCustomer(customer *domain.Customer) ValidationResult {
	if customer == nil {
		return result([]ValidationError{{Field: "customer", Message: "Please select a customer", Step: StepCustomer}})
	}
	var errs []ValidationError
	if strings.TrimSpace(customer.ID) == "" {
		errs = append(errs, ValidationError{Field: "customer.id", Message: "Customer ID is required", Step: StepCustomer})
	}
	if strings.TrimSpace(customer.Email) == "" {
		errs = append(errs, ValidationError{Field: "customer.email", Message: "Customer email is required", Step: StepCustomer})
	}
	return result(errs)
}

func ValidateAddress(billing *domain.BillingAddress, shipping *domain.ShippingAddress) ValidationResult {
	var errs []ValidationError
	if billing == nil {
		errs = append(errs, ValidationError{Field: "billing_address", Message: "Billing address is required", Step: StepAddress})
	} else {
		errs = append(errs, addressErrors("billing_address", billing.Address)...)
	}

	if shipping == nil {
		errs = append(errs, ValidationError{Field: "shipping_address", Message: "Shipping address is required", Step: StepAddress})
	} else {
		errs = append(errs, addressErrors("shipping_address", shipping.Address)...)
		if strings.TrimSpace(shipping.FullName) == "" {
			errs = append(errs, ValidationError{Field: "shipping_address.full_name", Message: "Full name is required", Step: StepAddress})
		}
		if strings.TrimSpace(shipping.Phone) == "" {
			errs = append(errs, ValidationError{Field: "shipping_address.phone", Message: "Phone number is required", Step: StepAddress})
		}
		if !emailPattern.MatchString(strings.TrimSpace(shipping.Email)) {
			errs = append(errs, ValidationError{Field: "shipping_address.email", Message: "A valid email is required", Step: StepAddress})
		}
	}
	return result(errs)
}

func addressErrors(prefix string, addr domain.Address) []ValidationError {
	var errs []ValidationError
	required := []struct {
		field string
		label string
		value string
	}{
		{"street", "Street", addr.Street},
		{"city", "City", addr.City},
		{"state", "State", addr.State},
		{"zip_code", "ZIP code", addr.ZipCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, ValidationError{Field: prefix + "." + r.field, Message: r.label + " is required", Step: StepAddress})
		}
	}
	zip := strings.TrimSpace(addr.ZipCode)
	if zip != "" && !zipPattern.MatchString(zip) {
		errs = append(errs, ValidationError{Field: prefix + ".zip_code", Message: "ZIP code must be 12345 or 12345-6789", Step: StepAddress})
	}
	return errs
}

func ValidateProducts(items []domain.CartItem) ValidationResult {
	if len(items) == 0 {
		return result([]ValidationError{{Field: "cart", Message: "Add at least one product", Step: StepProducts}})
	}
	var errs []ValidationError
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("items[%d].product_id", i), Message: "Product is required", Step: StepProducts})
		}
		if item.Quantity <= 0 {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "Quantity must be greater than 0", Step: StepProducts})
		}
		if item.Price < 0 {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("items[%d].price", i), Message: "Price cannot be negative", Step: StepProducts})
		}
	}
	return result(errs)
}

// ValidateReview re-runs the customer, address and product checks.
func ValidateReview(data StepData) ValidationResult {
	var errs []ValidationError
	errs = append(errs, ValidateCustomer(data.Customer).Errors...)
	errs = append(errs, ValidateAddress(data.Billing, data.Shipping).Errors...)
	errs = append(errs, ValidateProducts(data.CartItems).Errors...)
	return result(errs)
}

func ValidatePayment(payment *domain.PaymentDetails) ValidationResult {
	var errs []ValidationError
	if payment == nil || strings.TrimSpace(payment.Method) == "" {
		errs = append(errs, ValidationError{Field: "payment.method", Message: "Select a payment method", Step: StepPayment})
	}
	if payment == nil || !payment.TermsAccepted {
		errs = append(errs, ValidationError{Field: "payment.terms_accepted", Message: "You must accept the terms and conditions", Step: StepPayment})
	}
	if payment == nil || !payment.AccuracyConfirmed {
		errs = append(errs, ValidationError{Field: "payment.accuracy_confirmed", Message: "Confirm that the order details are accurate", Step: StepPayment})
	}
	return result(errs)
}

// ValidateStep routes to the validator of one step. Step numbers outside
// 1..5 pass; the Machine never lets a session reach them.
func ValidateStep(step int, data StepData) ValidationResult {
	switch step {
	case StepCustomer:
		return ValidateCustomer(data.Customer)
	case StepAddress:
		return ValidateAddress(data.Billing, data.Shipping)
	case StepProducts:
		return ValidateProducts(data.CartItems)
	case StepReview:
		return ValidateReview(data)
	case StepPayment:
		return ValidatePayment(data.Payment)
	default:
		return result(nil)
	}
}
