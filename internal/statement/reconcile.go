package statement

import (
	"fmt"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/money"
)

// FinancialCheck is the outcome of a statement self-check. It is advisory:
// callers log it and continue.
type FinancialCheck struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateFinancialCalculations re-sums the records independently and
// compares them with the summary.
func ValidateFinancialCalculations(data *domain.OrderStatementData) FinancialCheck {
	check := FinancialCheck{Errors: []string{}, Warnings: []string{}}
	if data == nil || data.Summary == nil {
		check.Errors = append(check.Errors, "statement summary is missing")
		return check
	}

	var amounts, paid, pending []float64
	for _, r := range data.Orders {
		if r.OrderAmount < 0 || r.PaidAmount < 0 || r.PendingAmount < 0 {
			check.Errors = append(check.Errors, fmt.Sprintf("order %s has a negative amount", r.OrderNumber))
		}
		if !money.Close(money.Sum(r.PaidAmount, r.PendingAmount), r.OrderAmount) {
			check.Warnings = append(check.Warnings, fmt.Sprintf(
				"order %s paid %.2f + pending %.2f does not equal amount %.2f",
				r.OrderNumber, r.PaidAmount, r.PendingAmount, r.OrderAmount))
		}
		amounts = append(amounts, r.OrderAmount)
		paid = append(paid, r.PaidAmount)
		pending = append(pending, r.PendingAmount)
	}

	s := data.Summary
	compare := []struct {
		label    string
		summary  float64
		computed float64
	}{
		{"total amount", s.TotalAmount, money.Sum(amounts...)},
		{"total paid", s.TotalPaid, money.Sum(paid...)},
		{"total pending", s.TotalPending, money.Sum(pending...)},
	}
	for _, c := range compare {
		if !money.Close(c.summary, c.computed) {
			check.Errors = append(check.Errors, fmt.Sprintf("summary %s %.2f does not match computed %.2f", c.label, c.summary, c.computed))
		}
	}
	if s.TotalOrders != len(data.Orders) {
		check.Errors = append(check.Errors, fmt.Sprintf("summary order count %d does not match %d records", s.TotalOrders, len(data.Orders)))
	}

	check.Valid = len(check.Errors) == 0
	return check
}
