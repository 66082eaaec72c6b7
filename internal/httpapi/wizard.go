package httpapi

import (
	"net/http"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/service"
)

func (a *API) handleWizardStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	view, err := a.service.StartWizard(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ok("session", view))
}

type customerSelection struct {
	CustomerID string `json:"customer_id"`
}

type promoInput struct {
	Code string `json:"code"`
}

type rewardsInput struct {
	Points int `json:"points"`
}

type gotoInput struct {
	Step int `json:"step"`
}

type cartInput struct {
	Items []domain.CartItem `json:"items"`
}

// handleWizardActions serves /api/v1/wizard/{id} and its sub-resources.
func (a *API) handleWizardActions(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/api/v1/wizard/")
	if len(parts) == 0 || len(parts) > 2 {
		writeError(w, http.StatusNotFound, errNotFoundRoute)
		return
	}
	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			view, err := a.service.GetWizard(r.Context(), id)
			if err != nil {
				a.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, ok("session", view))
		case http.MethodDelete:
			if err := a.service.CancelWizard(r.Context(), id); err != nil {
				a.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	switch parts[1] {
	case "customer":
		wizardUpdate(a, w, r, func(in *customerSelection) (any, error) {
			return a.service.SetCustomer(r.Context(), id, in.CustomerID)
		})
	case "addresses":
		wizardUpdate(a, w, r, func(in *service.AddressRequest) (any, error) {
			return a.service.SetAddresses(r.Context(), id, *in)
		})
	case "cart":
		wizardUpdate(a, w, r, func(in *cartInput) (any, error) {
			return a.service.SetCart(r.Context(), id, in.Items)
		})
	case "promo":
		wizardUpdate(a, w, r, func(in *promoInput) (any, error) {
			return a.service.ApplyPromo(r.Context(), id, in.Code)
		})
	case "rewards":
		wizardUpdate(a, w, r, func(in *rewardsInput) (any, error) {
			return a.service.ApplyRewards(r.Context(), id, in.Points)
		})
	case "payment":
		wizardUpdate(a, w, r, func(in *domain.PaymentDetails) (any, error) {
			return a.service.SetPayment(r.Context(), id, *in)
		})
	case "next":
		a.wizardMove(w, r, func() (service.StepResult, error) {
			return a.service.WizardNext(r.Context(), id)
		})
	case "previous":
		a.wizardMove(w, r, func() (service.StepResult, error) {
			return a.service.WizardPrevious(r.Context(), id)
		})
	case "goto":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var in gotoInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		a.wizardMove(w, r, func() (service.StepResult, error) {
			return a.service.WizardGoTo(r.Context(), id, in.Step)
		})
	case "quote":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		quote, err := a.service.WizardQuote(r.Context(), id)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ok("quote", quote))
	case "submit":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		// A client disconnect must not abandon an order halfway.
		result, err := a.service.SubmitWizard(detached(r.Context()), id)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"success":  true,
			"order":    result.Order,
			"warnings": result.Warnings,
		})
	default:
		writeError(w, http.StatusNotFound, errNotFoundRoute)
	}
}

// wizardUpdate decodes a PUT body into T and returns the updated session.
func wizardUpdate[T any](a *API, w http.ResponseWriter, r *http.Request, apply func(*T) (any, error)) {
	if r.Method != http.MethodPut {
		writeMethodNotAllowed(w)
		return
	}
	var in T
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := apply(&in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("session", view))
}

// wizardMove reports a refused step change as 422 with the failing fields.
func (a *API) wizardMove(w http.ResponseWriter, r *http.Request, move func() (service.StepResult, error)) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	result, err := move()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if !result.Moved && !result.Validation.IsValid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{
		"success":    status == http.StatusOK,
		"session":    result.Session,
		"validation": result.Validation,
		"moved":      result.Moved,
	})
}
