package httpapi

import (
	"net/http"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/service"
)

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		page, err := a.service.ListCustomers(r.Context(), domain.CustomerQuery{
			Search: q.Get("search"),
			Status: q.Get("status"),
			Limit:  parsePositiveLimit(q.Get("limit"), 0, 0),
			Offset: parseOffset(q.Get("offset")),
		})
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"customers": page.Customers,
			"total":     page.Total,
			"limit":     page.Limit,
			"offset":    page.Offset,
		})
	case http.MethodPost:
		var req service.CreateCustomerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		// The account and profile writes are paired; finish both.
		result, err := a.service.CreateCustomer(detached(r.Context()), req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"success":  true,
			"customer": result.Customer,
			"warnings": result.Warnings,
		})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleCustomerActions serves /api/v1/customers/{id}, /{id}/notes and
// /{id}/tasks.
func (a *API) handleCustomerActions(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/api/v1/customers/")
	if len(parts) == 0 || len(parts) > 2 {
		writeError(w, http.StatusNotFound, errNotFoundRoute)
		return
	}
	id := parts[0]

	if len(parts) == 2 {
		switch parts[1] {
		case "notes":
			a.handleCustomerNotes(w, r, id)
		case "tasks":
			a.handleCustomerTasks(w, r, id)
		default:
			writeError(w, http.StatusNotFound, errNotFoundRoute)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		profile, err := a.service.GetCustomerProfile(r.Context(), id)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"customer":      profile.Customer,
			"recent_orders": profile.RecentOrders,
			"notes":         profile.Notes,
			"open_tasks":    profile.OpenTasks,
		})
	case http.MethodPatch:
		var req service.UpdateCustomerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		customer, err := a.service.UpdateCustomer(r.Context(), id, req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ok("customer", customer))
	case http.MethodDelete:
		if err := a.service.DeleteCustomer(detached(r.Context()), id); err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCustomerNotes(w http.ResponseWriter, r *http.Request, customerID string) {
	switch r.Method {
	case http.MethodGet:
		notes, err := a.service.ListNotes(r.Context(), customerID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ok("notes", notes))
	case http.MethodPost:
		var req service.NoteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		note, err := a.service.CreateNote(r.Context(), customerID, req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, ok("note", note))
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCustomerTasks(w http.ResponseWriter, r *http.Request, customerID string) {
	switch r.Method {
	case http.MethodGet:
		tasks, err := a.service.ListTasks(r.Context(), customerID, r.URL.Query().Get("status"))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ok("tasks", tasks))
	case http.MethodPost:
		var req service.TaskRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		task, err := a.service.CreateTask(r.Context(), customerID, req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, ok("task", task))
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleNoteActions(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/api/v1/notes/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, errNotFoundRoute)
		return
	}
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.service.DeleteNote(r.Context(), parts[0]); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleTaskActions serves DELETE /api/v1/tasks/{id} and
// POST /api/v1/tasks/{id}/complete.
func (a *API) handleTaskActions(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/api/v1/tasks/")
	switch {
	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			writeMethodNotAllowed(w)
			return
		}
		if err := a.service.DeleteTask(r.Context(), parts[0]); err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case len(parts) == 2 && parts[1] == "complete":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		task, err := a.service.CompleteTask(r.Context(), parts[0])
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ok("task", task))
	default:
		writeError(w, http.StatusNotFound, errNotFoundRoute)
	}
}

func (a *API) handleCustomerDraft(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		draft, err := a.service.LoadCustomerDraft(r.Context())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ok("draft", draft))
	case http.MethodPut:
		var draft domain.CustomerDraft
		if err := decodeJSON(r, &draft); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		saved, err := a.service.SaveCustomerDraft(r.Context(), draft)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ok("draft", saved))
	case http.MethodDelete:
		if err := a.service.ClearCustomerDraft(r.Context()); err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		writeMethodNotAllowed(w)
	}
}
