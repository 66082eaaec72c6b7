package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/download"
	"medorder/backend/internal/gateway"
	"medorder/backend/internal/pdf"
	"medorder/backend/internal/pricing"
	"medorder/backend/internal/statement"
	"medorder/backend/internal/store"
	"medorder/backend/internal/store/memory"
	"medorder/backend/internal/wizard"
)

type failingMailer struct{ calls int }

func (m *failingMailer) SendEmail(context.Context, gateway.Email) error {
	m.calls++
	return errors.New("smtp relay refused connection")
}

type recordingMailer struct{ sent []gateway.Email }

func (m *recordingMailer) SendEmail(_ context.Context, email gateway.Email) error {
	m.sent = append(m.sent, email)
	return nil
}

func newTestService(t *testing.T, mailer Mailer) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded(zap.NewNop())
	opts := download.Options{MaxAttempts: 2, RetryDelay: time.Millisecond, Timeout: time.Second}
	svc := New(Deps{
		Repo:       repo,
		Mailer:     mailer,
		Statements: statement.NewBuilder(repo, domain.CompanyInfo{Name: "MedOrder Supply"}, zap.NewNop()),
		Downloads:  download.NewManager(pdf.NewStatementRenderer(), opts, zap.NewNop(), nil),
		ExportDir:  t.TempDir(),
	})
	return svc, repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: "usr-admin", Username: "admin", Role: domain.RoleAdmin})
}

func staffCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: "usr-staff", Username: "staff", Role: domain.RoleStaff})
}

func testCart() []domain.CartItem {
	return []domain.CartItem{
		{ProductID: "prod-gauze", Name: "Gauze Pads", Price: 100, Quantity: 4, ShippingCost: 10},
		{ProductID: "prod-gloves", Name: "Nitrile Gloves", Price: 50, Quantity: 2, ShippingCost: 5},
	}
}

// walkToPayment fills every step for cust-northside and stops on payment.
func walkToPayment(t *testing.T, svc *Service, ctx context.Context) string {
	t.Helper()
	view, err := svc.StartWizard(ctx)
	require.NoError(t, err)
	id := view.ID

	_, err = svc.SetCustomer(ctx, id, "cust-northside")
	require.NoError(t, err)
	step, err := svc.WizardNext(ctx, id)
	require.NoError(t, err)
	require.True(t, step.Moved, "customer step: %+v", step.Validation)

	// addresses come prefilled from the profile
	step, err = svc.WizardNext(ctx, id)
	require.NoError(t, err)
	require.True(t, step.Moved, "address step: %+v", step.Validation)

	_, err = svc.SetCart(ctx, id, testCart())
	require.NoError(t, err)
	step, err = svc.WizardNext(ctx, id)
	require.NoError(t, err)
	require.True(t, step.Moved, "products step: %+v", step.Validation)

	step, err = svc.WizardNext(ctx, id)
	require.NoError(t, err)
	require.True(t, step.Moved, "review step: %+v", step.Validation)
	require.Equal(t, wizard.StepPayment, step.Session.State.CurrentStep)

	_, err = svc.SetPayment(ctx, id, domain.PaymentDetails{Method: "invoice", TermsAccepted: true, AccuracyConfirmed: true})
	require.NoError(t, err)
	return id
}

func TestWizardNextRefusesInvalidStep(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := staffCtx()

	view, err := svc.StartWizard(ctx)
	require.NoError(t, err)

	step, err := svc.WizardNext(ctx, view.ID)
	require.NoError(t, err)
	assert.False(t, step.Moved)
	assert.False(t, step.Validation.IsValid)
	assert.Equal(t, wizard.StepCustomer, step.Session.State.CurrentStep)

	step, err = svc.WizardGoTo(ctx, view.ID, wizard.StepProducts)
	require.NoError(t, err)
	assert.False(t, step.Moved, "cannot skip ahead past incomplete steps")
}

func TestSubmitWizardWithPromoAndRewards(t *testing.T) {
	mailer := &recordingMailer{}
	svc, repo := newTestService(t, mailer)
	ctx := staffCtx()
	id := walkToPayment(t, svc, ctx)

	_, err := svc.ApplyPromo(ctx, id, " welcome10 ")
	require.NoError(t, err)
	_, err = svc.ApplyRewards(ctx, id, 500)
	require.NoError(t, err)

	quote, err := svc.WizardQuote(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 150.0, quote.Subtotal)
	assert.Equal(t, 12.0, quote.Tax)
	assert.Equal(t, 10.0, quote.Shipping)
	assert.Equal(t, 172.0, quote.Total)
	assert.Equal(t, 20.0, quote.DiscountTotal)
	assert.Equal(t, 152.0, quote.FinalTotal)
	assert.Equal(t, 500, quote.PointsRedeemed)
	assert.Equal(t, 152, quote.PointsEarned)

	res, err := svc.SubmitWizard(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.True(t, strings.HasPrefix(res.Order.OrderNumber, "ORD-"))
	assert.Equal(t, 152.0, res.Order.TotalAmount)
	assert.Len(t, res.Order.Items, 2)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "order-confirmation", mailer.sent[0].Template)

	customer, err := repo.GetCustomer(context.Background(), "cust-northside")
	require.NoError(t, err)
	assert.Equal(t, 1200-500+152, customer.RewardPoints)

	offer, err := repo.GetOfferByCode(context.Background(), "WELCOME10")
	require.NoError(t, err)
	assert.Equal(t, 1, offer.UsedCount)

	view, err := svc.GetWizard(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, view.OrderID)

	_, err = svc.SubmitWizard(ctx, id)
	assert.ErrorIs(t, err, wizard.ErrAlreadySubmitted)
}

func TestSubmitWizardEmailFailureIsPartialSuccess(t *testing.T) {
	mailer := &failingMailer{}
	svc, repo := newTestService(t, mailer)
	ctx := staffCtx()
	id := walkToPayment(t, svc, ctx)

	res, err := svc.SubmitWizard(ctx, id)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 1, mailer.calls)

	orders, err := repo.ListRecentOrders(context.Background(), "cust-northside", 10)
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, orders[0].ID)
}

func TestSubmitWizardRequiresLastStep(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := staffCtx()
	view, err := svc.StartWizard(ctx)
	require.NoError(t, err)

	_, err = svc.SubmitWizard(ctx, view.ID)
	var fieldErrs *FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	assert.Equal(t, "step", fieldErrs.Fields[0].Field)

	// a rejected submit leaves the session editable
	_, err = svc.SetCustomer(ctx, view.ID, "cust-riverpharm")
	assert.NoError(t, err)
}

func TestApplyPromoRejectsUnknownCode(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := staffCtx()
	id := walkToPayment(t, svc, ctx)

	_, err := svc.ApplyPromo(ctx, id, "NOPE")
	var fieldErrs *FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "promo_code", fieldErrs.Fields[0].Field)

	view, err := svc.GetWizard(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, view.PromoCode)
}

func TestApplyRewardsRejectsOverBalance(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := staffCtx()
	id := walkToPayment(t, svc, ctx)

	_, err := svc.ApplyRewards(ctx, id, 5000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), pricing.ErrInsufficientPoints.Error())

	_, err = svc.ApplyRewards(ctx, id, 50)
	require.Error(t, err)
}

func TestWizardSessionsAreScopedToCreator(t *testing.T) {
	svc, _ := newTestService(t, nil)
	view, err := svc.StartWizard(staffCtx())
	require.NoError(t, err)

	other := WithActor(context.Background(), domain.Actor{UserID: "usr-2", Username: "other", Role: domain.RoleStaff})
	_, err = svc.GetWizard(other, view.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.GetWizard(adminCtx(), view.ID)
	assert.NoError(t, err)

	_, err = svc.StartWizard(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCancelWizardRemovesSession(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := staffCtx()
	view, err := svc.StartWizard(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.CancelWizard(ctx, view.ID))
	_, err = svc.GetWizard(ctx, view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRegistrySweepsIdleSessions(t *testing.T) {
	reg := NewSessionRegistry(time.Hour, nil)
	sess := reg.Create("staff")
	require.Equal(t, 1, reg.Len())

	reg.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err := reg.Get(sess.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	reg.Create("staff")
	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 0, reg.Len())
}

func TestCreateCustomerRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.CreateCustomer(staffCtx(), CreateCustomerRequest{Email: "a@b.test"})
	assert.ErrorIs(t, err, ErrAdminRequired)
}

func TestCreateCustomerValidatesInput(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.CreateCustomer(adminCtx(), CreateCustomerRequest{
		Email:      "not-an-email",
		Password:   "short",
		FirstName:  "Ada",
		TaxPercent: 120,
	})
	var fieldErrs *FieldErrors
	require.ErrorAs(t, err, &fieldErrs)

	fields := map[string]bool{}
	for _, f := range fieldErrs.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["email"])
	assert.True(t, fields["password"])
	assert.True(t, fields["last_name"])
	assert.True(t, fields["tax_percent"])
}

func TestCreateCustomerLifecycle(t *testing.T) {
	mailer := &failingMailer{}
	svc, repo := newTestService(t, mailer)
	ctx := adminCtx()

	res, err := svc.CreateCustomer(ctx, CreateCustomerRequest{
		Email:      "Purchasing@Lakeview.test",
		Password:   "correct-horse",
		FirstName:  "Ada",
		LastName:   "Park",
		TaxPercent: 7.25,
	})
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 1, "welcome email failure is reported, not fatal")
	assert.Equal(t, "purchasing@lakeview.test", res.Customer.Email)

	users, err := repo.ListUsers(context.Background())
	require.NoError(t, err)
	found := false
	for _, u := range users {
		if u.ID == res.Customer.ID {
			found = true
			assert.Equal(t, domain.RoleCustomer, u.Role)
			assert.NotEqual(t, "correct-horse", u.Password)
		}
	}
	assert.True(t, found, "profile id matches identity account id")

	_, err = svc.CreateCustomer(ctx, CreateCustomerRequest{
		Email: "purchasing@lakeview.test", Password: "another-pass", FirstName: "A", LastName: "B",
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	status := domain.CustomerStatusInactive
	updated, err := svc.UpdateCustomer(staffCtx(), res.Customer.ID, UpdateCustomerRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.CustomerStatusInactive, updated.Status)

	require.NoError(t, svc.DeleteCustomer(ctx, res.Customer.ID))
	_, err = repo.GetCustomer(context.Background(), res.Customer.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	logs, err := svc.ListAuditLogs(ctx, "", 50)
	require.NoError(t, err)
	actions := map[string]bool{}
	for _, l := range logs {
		actions[l.Action] = true
	}
	assert.True(t, actions["customer.create"])
	assert.True(t, actions["customer.delete"])
}

func TestDeleteSeededCustomerWithoutIdentityAccount(t *testing.T) {
	svc, _ := newTestService(t, nil)
	require.NoError(t, svc.DeleteCustomer(adminCtx(), "cust-riverpharm"))
	assert.ErrorIs(t, svc.DeleteCustomer(adminCtx(), "cust-riverpharm"), store.ErrNotFound)
}

func TestCustomerProfileAggregatesNotesAndTasks(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := staffCtx()

	note, err := svc.CreateNote(ctx, "cust-northside", NoteRequest{Body: "  Prefers morning delivery  "})
	require.NoError(t, err)
	assert.Equal(t, "Prefers morning delivery", note.Body)
	assert.Equal(t, "staff", note.CreatedBy)

	_, err = svc.CreateNote(ctx, "cust-northside", NoteRequest{Body: "   "})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	open, err := svc.CreateTask(ctx, "cust-northside", TaskRequest{Title: "Call about reorder"})
	require.NoError(t, err)
	done, err := svc.CreateTask(ctx, "cust-northside", TaskRequest{Title: "Send catalog"})
	require.NoError(t, err)
	_, err = svc.CompleteTask(ctx, done.ID)
	require.NoError(t, err)

	profile, err := svc.GetCustomerProfile(ctx, "cust-northside")
	require.NoError(t, err)
	assert.Equal(t, "Northside Clinic", profile.Customer.CompanyName)
	assert.Len(t, profile.RecentOrders, 3)
	assert.Len(t, profile.Notes, 1)
	require.Len(t, profile.OpenTasks, 1)
	assert.Equal(t, open.ID, profile.OpenTasks[0].ID)

	_, err = svc.ListTasks(ctx, "cust-northside", "bogus")
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	require.NoError(t, svc.DeleteNote(ctx, note.ID))
	require.NoError(t, svc.DeleteTask(ctx, open.ID))

	_, err = svc.GetCustomerProfile(ctx, "cust-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCustomerDraftRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := adminCtx()

	_, err := svc.LoadCustomerDraft(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	saved, err := svc.SaveCustomerDraft(ctx, domain.CustomerDraft{
		Form: map[string]string{"email": "new@clinic.test", "password": "secret"},
		Step: 2,
	})
	require.NoError(t, err)
	assert.False(t, saved.SavedAt.IsZero())

	loaded, err := svc.LoadCustomerDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new@clinic.test", loaded.Form["email"])
	assert.NotContains(t, loaded.Form, "password")
	assert.Equal(t, 2, loaded.Step)

	_, err = svc.LoadCustomerDraft(staffCtx())
	assert.ErrorIs(t, err, store.ErrNotFound, "drafts are per actor")

	require.NoError(t, svc.ClearCustomerDraft(ctx))
	_, err = svc.LoadCustomerDraft(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func statementRange() StatementRequest {
	now := time.Now().UTC()
	return StatementRequest{
		UserID:    "cust-northside",
		StartDate: now.AddDate(0, 0, -30).Format(time.DateOnly),
		EndDate:   now.Format(time.DateOnly),
	}
}

func TestStatementTotals(t *testing.T) {
	svc, _ := newTestService(t, nil)

	data, err := svc.Statement(staffCtx(), statementRange())
	require.NoError(t, err)
	require.NotNil(t, data.Summary)
	assert.Equal(t, 3, data.Summary.TotalOrders)
	assert.InDelta(t, 759.25, data.Summary.TotalAmount, 0.001)
	assert.InDelta(t, 537.80, data.Summary.TotalPaid, 0.001)
	assert.InDelta(t, 221.45, data.Summary.TotalPending, 0.001)
	assert.Equal(t, "Northside Clinic", data.UserInfo.CompanyName)
	assert.Equal(t, "MedOrder Supply", data.CompanyInfo.Name)
}

func TestStatementRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := staffCtx()

	req := statementRange()
	req.StartDate = "03/01/2026"
	_, err := svc.Statement(ctx, req)
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	req = statementRange()
	req.StartDate, req.EndDate = req.EndDate, req.StartDate
	_, err = svc.Statement(ctx, req)
	assert.ErrorIs(t, err, statement.ErrInvalidDateRange)
}

type memorySink struct {
	filename string
	blob     []byte
}

func (s *memorySink) Deliver(_ context.Context, filename string, blob []byte) (string, error) {
	s.filename = filename
	s.blob = blob
	return "memory://" + filename, nil
}

func TestStatementPDFAndExport(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := staffCtx()

	sink := &memorySink{}
	res, err := svc.StatementPDF(ctx, statementRange(), sink)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.True(t, strings.HasPrefix(string(sink.blob), "%PDF"))
	assert.True(t, strings.HasPrefix(sink.filename, "order-statement_Northside_Clinic_"))

	exported, err := svc.ExportStatement(ctx, statementRange())
	require.NoError(t, err)
	info, err := os.Stat(exported.Location)
	require.NoError(t, err)
	assert.Equal(t, int64(exported.Size), info.Size())
	assert.Equal(t, svc.exportDir, filepath.Dir(exported.Location))
}

func TestListAuditLogsRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.ListAuditLogs(staffCtx(), "", 10)
	assert.ErrorIs(t, err, ErrAdminRequired)

	_, err = svc.ListAuditLogs(adminCtx(), "yesterday", 10)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}
