package memory

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/store"
	"medorder/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	customers       map[string]domain.Customer
	orders          []domain.Order
	offersByID      map[string]domain.Offer
	rewards         domain.RewardsConfig
	notesByID       map[string]domain.CustomerNote
	tasksByID       map[string]domain.CustomerTask
	usersByUsername map[string]domain.UserAccount
	auditLogs       []domain.AuditLog
}

// New returns an empty store.
func New() *Store {
	return &Store{
		customers:       make(map[string]domain.Customer),
		orders:          make([]domain.Order, 0, 64),
		offersByID:      make(map[string]domain.Offer),
		notesByID:       make(map[string]domain.CustomerNote),
		tasksByID:       make(map[string]domain.CustomerTask),
		usersByUsername: make(map[string]domain.UserAccount),
		auditLogs:       make([]domain.AuditLog, 0, 128),
	}
}

// seedUsers builds the dev/demo console accounts. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD, falling back to dev defaults.
// The memory store is only used when DATABASE_URL is unset.
func seedUsers(logger *zap.Logger) map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		logger.Warn("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal("hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		users[u.username] = domain.UserAccount{
			ID:        xid.New("usr"),
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with demo customers, offers, orders and console users.
func NewSeeded(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := New()
	s.usersByUsername = seedUsers(logger)

	now := time.Now().UTC()
	clinicAddr := domain.Address{Street: "120 Harbor Way", City: "Portland", State: "OR", ZipCode: "97201"}
	customers := []domain.Customer{
		{
			ID: "cust-northside", Email: "orders@northsideclinic.test", FirstName: "Maya", LastName: "Chen",
			CompanyName: "Northside Clinic", Phone: "503-555-0142", Role: domain.RoleCustomer, Status: domain.CustomerStatusActive,
			TaxPercent: 8, RewardPoints: 1200,
			Billing:  &domain.BillingAddress{Address: clinicAddr, CompanyName: "Northside Clinic"},
			Shipping: &domain.ShippingAddress{Address: clinicAddr, FullName: "Maya Chen", Phone: "503-555-0142", Email: "orders@northsideclinic.test"},
		},
		{
			ID: "cust-riverpharm", Email: "buyer@riverpharmacy.test", FirstName: "Owen", LastName: "Diaz",
			CompanyName: "River Pharmacy", Role: domain.RoleCustomer, Status: domain.CustomerStatusActive,
			TaxPercent: 6.5, FreeShipping: true,
		},
	}
	for i, c := range customers {
		c.CreatedAt = now.Add(-time.Duration(len(customers)-i) * 24 * time.Hour)
		c.UpdatedAt = c.CreatedAt
		s.customers[c.ID] = c
	}

	limit := 500
	for _, o := range []domain.Offer{
		{ID: "offer-welcome", Code: "WELCOME10", Title: "Welcome 10% off", OfferType: domain.OfferTypePercentage, Value: 10, UsageLimit: &limit, Active: true},
		{ID: "offer-bulk", Title: "$25 off orders over $500", OfferType: domain.OfferTypeFlat, Value: 25, MinOrderAmount: 500, Active: true},
	} {
		s.offersByID[o.ID] = o
	}
	s.rewards = domain.RewardsConfig{Enabled: true, PointValue: 0.01, MinRedeemPoints: 100, PointsPerDollar: 1}

	for i, o := range []struct {
		status  string
		payment string
		total   float64
	}{
		{"delivered", "paid", 412.80},
		{"processing", "partial", 250.00},
		{"pending", "unpaid", 96.45},
	} {
		s.orders = append(s.orders, domain.Order{
			ID:            xid.New("ord"),
			OrderNumber:   fmt.Sprintf("ORD-SEED-%03d", i+1),
			ProfileID:     "cust-northside",
			Status:        o.status,
			PaymentStatus: o.payment,
			PaymentMethod: "invoice",
			Subtotal:      o.total,
			TotalAmount:   o.total,
			CreatedBy:     "seed",
			CreatedAt:     now.AddDate(0, 0, -10+i*3),
		})
	}
	return s
}

func (s *Store) ListCustomers(_ context.Context, query domain.CustomerQuery) (domain.CustomerPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit, offset := store.NormalizePage(query.Limit, query.Offset)
	search := strings.ToLower(strings.TrimSpace(query.Search))
	status := strings.TrimSpace(query.Status)

	matched := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if status != "" && c.Status != status {
			continue
		}
		if search != "" && !matchesSearch(c, search) {
			continue
		}
		matched = append(matched, cloneCustomer(c))
	}
	slices.SortFunc(matched, func(a, b domain.Customer) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	page := domain.CustomerPage{Customers: []domain.Customer{}, Total: len(matched), Limit: limit, Offset: offset}
	if offset < len(matched) {
		end := min(offset+limit, len(matched))
		page.Customers = matched[offset:end]
	}
	return page, nil
}

func matchesSearch(c domain.Customer, search string) bool {
	for _, field := range []string{c.Email, c.FirstName, c.LastName, c.CompanyName, c.Phone} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneCustomer(c)
	return &out, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	if customer.ID == "" || customer.Email == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.customers[customer.ID]; exists {
		return nil, store.ErrConflict
	}
	for _, existing := range s.customers {
		if existing.Email == customer.Email {
			return nil, store.ErrConflict
		}
	}
	if customer.Role == "" {
		customer.Role = domain.RoleCustomer
	}
	if customer.Status == "" {
		customer.Status = domain.CustomerStatusActive
	}
	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now
	s.customers[customer.ID] = cloneCustomer(customer)

	out := cloneCustomer(customer)
	return &out, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	if customer.Email == "" {
		return nil, store.ErrInvalidInput
	}
	for id, other := range s.customers {
		if id != customer.ID && other.Email == customer.Email {
			return nil, store.ErrConflict
		}
	}
	customer.CreatedAt = existing.CreatedAt
	customer.RewardPoints = existing.RewardPoints
	if customer.Role == "" {
		customer.Role = existing.Role
	}
	if customer.Status == "" {
		customer.Status = existing.Status
	}
	customer.UpdatedAt = time.Now().UTC()
	s.customers[customer.ID] = cloneCustomer(customer)

	out := cloneCustomer(customer)
	return &out, nil
}

// DeleteCustomer removes the profile with its notes and tasks. Orders are kept.
func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.customers, id)
	for noteID, n := range s.notesByID {
		if n.CustomerID == id {
			delete(s.notesByID, noteID)
		}
	}
	for taskID, t := range s.tasksByID {
		if t.CustomerID == id {
			delete(s.tasksByID, taskID)
		}
	}
	return nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ProfileID == "" || order.OrderNumber == "" || len(order.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	customer, ok := s.customers[order.ProfileID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.orders {
		if existing.OrderNumber == order.OrderNumber {
			return nil, store.ErrConflict
		}
	}

	offers := make(map[string]domain.Offer)
	for _, d := range order.Discounts {
		if d.OfferID == "" {
			continue
		}
		offer, ok := s.offersByID[d.OfferID]
		if !ok {
			return nil, fmt.Errorf("%w: offer %s", store.ErrNotFound, d.OfferID)
		}
		if offer.UsageLimit != nil && offer.UsedCount >= *offer.UsageLimit {
			return nil, fmt.Errorf("%w: offer %s usage limit reached", store.ErrConflict, d.OfferID)
		}
		offer.UsedCount++
		offers[offer.ID] = offer
	}
	if order.PointsRedeemed > customer.RewardPoints {
		return nil, fmt.Errorf("%w: insufficient reward points", store.ErrConflict)
	}

	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	for id, offer := range offers {
		s.offersByID[id] = offer
	}
	customer.RewardPoints = customer.RewardPoints - order.PointsRedeemed + order.PointsEarned
	customer.UpdatedAt = order.CreatedAt
	s.customers[customer.ID] = customer

	stored := cloneOrder(order)
	s.orders = append(s.orders, stored)
	out := cloneOrder(stored)
	return &out, nil
}

func (s *Store) ListOrdersForStatement(_ context.Context, profileID string, from time.Time, to time.Time) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, 0, 16)
	for _, o := range s.orders {
		if o.ProfileID != profileID {
			continue
		}
		if o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	slices.SortFunc(out, func(a, b domain.Order) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (s *Store) ListRecentOrders(_ context.Context, profileID string, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 10
	}
	out := make([]domain.Order, 0, limit)
	for _, o := range s.orders {
		if o.ProfileID == profileID {
			out = append(out, cloneOrder(o))
		}
	}
	slices.SortFunc(out, func(a, b domain.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetOfferByCode(_ context.Context, code string) (*domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, store.ErrNotFound
	}
	for _, o := range s.offersByID {
		if strings.EqualFold(o.Code, code) {
			out := o
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListActiveOffers(_ context.Context) ([]domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Offer, 0, len(s.offersByID))
	for _, o := range s.offersByID {
		if o.Active {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b domain.Offer) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) GetRewardsConfig(_ context.Context) (domain.RewardsConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rewards, nil
}

// SetOffer and SetRewardsConfig let dev tooling and tests shape the catalog.
func (s *Store) SetOffer(offer domain.Offer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offersByID[offer.ID] = offer
}

func (s *Store) SetRewardsConfig(cfg domain.RewardsConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewards = cfg
}

func (s *Store) CreateNote(_ context.Context, note domain.CustomerNote) (*domain.CustomerNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(note.Body) == "" {
		return nil, store.ErrInvalidInput
	}
	if _, ok := s.customers[note.CustomerID]; !ok {
		return nil, store.ErrNotFound
	}
	if note.ID == "" {
		note.ID = xid.New("note")
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	s.notesByID[note.ID] = note
	out := note
	return &out, nil
}

func (s *Store) ListNotes(_ context.Context, customerID string) ([]domain.CustomerNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CustomerNote, 0, 8)
	for _, n := range s.notesByID {
		if n.CustomerID == customerID {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b domain.CustomerNote) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteNote(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notesByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.notesByID, id)
	return nil
}

func (s *Store) CreateTask(_ context.Context, task domain.CustomerTask) (*domain.CustomerTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(task.Title) == "" {
		return nil, store.ErrInvalidInput
	}
	if _, ok := s.customers[task.CustomerID]; !ok {
		return nil, store.ErrNotFound
	}
	if task.ID == "" {
		task.ID = xid.New("task")
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusOpen
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	s.tasksByID[task.ID] = task
	out := task
	return &out, nil
}

func (s *Store) ListTasks(_ context.Context, customerID string, status string) ([]domain.CustomerTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CustomerTask, 0, 8)
	for _, t := range s.tasksByID {
		if t.CustomerID != customerID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b domain.CustomerTask) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Store) CompleteTask(_ context.Context, id string, at time.Time) (*domain.CustomerTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasksByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if task.Status == domain.TaskStatusCompleted {
		return nil, fmt.Errorf("%w: task already completed", store.ErrConflict)
	}
	completedAt := at.UTC()
	task.Status = domain.TaskStatusCompleted
	task.CompletedAt = &completedAt
	s.tasksByID[id] = task
	out := task
	return &out, nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasksByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.tasksByID, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmp.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for username, user := range s.usersByUsername {
		if user.ID == id {
			delete(s.usersByUsername, username)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	out := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(out) < limit; i-- {
		entry := s.auditLogs[i]
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func cloneCustomer(src domain.Customer) domain.Customer {
	dst := src
	if src.Billing != nil {
		b := *src.Billing
		dst.Billing = &b
	}
	if src.Shipping != nil {
		sh := *src.Shipping
		dst.Shipping = &sh
	}
	return dst
}

func cloneOrder(src domain.Order) domain.Order {
	dst := src
	dst.Items = slices.Clone(src.Items)
	dst.Discounts = slices.Clone(src.Discounts)
	return dst
}
