package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/store"
	"medorder/backend/internal/xid"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates missing tables and indexes. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const customerColumns = `id, email, first_name, last_name, company_name, phone, role, status,
	tax_percent, free_shipping, reward_points, billing_address, shipping_address, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner, extra ...any) (domain.Customer, error) {
	var (
		c                 domain.Customer
		company, phone    sql.NullString
		billing, shipping []byte
	)
	dest := []any{
		&c.ID, &c.Email, &c.FirstName, &c.LastName, &company, &phone, &c.Role, &c.Status,
		&c.TaxPercent, &c.FreeShipping, &c.RewardPoints, &billing, &shipping, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return c, err
	}
	c.CompanyName = company.String
	c.Phone = phone.String
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	if len(billing) > 0 && string(billing) != "null" {
		c.Billing = &domain.BillingAddress{}
		if err := json.Unmarshal(billing, c.Billing); err != nil {
			return c, fmt.Errorf("decode billing address: %w", err)
		}
	}
	if len(shipping) > 0 && string(shipping) != "null" {
		c.Shipping = &domain.ShippingAddress{}
		if err := json.Unmarshal(shipping, c.Shipping); err != nil {
			return c, fmt.Errorf("decode shipping address: %w", err)
		}
	}
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context, query domain.CustomerQuery) (domain.CustomerPage, error) {
	limit, offset := store.NormalizePage(query.Limit, query.Offset)
	search := strings.TrimSpace(query.Search)
	pattern := ""
	if search != "" {
		pattern = "%" + strings.NewReplacer("%", `\%`, "_", `\_`).Replace(search) + "%"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`, count(*) OVER()
		FROM profiles
		WHERE ($1 = '' OR email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1
			OR company_name ILIKE $1 OR phone ILIKE $1)
			AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id ASC
		LIMIT $3 OFFSET $4
	`, pattern, strings.TrimSpace(query.Status), limit, offset)
	if err != nil {
		return domain.CustomerPage{}, err
	}
	defer rows.Close()

	page := domain.CustomerPage{Customers: make([]domain.Customer, 0, limit), Limit: limit, Offset: offset}
	for rows.Next() {
		var total int
		c, err := scanCustomer(rows, &total)
		if err != nil {
			return domain.CustomerPage{}, err
		}
		page.Total = total
		page.Customers = append(page.Customers, c)
	}
	if err := rows.Err(); err != nil {
		return domain.CustomerPage{}, err
	}
	if len(page.Customers) == 0 && offset > 0 {
		if err := s.db.QueryRowContext(ctx, `
			SELECT count(*) FROM profiles
			WHERE ($1 = '' OR email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1
				OR company_name ILIKE $1 OR phone ILIKE $1)
				AND ($2 = '' OR status = $2)
		`, pattern, strings.TrimSpace(query.Status)).Scan(&page.Total); err != nil {
			return domain.CustomerPage{}, err
		}
	}
	return page, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	if customer.ID == "" || customer.Email == "" {
		return nil, store.ErrInvalidInput
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

	billing, shipping, err := encodeAddresses(customer.Billing, customer.Shipping)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (`+customerColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, customer.ID, customer.Email, customer.FirstName, customer.LastName, nullIfEmpty(customer.CompanyName),
		nullIfEmpty(customer.Phone), customer.Role, customer.Status, customer.TaxPercent, customer.FreeShipping,
		customer.RewardPoints, billing, shipping, customer.CreatedAt, customer.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	if customer.ID == "" || customer.Email == "" {
		return nil, store.ErrInvalidInput
	}
	billing, shipping, err := encodeAddresses(customer.Billing, customer.Shipping)
	if err != nil {
		return nil, err
	}

	updated, err := scanCustomer(s.db.QueryRowContext(ctx, `
		UPDATE profiles
		SET email = $2, first_name = $3, last_name = $4, company_name = $5, phone = $6,
			role = COALESCE(NULLIF($7, ''), role), status = COALESCE(NULLIF($8, ''), status),
			tax_percent = $9, free_shipping = $10, billing_address = $11, shipping_address = $12,
			updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns,
		customer.ID, customer.Email, customer.FirstName, customer.LastName, nullIfEmpty(customer.CompanyName),
		nullIfEmpty(customer.Phone), customer.Role, customer.Status, customer.TaxPercent, customer.FreeShipping,
		billing, shipping))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

const orderColumns = `id, order_number, profile_id, status, payment_status, payment_method,
	subtotal, tax_amount, shipping_cost, discount_amount, total_amount, discounts,
	billing_address, shipping_address, points_redeemed, points_earned, created_by, created_at`

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if order.ProfileID == "" || order.OrderNumber == "" || len(order.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	discounts, err := json.Marshal(nonNilDiscounts(order.Discounts))
	if err != nil {
		return nil, err
	}
	billing, err := json.Marshal(order.Billing)
	if err != nil {
		return nil, err
	}
	shipping, err := json.Marshal(order.Shipping)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, order.ID, order.OrderNumber, order.ProfileID, order.Status, order.PaymentStatus, order.PaymentMethod,
		order.Subtotal, order.TaxAmount, order.ShippingCost, order.DiscountAmount, order.TotalAmount, discounts,
		billing, shipping, order.PointsRedeemed, order.PointsEarned, order.CreatedBy, order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	for i, item := range order.Items {
		sizes, err := json.Marshal(nonNilSizes(item.Sizes))
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, quantity, line_total, shipping_cost, sizes, notes)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, order.ID, i, item.ProductID, item.Name, item.Quantity, item.LineTotal, item.ShippingCost, sizes, item.Notes); err != nil {
			return nil, err
		}
	}

	for _, d := range order.Discounts {
		if d.OfferID == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE offers
			SET used_count = used_count + 1
			WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
		`, d.OfferID)
		if err != nil {
			return nil, err
		}
		if affected, err := res.RowsAffected(); err != nil {
			return nil, err
		} else if affected == 0 {
			return nil, fmt.Errorf("%w: offer %s usage limit reached", store.ErrConflict, d.OfferID)
		}
	}

	if order.PointsRedeemed != 0 || order.PointsEarned != 0 {
		res, err := tx.ExecContext(ctx, `
			UPDATE profiles
			SET reward_points = reward_points - $2 + $3, updated_at = now()
			WHERE id = $1 AND reward_points >= $2
		`, order.ProfileID, order.PointsRedeemed, order.PointsEarned)
		if err != nil {
			return nil, err
		}
		if affected, err := res.RowsAffected(); err != nil {
			return nil, err
		} else if affected == 0 {
			return nil, fmt.Errorf("%w: insufficient reward points", store.ErrConflict)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := order
	return &created, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o                            domain.Order
		discounts, billing, shipping []byte
	)
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.ProfileID, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.Subtotal, &o.TaxAmount, &o.ShippingCost, &o.DiscountAmount, &o.TotalAmount, &discounts,
		&billing, &shipping, &o.PointsRedeemed, &o.PointsEarned, &o.CreatedBy, &o.CreatedAt); err != nil {
		return o, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	if len(discounts) > 0 {
		if err := json.Unmarshal(discounts, &o.Discounts); err != nil {
			return o, fmt.Errorf("decode discounts: %w", err)
		}
	}
	if len(billing) > 0 {
		if err := json.Unmarshal(billing, &o.Billing); err != nil {
			return o, fmt.Errorf("decode billing address: %w", err)
		}
	}
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
			return o, fmt.Errorf("decode shipping address: %w", err)
		}
	}
	return o, nil
}

func (s *Store) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 32)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) ListOrdersForStatement(ctx context.Context, profileID string, from time.Time, to time.Time) ([]domain.Order, error) {
	return s.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE profile_id = $1
			AND created_at >= $2
			AND created_at <= $3
		ORDER BY created_at ASC
	`, profileID, from, to)
}

func (s *Store) ListRecentOrders(ctx context.Context, profileID string, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 10
	}
	return s.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE profile_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, profileID, limit)
}

const offerColumns = `id, code, title, offer_type, value, max_discount, min_order_amount,
	start_date, end_date, usage_limit, used_count, active`

func scanOffer(row rowScanner) (domain.Offer, error) {
	var (
		o           domain.Offer
		code        sql.NullString
		maxDiscount sql.NullFloat64
		start, end  sql.NullTime
		usageLimit  sql.NullInt64
	)
	if err := row.Scan(&o.ID, &code, &o.Title, &o.OfferType, &o.Value, &maxDiscount, &o.MinOrderAmount,
		&start, &end, &usageLimit, &o.UsedCount, &o.Active); err != nil {
		return o, err
	}
	o.Code = code.String
	if maxDiscount.Valid {
		v := maxDiscount.Float64
		o.MaxDiscount = &v
	}
	if start.Valid {
		t := start.Time.UTC()
		o.StartDate = &t
	}
	if end.Valid {
		t := end.Time.UTC()
		o.EndDate = &t
	}
	if usageLimit.Valid {
		n := int(usageLimit.Int64)
		o.UsageLimit = &n
	}
	return o, nil
}

func (s *Store) GetOfferByCode(ctx context.Context, code string) (*domain.Offer, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, store.ErrNotFound
	}
	o, err := scanOffer(s.db.QueryRowContext(ctx, `
		SELECT `+offerColumns+` FROM offers WHERE upper(code) = upper($1)
	`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (s *Store) ListActiveOffers(ctx context.Context) ([]domain.Offer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+offerColumns+` FROM offers WHERE active = true ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offers := make([]domain.Offer, 0, 16)
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return offers, nil
}

// GetRewardsConfig returns a disabled config when none has been stored.
func (s *Store) GetRewardsConfig(ctx context.Context) (domain.RewardsConfig, error) {
	var cfg domain.RewardsConfig
	err := s.db.QueryRowContext(ctx, `
		SELECT enabled, point_value, min_redeem_points, points_per_dollar
		FROM rewards_config
		WHERE id = 1
	`).Scan(&cfg.Enabled, &cfg.PointValue, &cfg.MinRedeemPoints, &cfg.PointsPerDollar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RewardsConfig{}, nil
		}
		return domain.RewardsConfig{}, err
	}
	return cfg, nil
}

func (s *Store) CreateNote(ctx context.Context, note domain.CustomerNote) (*domain.CustomerNote, error) {
	if strings.TrimSpace(note.CustomerID) == "" || strings.TrimSpace(note.Body) == "" {
		return nil, store.ErrInvalidInput
	}
	if note.ID == "" {
		note.ID = xid.New("note")
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customer_notes (id, customer_id, body, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, note.ID, note.CustomerID, note.Body, note.CreatedBy, note.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := note
	return &created, nil
}

func (s *Store) ListNotes(ctx context.Context, customerID string) ([]domain.CustomerNote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, body, created_by, created_at
		FROM customer_notes
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]domain.CustomerNote, 0, 8)
	for rows.Next() {
		var n domain.CustomerNote
		if err := rows.Scan(&n.ID, &n.CustomerID, &n.Body, &n.CreatedBy, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.CreatedAt = n.CreatedAt.UTC()
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customer_notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

const taskColumns = `id, customer_id, title, description, due_date, status, assigned_to, created_by, created_at, completed_at`

func scanTask(row rowScanner) (domain.CustomerTask, error) {
	var (
		t              domain.CustomerTask
		due, completed sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.CustomerID, &t.Title, &t.Description, &due, &t.Status, &t.AssignedTo,
		&t.CreatedBy, &t.CreatedAt, &completed); err != nil {
		return t, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}
	if completed.Valid {
		c := completed.Time.UTC()
		t.CompletedAt = &c
	}
	return t, nil
}

func (s *Store) CreateTask(ctx context.Context, task domain.CustomerTask) (*domain.CustomerTask, error) {
	if strings.TrimSpace(task.CustomerID) == "" || strings.TrimSpace(task.Title) == "" {
		return nil, store.ErrInvalidInput
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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customer_tasks (`+taskColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, task.ID, task.CustomerID, task.Title, task.Description, nullTime(task.DueDate), task.Status,
		task.AssignedTo, task.CreatedBy, task.CreatedAt, nullTime(task.CompletedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := task
	return &created, nil
}

func (s *Store) ListTasks(ctx context.Context, customerID string, status string) ([]domain.CustomerTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM customer_tasks
		WHERE customer_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`, customerID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.CustomerTask, 0, 8)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) CompleteTask(ctx context.Context, id string, at time.Time) (*domain.CustomerTask, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `
		UPDATE customer_tasks
		SET status = $2, completed_at = $3
		WHERE id = $1 AND status <> $2
		RETURNING `+taskColumns,
		id, domain.TaskStatusCompleted, at.UTC()))
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM customer_tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: task already completed", store.ErrConflict)
	}
	return nil, store.ErrNotFound
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customer_tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
	`, user.ID, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, active, created_at
		FROM users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1
			AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func encodeAddresses(billing *domain.BillingAddress, shipping *domain.ShippingAddress) (any, any, error) {
	var b, s any
	if billing != nil {
		raw, err := json.Marshal(billing)
		if err != nil {
			return nil, nil, err
		}
		b = raw
	}
	if shipping != nil {
		raw, err := json.Marshal(shipping)
		if err != nil {
			return nil, nil, err
		}
		s = raw
	}
	return b, s, nil
}

func nonNilDiscounts(d []domain.AppliedDiscount) []domain.AppliedDiscount {
	if d == nil {
		return []domain.AppliedDiscount{}
	}
	return d
}

func nonNilSizes(s []domain.SizeSelection) []domain.SizeSelection {
	if s == nil {
		return []domain.SizeSelection{}
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return val.UTC()
}
