package domain

import "time"

type Actor struct {
	UserID   string
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// StaffUser is a console account as exposed to admins.
type StaffUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID        string
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// Customer is a row of the profiles table.
type Customer struct {
	ID           string           `json:"id"`
	Email        string           `json:"email"`
	FirstName    string           `json:"first_name"`
	LastName     string           `json:"last_name"`
	CompanyName  string           `json:"company_name,omitempty"`
	Phone        string           `json:"phone,omitempty"`
	Role         string           `json:"role"`
	Status       string           `json:"status"`
	TaxPercent   float64          `json:"tax_percent"`
	FreeShipping bool             `json:"free_shipping"`
	RewardPoints int              `json:"reward_points"`
	Billing      *BillingAddress  `json:"billing_address,omitempty"`
	Shipping     *ShippingAddress `json:"shipping_address,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (c Customer) DisplayName() string {
	switch {
	case c.CompanyName != "":
		return c.CompanyName
	case c.FirstName != "" || c.LastName != "":
		if c.LastName == "" {
			return c.FirstName
		}
		if c.FirstName == "" {
			return c.LastName
		}
		return c.FirstName + " " + c.LastName
	default:
		return c.Email
	}
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

type BillingAddress struct {
	Address
	CompanyName string `json:"company_name,omitempty"`
}

type ShippingAddress struct {
	Address
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

type SizeSelection struct {
	SizeID    string  `json:"size_id"`
	SizeValue string  `json:"size_value"`
	SizeUnit  string  `json:"size_unit"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// CartItem.Price is a line total (quantity x unit price x sizes), not a unit price.
type CartItem struct {
	ProductID      string            `json:"product_id"`
	Name           string            `json:"name"`
	Price          float64           `json:"price"`
	Quantity       int               `json:"quantity"`
	Sizes          []SizeSelection   `json:"sizes,omitempty"`
	Customizations map[string]string `json:"customizations,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	ShippingCost   float64           `json:"shipping_cost"`
}

type PaymentDetails struct {
	Method            string `json:"method"`
	Reference         string `json:"reference,omitempty"`
	TermsAccepted     bool   `json:"terms_accepted"`
	AccuracyConfirmed bool   `json:"accuracy_confirmed"`
}

type DiscountType string

const (
	DiscountPromo   DiscountType = "promo"
	DiscountRewards DiscountType = "rewards"
	DiscountOffer   DiscountType = "offer"
)

type AppliedDiscount struct {
	Type       DiscountType `json:"type"`
	Name       string       `json:"name"`
	Amount     float64      `json:"amount"`
	OfferID    string       `json:"offer_id,omitempty"`
	PromoCode  string       `json:"promo_code,omitempty"`
	PointsUsed int          `json:"points_used,omitempty"`
}

// Offer is a row of the offers table. Offers with an empty Code are applied
// automatically; offers with a Code require the customer to enter it.
type Offer struct {
	ID             string     `json:"id"`
	Code           string     `json:"code,omitempty"`
	Title          string     `json:"title"`
	OfferType      string     `json:"offer_type"`
	Value          float64    `json:"value"`
	MaxDiscount    *float64   `json:"max_discount,omitempty"`
	MinOrderAmount float64    `json:"min_order_amount"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	UsageLimit     *int       `json:"usage_limit,omitempty"`
	UsedCount      int        `json:"used_count"`
	Active         bool       `json:"active"`
}

const (
	OfferTypePercentage = "percentage"
	OfferTypeFlat       = "flat"
)

type RewardsConfig struct {
	Enabled         bool    `json:"enabled"`
	PointValue      float64 `json:"point_value"`
	MinRedeemPoints int     `json:"min_redeem_points"`
	PointsPerDollar float64 `json:"points_per_dollar"`
}

type OrderLine struct {
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	LineTotal    float64         `json:"line_total"`
	ShippingCost float64         `json:"shipping_cost"`
	Sizes        []SizeSelection `json:"sizes,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// Order is a row of the orders table plus its items.
type Order struct {
	ID             string            `json:"id"`
	OrderNumber    string            `json:"order_number"`
	ProfileID      string            `json:"profile_id"`
	Status         string            `json:"status"`
	PaymentStatus  string            `json:"payment_status"`
	PaymentMethod  string            `json:"payment_method"`
	Subtotal       float64           `json:"subtotal"`
	TaxAmount      float64           `json:"tax_amount"`
	ShippingCost   float64           `json:"shipping_cost"`
	DiscountAmount float64           `json:"discount_amount"`
	TotalAmount    float64           `json:"total_amount"`
	Discounts      []AppliedDiscount `json:"discounts,omitempty"`
	Billing        BillingAddress    `json:"billing_address"`
	Shipping       ShippingAddress   `json:"shipping_address"`
	Items          []OrderLine       `json:"items"`
	PointsRedeemed int               `json:"points_redeemed"`
	PointsEarned   int               `json:"points_earned"`
	CreatedBy      string            `json:"created_by"`
	CreatedAt      time.Time         `json:"created_at"`
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type OrderStatementRecord struct {
	OrderNumber   string        `json:"order_number"`
	OrderDate     time.Time     `json:"order_date"`
	OrderStatus   OrderStatus   `json:"order_status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	OrderAmount   float64       `json:"order_amount"`
	PaidAmount    float64       `json:"paid_amount"`
	PendingAmount float64       `json:"pending_amount"`
}

type OrderStatementSummary struct {
	TotalOrders  int       `json:"total_orders"`
	TotalAmount  float64   `json:"total_amount"`
	TotalPaid    float64   `json:"total_paid"`
	TotalPending float64   `json:"total_pending"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
}

type StatementUserInfo struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
}

type CompanyInfo struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	Phone   string `json:"phone" yaml:"phone"`
	Email   string `json:"email" yaml:"email"`
	Website string `json:"website" yaml:"website"`
}

// OrderStatementData is the unit handed to PDF rendering and download.
type OrderStatementData struct {
	UserID      string                 `json:"user_id"`
	StartDate   time.Time              `json:"start_date"`
	EndDate     time.Time              `json:"end_date"`
	Orders      []OrderStatementRecord `json:"orders"`
	Summary     *OrderStatementSummary `json:"summary"`
	UserInfo    StatementUserInfo      `json:"user_info"`
	CompanyInfo CompanyInfo            `json:"company_info"`
}

type CustomerNote struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Body       string    `json:"body"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type CustomerTask struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customer_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `json:"status"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

const (
	TaskStatusOpen      = "open"
	TaskStatusCompleted = "completed"
)

type CustomerQuery struct {
	Search string
	Status string
	Limit  int
	Offset int
}

type CustomerPage struct {
	Customers []Customer `json:"customers"`
	Total     int        `json:"total"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// CustomerDraft is the admin console's in-progress customer form.
type CustomerDraft struct {
	Form    map[string]string `json:"form" msgpack:"form"`
	Step    int               `json:"step" msgpack:"step"`
	SavedAt time.Time         `json:"saved_at" msgpack:"saved_at"`
}

const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

const (
	CustomerStatusActive   = "active"
	CustomerStatusInactive = "inactive"
)
