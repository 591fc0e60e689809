package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Variant struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Cost      decimal.Decimal `json:"cost"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Label is the short human form used on invoices and in stock errors.
func (v Variant) Label() string {
	return ItemLabel(v.Name, v.Color, v.Size)
}

type VariantCreateRequest struct {
	Name  string          `json:"name"`
	Color string          `json:"color"`
	Size  string          `json:"size"`
	Cost  decimal.Decimal `json:"cost"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type VariantUpdateRequest struct {
	Name  *string          `json:"name,omitempty"`
	Color *string          `json:"color,omitempty"`
	Size  *string          `json:"size,omitempty"`
	Cost  *decimal.Decimal `json:"cost,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock *int             `json:"stock,omitempty"`
}

// Apply returns v with only the fields present in the request replaced.
func (r VariantUpdateRequest) Apply(v Variant) Variant {
	if r.Name != nil {
		v.Name = *r.Name
	}
	if r.Color != nil {
		v.Color = *r.Color
	}
	if r.Size != nil {
		v.Size = *r.Size
	}
	if r.Cost != nil {
		v.Cost = *r.Cost
	}
	if r.Price != nil {
		v.Price = *r.Price
	}
	if r.Stock != nil {
		v.Stock = *r.Stock
	}
	return v
}

// VariantChange is a variant before and after an edit.
type VariantChange struct {
	Before Variant
	After  Variant
}

type RestockRequest struct {
	Qty int `json:"qty"`
}

type VariantFilter struct {
	Query     string
	LowStock  bool
	Threshold int
}

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Handle  string `json:"handle"`
}

type CustomerUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	Handle  *string `json:"handle,omitempty"`
}

type CartLine struct {
	VariantID int64           `json:"variant_id"`
	Name      string          `json:"name"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartItemRequest struct {
	VariantID int64 `json:"variant_id"`
	Qty       int   `json:"qty"`
}

type CartResponse struct {
	Lines     []CartLine      `json:"lines"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// CustomerRef identifies the buyer of a sale: an existing customer by id, or
// the fields used to find or create one.
type CustomerRef struct {
	ID      int64  `json:"customer_id,omitempty"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Handle  string `json:"handle"`
}

type CheckoutRequest struct {
	Customer CustomerRef `json:"customer"`
}

// SaleLine is one merged cart line handed to the store for commit.
type SaleLine struct {
	VariantID int64
	Qty       int
}

type SaleCommit struct {
	Customer  CustomerRef
	InvoiceID string
	SoldAt    time.Time
	Lines     []SaleLine
}

type SaleRecord struct {
	ID           int64           `json:"id"`
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	VariantID    int64           `json:"variant_id,omitempty"`
	ProductName  string          `json:"product_name"`
	Color        string          `json:"color"`
	Size         string          `json:"size"`
	Qty          int             `json:"qty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Total        decimal.Decimal `json:"total"`
	Profit       decimal.Decimal `json:"profit"`
	SoldAt       time.Time       `json:"sold_at"`
	InvoiceID    string          `json:"invoice_id"`
}

type SaleFilter struct {
	From       *time.Time
	To         *time.Time
	InvoiceID  string
	CustomerID int64
	Limit      int
}

// CommittedSale is what the store returns after a successful commit.
type CommittedSale struct {
	InvoiceID       string       `json:"invoice_id"`
	Customer        Customer     `json:"customer"`
	CustomerCreated bool         `json:"customer_created"`
	Records         []SaleRecord `json:"records"`
}

type Invoice struct {
	InvoiceID       string          `json:"invoice_id"`
	Customer        Customer        `json:"customer"`
	CustomerCreated bool            `json:"customer_created"`
	Lines           []SaleRecord    `json:"lines"`
	ItemCount       int             `json:"item_count"`
	Total           decimal.Decimal `json:"total"`
	Profit          decimal.Decimal `json:"profit"`
	Text            string          `json:"text"`
	MessageLink     string          `json:"message_link,omitempty"`
	SoldAt          time.Time       `json:"sold_at"`
}

type SaleCorrectionRequest struct {
	Qty        int              `json:"qty"`
	Total      *decimal.Decimal `json:"total,omitempty"`
	ManagerPIN string           `json:"manager_pin"`
}

type SaleDeleteRequest struct {
	ManagerPIN string `json:"manager_pin"`
}

type Expense struct {
	ID      int64           `json:"id"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
	SpentAt time.Time       `json:"spent_at"`
}

type ExpenseCreateRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
	SpentAt *time.Time      `json:"spent_at,omitempty"`
}

type DailyTotal struct {
	Date     string          `json:"date"`
	Total    decimal.Decimal `json:"total"`
	Profit   decimal.Decimal `json:"profit"`
	Expenses decimal.Decimal `json:"expenses"`
}

type ProductTotal struct {
	ProductName string          `json:"product_name"`
	Qty         int             `json:"qty"`
	Total       decimal.Decimal `json:"total"`
	Profit      decimal.Decimal `json:"profit"`
}

// SalesSummary is the raw aggregation a store produces for [from, to).
type SalesSummary struct {
	SalesTotal   decimal.Decimal
	ProfitTotal  decimal.Decimal
	ExpenseTotal decimal.Decimal
	Lines        int64
	Invoices     int64
	ByDay        []DailyTotal
	TopProducts  []ProductTotal
}

type Report struct {
	Window       string          `json:"window"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	SalesTotal   decimal.Decimal `json:"sales_total"`
	ProfitTotal  decimal.Decimal `json:"profit_total"`
	ExpenseTotal decimal.Decimal `json:"expense_total"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	Lines        int64           `json:"lines"`
	Invoices     int64           `json:"invoices"`
	ByDay        []DailyTotal    `json:"by_day"`
	TopProducts  []ProductTotal  `json:"top_products"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	CSRFToken   string `json:"csrf_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type User struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
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

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// WindowQuery selects a reporting window: today, week, days (with Days) or
// range (with From/To as YYYY-MM-DD, both inclusive).
type WindowQuery struct {
	Window string
	Days   int
	From   string
	To     string
}

type SalesQuery struct {
	WindowQuery
	InvoiceID  string
	CustomerID int64
	Limit      int
}

type CustomerHistory struct {
	Customer    Customer        `json:"customer"`
	Sales       []SaleRecord    `json:"sales"`
	Total       decimal.Decimal `json:"total"`
	Profit      decimal.Decimal `json:"profit"`
	MessageLink string          `json:"message_link,omitempty"`
}
