package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, true
	}
	return "", false
}

// CanTransitionTo reports whether the forward-only lifecycle allows moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type AttemptStatus string

const (
	AttemptInitiated   AttemptStatus = "initiated"
	AttemptConfirmed   AttemptStatus = "confirmed"
	AttemptFailed      AttemptStatus = "failed"
	AttemptExpired     AttemptStatus = "expired"
	AttemptUnfulfilled AttemptStatus = "unfulfilled"
)

type AttemptLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PaymentAttempt is written before the gateway is contacted; its ID doubles as the gateway receipt.
type PaymentAttempt struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey"                   json:"id"`
	UserID         uuid.UUID     `gorm:"type:uuid;index;not null"               json:"user_id"`
	GatewayOrderID *string       `gorm:"uniqueIndex"                            json:"gateway_order_id,omitempty"`
	Amount         int64         `gorm:"not null"                               json:"amount"`
	Currency       string        `gorm:"size:3;not null"                        json:"currency"`
	Lines          []AttemptLine `gorm:"serializer:json;type:text;not null"     json:"lines"`
	Status         AttemptStatus `gorm:"type:varchar(20);index;not null"        json:"status"`
	FailureReason  string        `gorm:"not null;default:''"                    json:"failure_reason,omitempty"`
	CreatedAt      time.Time     `gorm:"index"                                  json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (a *PaymentAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Order struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"       json:"id"`
	OrderNumber string    `gorm:"uniqueIndex;not null"       json:"order_number"`
	ShipmentID  string    `gorm:"not null;default:''"        json:"shipment_id"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null"   json:"user_id"`
	User        *UserRef  `gorm:"foreignKey:UserID"          json:"user,omitempty"`

	ShippingName    string `gorm:"not null" json:"shipping_name"`
	ShippingAddress string `gorm:"not null" json:"shipping_address"`
	ShippingCity    string `gorm:"not null" json:"shipping_city"`
	ShippingState   string `gorm:"not null" json:"shipping_state"`
	ShippingPincode string `gorm:"not null" json:"shipping_pincode"`
	ShippingPhone   string `gorm:"not null;default:''" json:"shipping_phone"`

	GatewayOrderID   string `gorm:"uniqueIndex;not null" json:"gateway_order_id"`
	GatewayPaymentID string `gorm:"not null"             json:"gateway_payment_id"`

	Total     decimal.Decimal `gorm:"type:numeric(12,2);not null"           json:"total"`
	Currency  string          `gorm:"size:3;not null"                       json:"currency"`
	Status    OrderStatus     `gorm:"type:varchar(20);index;not null;default:'pending'" json:"status"`
	Items     []OrderItem     `gorm:"foreignKey:OrderID"                    json:"items"`
	CreatedAt time.Time       `gorm:"index"                                 json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem snapshots the product as it was sold.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"             json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null"         json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;index;not null"         json:"product_id"`
	Product   *ProductRef     `gorm:"foreignKey:ProductID"             json:"product,omitempty"`
	Title     string          `gorm:"not null"                         json:"title"`
	Slug      string          `gorm:"not null"                         json:"slug"`
	Image     string          `gorm:"not null;default:''"              json:"image"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"      json:"unit_price"`
	Quantity  int             `gorm:"not null;check:quantity > 0"      json:"quantity"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null"      json:"line_total"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ProductRef is the order service's view of the catalog's products table.
type ProductRef struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"        json:"id"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	SellingPrice decimal.Decimal `gorm:"type:numeric(12,2)"          json:"selling_price"`
	Stock        int             `json:"stock"`
	Images       pq.StringArray  `gorm:"type:text[]"                 json:"images"`
	DeletedAt    gorm.DeletedAt  `gorm:"index"                       json:"-"`
}

func (ProductRef) TableName() string { return "products" }

func (p ProductRef) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// UserRef is the order service's view of the auth service's users table.
type UserRef struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

func (UserRef) TableName() string { return "users" }
