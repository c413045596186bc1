package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luciamoreno/gemashop-backend/pkg/enums"
)

// Order is the record registered after a successful payment.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number          string            `gorm:"column:number;not null;uniqueIndex"`
	Status          enums.OrderStatus `gorm:"column:status;not null;default:'paid'"`
	OrderDate       time.Time         `gorm:"column:order_date;not null"`
	UserID          uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	CustomerName    string            `gorm:"column:customer_name;not null"`
	CustomerEmail   string            `gorm:"column:customer_email;not null"`
	CustomerAddress string            `gorm:"column:customer_address;not null"`
	Subtotal        decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax             decimal.Decimal   `gorm:"column:tax;type:numeric(12,2);not null"`
	Shipping        decimal.Decimal   `gorm:"column:shipping;type:numeric(12,2);not null"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentIntentID string            `gorm:"column:payment_intent_id;not null"`
	LineItems       []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
