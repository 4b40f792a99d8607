package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Order struct {
	ID             string      `json:"id" gorm:"type:uuid;primary_key"`
	Number         string      `json:"number" gorm:"unique;not null"`
	Status         string      `json:"status" gorm:"default:pending"`
	CustomerName   string      `json:"customer_name"`
	CustomerPhone  string      `json:"customer_phone"`
	CustomerEmail  string      `json:"customer_email"`
	Address        string      `json:"address"`
	City           string      `json:"city"`
	District       string      `json:"district"`
	ShippingTotal  float64     `json:"shipping_total" gorm:"type:decimal(12,2)"`
	CustomerNote   string      `json:"customer_note"`
	StatusNote     string      `json:"status_note"`
	Items          []OrderItem `json:"items" gorm:"serializer:json"`
	TrackingNumber *string     `json:"tracking_number"`
	Carrier        *string     `json:"carrier"`
	PaymentStatus  *string     `json:"payment_status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}
