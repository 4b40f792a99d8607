package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID               string   `json:"id" gorm:"type:uuid;primary_key"`
	SKU              string   `json:"sku" gorm:"unique;not null"`
	Name             string   `json:"name" gorm:"not null"`
	Description      *string  `json:"description"`
	ShortDescription *string  `json:"short_description"`
	Price            float64  `json:"price" gorm:"type:decimal(12,2)"`
	SalePrice        *float64 `json:"sale_price" gorm:"type:decimal(12,2)"`
	StockQuantity    int      `json:"stock_quantity"`
	InStock          bool     `json:"in_stock"`
	Weight           *float64 `json:"weight"`
	Status           ProductStatus `json:"status" gorm:"default:published"`
	CategoryID       *string  `json:"category_id"`
	ImageID          *string  `json:"image_id"`
	GalleryIDs       []string `json:"gallery_ids" gorm:"serializer:json"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type ProductStatus string

const (
	ProductStatusPublished ProductStatus = "published"
	ProductStatusDraft     ProductStatus = "draft"
)

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

type Category struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key"`
	Name      string    `json:"name" gorm:"unique;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

type Attachment struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key"`
	SourceURL string    `json:"source_url" gorm:"unique;not null"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
