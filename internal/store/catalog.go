package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nhanhsync/internal/models"
	"nhanhsync/internal/sync"
)

// Catalog is the gorm-backed product catalog.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

func (s *Catalog) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Catalog) ProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// productColumns are the fields an upsert by SKU overwrites. The id stays
// untouched so identity links survive concurrent creates of the same SKU.
var productColumns = []string{
	"name", "description", "short_description", "price", "sale_price",
	"stock_quantity", "in_stock", "weight", "status", "category_id",
	"image_id", "gallery_ids", "updated_at",
}

// SaveProduct creates or updates a product atomically on its SKU. Two racing
// saves of the same SKU converge on one row.
func (s *Catalog) SaveProduct(ctx context.Context, product *models.Product) error {
	if product.ID != "" {
		return s.db.WithContext(ctx).Save(product).Error
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns(productColumns),
	}).Create(product).Error
	if err != nil {
		return err
	}
	// On conflict the row kept its original id; re-read so the caller links
	// against the surviving identity.
	existing, err := s.ProductBySKU(ctx, product.SKU)
	if err != nil {
		return err
	}
	product.ID = existing.ID
	return nil
}

func (s *Catalog) DeleteProduct(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

func (s *Catalog) SetStock(ctx context.Context, id string, quantity int, inStock bool) error {
	result := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
		"stock_quantity": quantity,
		"in_stock":       inStock,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrNotFound
	}
	return nil
}

// FindOrCreateCategory returns the id of the category with the given name,
// creating it on first sight.
func (s *Catalog) FindOrCreateCategory(ctx context.Context, name string) (string, error) {
	var category models.Category
	err := s.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&category, models.Category{Name: name}).Error
	if err != nil {
		// A concurrent create may have won the unique index; read again.
		if lookupErr := s.db.WithContext(ctx).First(&category, "name = ?", name).Error; lookupErr == nil {
			return category.ID, nil
		}
		return "", err
	}
	return category.ID, nil
}

func (s *Catalog) AssignCategory(ctx context.Context, productID, categoryID string) error {
	return s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Update("category_id", categoryID).Error
}
