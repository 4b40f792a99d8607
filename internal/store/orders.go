package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"nhanhsync/internal/models"
	"nhanhsync/internal/sync"
)

// Orders is the gorm-backed order book.
type Orders struct {
	db *gorm.DB
}

func NewOrders(db *gorm.DB) *Orders {
	return &Orders{db: db}
}

func (s *Orders) OrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Orders) UpdateOrderStatus(ctx context.Context, id, status, note string) error {
	result := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      status,
		"status_note": note,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrNotFound
	}
	return nil
}

func (s *Orders) AttachTracking(ctx context.Context, id, number, carrier string) error {
	return s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"tracking_number": number,
		"carrier":         carrier,
	}).Error
}

func (s *Orders) AttachPaymentStatus(ctx context.Context, id, status string) error {
	return s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("payment_status", status).Error
}

func (s *Orders) DeleteOrder(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id).Error
}
