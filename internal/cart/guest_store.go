package cart

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

// GuestStore durably persists guest-mode cart items per storefront session.
// Authenticated items are never written here, so nothing stale can leak
// across users on a shared device.
type GuestStore interface {
	Load(ctx context.Context, sessionID string) ([]types.CartItem, error)
	Upsert(ctx context.Context, sessionID string, item types.CartItem) error
	Remove(ctx context.Context, sessionID, itemID string) error
	Clear(ctx context.Context, sessionID string) error
}

// GuestCartItem is the sqlite row backing one persisted guest item.
type GuestCartItem struct {
	ID           string `gorm:"primaryKey"`
	SessionID    string `gorm:"index;not null"`
	ProductID    string `gorm:"not null"`
	Name         string
	UnitPrice    float64
	ListPrice    float64
	SellingPrice float64
	Image        string
	Color        string
	Size         string
	Quantity     int `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (GuestCartItem) TableName() string {
	return "guest_cart_items"
}

type gormGuestStore struct {
	db *gorm.DB
}

// NewGuestStore builds the sqlite-backed guest store.
func NewGuestStore(db *gorm.DB) (GuestStore, error) {
	if db == nil {
		return nil, fmt.Errorf("guest store db required")
	}
	return &gormGuestStore{db: db}, nil
}

func (s *gormGuestStore) Load(ctx context.Context, sessionID string) ([]types.CartItem, error) {
	var rows []GuestCartItem
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	items := make([]types.CartItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, types.CartItem{
			ID:           row.ID,
			ProductID:    row.ProductID,
			Name:         row.Name,
			UnitPrice:    row.UnitPrice,
			ListPrice:    row.ListPrice,
			SellingPrice: row.SellingPrice,
			Image:        row.Image,
			Color:        row.Color,
			Size:         row.Size,
			Quantity:     row.Quantity,
		})
	}
	return items, nil
}

func (s *gormGuestStore) Upsert(ctx context.Context, sessionID string, item types.CartItem) error {
	row := GuestCartItem{
		ID:           item.ID,
		SessionID:    sessionID,
		ProductID:    item.ProductID,
		Name:         item.Name,
		UnitPrice:    item.UnitPrice,
		ListPrice:    item.ListPrice,
		SellingPrice: item.SellingPrice,
		Image:        item.Image,
		Color:        item.Color,
		Size:         item.Size,
		Quantity:     item.Quantity,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *gormGuestStore) Remove(ctx context.Context, sessionID, itemID string) error {
	return s.db.WithContext(ctx).
		Where("session_id = ? AND id = ?", sessionID, itemID).
		Delete(&GuestCartItem{}).Error
}

func (s *gormGuestStore) Clear(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&GuestCartItem{}).Error
}
