package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

// PendingOrder records a captured payment whose order submission has not
// yet succeeded. It is written before the first submission attempt so a
// failed attempt can be replayed from the record without charging the
// buyer again.
type PendingOrder struct {
	TransactionID string `gorm:"primaryKey"`
	SessionID     string `gorm:"index;not null"`
	Provider      string `gorm:"not null"`
	Payload       string `gorm:"not null"`
	CreatedAt     time.Time
}

func (PendingOrder) TableName() string {
	return "pending_orders"
}

// PendingStore persists pending-order records.
type PendingStore interface {
	Save(ctx context.Context, record PendingOrder) error
	Get(ctx context.Context, transactionID string) (*PendingOrder, error)
	Delete(ctx context.Context, transactionID string) error
}

type gormPendingStore struct {
	db *gorm.DB
}

// NewPendingStore builds the sqlite-backed pending-order store.
func NewPendingStore(db *gorm.DB) (PendingStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pending store db required")
	}
	return &gormPendingStore{db: db}, nil
}

func (s *gormPendingStore) Save(ctx context.Context, record PendingOrder) error {
	return s.db.WithContext(ctx).Save(&record).Error
}

func (s *gormPendingStore) Get(ctx context.Context, transactionID string) (*PendingOrder, error) {
	var record PendingOrder
	err := s.db.WithContext(ctx).First(&record, "transaction_id = ?", transactionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *gormPendingStore) Delete(ctx context.Context, transactionID string) error {
	return s.db.WithContext(ctx).Delete(&PendingOrder{}, "transaction_id = ?", transactionID).Error
}

func encodeDraft(draft types.OrderDraft) (string, error) {
	raw, err := json.Marshal(draft)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeDraft(payload string) (types.OrderDraft, error) {
	var draft types.OrderDraft
	err := json.Unmarshal([]byte(payload), &draft)
	return draft, err
}
