package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

func setupPendingStoreDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&PendingOrder{}))
	return db
}

func TestPendingStoreSurvivesDraftRoundTrip(t *testing.T) {
	db := setupPendingStoreDB(t)
	store, err := NewPendingStore(db)
	require.NoError(t, err)

	draft := types.OrderDraft{
		UserID:    "u-1",
		AddressID: "a-1",
		Items: []types.OrderLineItem{
			{ProductID: "p1", Name: "Silk Kurta", Category: "kurtas", Quantity: 2, Price: 1200},
		},
		CouponID:      "SAVE10",
		Total:         2209,
		PaymentMethod: "razorpay",
		PaymentStatus: "completed",
		TransactionID: "pay_roundtrip",
	}
	payload, err := encodeDraft(draft)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), PendingOrder{
		TransactionID: "pay_roundtrip",
		SessionID:     "sess-1",
		Provider:      "razorpay",
		Payload:       payload,
	}))

	record, err := store.Get(context.Background(), "pay_roundtrip")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "sess-1", record.SessionID)

	decoded, err := decodeDraft(record.Payload)
	require.NoError(t, err)
	assert.Equal(t, draft, decoded)
}

func TestPendingStoreGetMissingReturnsNil(t *testing.T) {
	db := setupPendingStoreDB(t)
	store, err := NewPendingStore(db)
	require.NoError(t, err)

	record, err := store.Get(context.Background(), "pay_absent")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestPendingStoreSaveIsUpsert(t *testing.T) {
	db := setupPendingStoreDB(t)
	store, err := NewPendingStore(db)
	require.NoError(t, err)

	first := PendingOrder{TransactionID: "pay_upsert", SessionID: "sess-1", Provider: "paypal", Payload: "{}"}
	require.NoError(t, store.Save(context.Background(), first))

	first.Payload = `{"total":100}`
	require.NoError(t, store.Save(context.Background(), first))

	record, err := store.Get(context.Background(), "pay_upsert")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, `{"total":100}`, record.Payload)
}

func TestPendingStoreDelete(t *testing.T) {
	db := setupPendingStoreDB(t)
	store, err := NewPendingStore(db)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), PendingOrder{
		TransactionID: "pay_del", SessionID: "sess-1", Provider: "paypal", Payload: "{}",
	}))
	require.NoError(t, store.Delete(context.Background(), "pay_del"))

	record, err := store.Get(context.Background(), "pay_del")
	require.NoError(t, err)
	assert.Nil(t, record)

	// Deleting an absent record is not an error.
	require.NoError(t, store.Delete(context.Background(), "pay_del"))
}
