package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

func setupGuestStoreDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&GuestCartItem{}))
	return db
}

func TestGuestStoreRoundTrip(t *testing.T) {
	db := setupGuestStoreDB(t)
	store, err := NewGuestStore(db)
	require.NoError(t, err)

	item := types.CartItem{
		ID:           "guest-1",
		ProductID:    "p1",
		Name:         "Banarasi Saree",
		UnitPrice:    1800,
		SellingPrice: 1800,
		Quantity:     2,
	}
	require.NoError(t, store.Upsert(context.Background(), "sess-roundtrip", item))

	items, err := store.Load(context.Background(), "sess-roundtrip")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "guest-1", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 1800.0, items[0].SellingPrice)
}

func TestGuestStoreUpsertUpdatesQuantity(t *testing.T) {
	db := setupGuestStoreDB(t)
	store, err := NewGuestStore(db)
	require.NoError(t, err)

	item := types.CartItem{ID: "guest-1", ProductID: "p1", Quantity: 1}
	require.NoError(t, store.Upsert(context.Background(), "sess-upsert", item))

	item.Quantity = 5
	require.NoError(t, store.Upsert(context.Background(), "sess-upsert", item))

	items, err := store.Load(context.Background(), "sess-upsert")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestGuestStoreSessionIsolation(t *testing.T) {
	db := setupGuestStoreDB(t)
	store, err := NewGuestStore(db)
	require.NoError(t, err)

	require.NoError(t, store.Upsert(context.Background(), "sess-a", types.CartItem{ID: "a1", ProductID: "p1", Quantity: 1}))
	require.NoError(t, store.Upsert(context.Background(), "sess-b", types.CartItem{ID: "b1", ProductID: "p2", Quantity: 1}))

	itemsA, err := store.Load(context.Background(), "sess-a")
	require.NoError(t, err)
	require.Len(t, itemsA, 1)
	assert.Equal(t, "a1", itemsA[0].ID)

	require.NoError(t, store.Clear(context.Background(), "sess-a"))

	itemsA, err = store.Load(context.Background(), "sess-a")
	require.NoError(t, err)
	assert.Empty(t, itemsA)

	itemsB, err := store.Load(context.Background(), "sess-b")
	require.NoError(t, err)
	require.Len(t, itemsB, 1)
}

func TestGuestStoreRemoveScopedToSession(t *testing.T) {
	db := setupGuestStoreDB(t)
	store, err := NewGuestStore(db)
	require.NoError(t, err)

	require.NoError(t, store.Upsert(context.Background(), "sess-rm", types.CartItem{ID: "rm-1", ProductID: "p1", Quantity: 1}))

	// A different session must not be able to delete the row.
	require.NoError(t, store.Remove(context.Background(), "sess-other", "rm-1"))
	items, err := store.Load(context.Background(), "sess-rm")
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, store.Remove(context.Background(), "sess-rm", "rm-1"))
	items, err = store.Load(context.Background(), "sess-rm")
	require.NoError(t, err)
	assert.Empty(t, items)
}
