package cart

import (
	"context"

	"go.uber.org/multierr"

	"github.com/rohanmehta-dev/vastrakart/pkg/types"
)

// SyncWithServer migrates guest items to the backend after a login. The
// durable guest store is the migration worklist: each item is removed from
// it the moment its POST succeeds, so a retried sync only resends the
// remainder and never duplicates items already migrated. Partial failures
// are aggregated and returned with the un-synced items left in place for
// the retry. On full success the in-memory list is replaced with a fresh
// server fetch, which drops every guest-tagged id.
func (c *Container) SyncWithServer(ctx context.Context) error {
	c.setMode(ModeAuthenticated)

	pending, err := c.guests.Load(ctx, c.sessionID)
	if err != nil {
		c.setError("could not read saved cart")
		return err
	}

	var migrateErr error
	for _, item := range pending {
		payload := types.NewCartItem{
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
		if _, err := c.api.AddCartItem(ctx, c.sessionID, payload); err != nil {
			migrateErr = multierr.Append(migrateErr, err)
			continue
		}
		if err := c.guests.Remove(ctx, c.sessionID, item.ID); err != nil {
			migrateErr = multierr.Append(migrateErr, err)
		}
	}
	if migrateErr != nil {
		c.setError("some items could not be moved to your account")
		return migrateErr
	}

	return c.Fetch(ctx)
}
