// Package inventory holds the single routine allowed to move item quantities
// between players. Both the matching engine and the trade session execute
// transfers through it, inside their own transactions.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/runerogue/economy/economy/database/models"
	"github.com/runerogue/economy/economy/storage"
)

// Transfer moves quantity units of itemID from one player to the other within
// tx. The source row is decremented and deleted when it reaches zero; the
// destination row is incremented or created.
//
// Callers must have validated sufficient source quantity inside the same
// transaction; Transfer itself performs no re-check. A missing or short
// source row surfaces as an error and rolls the enclosing transaction back.
func Transfer(ctx context.Context, tx storage.Tx, fromPlayerID, toPlayerID, itemID, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("transfer quantity must be positive, got %d", quantity)
	}

	src, err := tx.InventoryItem(ctx, fromPlayerID, itemID, true)
	if err != nil {
		return fmt.Errorf("load source inventory: %w", err)
	}
	remaining := src.Quantity - quantity
	if remaining < 0 {
		return fmt.Errorf("source inventory short: have %d, moving %d", src.Quantity, quantity)
	}
	if remaining == 0 {
		if err := tx.DeleteInventoryItem(ctx, src.ID); err != nil {
			return fmt.Errorf("delete emptied inventory row: %w", err)
		}
	} else {
		if err := tx.UpdateInventoryQuantity(ctx, src.ID, remaining); err != nil {
			return fmt.Errorf("decrement source inventory: %w", err)
		}
	}

	dst, err := tx.InventoryItem(ctx, toPlayerID, itemID, true)
	switch {
	case err == nil:
		if err := tx.UpdateInventoryQuantity(ctx, dst.ID, dst.Quantity+quantity); err != nil {
			return fmt.Errorf("increment destination inventory: %w", err)
		}
	case errors.Is(err, storage.ErrNotFound):
		inv := &models.InventoryItem{
			PlayerID: toPlayerID,
			ItemID:   itemID,
			Quantity: quantity,
		}
		if err := tx.InsertInventoryItem(ctx, inv); err != nil {
			return fmt.Errorf("create destination inventory: %w", err)
		}
	default:
		return fmt.Errorf("load destination inventory: %w", err)
	}

	return nil
}
