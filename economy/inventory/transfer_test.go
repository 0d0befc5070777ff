package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/runerogue/economy/economy/database/models"
	"github.com/runerogue/economy/economy/storage"
	"github.com/runerogue/economy/economy/storage/memory"
)

func seedInventory(t *testing.T, store *memory.Store, playerID, itemID, quantity int64) {
	t.Helper()
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertInventoryItem(ctx, &models.InventoryItem{
			PlayerID: playerID,
			ItemID:   itemID,
			Quantity: quantity,
		})
	})
	if err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
}

func transfer(store *memory.Store, fromPlayerID, toPlayerID, itemID, quantity int64) error {
	return store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return Transfer(ctx, tx, fromPlayerID, toPlayerID, itemID, quantity)
	})
}

func TestTransferDecrementsSourceAndCreatesDestination(t *testing.T) {
	store := memory.New()
	seedInventory(t, store, 1, 1, 10)

	if err := transfer(store, 1, 2, 1, 4); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if got := store.InventoryQuantity(1, 1); got != 6 {
		t.Errorf("source quantity = %d, want 6", got)
	}
	if got := store.InventoryQuantity(2, 1); got != 4 {
		t.Errorf("destination quantity = %d, want 4", got)
	}
}

func TestTransferIncrementsExistingDestination(t *testing.T) {
	store := memory.New()
	seedInventory(t, store, 1, 1, 5)
	seedInventory(t, store, 2, 1, 3)

	if err := transfer(store, 1, 2, 1, 2); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if got := store.InventoryQuantity(2, 1); got != 5 {
		t.Errorf("destination quantity = %d, want 5", got)
	}
}

func TestTransferDeletesEmptiedSourceRow(t *testing.T) {
	store := memory.New()
	seedInventory(t, store, 1, 1, 7)

	if err := transfer(store, 1, 2, 1, 7); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if store.HasInventoryRow(1, 1) {
		t.Error("source row still exists after reaching zero quantity")
	}
	if got := store.InventoryQuantity(2, 1); got != 7 {
		t.Errorf("destination quantity = %d, want 7", got)
	}
}

func TestTransferErrors(t *testing.T) {
	store := memory.New()
	seedInventory(t, store, 1, 1, 3)

	tests := []struct {
		name     string
		from     int64
		to       int64
		itemID   int64
		quantity int64
	}{
		{name: "zero quantity", from: 1, to: 2, itemID: 1, quantity: 0},
		{name: "negative quantity", from: 1, to: 2, itemID: 1, quantity: -1},
		{name: "missing source row", from: 9, to: 2, itemID: 1, quantity: 1},
		{name: "short source", from: 1, to: 2, itemID: 1, quantity: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := transfer(store, tt.from, tt.to, tt.itemID, tt.quantity); err == nil {
				t.Error("Transfer() succeeded, want error")
			}
		})
	}

	// Failed transfers leave committed state untouched.
	if got := store.InventoryQuantity(1, 1); got != 3 {
		t.Errorf("source quantity = %d, want 3", got)
	}
	if store.HasInventoryRow(2, 1) {
		t.Error("destination row exists after failed transfers")
	}
}

func TestTransferRollsBackWithEnclosingTx(t *testing.T) {
	store := memory.New()
	seedInventory(t, store, 1, 1, 10)
	sentinel := errors.New("later step failed")

	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		if err := Transfer(ctx, tx, 1, 2, 1, 10); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("RunInTx() error = %v, want sentinel", err)
	}

	if got := store.InventoryQuantity(1, 1); got != 10 {
		t.Errorf("source quantity = %d, want restored 10", got)
	}
	if store.HasInventoryRow(2, 1) {
		t.Error("destination row survived the rollback")
	}
}
