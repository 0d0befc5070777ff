package items

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/runerogue/economy/economy/database/models"
	"github.com/runerogue/economy/economy/storage"
	"github.com/runerogue/economy/economy/storage/memory"
)

func newCatalog(t *testing.T, names ...string) *Catalog {
	t.Helper()
	store := memory.New()
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		for _, name := range names {
			if err := tx.InsertItem(ctx, &models.Item{
				Name:        name,
				IsTradeable: true,
				BaseValue:   decimal.NewFromInt(1),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed items: %v", err)
	}
	return NewCatalog(store)
}

func TestGetItem(t *testing.T) {
	c := newCatalog(t, "Bronze Sword")

	item, err := c.GetItem(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if item.Name != "Bronze Sword" {
		t.Errorf("item name = %q, want %q", item.Name, "Bronze Sword")
	}

	if _, err := c.GetItem(context.Background(), 99); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetItem(99) error = %v, want ErrNotFound", err)
	}
}

func TestListItems(t *testing.T) {
	c := newCatalog(t, "Shield", "Arrow", "Helm")

	items, err := c.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	// Ordered by id, which follows insertion here.
	if items[0].Name != "Shield" || items[2].Name != "Helm" {
		t.Errorf("order = %q..%q, want Shield..Helm", items[0].Name, items[2].Name)
	}
}

func TestSearchItems(t *testing.T) {
	c := newCatalog(t, "Bronze Sword", "Iron Sword", "Wooden Shield", "Swordfish")

	results, err := c.SearchItems(context.Background(), "sword", 10)
	if err != nil {
		t.Fatalf("SearchItems() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results for \"sword\"")
	}
	for _, item := range results {
		if item.Name == "Wooden Shield" {
			t.Error("search for \"sword\" returned Wooden Shield")
		}
	}

	capped, err := c.SearchItems(context.Background(), "sword", 1)
	if err != nil {
		t.Fatalf("SearchItems() error = %v", err)
	}
	if len(capped) != 1 {
		t.Errorf("got %d results with max 1, want 1", len(capped))
	}

	none, err := c.SearchItems(context.Background(), "zzzz", 10)
	if err != nil {
		t.Fatalf("SearchItems() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d results for nonsense query, want 0", len(none))
	}
}
