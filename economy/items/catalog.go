// Package items exposes the read-only item catalog: lookups and fuzzy name
// search over the reference item data.
package items

import (
	"context"
	"fmt"

	"github.com/sahilm/fuzzy"

	"github.com/runerogue/economy/economy/database/models"
	"github.com/runerogue/economy/economy/storage"
)

type Catalog struct {
	store storage.Store
}

func NewCatalog(store storage.Store) *Catalog {
	return &Catalog{store: store}
}

// GetItem returns one item by id. Returns storage.ErrNotFound (wrapped) for
// unknown ids.
func (c *Catalog) GetItem(ctx context.Context, itemID int64) (*models.Item, error) {
	var item *models.Item
	err := c.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		item, err = tx.ItemByID(ctx, itemID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", itemID, err)
	}
	return item, nil
}

// ListItems returns every item ordered by id.
func (c *Catalog) ListItems(ctx context.Context) ([]*models.Item, error) {
	var items []*models.Item
	err := c.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		items, err = tx.ListItems(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// itemSource adapts a slice of items to fuzzy.Source over their names.
type itemSource []*models.Item

func (s itemSource) Len() int            { return len(s) }
func (s itemSource) String(i int) string { return s[i].Name }

// SearchItems ranks items by fuzzy match of query against their names and
// returns up to max results, best first.
func (c *Catalog) SearchItems(ctx context.Context, query string, max int) ([]*models.Item, error) {
	items, err := c.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	matches := fuzzy.FindFrom(query, itemSource(items))
	if max > 0 && len(matches) > max {
		matches = matches[:max]
	}
	results := make([]*models.Item, 0, len(matches))
	for _, m := range matches {
		results = append(results, items[m.Index])
	}
	return results, nil
}
