package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/runerogue/economy/economy/database/models"
)

type seedItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tradeable   *bool           `json:"tradeable"`
	Stackable   bool            `json:"stackable"`
	BaseValue   decimal.Decimal `json:"base_value"`
}

// SeedItems loads item reference data from a JSON file, inserting items that
// are not present yet (matched by name). Returns the number inserted.
func (db *DB) SeedItems(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read item seed file: %w", err)
	}

	var seeds []seedItem
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return 0, fmt.Errorf("failed to parse item seed file: %w", err)
	}

	inserted := 0
	for _, seed := range seeds {
		exists, err := db.bunDB.NewSelect().
			Model((*models.Item)(nil)).
			Where("name = ?", seed.Name).
			Exists(ctx)
		if err != nil {
			return inserted, fmt.Errorf("failed to check item %q: %w", seed.Name, err)
		}
		if exists {
			continue
		}

		tradeable := true
		if seed.Tradeable != nil {
			tradeable = *seed.Tradeable
		}
		item := &models.Item{
			Name:        seed.Name,
			Description: seed.Description,
			IsTradeable: tradeable,
			IsStackable: seed.Stackable,
			BaseValue:   seed.BaseValue,
		}
		if _, err := db.bunDB.NewInsert().Model(item).Exec(ctx); err != nil {
			return inserted, fmt.Errorf("failed to insert item %q: %w", seed.Name, err)
		}
		inserted++
	}

	slog.Info("Item data seeded",
		slog.Int("total", len(seeds)),
		slog.Int("inserted", inserted))
	return inserted, nil
}
