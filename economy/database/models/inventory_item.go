package models

import (
	"time"

	"github.com/uptrace/bun"
)

// InventoryItem holds a player's stock of one item. Rows are mutated only by
// the inventory transfer routine and are deleted when quantity hits zero.
type InventoryItem struct {
	bun.BaseModel `bun:"table:inventory_items,alias:inv"`

	ID         int64     `bun:"id,pk,autoincrement"`
	PlayerID   int64     `bun:"player_id,notnull"`
	ItemID     int64     `bun:"item_id,notnull"`
	Quantity   int64     `bun:"quantity,notnull,default:1"`
	AcquiredAt time.Time `bun:"acquired_at,notnull,default:current_timestamp"`
}
