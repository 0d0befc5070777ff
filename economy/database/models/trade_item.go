package models

import "github.com/uptrace/bun"

// TradeItem is one line of a trade: quantity of an item moving from one
// participant to the other. A (trade, item, from_player) combination may
// appear at most once.
type TradeItem struct {
	bun.BaseModel `bun:"table:trade_items,alias:ti"`

	ID           int64 `bun:"id,pk,autoincrement"`
	TradeID      int64 `bun:"trade_id,notnull"`
	ItemID       int64 `bun:"item_id,notnull"`
	Quantity     int64 `bun:"quantity,notnull"`
	FromPlayerID int64 `bun:"from_player_id,notnull"`
	ToPlayerID   int64 `bun:"to_player_id,notnull"`
}
