package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Price history sources.
const (
	PriceSourceExchange = "ge"
	PriceSourceTrade    = "direct_trade"
)

// PriceHistory is an append-only price/volume point used for market statistics.
type PriceHistory struct {
	bun.BaseModel `bun:"table:price_history,alias:ph"`

	ID         int64           `bun:"id,pk,autoincrement"`
	ItemID     int64           `bun:"item_id,notnull"`
	Price      decimal.Decimal `bun:"price,notnull,type:numeric(10,2)"`
	Volume     int64           `bun:"volume,notnull,default:0"`
	RecordedAt time.Time       `bun:"recorded_at,notnull,default:current_timestamp"`
	Source     string          `bun:"source,notnull,default:'ge'"`
}
