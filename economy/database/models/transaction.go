package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Transaction records one executed match. Immutable once created.
// OfferID links to the buy-side offer by convention.
type Transaction struct {
	bun.BaseModel `bun:"table:ge_transactions,alias:tx"`

	ID           int64           `bun:"id,pk,autoincrement"`
	OfferID      int64           `bun:"offer_id,notnull"`
	BuyerID      int64           `bun:"buyer_id,notnull"`
	SellerID     int64           `bun:"seller_id,notnull"`
	ItemID       int64           `bun:"item_id,notnull"`
	Quantity     int64           `bun:"quantity,notnull"`
	PricePerItem decimal.Decimal `bun:"price_per_item,notnull,type:numeric(10,2)"`
	TotalPrice   decimal.Decimal `bun:"total_price,notnull,type:numeric(12,2)"`
	CompletedAt  time.Time       `bun:"completed_at,notnull,default:current_timestamp"`
}
