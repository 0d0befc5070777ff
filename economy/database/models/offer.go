package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type OfferSide string

const (
	OfferBuy  OfferSide = "buy"
	OfferSell OfferSide = "sell"
)

// Opposite returns the side a matching candidate must be on.
func (s OfferSide) Opposite() OfferSide {
	if s == OfferBuy {
		return OfferSell
	}
	return OfferBuy
}

type OfferStatus string

const (
	OfferActive    OfferStatus = "active"
	OfferCompleted OfferStatus = "completed"
	OfferCancelled OfferStatus = "cancelled"
	OfferExpired   OfferStatus = "expired"
)

// Terminal reports whether the status can never change again.
func (s OfferStatus) Terminal() bool {
	return s == OfferCompleted || s == OfferCancelled || s == OfferExpired
}

// Offer is a standing buy or sell order on the Grand Exchange. Once placed it
// is only ever mutated by the matching engine (quantity_remaining, status),
// by cancellation, or by the expiration sweep. Offers are never deleted.
type Offer struct {
	bun.BaseModel `bun:"table:ge_offers,alias:o"`

	ID                int64           `bun:"id,pk,autoincrement"`
	PlayerID          int64           `bun:"player_id,notnull"`
	ItemID            int64           `bun:"item_id,notnull"`
	Side              OfferSide       `bun:"side,notnull"`
	Quantity          int64           `bun:"quantity,notnull"`
	QuantityRemaining int64           `bun:"quantity_remaining,notnull"`
	PricePerItem      decimal.Decimal `bun:"price_per_item,notnull,type:numeric(10,2)"`
	Status            OfferStatus     `bun:"status,notnull,default:'active'"`
	CreatedAt         time.Time       `bun:"created_at,notnull,default:current_timestamp"`
	CompletedAt       time.Time       `bun:"completed_at,nullzero"`
	ExpiresAt         time.Time       `bun:"expires_at,notnull"`
}
