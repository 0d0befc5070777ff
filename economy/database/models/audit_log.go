package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Audit action tags.
const (
	AuditOfferPlaced    = "ge_offer_placed"
	AuditOfferCancelled = "ge_offer_cancelled"
	AuditTradeInitiated = "trade_initiated"
	AuditTradeItemAdded = "item_added_to_trade"
	AuditTradeAccepted  = "trade_accepted"
	AuditTradeDeclined  = "trade_declined"
)

// AuditLog is the append-only forensic record of every mutating action.
// Never updated or deleted by the engine.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID        int64     `bun:"id,pk,autoincrement"`
	PlayerID  int64     `bun:"player_id,notnull"`
	TradeID   int64     `bun:"trade_id,nullzero"`
	Action    string    `bun:"action,notnull"`
	Details   string    `bun:"details"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
