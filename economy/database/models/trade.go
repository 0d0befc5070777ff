package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeCompleted TradeStatus = "completed"
	TradeDeclined  TradeStatus = "declined"
)

// Terminal reports whether the trade can never change state again.
func (s TradeStatus) Terminal() bool {
	return s == TradeCompleted || s == TradeDeclined
}

// Trade is a direct item-for-item barter session between two players,
// independent of the offer book. Pending trades never expire; they persist
// until explicitly accepted or declined.
type Trade struct {
	bun.BaseModel `bun:"table:trades,alias:t"`

	ID          int64       `bun:"id,pk,autoincrement"`
	TradeRef    string      `bun:"trade_ref,notnull,unique"`
	InitiatorID int64       `bun:"initiator_id,notnull"`
	ReceiverID  int64       `bun:"receiver_id,notnull"`
	Status      TradeStatus `bun:"status,notnull,default:'pending'"`
	InitiatedAt time.Time   `bun:"initiated_at,notnull,default:current_timestamp"`
	CompletedAt time.Time   `bun:"completed_at,nullzero"`
	CancelledAt time.Time   `bun:"cancelled_at,nullzero"`
	Notes       string      `bun:"notes"`
}

// Participant reports whether playerID is one of the trade's two parties.
func (t *Trade) Participant(playerID int64) bool {
	return playerID == t.InitiatorID || playerID == t.ReceiverID
}

// OtherParty returns the participant opposite playerID.
func (t *Trade) OtherParty(playerID int64) int64 {
	if playerID == t.InitiatorID {
		return t.ReceiverID
	}
	return t.InitiatorID
}
