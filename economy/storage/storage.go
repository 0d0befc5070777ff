// Package storage defines the transactional ledger-store abstraction the
// economy engine runs against. Every public engine operation executes inside
// one Tx; commit is all-or-nothing per operation.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/runerogue/economy/economy/database/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("storage: not found")

// Store opens transactional sessions against the ledger.
type Store interface {
	// RunInTx runs fn inside a transaction. If fn returns an error the
	// transaction is rolled back and the error is returned unchanged.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is one transactional session. Implementations backed by SQL stores take
// row locks on reads flagged forUpdate; the in-memory store relies on its
// serialized transactions instead.
type Tx interface {
	// Players and items are reference data for the engine; it reads them and,
	// for seeding and fixtures, inserts them, but never updates or deletes.
	InsertPlayer(ctx context.Context, player *models.Player) error
	PlayerByID(ctx context.Context, id int64) (*models.Player, error)
	InsertItem(ctx context.Context, item *models.Item) error
	ItemByID(ctx context.Context, id int64) (*models.Item, error)
	ListItems(ctx context.Context) ([]*models.Item, error)

	// Inventory rows. Mutation goes through inventory.Transfer only.
	InventoryItem(ctx context.Context, playerID, itemID int64, forUpdate bool) (*models.InventoryItem, error)
	InsertInventoryItem(ctx context.Context, inv *models.InventoryItem) error
	UpdateInventoryQuantity(ctx context.Context, id, quantity int64) error
	DeleteInventoryItem(ctx context.Context, id int64) error

	// Offer book.
	InsertOffer(ctx context.Context, offer *models.Offer) error
	OfferByID(ctx context.Context, id int64, forUpdate bool) (*models.Offer, error)
	UpdateOffer(ctx context.Context, offer *models.Offer) error
	// CandidateOffers returns active offers on side for itemID that are price
	// compatible with limit (side buy: price >= limit; side sell: price <=
	// limit), excluding excludePlayerID, in price-time priority order: best
	// price first (descending for buy, ascending for sell), then earliest
	// created_at. SQL implementations lock the returned rows.
	CandidateOffers(ctx context.Context, itemID int64, side models.OfferSide, limit decimal.Decimal, excludePlayerID int64) ([]*models.Offer, error)
	// ActiveOffersByItem returns up to max active offers on side for itemID
	// in price priority order (descending for buy, ascending for sell).
	ActiveOffersByItem(ctx context.Context, itemID int64, side models.OfferSide, max int) ([]*models.Offer, error)
	// OffersByPlayer returns a player's offers newest first, filtered by
	// status when status is non-empty.
	OffersByPlayer(ctx context.Context, playerID int64, status models.OfferStatus) ([]*models.Offer, error)
	// ExpireOffers transitions every active offer whose expiry has passed
	// cutoff to expired, returning the number transitioned.
	ExpireOffers(ctx context.Context, cutoff time.Time) (int64, error)

	InsertTransaction(ctx context.Context, txn *models.Transaction) error

	// Trade sessions.
	InsertTrade(ctx context.Context, trade *models.Trade) error
	TradeByID(ctx context.Context, id int64, forUpdate bool) (*models.Trade, error)
	UpdateTrade(ctx context.Context, trade *models.Trade) error
	// HasPendingTradeBetween checks the unordered player pair.
	HasPendingTradeBetween(ctx context.Context, playerA, playerB int64) (bool, error)
	// TradesByPlayer returns trades where the player is either participant,
	// newest first, filtered by status when status is non-empty.
	TradesByPlayer(ctx context.Context, playerID int64, status models.TradeStatus) ([]*models.Trade, error)
	InsertTradeItem(ctx context.Context, item *models.TradeItem) error
	TradeItems(ctx context.Context, tradeID int64) ([]*models.TradeItem, error)
	HasTradeItem(ctx context.Context, tradeID, itemID, fromPlayerID int64) (bool, error)

	// Market data, append-only.
	InsertPriceHistory(ctx context.Context, point *models.PriceHistory) error
	// PriceHistorySince returns points for itemID recorded at or after since,
	// in ascending time order.
	PriceHistorySince(ctx context.Context, itemID int64, since time.Time) ([]*models.PriceHistory, error)

	// Audit trail, append-only.
	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
}
