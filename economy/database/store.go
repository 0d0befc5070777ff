package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/runerogue/economy/economy/database/models"
	"github.com/runerogue/economy/economy/storage"
)

// Store returns the storage.Store backed by this database.
func (db *DB) Store() storage.Store {
	return &sqlStore{db: db}
}

type sqlStore struct {
	db *DB
}

func (s *sqlStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.db.bunDB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &sqlTx{tx: tx, lockingReads: s.db.lockingReads})
	})
}

type sqlTx struct {
	tx           bun.Tx
	lockingReads bool
}

var _ storage.Tx = (*sqlTx)(nil)

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

func (t *sqlTx) InsertPlayer(ctx context.Context, player *models.Player) error {
	if _, err := t.tx.NewInsert().Model(player).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert player: %w", err)
	}
	return nil
}

func (t *sqlTx) PlayerByID(ctx context.Context, id int64) (*models.Player, error) {
	player := new(models.Player)
	err := t.tx.NewSelect().
		Model(player).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return player, nil
}

func (t *sqlTx) InsertItem(ctx context.Context, item *models.Item) error {
	if _, err := t.tx.NewInsert().Model(item).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (t *sqlTx) ItemByID(ctx context.Context, id int64) (*models.Item, error) {
	item := new(models.Item)
	err := t.tx.NewSelect().
		Model(item).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return item, nil
}

func (t *sqlTx) ListItems(ctx context.Context) ([]*models.Item, error) {
	var items []*models.Item
	err := t.tx.NewSelect().
		Model(&items).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func (t *sqlTx) InventoryItem(ctx context.Context, playerID, itemID int64, forUpdate bool) (*models.InventoryItem, error) {
	inv := new(models.InventoryItem)
	q := t.tx.NewSelect().
		Model(inv).
		Where("player_id = ?", playerID).
		Where("item_id = ?", itemID)
	if forUpdate && t.lockingReads {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return inv, nil
}

func (t *sqlTx) InsertInventoryItem(ctx context.Context, inv *models.InventoryItem) error {
	if _, err := t.tx.NewInsert().Model(inv).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert inventory item: %w", err)
	}
	return nil
}

func (t *sqlTx) UpdateInventoryQuantity(ctx context.Context, id, quantity int64) error {
	res, err := t.tx.NewUpdate().
		Model((*models.InventoryItem)(nil)).
		Set("quantity = ?", quantity).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update inventory quantity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *sqlTx) DeleteInventoryItem(ctx context.Context, id int64) error {
	if _, err := t.tx.NewDelete().
		Model((*models.InventoryItem)(nil)).
		Where("id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}
	return nil
}

func (t *sqlTx) InsertOffer(ctx context.Context, offer *models.Offer) error {
	if _, err := t.tx.NewInsert().Model(offer).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert offer: %w", err)
	}
	return nil
}

func (t *sqlTx) OfferByID(ctx context.Context, id int64, forUpdate bool) (*models.Offer, error) {
	offer := new(models.Offer)
	q := t.tx.NewSelect().
		Model(offer).
		Where("id = ?", id)
	if forUpdate && t.lockingReads {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return offer, nil
}

func (t *sqlTx) UpdateOffer(ctx context.Context, offer *models.Offer) error {
	res, err := t.tx.NewUpdate().
		Model(offer).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update offer: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *sqlTx) CandidateOffers(ctx context.Context, itemID int64, side models.OfferSide, limit decimal.Decimal, excludePlayerID int64) ([]*models.Offer, error) {
	var offers []*models.Offer
	q := t.tx.NewSelect().
		Model(&offers).
		Where("item_id = ?", itemID).
		Where("side = ?", side).
		Where("status = ?", models.OfferActive).
		Where("player_id != ?", excludePlayerID)
	if side == models.OfferSell {
		q = q.Where("price_per_item <= ?", limit).
			Order("price_per_item ASC", "created_at ASC")
	} else {
		q = q.Where("price_per_item >= ?", limit).
			Order("price_per_item DESC", "created_at ASC")
	}
	if t.lockingReads {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to select candidate offers: %w", err)
	}
	return offers, nil
}

func (t *sqlTx) ActiveOffersByItem(ctx context.Context, itemID int64, side models.OfferSide, max int) ([]*models.Offer, error) {
	var offers []*models.Offer
	q := t.tx.NewSelect().
		Model(&offers).
		Where("item_id = ?", itemID).
		Where("side = ?", side).
		Where("status = ?", models.OfferActive)
	if side == models.OfferBuy {
		q = q.Order("price_per_item DESC")
	} else {
		q = q.Order("price_per_item ASC")
	}
	if max > 0 {
		q = q.Limit(max)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to select active offers: %w", err)
	}
	return offers, nil
}

func (t *sqlTx) OffersByPlayer(ctx context.Context, playerID int64, status models.OfferStatus) ([]*models.Offer, error) {
	var offers []*models.Offer
	q := t.tx.NewSelect().
		Model(&offers).
		Where("player_id = ?", playerID).
		Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to select player offers: %w", err)
	}
	return offers, nil
}

func (t *sqlTx) ExpireOffers(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := t.tx.NewUpdate().
		Model((*models.Offer)(nil)).
		Set("status = ?", models.OfferExpired).
		Set("completed_at = ?", cutoff).
		Where("status = ? AND expires_at <= ?", models.OfferActive, cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to expire offers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired offers: %w", err)
	}
	return n, nil
}

func (t *sqlTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	if _, err := t.tx.NewInsert().Model(txn).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (t *sqlTx) InsertTrade(ctx context.Context, trade *models.Trade) error {
	if _, err := t.tx.NewInsert().Model(trade).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

func (t *sqlTx) TradeByID(ctx context.Context, id int64, forUpdate bool) (*models.Trade, error) {
	trade := new(models.Trade)
	q := t.tx.NewSelect().
		Model(trade).
		Where("id = ?", id)
	if forUpdate && t.lockingReads {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return trade, nil
}

func (t *sqlTx) UpdateTrade(ctx context.Context, trade *models.Trade) error {
	res, err := t.tx.NewUpdate().
		Model(trade).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *sqlTx) HasPendingTradeBetween(ctx context.Context, playerA, playerB int64) (bool, error) {
	exists, err := t.tx.NewSelect().
		Model((*models.Trade)(nil)).
		Where("((initiator_id = ? AND receiver_id = ?) OR (initiator_id = ? AND receiver_id = ?)) AND status = ?",
			playerA, playerB, playerB, playerA, models.TradePending).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check pending trades: %w", err)
	}
	return exists, nil
}

func (t *sqlTx) TradesByPlayer(ctx context.Context, playerID int64, status models.TradeStatus) ([]*models.Trade, error) {
	var trades []*models.Trade
	q := t.tx.NewSelect().
		Model(&trades).
		Where("initiator_id = ? OR receiver_id = ?", playerID, playerID).
		Order("initiated_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to select player trades: %w", err)
	}
	return trades, nil
}

func (t *sqlTx) InsertTradeItem(ctx context.Context, item *models.TradeItem) error {
	if _, err := t.tx.NewInsert().Model(item).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert trade item: %w", err)
	}
	return nil
}

func (t *sqlTx) TradeItems(ctx context.Context, tradeID int64) ([]*models.TradeItem, error) {
	var items []*models.TradeItem
	err := t.tx.NewSelect().
		Model(&items).
		Where("trade_id = ?", tradeID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select trade items: %w", err)
	}
	return items, nil
}

func (t *sqlTx) HasTradeItem(ctx context.Context, tradeID, itemID, fromPlayerID int64) (bool, error) {
	exists, err := t.tx.NewSelect().
		Model((*models.TradeItem)(nil)).
		Where("trade_id = ? AND item_id = ? AND from_player_id = ?", tradeID, itemID, fromPlayerID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check trade item: %w", err)
	}
	return exists, nil
}

func (t *sqlTx) InsertPriceHistory(ctx context.Context, point *models.PriceHistory) error {
	if _, err := t.tx.NewInsert().Model(point).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert price history: %w", err)
	}
	return nil
}

func (t *sqlTx) PriceHistorySince(ctx context.Context, itemID int64, since time.Time) ([]*models.PriceHistory, error) {
	var points []*models.PriceHistory
	err := t.tx.NewSelect().
		Model(&points).
		Where("item_id = ?", itemID).
		Where("recorded_at >= ?", since).
		Order("recorded_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select price history: %w", err)
	}
	return points, nil
}

func (t *sqlTx) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if _, err := t.tx.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
