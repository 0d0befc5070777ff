// Package memory provides an in-memory storage.Store used by tests and
// embedded deployments. Transactions serialize on one mutex and operate on a
// copied state, so a failed transaction leaves the store untouched.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/runerogue/economy/economy/database/models"
	"github.com/runerogue/economy/economy/storage"
)

type Store struct {
	mu sync.Mutex
	st *state
}

type state struct {
	seq          map[string]int64
	players      map[int64]*models.Player
	items        map[int64]*models.Item
	inventory    map[int64]*models.InventoryItem
	offers       map[int64]*models.Offer
	transactions []*models.Transaction
	trades       map[int64]*models.Trade
	tradeItems   []*models.TradeItem
	prices       []*models.PriceHistory
	audits       []*models.AuditLog
}

func New() *Store {
	return &Store{st: newState()}
}

func newState() *state {
	return &state{
		seq:       make(map[string]int64),
		players:   make(map[int64]*models.Player),
		items:     make(map[int64]*models.Item),
		inventory: make(map[int64]*models.InventoryItem),
		offers:    make(map[int64]*models.Offer),
		trades:    make(map[int64]*models.Trade),
	}
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for id, p := range s.players {
		cp := *p
		c.players[id] = &cp
	}
	for id, i := range s.items {
		ci := *i
		c.items[id] = &ci
	}
	for id, inv := range s.inventory {
		cv := *inv
		c.inventory[id] = &cv
	}
	for id, o := range s.offers {
		co := *o
		c.offers[id] = &co
	}
	for id, t := range s.trades {
		ct := *t
		c.trades[id] = &ct
	}
	c.transactions = cloneSlice(s.transactions)
	c.tradeItems = cloneSlice(s.tradeItems)
	c.prices = cloneSlice(s.prices)
	c.audits = cloneSlice(s.audits)
	return c
}

func cloneSlice[T any](in []*T) []*T {
	out := make([]*T, len(in))
	for i, v := range in {
		cv := *v
		out[i] = &cv
	}
	return out
}

// RunInTx runs fn against a copy of the store state and swaps it in only when
// fn succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(ctx, &memTx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

type memTx struct {
	st *state
}

var _ storage.Tx = (*memTx)(nil)

func (t *memTx) InsertPlayer(_ context.Context, player *models.Player) error {
	if player.ID == 0 {
		player.ID = t.st.next("players")
	}
	cp := *player
	t.st.players[player.ID] = &cp
	return nil
}

func (t *memTx) PlayerByID(_ context.Context, id int64) (*models.Player, error) {
	p, ok := t.st.players[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) InsertItem(_ context.Context, item *models.Item) error {
	if item.ID == 0 {
		item.ID = t.st.next("items")
	}
	ci := *item
	t.st.items[item.ID] = &ci
	return nil
}

func (t *memTx) ItemByID(_ context.Context, id int64) (*models.Item, error) {
	i, ok := t.st.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	ci := *i
	return &ci, nil
}

func (t *memTx) ListItems(_ context.Context) ([]*models.Item, error) {
	items := make([]*models.Item, 0, len(t.st.items))
	for _, i := range t.st.items {
		ci := *i
		items = append(items, &ci)
	}
	sort.Slice(items, func(a, b int) bool { return items[a].ID < items[b].ID })
	return items, nil
}

func (t *memTx) InventoryItem(_ context.Context, playerID, itemID int64, _ bool) (*models.InventoryItem, error) {
	for _, inv := range t.st.inventory {
		if inv.PlayerID == playerID && inv.ItemID == itemID {
			cv := *inv
			return &cv, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (t *memTx) InsertInventoryItem(_ context.Context, inv *models.InventoryItem) error {
	if inv.ID == 0 {
		inv.ID = t.st.next("inventory")
	}
	cv := *inv
	t.st.inventory[inv.ID] = &cv
	return nil
}

func (t *memTx) UpdateInventoryQuantity(_ context.Context, id, quantity int64) error {
	inv, ok := t.st.inventory[id]
	if !ok {
		return storage.ErrNotFound
	}
	inv.Quantity = quantity
	return nil
}

func (t *memTx) DeleteInventoryItem(_ context.Context, id int64) error {
	delete(t.st.inventory, id)
	return nil
}

func (t *memTx) InsertOffer(_ context.Context, offer *models.Offer) error {
	if offer.ID == 0 {
		offer.ID = t.st.next("offers")
	}
	co := *offer
	t.st.offers[offer.ID] = &co
	return nil
}

func (t *memTx) OfferByID(_ context.Context, id int64, _ bool) (*models.Offer, error) {
	o, ok := t.st.offers[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	co := *o
	return &co, nil
}

func (t *memTx) UpdateOffer(_ context.Context, offer *models.Offer) error {
	if _, ok := t.st.offers[offer.ID]; !ok {
		return storage.ErrNotFound
	}
	co := *offer
	t.st.offers[offer.ID] = &co
	return nil
}

func (t *memTx) CandidateOffers(_ context.Context, itemID int64, side models.OfferSide, limit decimal.Decimal, excludePlayerID int64) ([]*models.Offer, error) {
	var out []*models.Offer
	for _, o := range t.st.offers {
		if o.ItemID != itemID || o.Side != side || o.Status != models.OfferActive || o.PlayerID == excludePlayerID {
			continue
		}
		if side == models.OfferSell && o.PricePerItem.GreaterThan(limit) {
			continue
		}
		if side == models.OfferBuy && o.PricePerItem.LessThan(limit) {
			continue
		}
		co := *o
		out = append(out, &co)
	}
	sort.SliceStable(out, func(a, b int) bool {
		cmp := out[a].PricePerItem.Cmp(out[b].PricePerItem)
		if cmp != 0 {
			if side == models.OfferBuy {
				return cmp > 0
			}
			return cmp < 0
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out, nil
}

func (t *memTx) ActiveOffersByItem(_ context.Context, itemID int64, side models.OfferSide, max int) ([]*models.Offer, error) {
	var out []*models.Offer
	for _, o := range t.st.offers {
		if o.ItemID == itemID && o.Side == side && o.Status == models.OfferActive {
			co := *o
			out = append(out, &co)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		cmp := out[a].PricePerItem.Cmp(out[b].PricePerItem)
		if side == models.OfferBuy {
			return cmp > 0
		}
		return cmp < 0
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (t *memTx) OffersByPlayer(_ context.Context, playerID int64, status models.OfferStatus) ([]*models.Offer, error) {
	var out []*models.Offer
	for _, o := range t.st.offers {
		if o.PlayerID != playerID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		co := *o
		out = append(out, &co)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (t *memTx) ExpireOffers(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, o := range t.st.offers {
		if o.Status == models.OfferActive && !o.ExpiresAt.After(cutoff) {
			o.Status = models.OfferExpired
			o.CompletedAt = cutoff
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertTransaction(_ context.Context, txn *models.Transaction) error {
	if txn.ID == 0 {
		txn.ID = t.st.next("transactions")
	}
	ct := *txn
	t.st.transactions = append(t.st.transactions, &ct)
	return nil
}

func (t *memTx) InsertTrade(_ context.Context, trade *models.Trade) error {
	if trade.ID == 0 {
		trade.ID = t.st.next("trades")
	}
	ct := *trade
	t.st.trades[trade.ID] = &ct
	return nil
}

func (t *memTx) TradeByID(_ context.Context, id int64, _ bool) (*models.Trade, error) {
	tr, ok := t.st.trades[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	ct := *tr
	return &ct, nil
}

func (t *memTx) UpdateTrade(_ context.Context, trade *models.Trade) error {
	if _, ok := t.st.trades[trade.ID]; !ok {
		return storage.ErrNotFound
	}
	ct := *trade
	t.st.trades[trade.ID] = &ct
	return nil
}

func (t *memTx) HasPendingTradeBetween(_ context.Context, playerA, playerB int64) (bool, error) {
	for _, tr := range t.st.trades {
		if tr.Status != models.TradePending {
			continue
		}
		if (tr.InitiatorID == playerA && tr.ReceiverID == playerB) ||
			(tr.InitiatorID == playerB && tr.ReceiverID == playerA) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) TradesByPlayer(_ context.Context, playerID int64, status models.TradeStatus) ([]*models.Trade, error) {
	var out []*models.Trade
	for _, tr := range t.st.trades {
		if tr.InitiatorID != playerID && tr.ReceiverID != playerID {
			continue
		}
		if status != "" && tr.Status != status {
			continue
		}
		ct := *tr
		out = append(out, &ct)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].InitiatedAt.After(out[b].InitiatedAt) })
	return out, nil
}

func (t *memTx) InsertTradeItem(_ context.Context, item *models.TradeItem) error {
	if item.ID == 0 {
		item.ID = t.st.next("trade_items")
	}
	ci := *item
	t.st.tradeItems = append(t.st.tradeItems, &ci)
	return nil
}

func (t *memTx) TradeItems(_ context.Context, tradeID int64) ([]*models.TradeItem, error) {
	var out []*models.TradeItem
	for _, ti := range t.st.tradeItems {
		if ti.TradeID == tradeID {
			ci := *ti
			out = append(out, &ci)
		}
	}
	return out, nil
}

func (t *memTx) HasTradeItem(_ context.Context, tradeID, itemID, fromPlayerID int64) (bool, error) {
	for _, ti := range t.st.tradeItems {
		if ti.TradeID == tradeID && ti.ItemID == itemID && ti.FromPlayerID == fromPlayerID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertPriceHistory(_ context.Context, point *models.PriceHistory) error {
	if point.ID == 0 {
		point.ID = t.st.next("price_history")
	}
	cp := *point
	t.st.prices = append(t.st.prices, &cp)
	return nil
}

func (t *memTx) PriceHistorySince(_ context.Context, itemID int64, since time.Time) ([]*models.PriceHistory, error) {
	var out []*models.PriceHistory
	for _, p := range t.st.prices {
		if p.ItemID == itemID && !p.RecordedAt.Before(since) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].RecordedAt.Before(out[b].RecordedAt) })
	return out, nil
}

func (t *memTx) InsertAuditLog(_ context.Context, entry *models.AuditLog) error {
	if entry.ID == 0 {
		entry.ID = t.st.next("audit_logs")
	}
	ce := *entry
	t.st.audits = append(t.st.audits, &ce)
	return nil
}

// Test inspection helpers. These read committed state directly and take no
// part in transactions.

func (s *Store) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Transaction, len(s.st.transactions))
	for i, t := range s.st.transactions {
		out[i] = *t
	}
	return out
}

func (s *Store) Offer(id int64) (models.Offer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.offers[id]
	if !ok {
		return models.Offer{}, false
	}
	return *o, true
}

func (s *Store) Trade(id int64) (models.Trade, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.st.trades[id]
	if !ok {
		return models.Trade{}, false
	}
	return *t, true
}

// InventoryQuantity returns the committed quantity a player holds of an item,
// zero when no row exists.
func (s *Store) InventoryQuantity(playerID, itemID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.st.inventory {
		if inv.PlayerID == playerID && inv.ItemID == itemID {
			return inv.Quantity
		}
	}
	return 0
}

// HasInventoryRow reports whether an inventory row exists at all, regardless
// of quantity.
func (s *Store) HasInventoryRow(playerID, itemID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.st.inventory {
		if inv.PlayerID == playerID && inv.ItemID == itemID {
			return true
		}
	}
	return false
}

func (s *Store) PriceHistory() []models.PriceHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PriceHistory, len(s.st.prices))
	for i, p := range s.st.prices {
		out[i] = *p
	}
	return out
}

func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditLog, len(s.st.audits))
	for i, a := range s.st.audits {
		out[i] = *a
	}
	return out
}
