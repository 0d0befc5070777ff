// Package exchange implements the Grand Exchange: an automated marketplace
// with an offer book, synchronous price-time matching, and read-side market
// data. All state lives behind a storage.Store; the service itself holds no
// player or item data.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/runerogue/economy/economy/database/models"
	"github.com/runerogue/economy/economy/storage"
)

const (
	// Offers expire 48 hours after placement, enforced by an external sweep.
	defaultOfferTTL = 48 * time.Hour

	defaultMarketCacheSize = 1024
	defaultMarketCacheTTL  = 30 * time.Second
)

// Exchange is the Grand Exchange service. Construct with New and share one
// instance across callers; all methods are safe for concurrent use.
type Exchange struct {
	store    storage.Store
	locks    itemLocks
	offerTTL time.Duration

	marketCache *lru.Cache
	marketTTL   time.Duration
	marketGroup singleflight.Group

	now func() time.Time
}

// Option customizes an Exchange at construction time.
type Option func(*Exchange)

// WithOfferTTL overrides how long offers stay active before the expiry
// sweep claims them.
func WithOfferTTL(ttl time.Duration) Option {
	return func(e *Exchange) {
		if ttl > 0 {
			e.offerTTL = ttl
		}
	}
}

func New(store storage.Store, opts ...Option) *Exchange {
	cache, _ := lru.New(defaultMarketCacheSize)
	e := &Exchange{
		store:       store,
		offerTTL:    defaultOfferTTL,
		marketCache: cache,
		marketTTL:   defaultMarketCacheTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OfferSummary is returned to callers after offer mutations. Remaining
// quantity reflects any inline matching that ran during placement.
type OfferSummary struct {
	OfferID           int64
	ItemID            int64
	ItemName          string
	Side              models.OfferSide
	Status            models.OfferStatus
	Quantity          int64
	QuantityRemaining int64
	PricePerItem      decimal.Decimal
	TotalValue        decimal.Decimal
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// PlaceBuyOffer places an offer to buy quantity of itemID at up to
// pricePerItem each, then immediately attempts to match it against resting
// sell offers.
func (e *Exchange) PlaceBuyOffer(ctx context.Context, playerID, itemID, quantity int64, pricePerItem decimal.Decimal) (*OfferSummary, error) {
	return e.placeOffer(ctx, playerID, itemID, quantity, pricePerItem, models.OfferBuy)
}

// PlaceSellOffer places an offer to sell quantity of itemID at no less than
// pricePerItem each. The seller must hold the quantity at placement time, but
// it is not reserved; matches re-validate at execution.
func (e *Exchange) PlaceSellOffer(ctx context.Context, playerID, itemID, quantity int64, pricePerItem decimal.Decimal) (*OfferSummary, error) {
	return e.placeOffer(ctx, playerID, itemID, quantity, pricePerItem, models.OfferSell)
}

func (e *Exchange) placeOffer(ctx context.Context, playerID, itemID, quantity int64, pricePerItem decimal.Decimal, side models.OfferSide) (*OfferSummary, error) {
	if quantity <= 0 {
		return nil, invalidOfferf("quantity must be positive")
	}
	if !pricePerItem.IsPositive() {
		return nil, invalidOfferf("price must be positive")
	}

	var (
		offer *models.Offer
		item  *models.Item
	)
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		player, err := tx.PlayerByID(ctx, playerID)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && !player.IsActive) {
			return invalidOfferf("player not found or inactive")
		}
		if err != nil {
			return err
		}

		item, err = tx.ItemByID(ctx, itemID)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && !item.IsTradeable) {
			return invalidOfferf("item not found or not tradeable")
		}
		if err != nil {
			return err
		}

		if side == models.OfferSell {
			var have int64
			inv, err := tx.InventoryItem(ctx, playerID, itemID, false)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			if err == nil {
				have = inv.Quantity
			}
			if have < quantity {
				return invalidOfferf("insufficient %s to sell (need %d, have %d)", item.Name, quantity, have)
			}
		}

		now := e.now()
		offer = &models.Offer{
			PlayerID:          playerID,
			ItemID:            itemID,
			Side:              side,
			Quantity:          quantity,
			QuantityRemaining: quantity,
			PricePerItem:      pricePerItem,
			Status:            models.OfferActive,
			CreatedAt:         now,
			ExpiresAt:         now.Add(e.offerTTL),
		}
		if err := tx.InsertOffer(ctx, offer); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, &models.AuditLog{
			PlayerID:  playerID,
			Action:    models.AuditOfferPlaced,
			Details:   fmt.Sprintf("Placed %s offer for %d %s at %s each", side, quantity, item.Name, pricePerItem),
			CreatedAt: now,
		})
	})
	if err != nil {
		var invalid *InvalidOfferError
		if errors.As(err, &invalid) {
			return nil, err
		}
		slog.Error("Failed to place offer",
			slog.Int64("player_id", playerID),
			slog.Int64("item_id", itemID),
			slog.String("side", string(side)),
			slog.Any("error", err))
		return nil, &ExchangeError{Op: "place offer", Err: err}
	}

	slog.Info("Offer placed",
		slog.Int64("offer_id", offer.ID),
		slog.Int64("player_id", playerID),
		slog.String("side", string(side)),
		slog.Int64("quantity", quantity),
		slog.String("item", item.Name))

	// Matching is best-effort: a failure here leaves the offer persisted and
	// active, eligible for a future match attempt.
	e.matchOffer(ctx, offer.ID, itemID)

	// Reload so the summary reflects fills executed inline.
	if current, ok := e.reloadOffer(ctx, offer.ID); ok {
		offer = current
	}
	return e.summarize(offer, item), nil
}

func (e *Exchange) reloadOffer(ctx context.Context, offerID int64) (*models.Offer, bool) {
	var offer *models.Offer
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		offer, err = tx.OfferByID(ctx, offerID, false)
		return err
	})
	if err != nil {
		slog.Error("Failed to reload offer after matching",
			slog.Int64("offer_id", offerID),
			slog.Any("error", err))
		return nil, false
	}
	return offer, true
}

func (e *Exchange) summarize(offer *models.Offer, item *models.Item) *OfferSummary {
	return &OfferSummary{
		OfferID:           offer.ID,
		ItemID:            offer.ItemID,
		ItemName:          item.Name,
		Side:              offer.Side,
		Status:            offer.Status,
		Quantity:          offer.Quantity,
		QuantityRemaining: offer.QuantityRemaining,
		PricePerItem:      offer.PricePerItem,
		TotalValue:        offer.PricePerItem.Mul(decimal.NewFromInt(offer.Quantity)),
		CreatedAt:         offer.CreatedAt,
		ExpiresAt:         offer.ExpiresAt,
	}
}

// CancelOffer cancels an active offer. Only the owning player may cancel, and
// only while the offer is active; fills already executed are not reversed.
func (e *Exchange) CancelOffer(ctx context.Context, offerID, playerID int64) (*OfferSummary, error) {
	var (
		offer *models.Offer
		item  *models.Item
	)
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		offer, err = tx.OfferByID(ctx, offerID, true)
		if errors.Is(err, storage.ErrNotFound) {
			return invalidOfferf("offer not found or cannot be cancelled")
		}
		if err != nil {
			return err
		}
		if offer.PlayerID != playerID || offer.Status != models.OfferActive {
			return invalidOfferf("offer not found or cannot be cancelled")
		}

		now := e.now()
		offer.Status = models.OfferCancelled
		offer.CompletedAt = now
		if err := tx.UpdateOffer(ctx, offer); err != nil {
			return err
		}

		item, err = tx.ItemByID(ctx, offer.ItemID)
		if err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, &models.AuditLog{
			PlayerID:  playerID,
			Action:    models.AuditOfferCancelled,
			Details:   fmt.Sprintf("Cancelled offer %d", offerID),
			CreatedAt: now,
		})
	})
	if err != nil {
		var invalid *InvalidOfferError
		if errors.As(err, &invalid) {
			return nil, err
		}
		slog.Error("Failed to cancel offer",
			slog.Int64("offer_id", offerID),
			slog.Int64("player_id", playerID),
			slog.Any("error", err))
		return nil, &ExchangeError{Op: "cancel offer", Err: err}
	}

	slog.Info("Offer cancelled",
		slog.Int64("offer_id", offerID),
		slog.Int64("player_id", playerID))
	return e.summarize(offer, item), nil
}

// ExpireOldOffers transitions every active offer past its expiry to expired
// and returns the count. Invoked by an external scheduler; the engine owns no
// timer of its own.
func (e *Exchange) ExpireOldOffers(ctx context.Context) (int, error) {
	var n int64
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		n, err = tx.ExpireOffers(ctx, e.now())
		return err
	})
	if err != nil {
		slog.Error("Failed to expire offers", slog.Any("error", err))
		return 0, &ExchangeError{Op: "expire offers", Err: err}
	}
	if n > 0 {
		slog.Info("Expired offers", slog.Int64("count", n))
	}
	return int(n), nil
}

// GetPlayerOffers returns a player's offers newest first. A non-empty status
// filters to that status.
func (e *Exchange) GetPlayerOffers(ctx context.Context, playerID int64, status models.OfferStatus) ([]*OfferSummary, error) {
	var summaries []*OfferSummary
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		offers, err := tx.OffersByPlayer(ctx, playerID, status)
		if err != nil {
			return err
		}
		items := make(map[int64]*models.Item)
		for _, offer := range offers {
			item, ok := items[offer.ItemID]
			if !ok {
				item, err = tx.ItemByID(ctx, offer.ItemID)
				if err != nil {
					return err
				}
				items[offer.ItemID] = item
			}
			summaries = append(summaries, e.summarize(offer, item))
		}
		return nil
	})
	if err != nil {
		return nil, &ExchangeError{Op: "get player offers", Err: err}
	}
	return summaries, nil
}
