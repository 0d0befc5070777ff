package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/runerogue/economy/economy/database/models"
	"github.com/runerogue/economy/economy/storage"
)

// Recent statistics aggregate over this window of price history.
const marketStatsWindow = 7 * 24 * time.Hour

// Depth reported per side of the book.
const marketDepth = 5

// MarketQuote is one resting offer's price level.
type MarketQuote struct {
	Price    decimal.Decimal
	Quantity int64
}

// MarketData is the read-side view of one item's market.
type MarketData struct {
	ItemID   int64
	ItemName string

	LatestPrice  decimal.Decimal
	AveragePrice decimal.Decimal
	TotalVolume  int64

	HighestBuyOffer *decimal.Decimal // nil when no active buy offers
	LowestSellOffer *decimal.Decimal // nil when no active sell offers
	BuyOffers       []MarketQuote
	SellOffers      []MarketQuote
}

// PricePoint is one entry of an item's price history.
type PricePoint struct {
	Price      decimal.Decimal
	Volume     int64
	RecordedAt time.Time
}

type cachedMarket struct {
	data *MarketData
	at   time.Time
}

// GetItemMarketData returns best bid/ask, book depth, and 7-day price/volume
// statistics for an item. Snapshots are cached briefly and recomputed behind
// a singleflight group, so a burst of readers costs one store round trip.
func (e *Exchange) GetItemMarketData(ctx context.Context, itemID int64) (*MarketData, error) {
	key := fmt.Sprintf("market:%d", itemID)
	if v, ok := e.marketCache.Get(key); ok {
		cached := v.(cachedMarket)
		if e.now().Sub(cached.at) < e.marketTTL {
			return cached.data, nil
		}
	}

	v, err, _ := e.marketGroup.Do(key, func() (any, error) {
		data, err := e.computeMarketData(ctx, itemID)
		if err != nil {
			return nil, err
		}
		e.marketCache.Add(key, cachedMarket{data: data, at: e.now()})
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*MarketData), nil
}

func (e *Exchange) computeMarketData(ctx context.Context, itemID int64) (*MarketData, error) {
	var data *MarketData
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		item, err := tx.ItemByID(ctx, itemID)
		if errors.Is(err, storage.ErrNotFound) {
			return invalidOfferf("item not found")
		}
		if err != nil {
			return err
		}

		buys, err := tx.ActiveOffersByItem(ctx, itemID, models.OfferBuy, marketDepth)
		if err != nil {
			return err
		}
		sells, err := tx.ActiveOffersByItem(ctx, itemID, models.OfferSell, marketDepth)
		if err != nil {
			return err
		}
		history, err := tx.PriceHistorySince(ctx, itemID, e.now().Add(-marketStatsWindow))
		if err != nil {
			return err
		}

		data = &MarketData{ItemID: itemID, ItemName: item.Name}
		if len(buys) > 0 {
			best := buys[0].PricePerItem
			data.HighestBuyOffer = &best
		}
		if len(sells) > 0 {
			best := sells[0].PricePerItem
			data.LowestSellOffer = &best
		}
		for _, o := range buys {
			data.BuyOffers = append(data.BuyOffers, MarketQuote{Price: o.PricePerItem, Quantity: o.QuantityRemaining})
		}
		for _, o := range sells {
			data.SellOffers = append(data.SellOffers, MarketQuote{Price: o.PricePerItem, Quantity: o.QuantityRemaining})
		}

		if len(history) > 0 {
			sum := decimal.Zero
			for _, p := range history {
				sum = sum.Add(p.Price)
				data.TotalVolume += p.Volume
			}
			data.LatestPrice = history[len(history)-1].Price
			data.AveragePrice = sum.Div(decimal.NewFromInt(int64(len(history)))).Round(2)
		}
		return nil
	})
	if err != nil {
		var invalid *InvalidOfferError
		if errors.As(err, &invalid) {
			return nil, err
		}
		return nil, &ExchangeError{Op: "get market data", Err: err}
	}
	return data, nil
}

// GetPriceHistory returns an item's price points within the last days days,
// oldest first.
func (e *Exchange) GetPriceHistory(ctx context.Context, itemID int64, days int) ([]PricePoint, error) {
	since := e.now().AddDate(0, 0, -days)
	var points []PricePoint
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		history, err := tx.PriceHistorySince(ctx, itemID, since)
		if err != nil {
			return err
		}
		for _, p := range history {
			points = append(points, PricePoint{Price: p.Price, Volume: p.Volume, RecordedAt: p.RecordedAt})
		}
		return nil
	})
	if err != nil {
		return nil, &ExchangeError{Op: "get price history", Err: err}
	}
	return points, nil
}
