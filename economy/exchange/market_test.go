package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/runerogue/economy/economy/database/models"
	"github.com/runerogue/economy/economy/storage"
)

func (f *fixture) seedPricePoint(t *testing.T, itemID int64, p string, volume int64, at time.Time) {
	t.Helper()
	f.seed(t, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertPriceHistory(ctx, &models.PriceHistory{
			ItemID:     itemID,
			Price:      price(p),
			Volume:     volume,
			RecordedAt: at,
			Source:     models.PriceSourceExchange,
		})
	})
}

func TestGetItemMarketData(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, 1, "buyer1", true)
	f.seedPlayer(t, 2, "buyer2", true)
	f.seedPlayer(t, 3, "seller1", true)
	f.seedPlayer(t, 4, "seller2", true)
	f.seedItem(t, 1, "Rune Platebody", true)
	f.seedInventory(t, 3, 1, 1)
	f.seedInventory(t, 4, 1, 4)
	ctx := context.Background()

	// Non-crossing book: bids 6 and 5, asks 7 and 8.
	if _, err := f.ex.PlaceBuyOffer(ctx, 1, 1, 2, price("6")); err != nil {
		t.Fatalf("PlaceBuyOffer() error = %v", err)
	}
	if _, err := f.ex.PlaceBuyOffer(ctx, 2, 1, 3, price("5")); err != nil {
		t.Fatalf("PlaceBuyOffer() error = %v", err)
	}
	if _, err := f.ex.PlaceSellOffer(ctx, 3, 1, 1, price("7")); err != nil {
		t.Fatalf("PlaceSellOffer() error = %v", err)
	}
	if _, err := f.ex.PlaceSellOffer(ctx, 4, 1, 4, price("8")); err != nil {
		t.Fatalf("PlaceSellOffer() error = %v", err)
	}

	// One point outside the 7-day window, two inside.
	f.seedPricePoint(t, 1, "4", 10, f.clock.Add(-8*24*time.Hour))
	f.seedPricePoint(t, 1, "5", 3, f.clock.Add(-2*24*time.Hour))
	f.seedPricePoint(t, 1, "6", 2, f.clock.Add(-time.Hour))

	data, err := f.ex.GetItemMarketData(ctx, 1)
	if err != nil {
		t.Fatalf("GetItemMarketData() error = %v", err)
	}

	if data.ItemName != "Rune Platebody" {
		t.Errorf("item name = %q, want %q", data.ItemName, "Rune Platebody")
	}
	if data.HighestBuyOffer == nil || !data.HighestBuyOffer.Equal(price("6")) {
		t.Errorf("highest buy offer = %v, want 6", data.HighestBuyOffer)
	}
	if data.LowestSellOffer == nil || !data.LowestSellOffer.Equal(price("7")) {
		t.Errorf("lowest sell offer = %v, want 7", data.LowestSellOffer)
	}
	if len(data.BuyOffers) != 2 || !data.BuyOffers[0].Price.Equal(price("6")) || data.BuyOffers[0].Quantity != 2 {
		t.Errorf("buy depth = %+v, want best bid 6 x2 first", data.BuyOffers)
	}
	if len(data.SellOffers) != 2 || !data.SellOffers[0].Price.Equal(price("7")) || data.SellOffers[0].Quantity != 1 {
		t.Errorf("sell depth = %+v, want best ask 7 x1 first", data.SellOffers)
	}

	if !data.LatestPrice.Equal(price("6")) {
		t.Errorf("latest price = %s, want 6", data.LatestPrice)
	}
	if !data.AveragePrice.Equal(price("5.5")) {
		t.Errorf("average price = %s, want 5.5 over the window", data.AveragePrice)
	}
	if data.TotalVolume != 5 {
		t.Errorf("total volume = %d, want 5", data.TotalVolume)
	}
}

func TestGetItemMarketDataEmpty(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, 1, "Burnt Bread", true)

	data, err := f.ex.GetItemMarketData(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetItemMarketData() error = %v", err)
	}
	if data.HighestBuyOffer != nil || data.LowestSellOffer != nil {
		t.Errorf("empty book quotes = %v/%v, want nil/nil", data.HighestBuyOffer, data.LowestSellOffer)
	}
	if !data.LatestPrice.IsZero() || !data.AveragePrice.IsZero() || data.TotalVolume != 0 {
		t.Errorf("empty history stats = %s/%s/%d, want zeros",
			data.LatestPrice, data.AveragePrice, data.TotalVolume)
	}
}

func TestGetItemMarketDataUnknownItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.ex.GetItemMarketData(context.Background(), 42)
	var invalid *InvalidOfferError
	if !errors.As(err, &invalid) {
		t.Errorf("GetItemMarketData() error = %v, want InvalidOfferError", err)
	}
}

func TestMarketDataCache(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, 1, "Air Rune", true)
	ctx := context.Background()

	first, err := f.ex.GetItemMarketData(ctx, 1)
	if err != nil {
		t.Fatalf("GetItemMarketData() error = %v", err)
	}
	if first.TotalVolume != 0 {
		t.Fatalf("initial volume = %d, want 0", first.TotalVolume)
	}

	f.seedPricePoint(t, 1, "1", 100, f.clock)

	// Within the TTL the cached snapshot is served as-is.
	cached, err := f.ex.GetItemMarketData(ctx, 1)
	if err != nil {
		t.Fatalf("GetItemMarketData() error = %v", err)
	}
	if cached.TotalVolume != 0 {
		t.Errorf("cached volume = %d, want stale 0", cached.TotalVolume)
	}

	f.advance(time.Minute)
	fresh, err := f.ex.GetItemMarketData(ctx, 1)
	if err != nil {
		t.Fatalf("GetItemMarketData() error = %v", err)
	}
	if fresh.TotalVolume != 100 {
		t.Errorf("recomputed volume = %d, want 100", fresh.TotalVolume)
	}
}

func TestGetPriceHistory(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, 1, "Swordfish", true)
	ctx := context.Background()

	f.seedPricePoint(t, 1, "10", 1, f.clock.Add(-40*24*time.Hour))
	f.seedPricePoint(t, 1, "12", 2, f.clock.Add(-3*24*time.Hour))
	f.seedPricePoint(t, 1, "11", 4, f.clock.Add(-time.Hour))

	points, err := f.ex.GetPriceHistory(ctx, 1, 30)
	if err != nil {
		t.Fatalf("GetPriceHistory() error = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points in 30-day window, want 2", len(points))
	}
	if !points[0].Price.Equal(price("12")) || !points[1].Price.Equal(price("11")) {
		t.Errorf("points = %s then %s, want oldest first 12 then 11", points[0].Price, points[1].Price)
	}

	all, err := f.ex.GetPriceHistory(ctx, 1, 60)
	if err != nil {
		t.Fatalf("GetPriceHistory() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d points in 60-day window, want 3", len(all))
	}
}
