package exchange

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/runerogue/economy/economy/database/models"
	"github.com/runerogue/economy/economy/inventory"
	"github.com/runerogue/economy/economy/storage"
)

// matchOffer runs the matching sweep for a newly placed offer. The whole
// sweep executes in one transaction under the item's lock, so concurrent
// placements for the same item serialize and a mid-sweep failure rolls every
// fill back, leaving the offer active for a later attempt. Errors are logged,
// never returned: placement has already committed.
func (e *Exchange) matchOffer(ctx context.Context, offerID, itemID int64) {
	unlock := e.locks.lock(itemID)
	defer unlock()

	err := e.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return e.runMatching(ctx, tx, offerID)
	})
	if err != nil {
		slog.Error("Offer matching failed",
			slog.Int64("offer_id", offerID),
			slog.Int64("item_id", itemID),
			slog.Any("error", err))
	}
}

// runMatching fills the offer against resting opposite-side offers in
// price-time priority order until it is exhausted or no compatible candidate
// remains. Each fill executes at the resting offer's price.
func (e *Exchange) runMatching(ctx context.Context, tx storage.Tx, offerID int64) error {
	offer, err := tx.OfferByID(ctx, offerID, true)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if offer.Status != models.OfferActive {
		return nil
	}

	candidates, err := tx.CandidateOffers(ctx, offer.ItemID, offer.Side.Opposite(), offer.PricePerItem, offer.PlayerID)
	if err != nil {
		return err
	}

	for _, candidate := range candidates {
		if offer.QuantityRemaining <= 0 {
			break
		}

		matched := min(offer.QuantityRemaining, candidate.QuantityRemaining)
		price := candidate.PricePerItem // resting offer arrived first and keeps its price

		buyOffer, sellOffer := offer, candidate
		if offer.Side == models.OfferSell {
			buyOffer, sellOffer = candidate, offer
		}

		if err := inventory.Transfer(ctx, tx, sellOffer.PlayerID, buyOffer.PlayerID, offer.ItemID, matched); err != nil {
			return err
		}

		now := e.now()
		if err := tx.InsertTransaction(ctx, &models.Transaction{
			OfferID:      buyOffer.ID,
			BuyerID:      buyOffer.PlayerID,
			SellerID:     sellOffer.PlayerID,
			ItemID:       offer.ItemID,
			Quantity:     matched,
			PricePerItem: price,
			TotalPrice:   price.Mul(decimal.NewFromInt(matched)),
			CompletedAt:  now,
		}); err != nil {
			return err
		}

		offer.QuantityRemaining -= matched
		candidate.QuantityRemaining -= matched
		if offer.QuantityRemaining == 0 {
			offer.Status = models.OfferCompleted
			offer.CompletedAt = now
		}
		if candidate.QuantityRemaining == 0 {
			candidate.Status = models.OfferCompleted
			candidate.CompletedAt = now
		}
		if err := tx.UpdateOffer(ctx, offer); err != nil {
			return err
		}
		if err := tx.UpdateOffer(ctx, candidate); err != nil {
			return err
		}

		if err := tx.InsertPriceHistory(ctx, &models.PriceHistory{
			ItemID:     offer.ItemID,
			Price:      price,
			Volume:     matched,
			RecordedAt: now,
			Source:     models.PriceSourceExchange,
		}); err != nil {
			return err
		}

		slog.Info("GE transaction executed",
			slog.Int64("item_id", offer.ItemID),
			slog.Int64("quantity", matched),
			slog.Int64("seller_id", sellOffer.PlayerID),
			slog.Int64("buyer_id", buyOffer.PlayerID),
			slog.String("price", price.String()))
	}

	return nil
}
