// Package trading implements direct player-to-player trade sessions: a
// two-party, multi-item barter negotiation independent of the offer book.
// A trade moves PENDING -> COMPLETED or PENDING -> DECLINED and never leaves
// a terminal state. Unlike offers, pending trades do not expire.
package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/runerogue/economy/economy/database/models"
	"github.com/runerogue/economy/economy/inventory"
	"github.com/runerogue/economy/economy/storage"
)

// System is the trade session service. Construct with New and share one
// instance across callers; all methods are safe for concurrent use.
type System struct {
	store storage.Store
	now   func() time.Time
}

func New(store storage.Store) *System {
	return &System{store: store, now: time.Now}
}

// PlayerRef identifies one trade participant.
type PlayerRef struct {
	ID       int64
	Username string
}

// TradeSummary is returned after trade mutations.
type TradeSummary struct {
	TradeID     int64
	TradeRef    string
	Status      models.TradeStatus
	Initiator   PlayerRef
	Receiver    PlayerRef
	InitiatedAt time.Time
	CompletedAt time.Time
	CancelledAt time.Time
	Notes       string
}

// TradeItemView is one line of a trade with its item name resolved.
type TradeItemView struct {
	ItemID       int64
	ItemName     string
	Quantity     int64
	FromPlayerID int64
	ToPlayerID   int64
}

// TradeDetails is the full view of one trade.
type TradeDetails struct {
	TradeSummary
	Items []TradeItemView
}

// TradeListEntry is one row of a player's trade listing.
type TradeListEntry struct {
	TradeID     int64
	Status      models.TradeStatus
	OtherPlayer PlayerRef
	InitiatedAt time.Time
	IsInitiator bool
}

// InitiateTrade opens a PENDING trade between two distinct, active players.
// At most one pending trade may exist per unordered player pair.
func (s *System) InitiateTrade(ctx context.Context, initiatorID, receiverID int64, notes string) (*TradeSummary, error) {
	if initiatorID == receiverID {
		return nil, invalidTradef("cannot trade with yourself")
	}

	var summary *TradeSummary
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		initiator, err := tx.PlayerByID(ctx, initiatorID)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && !initiator.IsActive) {
			return invalidTradef("initiator not found or inactive")
		}
		if err != nil {
			return err
		}
		receiver, err := tx.PlayerByID(ctx, receiverID)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && !receiver.IsActive) {
			return invalidTradef("receiver not found or inactive")
		}
		if err != nil {
			return err
		}

		pending, err := tx.HasPendingTradeBetween(ctx, initiatorID, receiverID)
		if err != nil {
			return err
		}
		if pending {
			return invalidTradef("pending trade already exists between these players")
		}

		now := s.now()
		trade := &models.Trade{
			TradeRef:    uuid.NewString(),
			InitiatorID: initiatorID,
			ReceiverID:  receiverID,
			Status:      models.TradePending,
			InitiatedAt: now,
			Notes:       notes,
		}
		if err := tx.InsertTrade(ctx, trade); err != nil {
			return err
		}

		if err := tx.InsertAuditLog(ctx, &models.AuditLog{
			PlayerID:  initiatorID,
			TradeID:   trade.ID,
			Action:    models.AuditTradeInitiated,
			Details:   fmt.Sprintf("Trade initiated with player %d", receiverID),
			CreatedAt: now,
		}); err != nil {
			return err
		}

		summary = &TradeSummary{
			TradeID:     trade.ID,
			TradeRef:    trade.TradeRef,
			Status:      trade.Status,
			Initiator:   PlayerRef{ID: initiator.ID, Username: initiator.Username},
			Receiver:    PlayerRef{ID: receiver.ID, Username: receiver.Username},
			InitiatedAt: trade.InitiatedAt,
			Notes:       trade.Notes,
		}
		return nil
	})
	if err != nil {
		var invalid *InvalidTradeError
		if errors.As(err, &invalid) {
			return nil, err
		}
		slog.Error("Failed to initiate trade",
			slog.Int64("initiator_id", initiatorID),
			slog.Int64("receiver_id", receiverID),
			slog.Any("error", err))
		return nil, &TradingError{Op: "initiate trade", Err: err}
	}

	slog.Info("Trade initiated",
		slog.Int64("trade_id", summary.TradeID),
		slog.Int64("initiator_id", initiatorID),
		slog.Int64("receiver_id", receiverID))
	return summary, nil
}

// AddItemToTrade stages quantity of an item from a participant while the
// trade is pending. The quantity is validated against current holdings but
// not reserved; acceptance re-validates. Each (trade, item, from player)
// combination may be added once.
func (s *System) AddItemToTrade(ctx context.Context, tradeID, playerID, itemID, quantity int64) (*TradeDetails, error) {
	if quantity <= 0 {
		return nil, invalidTradef("quantity must be positive")
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		trade, err := tx.TradeByID(ctx, tradeID, true)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && trade.Status != models.TradePending) {
			return invalidTradef("trade not found or not pending")
		}
		if err != nil {
			return err
		}
		if !trade.Participant(playerID) {
			return invalidTradef("player not part of this trade")
		}

		item, err := tx.ItemByID(ctx, itemID)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && !item.IsTradeable) {
			return invalidTradef("item not found or not tradeable")
		}
		if err != nil {
			return err
		}

		var have int64
		inv, err := tx.InventoryItem(ctx, playerID, itemID, false)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if err == nil {
			have = inv.Quantity
		}
		if have < quantity {
			return &InsufficientItemsError{PlayerID: playerID, ItemID: itemID, Need: quantity, Have: have}
		}

		exists, err := tx.HasTradeItem(ctx, tradeID, itemID, playerID)
		if err != nil {
			return err
		}
		if exists {
			return invalidTradef("item already added to trade")
		}

		if err := tx.InsertTradeItem(ctx, &models.TradeItem{
			TradeID:      tradeID,
			ItemID:       itemID,
			Quantity:     quantity,
			FromPlayerID: playerID,
			ToPlayerID:   trade.OtherParty(playerID),
		}); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, &models.AuditLog{
			PlayerID:  playerID,
			TradeID:   tradeID,
			Action:    models.AuditTradeItemAdded,
			Details:   fmt.Sprintf("Added %d %s to trade", quantity, item.Name),
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		slog.Error("Failed to add item to trade",
			slog.Int64("trade_id", tradeID),
			slog.Int64("player_id", playerID),
			slog.Any("error", err))
		return nil, &TradingError{Op: "add item to trade", Err: err}
	}

	return s.GetTradeDetails(ctx, tradeID)
}

// AcceptTrade completes a pending trade. Only the receiver may accept, the
// trade must carry at least one item, and every line is re-validated against
// current holdings before anything moves. On a shortfall nothing transfers
// and the trade stays pending.
func (s *System) AcceptTrade(ctx context.Context, tradeID, playerID int64) (*TradeSummary, error) {
	var completedAt time.Time
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		trade, err := tx.TradeByID(ctx, tradeID, true)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && trade.Status != models.TradePending) {
			return invalidTradef("trade not found or not pending")
		}
		if err != nil {
			return err
		}
		if playerID != trade.ReceiverID {
			return invalidTradef("only the receiver can accept the trade")
		}

		items, err := tx.TradeItems(ctx, tradeID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return invalidTradef("no items in trade")
		}

		for _, ti := range items {
			var have int64
			inv, err := tx.InventoryItem(ctx, ti.FromPlayerID, ti.ItemID, true)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			if err == nil {
				have = inv.Quantity
			}
			if have < ti.Quantity {
				return &InsufficientItemsError{PlayerID: ti.FromPlayerID, ItemID: ti.ItemID, Need: ti.Quantity, Have: have}
			}
		}

		for _, ti := range items {
			if err := inventory.Transfer(ctx, tx, ti.FromPlayerID, ti.ToPlayerID, ti.ItemID, ti.Quantity); err != nil {
				return err
			}
		}

		completedAt = s.now()
		trade.Status = models.TradeCompleted
		trade.CompletedAt = completedAt
		if err := tx.UpdateTrade(ctx, trade); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, &models.AuditLog{
			PlayerID:  playerID,
			TradeID:   tradeID,
			Action:    models.AuditTradeAccepted,
			Details:   "Trade completed successfully",
			CreatedAt: completedAt,
		})
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		slog.Error("Failed to accept trade",
			slog.Int64("trade_id", tradeID),
			slog.Int64("player_id", playerID),
			slog.Any("error", err))
		return nil, &TradingError{Op: "accept trade", Err: err}
	}

	slog.Info("Trade completed",
		slog.Int64("trade_id", tradeID),
		slog.Int64("accepted_by", playerID))
	return &TradeSummary{TradeID: tradeID, Status: models.TradeCompleted, CompletedAt: completedAt}, nil
}

// DeclineTrade moves a pending trade to DECLINED. Either participant may
// decline; no inventory changes.
func (s *System) DeclineTrade(ctx context.Context, tradeID, playerID int64) (*TradeSummary, error) {
	var cancelledAt time.Time
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		trade, err := tx.TradeByID(ctx, tradeID, true)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && trade.Status != models.TradePending) {
			return invalidTradef("trade not found or not pending")
		}
		if err != nil {
			return err
		}
		if !trade.Participant(playerID) {
			return invalidTradef("player not part of this trade")
		}

		cancelledAt = s.now()
		trade.Status = models.TradeDeclined
		trade.CancelledAt = cancelledAt
		if err := tx.UpdateTrade(ctx, trade); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, &models.AuditLog{
			PlayerID:  playerID,
			TradeID:   tradeID,
			Action:    models.AuditTradeDeclined,
			Details:   "Trade declined",
			CreatedAt: cancelledAt,
		})
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		slog.Error("Failed to decline trade",
			slog.Int64("trade_id", tradeID),
			slog.Int64("player_id", playerID),
			slog.Any("error", err))
		return nil, &TradingError{Op: "decline trade", Err: err}
	}

	slog.Info("Trade declined",
		slog.Int64("trade_id", tradeID),
		slog.Int64("declined_by", playerID))
	return &TradeSummary{TradeID: tradeID, Status: models.TradeDeclined, CancelledAt: cancelledAt}, nil
}

// GetTradeDetails returns the full view of a trade, including staged items.
// Pure query, no side effects.
func (s *System) GetTradeDetails(ctx context.Context, tradeID int64) (*TradeDetails, error) {
	var details *TradeDetails
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		trade, err := tx.TradeByID(ctx, tradeID, false)
		if errors.Is(err, storage.ErrNotFound) {
			return invalidTradef("trade not found")
		}
		if err != nil {
			return err
		}
		initiator, err := tx.PlayerByID(ctx, trade.InitiatorID)
		if err != nil {
			return err
		}
		receiver, err := tx.PlayerByID(ctx, trade.ReceiverID)
		if err != nil {
			return err
		}
		items, err := tx.TradeItems(ctx, tradeID)
		if err != nil {
			return err
		}

		details = &TradeDetails{
			TradeSummary: TradeSummary{
				TradeID:     trade.ID,
				TradeRef:    trade.TradeRef,
				Status:      trade.Status,
				Initiator:   PlayerRef{ID: initiator.ID, Username: initiator.Username},
				Receiver:    PlayerRef{ID: receiver.ID, Username: receiver.Username},
				InitiatedAt: trade.InitiatedAt,
				CompletedAt: trade.CompletedAt,
				CancelledAt: trade.CancelledAt,
				Notes:       trade.Notes,
			},
		}
		names := make(map[int64]string)
		for _, ti := range items {
			name, ok := names[ti.ItemID]
			if !ok {
				item, err := tx.ItemByID(ctx, ti.ItemID)
				if err != nil {
					return err
				}
				name = item.Name
				names[ti.ItemID] = name
			}
			details.Items = append(details.Items, TradeItemView{
				ItemID:       ti.ItemID,
				ItemName:     name,
				Quantity:     ti.Quantity,
				FromPlayerID: ti.FromPlayerID,
				ToPlayerID:   ti.ToPlayerID,
			})
		}
		return nil
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		return nil, &TradingError{Op: "get trade details", Err: err}
	}
	return details, nil
}

// GetPlayerTrades lists trades the player participates in, newest first. A
// non-empty status filters to that status. Pure query, no side effects.
func (s *System) GetPlayerTrades(ctx context.Context, playerID int64, status models.TradeStatus) ([]TradeListEntry, error) {
	var entries []TradeListEntry
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		trades, err := tx.TradesByPlayer(ctx, playerID, status)
		if err != nil {
			return err
		}
		players := make(map[int64]*models.Player)
		for _, trade := range trades {
			otherID := trade.OtherParty(playerID)
			other, ok := players[otherID]
			if !ok {
				other, err = tx.PlayerByID(ctx, otherID)
				if err != nil {
					return err
				}
				players[otherID] = other
			}
			entries = append(entries, TradeListEntry{
				TradeID:     trade.ID,
				Status:      trade.Status,
				OtherPlayer: PlayerRef{ID: other.ID, Username: other.Username},
				InitiatedAt: trade.InitiatedAt,
				IsInitiator: trade.InitiatorID == playerID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &TradingError{Op: "get player trades", Err: err}
	}
	return entries, nil
}

// isDomainErr reports whether err carries one of the typed trade errors that
// should surface to callers unwrapped.
func isDomainErr(err error) bool {
	var invalid *InvalidTradeError
	var short *InsufficientItemsError
	return errors.As(err, &invalid) || errors.As(err, &short)
}
