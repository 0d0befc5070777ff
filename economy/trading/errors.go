package trading

import "fmt"

// InvalidTradeError reports a rejected trade operation: self-trade, a missing
// trade, a wrong participant acting, a trade not in the required state, or a
// duplicate trade-item entry.
type InvalidTradeError struct {
	Reason string
}

func (e *InvalidTradeError) Error() string {
	return "invalid trade: " + e.Reason
}

func invalidTradef(format string, args ...any) *InvalidTradeError {
	return &InvalidTradeError{Reason: fmt.Sprintf(format, args...)}
}

// InsufficientItemsError reports that a player no longer holds the quantity a
// trade requires, either when adding an item or at acceptance time.
type InsufficientItemsError struct {
	PlayerID int64
	ItemID   int64
	Need     int64
	Have     int64
}

func (e *InsufficientItemsError) Error() string {
	return fmt.Sprintf("player %d has insufficient quantity of item %d (need %d, have %d)",
		e.PlayerID, e.ItemID, e.Need, e.Have)
}

// TradingError wraps unexpected store failures. The in-flight operation has
// been rolled back when one is returned.
type TradingError struct {
	Op  string
	Err error
}

func (e *TradingError) Error() string {
	return "trading: " + e.Op + ": " + e.Err.Error()
}

func (e *TradingError) Unwrap() error {
	return e.Err
}
