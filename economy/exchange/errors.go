package exchange

import "fmt"

// InvalidOfferError reports a rejected offer operation: bad parameters, an
// unknown or non-tradeable item, an unknown or inactive player, insufficient
// items to sell, or an offer that is missing, not owned, or not cancellable.
type InvalidOfferError struct {
	Reason string
}

func (e *InvalidOfferError) Error() string {
	return "invalid offer: " + e.Reason
}

func invalidOfferf(format string, args ...any) *InvalidOfferError {
	return &InvalidOfferError{Reason: fmt.Sprintf(format, args...)}
}

// InsufficientFundsError is declared for future gold-balance checks. The
// engine moves items but keeps no currency ledger, so nothing returns it yet.
type InsufficientFundsError struct {
	PlayerID int64
	Reason   string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for player %d: %s", e.PlayerID, e.Reason)
}

// ExchangeError wraps unexpected store failures. The in-flight operation has
// been rolled back when one is returned.
type ExchangeError struct {
	Op  string
	Err error
}

func (e *ExchangeError) Error() string {
	return "grand exchange: " + e.Op + ": " + e.Err.Error()
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}
