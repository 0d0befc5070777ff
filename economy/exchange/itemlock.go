package exchange

import "sync"

// itemLocks serializes matching per item id so two concurrently placed offers
// for the same item cannot both consume the same resting quantity. Locks are
// created on first use and kept for the process lifetime; the item universe
// is small and fixed.
type itemLocks struct {
	locks sync.Map // item id -> *sync.Mutex
}

func (l *itemLocks) lock(itemID int64) func() {
	v, _ := l.locks.LoadOrStore(itemID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
