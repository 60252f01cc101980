package ledger

import (
	"context"
	"sync"

	"github.com/dukerupert/reloop/internal/model"
)

// Feed carries committed balance changes to subscribers. Handlers run on
// the publisher's goroutine and must not block.
type Feed interface {
	Publish(ctx context.Context, b model.Balance) error
	Subscribe(userID int64, handler func(model.Balance)) (cancel func())
}

// MemoryFeed is an in-process Feed.
type MemoryFeed struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[int64]map[uint64]func(model.Balance)
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[int64]map[uint64]func(model.Balance))}
}

func (f *MemoryFeed) Publish(_ context.Context, b model.Balance) error {
	f.deliver(b)
	return nil
}

func (f *MemoryFeed) deliver(b model.Balance) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, h := range f.subs[b.UserID] {
		h(b)
	}
}

func (f *MemoryFeed) Subscribe(userID int64, handler func(model.Balance)) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	if f.subs[userID] == nil {
		f.subs[userID] = make(map[uint64]func(model.Balance))
	}
	f.subs[userID][id] = handler
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[userID], id)
			if len(f.subs[userID]) == 0 {
				delete(f.subs, userID)
			}
			f.mu.Unlock()
		})
	}
}

// SubscriberCount returns the number of live handlers for userID.
func (f *MemoryFeed) SubscriberCount(userID int64) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[userID])
}
