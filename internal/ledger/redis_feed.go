package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/dukerupert/reloop/internal/model"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "reloop:points:"

func channelFor(userID int64) string {
	return channelPrefix + strconv.FormatInt(userID, 10)
}

// RedisFeed shares balance changes between service instances over Redis
// Pub/Sub. Every instance relays what it receives into a local MemoryFeed,
// so a publish reaches local subscribers through Redis as well.
type RedisFeed struct {
	client *redis.Client
	local  *MemoryFeed
	logger *slog.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisFeed(client *redis.Client, logger *slog.Logger) *RedisFeed {
	return &RedisFeed{
		client: client,
		local:  NewMemoryFeed(),
		logger: logger,
	}
}

// Start subscribes to every user's points channel and relays messages until
// Stop is called. It returns once Redis has confirmed the subscription.
func (f *RedisFeed) Start(ctx context.Context) error {
	pubsub := f.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("psubscribe points: %w", err)
	}

	f.mu.Lock()
	f.pubsub = pubsub
	f.done = make(chan struct{})
	f.mu.Unlock()

	go f.relay(pubsub.Channel(), f.done)
	return nil
}

// Stop closes the subscription and waits for the relay to exit.
func (f *RedisFeed) Stop() {
	f.mu.Lock()
	pubsub, done := f.pubsub, f.done
	f.pubsub = nil
	f.mu.Unlock()

	if pubsub == nil {
		return
	}
	pubsub.Close()
	<-done
}

func (f *RedisFeed) relay(ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for msg := range ch {
		var b model.Balance
		if err := json.Unmarshal([]byte(msg.Payload), &b); err != nil {
			f.logger.Warn("drop malformed points message", "channel", msg.Channel, "error", err)
			continue
		}
		if msg.Channel != channelFor(b.UserID) {
			f.logger.Warn("drop points message on wrong channel", "channel", msg.Channel, "user_id", b.UserID)
			continue
		}
		f.local.deliver(b)
	}
}

func (f *RedisFeed) Publish(ctx context.Context, b model.Balance) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal balance: %w", err)
	}
	if err := f.client.Publish(ctx, channelFor(b.UserID), data).Err(); err != nil {
		return fmt.Errorf("publish balance: %w", err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(userID int64, handler func(model.Balance)) func() {
	return f.local.Subscribe(userID, handler)
}
