package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/store"
)

// ReminderLead is how far ahead of a pickup its reminder goes out.
const ReminderLead = 24 * time.Hour

// Sender delivers one notification to one subscription.
type Sender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error
}

// Scheduler periodically sends pickup reminders.
type Scheduler struct {
	mu       sync.RWMutex
	sender   Sender
	push     *store.PushStore
	pickups  *store.PickupStore
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(sender Sender, pushStore *store.PushStore, pickupStore *store.PickupStore, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sender:   sender,
		push:     pushStore,
		pickups:  pickupStore,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.SendDueReminders(ctx); err != nil {
					s.logger.Error("pickup reminders", "error", err)
				} else if n > 0 {
					s.logger.Info("pickup reminders sent", "count", n)
				}
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// SendDueReminders notifies owners of pickups starting within ReminderLead.
// Each pickup is claimed before sending so it is reminded at most once, even
// with several instances running. It returns the number of pickups reminded.
func (s *Scheduler) SendDueReminders(ctx context.Context) (int, error) {
	now := s.now().UTC()
	due, err := s.pickups.ListDueForReminder(ctx, now, now.Add(ReminderLead))
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		p := &due[i]
		claimed, err := s.pickups.MarkReminderSent(ctx, p.ID)
		if err != nil {
			return sent, err
		}
		if !claimed {
			continue
		}
		s.notifyUser(ctx, p.UserID, reminderPayload(p))
		sent++
	}
	return sent, nil
}

func reminderPayload(p *model.DoorstepPickup) Payload {
	return Payload{
		Title: "Pickup tomorrow",
		Body:  fmt.Sprintf("Your e-waste pickup is on %s, %s. Leave items by the door.", p.ScheduledDate.Format("Mon Jan 2"), p.TimeSlot),
		URL:   "/activity?tab=pickups",
		Tag:   fmt.Sprintf("%s-%d", model.NotifTypePickupReminder, p.ID),
	}
}

// notifyUser sends payload to every device the user registered and prunes
// subscriptions the push service reports gone.
func (s *Scheduler) notifyUser(ctx context.Context, userID int64, payload Payload) {
	subs, err := s.push.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("list push subscriptions", "user_id", userID, "error", err)
		return
	}
	for i := range subs {
		sub := &subs[i]
		if err := s.sender.Send(ctx, sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := s.push.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
					s.logger.Warn("delete expired subscription", "id", sub.ID, "error", err)
				}
				continue
			}
			s.logger.Warn("send push", "user_id", userID, "tag", payload.Tag, "error", err)
		}
	}
}
