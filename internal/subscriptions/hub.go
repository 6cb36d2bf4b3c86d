package subscriptions

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/observability"
)

// Loader fetches the current full ordered message list of a topic.
type Loader func(ctx context.Context, topicID uint) ([]*models.Message, error)

// Hub fans committed topic mutations out to every live subscriber of that
// topic. Each topic gets its own feed with its own mutex, so feeds of
// different topics never contend and deliveries within one topic are
// serialized in commit order.
type Hub struct {
	mu     sync.RWMutex
	feeds  map[uint]*topicFeed
	loader Loader
}

// NewHub creates a Hub backed by the given snapshot loader.
func NewHub(loader Loader) *Hub {
	return &Hub{
		feeds:  make(map[uint]*topicFeed),
		loader: loader,
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "topic feed hub" }

type topicFeed struct {
	topicID uint

	mu   sync.Mutex
	subs map[*Subscription]struct{}
	done bool
}

// Subscribe opens a live feed for the topic. The current full ordered list
// is emitted immediately; afterwards every committed append/delete yields a
// new snapshot. Subscribers are independent: cancelling one never affects
// another.
func (h *Hub) Subscribe(ctx context.Context, topicID uint) (*Subscription, error) {
	// Load before registering so a caller never holds a registration for a
	// topic it could not read.
	messages, err := h.loader(ctx, topicID)
	if err != nil {
		return nil, err
	}

	feed := h.feed(topicID)

	feed.mu.Lock()
	defer feed.mu.Unlock()
	if feed.done {
		// Feed terminated between load and registration (topic deleted).
		return nil, ErrTopicGone
	}

	sub := newSubscription(topicID, feed)
	feed.subs[sub] = struct{}{}
	sub.ch <- Snapshot{TopicID: topicID, Messages: messages}

	observability.ActiveSubscriptions.WithLabelValues(topicLabel(topicID)).Inc()
	return sub, nil
}

// Publish reloads the topic's message list and delivers it to every live
// subscriber. Holding the feed mutex across the reload serializes snapshots
// per topic, so no subscriber ever observes appends out of commit order.
// A loader failure is terminal for every stream of the topic.
func (h *Hub) Publish(ctx context.Context, topicID uint) {
	feed := h.lookup(topicID)
	if feed == nil {
		return
	}

	feed.mu.Lock()
	defer feed.mu.Unlock()
	if feed.done || len(feed.subs) == 0 {
		return
	}

	messages, err := h.loader(ctx, topicID)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "feed snapshot load failed",
			slog.Uint64("topic_id", uint64(topicID)),
			slog.String("error", err.Error()),
		)
		h.terminateLocked(feed, models.NewStoreUnavailableError(err), false)
		return
	}

	for sub := range feed.subs {
		deliver(sub, Snapshot{TopicID: topicID, Messages: messages})
		observability.SnapshotsDelivered.WithLabelValues(topicLabel(topicID)).Inc()
	}
}

// CloseTopic terminates every stream of the topic with the given error.
// Used when moderation deletes the topic; the error reaches all subscribers
// so none keep watching silently stale data. The dead feed stays in the map
// as a tombstone: deletion is absorbing, and a Subscribe racing the delete
// (its snapshot loaded just before the cascade committed) must find the
// tombstone and fail instead of registering a fresh live feed.
func (h *Hub) CloseTopic(topicID uint, cause error) {
	feed := h.feed(topicID)

	feed.mu.Lock()
	h.terminateLocked(feed, cause, true)
	feed.mu.Unlock()
}

// SubscriberCount reports the number of live registrations for a topic.
func (h *Hub) SubscriberCount(topicID uint) int {
	feed := h.lookup(topicID)
	if feed == nil {
		return 0
	}
	feed.mu.Lock()
	defer feed.mu.Unlock()
	return len(feed.subs)
}

// Shutdown terminates every feed. Streams receive no terminal error; the
// channel close alone signals the server is going away.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	feeds := make([]*topicFeed, 0, len(h.feeds))
	for _, f := range h.feeds {
		feeds = append(feeds, f)
	}
	h.feeds = make(map[uint]*topicFeed)
	h.mu.Unlock()

	for _, feed := range feeds {
		feed.mu.Lock()
		for sub := range feed.subs {
			sub.markDone()
			close(sub.ch)
		}
		feed.subs = make(map[*Subscription]struct{})
		feed.done = true
		feed.mu.Unlock()
	}
	return nil
}

// terminateLocked delivers a terminal snapshot to every subscriber, closes
// their channels and drops all registrations. With tombstone set the dead
// feed stays in the map so later Subscribes see it; without it the entry is
// removed and a re-subscribe starts a fresh feed. Caller holds feed.mu.
func (h *Hub) terminateLocked(feed *topicFeed, cause error, tombstone bool) {
	if feed.done {
		return
	}
	for sub := range feed.subs {
		deliver(sub, Snapshot{TopicID: feed.topicID, Err: cause})
		sub.markDone()
		close(sub.ch)
	}
	observability.ActiveSubscriptions.WithLabelValues(topicLabel(feed.topicID)).Set(0)
	feed.subs = make(map[*Subscription]struct{})
	feed.done = true

	if tombstone {
		return
	}
	h.mu.Lock()
	delete(h.feeds, feed.topicID)
	h.mu.Unlock()
}

// remove drops one subscription's registration and closes its stream.
func (f *topicFeed) remove(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub]; !ok {
		return
	}
	delete(f.subs, sub)
	close(sub.ch)
	observability.ActiveSubscriptions.WithLabelValues(topicLabel(f.topicID)).Dec()
}

func (h *Hub) feed(topicID uint) *topicFeed {
	h.mu.Lock()
	defer h.mu.Unlock()
	feed, ok := h.feeds[topicID]
	if !ok {
		feed = &topicFeed{
			topicID: topicID,
			subs:    make(map[*Subscription]struct{}),
		}
		h.feeds[topicID] = feed
	}
	return feed
}

func (h *Hub) lookup(topicID uint) *topicFeed {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.feeds[topicID]
}

// deliver hands a snapshot to one subscriber without ever blocking the feed.
// When the buffer is full the oldest undelivered snapshot is dropped in
// favor of the new one; each snapshot is a complete list, so the subscriber
// only skips an intermediate state, never sees a reordered one.
func deliver(sub *Subscription, snap Snapshot) {
	for {
		select {
		case sub.ch <- snap:
			return
		default:
		}
		select {
		case <-sub.ch:
			observability.SnapshotsCoalesced.Inc()
		default:
		}
	}
}

func topicLabel(topicID uint) string {
	return strconv.FormatUint(uint64(topicID), 10)
}
