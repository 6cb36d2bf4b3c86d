// Package subscriptions delivers live, ordered views of a topic's messages
// to every client watching it, without polling.
package subscriptions

import (
	"errors"
	"sync"

	"agora/internal/models"

	"github.com/google/uuid"
)

// ErrTopicGone terminates the streams of a topic that was deleted.
var ErrTopicGone = errors.New("topic deleted")

// sendBuffer is the per-subscriber snapshot buffer. When a subscriber falls
// behind, the oldest undelivered snapshot is replaced by a newer one;
// snapshots are whole ordered lists, so skipping one never reorders anything.
const sendBuffer = 16

// Snapshot is one full, ordered view of a topic's message list. A Snapshot
// with Err set is terminal: the stream is closed right after it.
type Snapshot struct {
	TopicID  uint
	Messages []*models.Message
	Err      error
}

// Subscription is one client's live feed of a topic. Receive from Updates();
// call Cancel when done. The channel is closed after a terminal snapshot or
// after Cancel.
type Subscription struct {
	ID      string
	TopicID uint

	ch   chan Snapshot
	feed *topicFeed

	once sync.Once
}

func newSubscription(topicID uint, feed *topicFeed) *Subscription {
	return &Subscription{
		ID:      uuid.NewString(),
		TopicID: topicID,
		ch:      make(chan Snapshot, sendBuffer),
		feed:    feed,
	}
}

// Updates returns the snapshot stream.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.ch
}

// Cancel detaches the subscription and releases its registration.
// Idempotent; safe to call after the stream has already terminated.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.feed.remove(s)
	})
}

// markDone prevents a later Cancel from touching the feed again once the
// feed itself has terminated the stream.
func (s *Subscription) markDone() {
	s.once.Do(func() {})
}
