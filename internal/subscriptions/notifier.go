package subscriptions

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Notifier relays feed invalidation events through Redis channels so every
// instance refreshes its local subscribers, not just the one that handled
// the write.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishTopicUpdate signals that a topic's thread changed and subscribers
// need a fresh snapshot.
func (n *Notifier) PublishTopicUpdate(ctx context.Context, topicID uint) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, TopicChannel(topicID), "updated").Err()
}

// PublishTopicDeleted signals that a topic was removed and its feeds must
// terminate.
func (n *Notifier) PublishTopicDeleted(ctx context.Context, topicID uint) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, TopicChannel(topicID), "deleted").Err()
}

// StartFeedSubscriber subscribes to pattern `feeds:topic:*` and routes each
// event into the hub: "updated" triggers a reload, "deleted" tears the feed
// down. Returns immediately; the pump runs until ctx is cancelled.
func (n *Notifier) StartFeedSubscriber(ctx context.Context, hub *Hub) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "feeds:topic:*")
	ch := sub.Channel()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	go func() {
		for msg := range ch {
			topicID, ok := parseTopicChannel(msg.Channel)
			if !ok {
				continue
			}
			switch msg.Payload {
			case "deleted":
				hub.CloseTopic(topicID, ErrTopicGone)
			default:
				hub.Publish(ctx, topicID)
			}
		}
	}()

	return nil
}

// Helper to derive topic feed channel name
func TopicChannel(topicID uint) string {
	return "feeds:topic:" + strconv.FormatUint(uint64(topicID), 10)
}

func parseTopicChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, "feeds:topic:")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
