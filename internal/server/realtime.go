package server

import (
	"context"
	"log"

	"agora/internal/subscriptions"
)

// feedBroadcaster routes committed-write notifications to live feeds. With
// Redis the event goes through pub/sub so every instance refreshes its
// subscribers; without it, or when the publish fails, the local hub is
// refreshed directly.
type feedBroadcaster struct {
	hub      *subscriptions.Hub
	notifier *subscriptions.Notifier
}

func (b *feedBroadcaster) TopicUpdated(ctx context.Context, topicID uint) {
	if b.notifier != nil {
		err := b.notifier.PublishTopicUpdate(ctx, topicID)
		if err == nil {
			return
		}
		log.Printf("feed publish failed for topic %d, falling back to local delivery: %v", topicID, err)
	}
	b.hub.Publish(ctx, topicID)
}

func (b *feedBroadcaster) TopicDeleted(ctx context.Context, topicID uint) {
	if b.notifier != nil {
		err := b.notifier.PublishTopicDeleted(ctx, topicID)
		if err == nil {
			return
		}
		log.Printf("feed delete publish failed for topic %d, falling back to local delivery: %v", topicID, err)
	}
	b.hub.CloseTopic(topicID, subscriptions.ErrTopicGone)
}
