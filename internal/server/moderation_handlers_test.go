package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agora/internal/models"
	"agora/internal/subscriptions"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlockTopic(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	moderator := createTestUser(t, db, "mod", true)
	regular := createTestUser(t, db, "pleb", false)
	topic := createTestTopic(t, db, regular.ID)

	lockAs := func(userID uint) *http.Response {
		app := fiber.New()
		app.Post("/topics/:id/lock", asUser(userID, s.LockTopic))
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/topics/%d/lock", topic.ID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("non-moderator is rejected", func(t *testing.T) {
		resp := lockAs(regular.ID)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var errResp models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
		assert.Equal(t, models.CodeForbidden, errResp.Code)
	})

	t.Run("moderator locks", func(t *testing.T) {
		resp := lockAs(moderator.ID)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got models.Topic
		require.NoError(t, db.First(&got, topic.ID).Error)
		assert.True(t, got.IsLocked)
	})

	t.Run("locking twice is a no-op success", func(t *testing.T) {
		resp := lockAs(moderator.ID)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("moderator unlocks", func(t *testing.T) {
		app := fiber.New()
		app.Delete("/topics/:id/lock", asUser(moderator.ID, s.UnlockTopic))
		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/topics/%d/lock", topic.ID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got models.Topic
		require.NoError(t, db.First(&got, topic.ID).Error)
		assert.False(t, got.IsLocked)
	})

	t.Run("missing topic", func(t *testing.T) {
		app := fiber.New()
		app.Post("/topics/:id/lock", asUser(moderator.ID, s.LockTopic))
		req := httptest.NewRequest(http.MethodPost, "/topics/999/lock", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestPinTopic(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	moderator := createTestUser(t, db, "pinmod", true)
	topic := createTestTopic(t, db, moderator.ID)

	app := fiber.New()
	app.Post("/topics/:id/pin", asUser(moderator.ID, s.PinTopic))
	app.Delete("/topics/:id/pin", asUser(moderator.ID, s.UnpinTopic))

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/topics/%d/pin", topic.ID), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.Topic
	require.NoError(t, db.First(&got, topic.ID).Error)
	assert.True(t, got.IsSticky)

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/topics/%d/pin", topic.ID), nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, db.First(&got, topic.ID).Error)
	assert.False(t, got.IsSticky)
}

func TestDeleteTopic_Cascade(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	author := createTestUser(t, db, "cascade-author", false)
	liker := createTestUser(t, db, "cascade-liker", false)
	moderator := createTestUser(t, db, "cascade-mod", true)
	topic := createTestTopic(t, db, author.ID)

	message := models.Message{Content: "reply", UserID: author.ID, TopicID: topic.ID}
	require.NoError(t, db.Create(&message).Error)
	require.NoError(t, db.Create(&models.TopicLike{UserID: liker.ID, TopicID: topic.ID}).Error)
	require.NoError(t, db.Create(&models.MessageLike{UserID: liker.ID, MessageID: message.ID}).Error)

	app := fiber.New()
	app.Delete("/topics/:id", asUser(moderator.ID, s.DeleteTopic))
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/topics/%d", topic.ID), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The whole aggregate is gone, including soft-delete remnants.
	var count int64
	require.NoError(t, db.Model(&models.Topic{}).Where("id = ?", topic.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Unscoped().Model(&models.Message{}).Where("topic_id = ?", topic.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&models.TopicLike{}).Where("topic_id = ?", topic.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&models.MessageLike{}).Where("message_id = ?", message.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestDeleteTopic_NonAdminRejected(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	author := createTestUser(t, db, "owner", false)
	stranger := createTestUser(t, db, "intruder", false)
	topic := createTestTopic(t, db, author.ID)

	// Destroying a topic is a moderation action; even the author is refused.
	for _, caller := range []uint{author.ID, stranger.ID} {
		app := fiber.New()
		app.Delete("/topics/:id", asUser(caller, s.DeleteTopic))
		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/topics/%d", topic.ID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	var count int64
	require.NoError(t, db.Model(&models.Topic{}).Where("id = ?", topic.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count, "rejected delete must not remove anything")
}

// Deleting a topic must terminate its live feeds so no subscriber keeps
// watching silently stale data.
func TestDeleteTopic_TerminatesFeeds(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	author := createTestUser(t, db, "feed-author", false)
	moderator := createTestUser(t, db, "feed-mod", true)
	topic := createTestTopic(t, db, author.ID)

	sub, err := s.hub.Subscribe(context.Background(), topic.ID)
	require.NoError(t, err)

	// Drain the initial snapshot.
	select {
	case snap := <-sub.Updates():
		require.NoError(t, snap.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	app := fiber.New()
	app.Delete("/topics/:id", asUser(moderator.ID, s.DeleteTopic))
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/topics/%d", topic.ID), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok)
		assert.ErrorIs(t, snap.Err, subscriptions.ErrTopicGone)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terminal snapshot")
	}
	assert.Equal(t, 0, s.hub.SubscriberCount(topic.ID))
}
