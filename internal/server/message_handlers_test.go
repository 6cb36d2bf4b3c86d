package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postMessage(t *testing.T, app *fiber.App, topicID uint, content string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"content": content})
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/topics/%d/messages", topicID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAppendMessage(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	user := createTestUser(t, db, "replier", false)
	topic := createTestTopic(t, db, user.ID)

	app := fiber.New()
	app.Post("/topics/:id/messages", asUser(user.ID, s.AppendMessage))
	app.Get("/topics/:id/messages", s.GetMessages)

	t.Run("append and list in order", func(t *testing.T) {
		for _, content := range []string{"first reply", "second reply"} {
			resp := postMessage(t, app, topic.ID, content)
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
		}

		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/topics/%d/messages", topic.ID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var messages []models.Message
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
		require.Len(t, messages, 2)
		assert.Equal(t, "first reply", messages[0].Content)
		assert.Equal(t, "second reply", messages[1].Content)

		// Counter and activity move with the thread.
		var got models.Topic
		require.NoError(t, db.First(&got, topic.ID).Error)
		assert.EqualValues(t, 2, got.ReplyCount)
		assert.True(t, got.LastActivityAt.After(topic.LastActivityAt) || got.LastActivityAt.Equal(topic.LastActivityAt))
	})

	t.Run("empty content", func(t *testing.T) {
		resp := postMessage(t, app, topic.ID, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing topic", func(t *testing.T) {
		resp := postMessage(t, app, 999, "hi")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("locked topic", func(t *testing.T) {
		require.NoError(t, db.Model(&models.Topic{}).Where("id = ?", topic.ID).Update("is_locked", true).Error)
		t.Cleanup(func() {
			_ = db.Model(&models.Topic{}).Where("id = ?", topic.ID).Update("is_locked", false).Error
		})

		resp := postMessage(t, app, topic.ID, "rejected")
		assert.Equal(t, http.StatusLocked, resp.StatusCode)

		var errResp models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
		assert.Equal(t, models.CodeTopicLocked, errResp.Code)

		// Nothing committed: the counter did not move.
		var got models.Topic
		require.NoError(t, db.First(&got, topic.ID).Error)
		assert.EqualValues(t, 2, got.ReplyCount)
	})
}

func TestGetMessages_MissingTopic(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	app := fiber.New()
	app.Get("/topics/:id/messages", s.GetMessages)

	req := httptest.NewRequest(http.MethodGet, "/topics/999/messages", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToggleMessageLike(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	user := createTestUser(t, db, "msgliker", false)
	topic := createTestTopic(t, db, user.ID)

	message := models.Message{Content: "like me", UserID: user.ID, TopicID: topic.ID}
	require.NoError(t, db.Create(&message).Error)

	app := fiber.New()
	app.Post("/topics/:id/messages/:messageId/like", asUser(user.ID, s.ToggleMessageLike))

	toggle := func() map[string]interface{} {
		req := httptest.NewRequest(http.MethodPost,
			fmt.Sprintf("/topics/%d/messages/%d/like", topic.ID, message.ID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	first := toggle()
	assert.Equal(t, true, first["liked"])
	assert.EqualValues(t, 1, first["likes_count"])

	second := toggle()
	assert.Equal(t, false, second["liked"])
	assert.EqualValues(t, 0, second["likes_count"])
}

func TestDeleteMessage(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	author := createTestUser(t, db, "msgauthor", false)
	stranger := createTestUser(t, db, "stranger", false)
	moderator := createTestUser(t, db, "moderator", true)
	topic := createTestTopic(t, db, author.ID)

	newMessage := func() models.Message {
		message := models.Message{Content: "to delete", UserID: author.ID, TopicID: topic.ID}
		require.NoError(t, db.Create(&message).Error)
		require.NoError(t, db.Model(&models.Topic{}).Where("id = ?", topic.ID).
			Update("reply_count", 1).Error)
		return message
	}

	deleteAs := func(userID, topicID, messageID uint) *http.Response {
		app := fiber.New()
		app.Delete("/topics/:id/messages/:messageId", asUser(userID, s.DeleteMessage))
		req := httptest.NewRequest(http.MethodDelete,
			fmt.Sprintf("/topics/%d/messages/%d", topicID, messageID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("moderator can delete", func(t *testing.T) {
		message := newMessage()
		resp := deleteAs(moderator.ID, topic.ID, message.ID)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var count int64
		require.NoError(t, db.Model(&models.Message{}).Where("id = ?", message.ID).Count(&count).Error)
		assert.EqualValues(t, 0, count, "soft-deleted message must not appear in default scope")

		var got models.Topic
		require.NoError(t, db.First(&got, topic.ID).Error)
		assert.EqualValues(t, 0, got.ReplyCount)
	})

	t.Run("author is rejected", func(t *testing.T) {
		message := newMessage()
		resp := deleteAs(author.ID, topic.ID, message.ID)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		message := newMessage()
		resp := deleteAs(stranger.ID, topic.ID, message.ID)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("message under a different topic", func(t *testing.T) {
		other := createTestTopic(t, db, author.ID)
		message := newMessage()
		resp := deleteAs(moderator.ID, other.ID, message.ID)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var count int64
		require.NoError(t, db.Model(&models.Message{}).Where("id = ?", message.ID).Count(&count).Error)
		assert.EqualValues(t, 1, count, "mismatched path must not delete anything")
	})

	t.Run("missing message", func(t *testing.T) {
		resp := deleteAs(moderator.ID, topic.ID, 9999)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
