package api_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkful/forkful-backend/internal/models"
)

func TestSubscribeEndpointFlow(t *testing.T) {
	ts := newTestServer(t)
	follower := ts.signup(t, "alice")
	ts.signup(t, "bob")
	bobID := func() string {
		rec := ts.request(t, http.MethodGet, "/api/users?limit=10", follower, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := jsonPath(t, rec)
		for _, raw := range body["results"].([]interface{}) {
			user := raw.(map[string]interface{})
			if user["username"] == "bob" {
				return user["id"].(string)
			}
		}
		t.Fatal("bob not listed")
		return ""
	}()

	rec := ts.request(t, http.MethodPost, "/api/users/"+bobID+"/subscribe", follower, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := jsonPath(t, rec)
	assert.Equal(t, "bob", body["username"])
	assert.Equal(t, true, body["is_subscribed"])
	assert.Contains(t, body, "recipes")
	assert.Contains(t, body, "recipes_count")

	// Duplicate subscribe.
	rec = ts.request(t, http.MethodPost, "/api/users/"+bobID+"/subscribe", follower, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// Subscriptions listing includes bob.
	rec = ts.request(t, http.MethodGet, "/api/users/subscriptions", follower, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := jsonPath(t, rec)
	assert.EqualValues(t, 1, page["count"])
	assert.Nil(t, page["next"])

	// Unsubscribe, then unsubscribe again.
	rec = ts.request(t, http.MethodDelete, "/api/users/"+bobID+"/subscribe", follower, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.request(t, http.MethodDelete, "/api/users/"+bobID+"/subscribe", follower, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestSubscribeToSelfEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "alice")
	selfID := ts.userID(t, token)

	rec := ts.request(t, http.MethodPost, "/api/users/"+selfID+"/subscribe", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestSubscribeUnknownUserEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "alice")

	rec := ts.request(t, http.MethodPost, "/api/users/"+uuid.NewString()+"/subscribe", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.request(t, http.MethodPost, "/api/users/not-a-uuid/subscribe", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvatarEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "alice")

	rec := ts.request(t, http.MethodPut, "/api/users/me/avatar", token, gin.H{
		"avatar": testImagePayload(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := jsonPath(t, rec)
	avatar, _ := body["avatar"].(string)
	assert.Contains(t, avatar, "https://images.test/users/")

	rec = ts.request(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, avatar, jsonPath(t, rec)["avatar"])

	rec = ts.request(t, http.MethodDelete, "/api/users/me/avatar", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.request(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", jsonPath(t, rec)["avatar"])
}

func TestAvatarRejectsBadPayload(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "alice")

	rec := ts.request(t, http.MethodPut, "/api/users/me/avatar", token, gin.H{
		"avatar": "not-a-data-uri",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestListUsersDefaultLimitEnvelope(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice")
	for i := 0; i < 7; i++ {
		username := string(rune('b'+i)) + "user"
		user := models.User{
			Email:        username + "@example.com",
			Username:     username,
			FirstName:    "Test",
			LastName:     "User",
			PasswordHash: "x",
		}
		require.NoError(t, ts.db.Create(&user).Error)
	}

	// Eight users at the default page size of six.
	rec := ts.request(t, http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := jsonPath(t, rec)
	assert.EqualValues(t, 8, body["count"])
	require.NotNil(t, body["next"])
	assert.Contains(t, body["next"], "page=2")
	assert.Len(t, body["results"], 6)

	// Short last page carries no next link.
	rec = ts.request(t, http.MethodGet, "/api/users?page=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = jsonPath(t, rec)
	assert.Nil(t, body["next"])
	require.NotNil(t, body["previous"])
	assert.Len(t, body["results"], 2)
}

func TestGetUserEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "alice")
	aliceID := ts.userID(t, token)

	rec := ts.request(t, http.MethodGet, "/api/users/"+aliceID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "alice", jsonPath(t, rec)["username"])

	rec = ts.request(t, http.MethodGet, "/api/users/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
