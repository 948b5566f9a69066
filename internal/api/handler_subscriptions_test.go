package api

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutSubscription_InvalidBody(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPut, "/api/subscriptions", "", gin.H{"endpoint": "https://push.example/1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	s := newTestServer(t)
	ada := s.register(t, "Dr. Ada", "ada@example.edu", "CS")
	bob := s.register(t, "Dr. Bob", "bob@example.edu", "CS")

	endpoint := "https://push.example/send/abc%3D%3D"
	w := s.do(t, http.MethodPut, "/api/subscriptions", "", gin.H{
		"endpoint": endpoint, "p256dh": "key", "auth": "secret",
		"subscribed_faculty": []int64{ada.FacultyID, bob.FacultyID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The endpoint is matched verbatim, without URL decoding.
	get := "/api/subscriptions?endpoint=" + endpoint
	w = s.do(t, http.MethodGet, get, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		SubscribedFaculty []int64 `json:"subscribed_faculty"`
	}](t, w)
	assert.ElementsMatch(t, []int64{ada.FacultyID, bob.FacultyID}, got.SubscribedFaculty)

	// Replacing narrows the followed set.
	w = s.do(t, http.MethodPut, "/api/subscriptions", "", gin.H{
		"endpoint": endpoint, "p256dh": "key2", "auth": "secret2",
		"subscribed_faculty": []int64{bob.FacultyID},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodGet, get, "", nil)
	got = decode[struct {
		SubscribedFaculty []int64 `json:"subscribed_faculty"`
	}](t, w)
	assert.Equal(t, []int64{bob.FacultyID}, got.SubscribedFaculty)

	w = s.do(t, http.MethodDelete, "/api/subscriptions", "", gin.H{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, get, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/subscriptions", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRawQueryParam(t *testing.T) {
	v, ok := rawQueryParam("a=1&endpoint=https%3A%2F%2Fx", "endpoint")
	assert.True(t, ok)
	assert.Equal(t, "https%3A%2F%2Fx", v)
	decoded, err := url.QueryUnescape(v)
	require.NoError(t, err)
	assert.Equal(t, "https://x", decoded)

	_, ok = rawQueryParam("a=1", "endpoint")
	assert.False(t, ok)
}

func TestVAPIDPublicKey_Disabled(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/vapid_public_key", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
