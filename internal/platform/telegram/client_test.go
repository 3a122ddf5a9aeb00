package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetChatMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/getChatMember", r.URL.Path)
		assert.Equal(t, "-100123", r.URL.Query().Get("chat_id"))
		assert.Equal(t, "42", r.URL.Query().Get("user_id"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"status":"administrator","user":{"id":42}}}`))
	}))
	defer srv.Close()

	c := NewClient("TOKEN", srv.URL)
	member, err := c.GetChatMember(context.Background(), "-100123", 42)
	require.NoError(t, err)
	assert.Equal(t, "administrator", member.Status)
	assert.True(t, member.Joined())
}

func TestChatMemberJoined(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"member", true},
		{"administrator", true},
		{"creator", true},
		{"left", false},
		{"kicked", false},
		{"restricted", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			m := &ChatMember{Status: tt.status}
			assert.Equal(t, tt.want, m.Joined())
		})
	}
}

func TestGetChatMemberRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`))
	}))
	defer srv.Close()

	_, err := NewClient("TOKEN", srv.URL).GetChatMember(context.Background(), "@chan", 1)
	var rpsErr *RPSError
	require.True(t, errors.As(err, &rpsErr))
	assert.Equal(t, 3*time.Second, rpsErr.RetryAfter)
}

func TestGetChatMemberAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: user not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient("TOKEN", srv.URL).GetChatMember(context.Background(), "@chan", 1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Code)
}
