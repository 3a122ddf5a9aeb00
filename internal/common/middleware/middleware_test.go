package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-points-backend/internal/common/errors"
	domain "loyalty-points-backend/internal/domain/user"
)

const testBotToken = "12345:test-token"

func init() {
	gin.SetMode(gin.TestMode)
}

// signInitData builds a query string the way Telegram signs Mini App launch params.
func signInitData(t *testing.T, token string, userID int64, authDate time.Time) string {
	t.Helper()
	userJSON, err := json.Marshal(map[string]interface{}{
		"id":         userID,
		"first_name": "Test",
		"username":   "tester",
	})
	require.NoError(t, err)

	values := map[string]string{
		"auth_date": strconv.FormatInt(authDate.Unix(), 10),
		"query_id":  "AAH",
		"user":      string(userJSON),
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values[k])
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(token))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))

	q := url.Values{}
	for k, v := range values {
		q.Set(k, v)
	}
	q.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return q.Encode()
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.Use(handlers...)
	r.GET("/x", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set(InitDataHeader, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func TestTelegramInitData(t *testing.T) {
	r := newRouter(TelegramInitData(testBotToken, time.Hour), RequireAuth())

	t.Run("valid", func(t *testing.T) {
		w := do(r, signInitData(t, testBotToken, 777, time.Now()))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"user_id":777}`, w.Body.String())
		assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	})

	t.Run("missing", func(t *testing.T) {
		w := do(r, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, errors.ErrCodeUnauthorized, decodeError(t, w).Error.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		w := do(r, signInitData(t, "other:token", 777, time.Now()))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired", func(t *testing.T) {
		w := do(r, signInitData(t, testBotToken, 777, time.Now().Add(-2*time.Hour)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter(TelegramInitData(testBotToken, 0), RequireAdmin([]int64{1}))

	w := do(r, signInitData(t, testBotToken, 1, time.Now()))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, signInitData(t, testBotToken, 2, time.Now()))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, errors.ErrCodeForbidden, decodeError(t, w).Error.Code)
}

type recordingSyncer struct{ synced []domain.Identity }

func (s *recordingSyncer) Sync(_ context.Context, id domain.Identity) (*domain.Profile, error) {
	s.synced = append(s.synced, id)
	return &domain.Profile{ID: id.ID}, nil
}

func TestTouchProfile(t *testing.T) {
	syncer := &recordingSyncer{}
	r := newRouter(TelegramInitData(testBotToken, 0), TouchProfile(syncer))

	w := do(r, signInitData(t, testBotToken, 55, time.Now()))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, syncer.synced, 1)
	assert.Equal(t, int64(55), syncer.synced[0].ID)
	assert.Equal(t, "tester", syncer.synced[0].Username)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := newRouter(TelegramInitData(testBotToken, 0), rl.Handler())
	data := signInitData(t, testBotToken, 9, time.Now())

	assert.Equal(t, http.StatusOK, do(r, data).Code)
	assert.Equal(t, http.StatusOK, do(r, data).Code)

	w := do(r, data)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, errors.ErrCodeRateLimit, decodeError(t, w).Error.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(r, signInitData(t, testBotToken, 10, time.Now())).Code, "limits are per user")
}

func TestErrorHandlerRendersAppErrors(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/claimed", func(c *gin.Context) { Abort(c, errors.NewAlreadyClaimedError("daily_spin")) })
	r.GET("/plain", func(c *gin.Context) { Abort(c, assert.AnError) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	cases := []struct {
		path   string
		status int
		code   errors.ErrorCode
	}{
		{"/claimed", http.StatusTooManyRequests, errors.ErrCodeAlreadyClaimed},
		{"/plain", http.StatusInternalServerError, errors.ErrCodeInternal},
		{"/panic", http.StatusInternalServerError, errors.ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set(requestIDHeader, "req-1")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tc.code, resp.Error.Code)
			assert.Equal(t, "req-1", resp.RequestID)
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(errors.ErrCodeUnknownUser))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(errors.ErrCodeProofInvalid))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(errors.ErrCodeTelegramAPI))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.ErrCodeTransactionFailed))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(errors.ErrCodeNotFound))
}
