package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"UD_daily_rewards/internal/middleware"
	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/internal/repository"
	"UD_daily_rewards/internal/repository/memory"
	"UD_daily_rewards/internal/service"
	"UD_daily_rewards/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeInvoicer struct {
	link string
	err  error
}

func (f *fakeInvoicer) CreateVipInvoiceLink() (string, error) {
	return f.link, f.err
}

func newTestRouter(store *memory.Store, invoices VipPassInvoicer, hub *service.NotificationHub) *gin.Engine {
	clock := func() time.Time { return testNow }
	a := auth.NewTelegramAuth("", true)

	router := gin.New()
	router.Use(middleware.RequestID())

	v1 := router.Group("/api/v1")
	NewDailyLoginRoutes(v1, service.NewDailyLoginService(store, service.DailyLoginConfig{Rewards: model.DefaultRewards()}, clock), a)
	NewPlayerRoutes(v1, service.NewPlayerService(store), a)
	NewStoreRoutes(v1, a, invoices, hub)

	return router
}

func authHeader(userID int64) string {
	values := url.Values{}
	values.Set("auth_date", "1700000000")
	values.Set("user", fmt.Sprintf(`{"id":%d,"username":"bob"}`, userID))
	values.Set("hash", "debug")
	return "Telegram " + values.Encode()
}

func doRequest(router http.Handler, method, path string, userID int64, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", authHeader(userID))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func activeVip(userID int64) *model.UserAccount {
	expires := testNow.Add(24 * time.Hour)
	return &model.UserAccount{
		UserID:    userID,
		CreatedAt: testNow,
		Vip:       model.VipStatus{IsActive: true, ExpiresAt: &expires},
	}
}

func TestClaimDailyLogin(t *testing.T) {
	tests := []struct {
		name           string
		seed           *model.UserAccount
		userID         int64
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Unauthenticated",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"error":{"code":"unauthenticated","message":"authorization header is required"}}`,
		},
		{
			name:           "Normal without body",
			userID:         1,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"ok":true,"rewardsGranted":{"coins":100,"gems":5}}`,
		},
		{
			name:           "Normal with body",
			userID:         1,
			body:           `{"variant":"normal"}`,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"ok":true,"rewardsGranted":{"coins":100,"gems":5}}`,
		},
		{
			name:           "Vip for active pass",
			seed:           activeVip(1),
			userID:         1,
			body:           `{"variant":"vip"}`,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"ok":true,"rewardsGranted":{"coins":250,"gems":15}}`,
		},
		{
			name:           "Vip without pass",
			userID:         1,
			body:           `{"variant":"vip"}`,
			expectedStatus: http.StatusPreconditionFailed,
			expectedBody:   `{"error":{"code":"failed-precondition","message":"VIP required"}}`,
		},
		{
			name:           "Unknown variant",
			userID:         1,
			body:           `{"variant":"VIP"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":{"code":"invalid-argument","message":"variant must be 'normal' or 'vip'"}}`,
		},
		{
			name:           "Malformed body",
			userID:         1,
			body:           `{"variant":`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":{"code":"invalid-argument","message":"invalid request body"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New(5)
			if tt.seed != nil {
				store.PutAccount(tt.seed)
			}
			router := newTestRouter(store, nil, service.NewNotificationHub())

			w := doRequest(router, http.MethodPost, "/api/v1/daily-login/claim", tt.userID, tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestClaimDailyLogin_SecondClaimConflicts(t *testing.T) {
	store := memory.New(5)
	router := newTestRouter(store, nil, service.NewNotificationHub())

	first := doRequest(router, http.MethodPost, "/api/v1/daily-login/claim", 7, "")
	require.Equal(t, http.StatusOK, first.Code)

	second := doRequest(router, http.MethodPost, "/api/v1/daily-login/claim", 7, `{"variant":"normal"}`)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.JSONEq(t, `{"error":{"code":"already-exists","message":"Normal reward already claimed today"}}`, second.Body.String())

	account := store.Account(7)
	require.NotNil(t, account)
	assert.Equal(t, model.Economy{Coins: 100, Gems: 5}, account.Economy)
}

func TestClaimDailyLogin_CorruptStateIsInternal(t *testing.T) {
	store := memory.New(5)
	store.PutMission(&model.DailyMission{
		UserID:    3,
		Instances: map[string]model.DayClaimState{"yesterday": {Completed: true, ClaimedNormal: true}},
	})
	router := newTestRouter(store, nil, service.NewNotificationHub())

	w := doRequest(router, http.MethodPost, "/api/v1/daily-login/claim", 3, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"corrupt-state"`)
	assert.NotContains(t, w.Body.String(), "yesterday")
	assert.Nil(t, store.Account(3))
}

func TestGetDailyLoginStatus(t *testing.T) {
	store := memory.New(5)
	router := newTestRouter(store, nil, service.NewNotificationHub())

	w := doRequest(router, http.MethodGet, "/api/v1/daily-login", 9, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, store.Account(9))

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/api/v1/daily-login/claim", 9, "").Code)

	w = doRequest(router, http.MethodGet, "/api/v1/daily-login", 9, "")
	require.Equal(t, http.StatusOK, w.Code)

	var status DailyLoginStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "2024-03-10", status.DayKey)
	assert.True(t, status.Completed)
	assert.True(t, status.ClaimedNormal)
	assert.False(t, status.ClaimedVip)
	assert.False(t, status.VipActive)
	assert.True(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC).Equal(status.NextResetAt))
	assert.Equal(t, int64(250), status.Rewards.Vip.Coins)
}

func TestGetMe(t *testing.T) {
	store := memory.New(5)
	router := newTestRouter(store, nil, service.NewNotificationHub())

	w := doRequest(router, http.MethodGet, "/api/v1/players/me", 11, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"not-found"`)

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/api/v1/daily-login/claim", 11, "").Code)

	w = doRequest(router, http.MethodGet, "/api/v1/players/me", 11, "")
	require.Equal(t, http.StatusOK, w.Code)

	var player PlayerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &player))
	assert.Equal(t, int64(11), player.UserID)
	assert.Equal(t, "bob", player.Username)
	assert.Equal(t, EconomyResponse{Coins: 100, Gems: 5}, player.Economy)
	assert.False(t, player.Vip.IsActive)
}

func TestVipPassHandler(t *testing.T) {
	tests := []struct {
		name           string
		invoices       VipPassInvoicer
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Payments disabled",
			expectedStatus: http.StatusPreconditionFailed,
			expectedBody:   `{"error":{"code":"failed-precondition","message":"payments are disabled"}}`,
		},
		{
			name:           "Link created",
			invoices:       &fakeInvoicer{link: "https://t.me/$vip"},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"link":"https://t.me/$vip"}`,
		},
		{
			name:           "Bot failure",
			invoices:       &fakeInvoicer{err: errors.New("telegram is down")},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":{"code":"internal","message":"internal server error"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(memory.New(5), tt.invoices, service.NewNotificationHub())

			w := doRequest(router, http.MethodPost, "/api/v1/store/vip-pass", 5, "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestNotificationsWebSocket(t *testing.T) {
	hub := service.NewNotificationHub()
	srv := httptest.NewServer(newTestRouter(memory.New(5), nil, hub))
	defer srv.Close()

	header := http.Header{}
	header.Set("Authorization", authHeader(42))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/store/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.Publish(42, service.Message{
			Type:    service.NotificationVipActivated,
			Payload: map[string]any{"user_id": 42},
		}) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg service.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, service.NotificationVipActivated, msg.Type)
	assert.NotEmpty(t, msg.ID)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{name: "Already claimed", err: service.ErrVipAlreadyClaimed, expectedStatus: http.StatusConflict, expectedCode: "already-exists"},
		{name: "Wrapped domain error", err: fmt.Errorf("claim: %w", service.ErrVipRequired), expectedStatus: http.StatusPreconditionFailed, expectedCode: "failed-precondition"},
		{name: "Retries exhausted", err: errors.Wrapf(repository.ErrTxAborted, "after %d attempts", 5), expectedStatus: http.StatusServiceUnavailable, expectedCode: "unavailable"},
		{name: "Unknown", err: errors.New("boom"), expectedStatus: http.StatusInternalServerError, expectedCode: "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorStatus(tt.err)
			assert.Equal(t, tt.expectedStatus, status)
			assert.Equal(t, tt.expectedCode, body.Code)
		})
	}
}
