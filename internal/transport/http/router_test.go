package httptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tempmail/playground/internal/config"
	"tempmail/playground/internal/domain"
	"tempmail/playground/internal/loop"
	"tempmail/playground/internal/middleware"
	"tempmail/playground/internal/monitoring"
	"tempmail/playground/internal/scheduler"
	"tempmail/playground/internal/session"
)

type mockSession struct {
	mock.Mock
}

func (m *mockSession) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Snapshot), args.Error(1)
}

func (m *mockSession) Inbox(ctx context.Context) ([]domain.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *mockSession) Generate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSession) Delete(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSession) Copy(ctx context.Context) (domain.Address, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Address), args.Error(1)
}

func (m *mockSession) RefreshInbox(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSession) ClearInbox(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSession) Extend(ctx context.Context, seconds int) (int, error) {
	args := m.Called(ctx, seconds)
	return args.Int(0), args.Error(1)
}

func (m *mockSession) ToggleAutoRefresh(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockSession) ToggleTheme(ctx context.Context) (domain.Theme, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Theme), args.Error(1)
}

func (m *mockSession) Shortcut(ctx context.Context, sc domain.Shortcut) (domain.Command, error) {
	args := m.Called(ctx, sc)
	return args.Get(0).(domain.Command), args.Error(1)
}

// inlineRunner 在调用方协程内直接执行任务
type inlineRunner struct{}

func (inlineRunner) Do(_ context.Context, task func()) error {
	task()
	return nil
}

type staticFeed []domain.Notification

func (f staticFeed) Active() []domain.Notification { return f }

var snapshot = domain.Snapshot{
	Initialized: true,
	Address:     "swift.fox123@tempmail.dev",
	Countdown:   600,
	Theme:       domain.ThemeLight,
}

func newTestRouter(svc SessionService, mutate func(*RouterDependencies)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	deps := RouterDependencies{
		Config:        &config.Config{CORS: config.CORSConfig{AllowedOrigins: []string{"*"}}},
		Session:       svc,
		SessionConfig: session.DefaultConfig(),
		Notifications: staticFeed(nil),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewRouter(deps)
}

func perform(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, Response) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestGetSession(t *testing.T) {
	svc := new(mockSession)
	svc.On("Snapshot", mock.Anything).Return(snapshot, nil)
	r := newTestRouter(svc, nil)

	w, resp := perform(r, http.MethodGet, "/v1/session", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "swift.fox123@tempmail.dev", data["address"])
	assert.EqualValues(t, 600, data["countdown"])
}

func TestGetInbox(t *testing.T) {
	svc := new(mockSession)
	now := time.Now()
	svc.On("Inbox", mock.Anything).Return([]domain.Message{
		{ID: "2", Sender: "GitHub", Subject: "Welcome", ReceivedAt: now.Add(-5 * time.Minute)},
		{ID: "1", Sender: "Netflix", Subject: "Verify", ReceivedAt: now.Add(-3 * time.Hour)},
	}, nil)
	r := newTestRouter(svc, nil)

	w, resp := perform(r, http.MethodGet, "/v1/session/inbox", "")

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "2 emails", data["label"])
	items := data["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "5m ago", items[0].(map[string]interface{})["timeLabel"])
	assert.Equal(t, "3h ago", items[1].(map[string]interface{})["timeLabel"])
}

func TestDelayedCommands(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		op     string
		err    error
		status int
		msg    string
	}{
		{"生成地址", http.MethodPost, "/v1/session/address", "Generate", nil, http.StatusAccepted, "已受理"},
		{"生成中重复调用", http.MethodPost, "/v1/session/address", "Generate", session.ErrBusy, http.StatusConflict, MsgBusy},
		{"删除地址", http.MethodDelete, "/v1/session/address", "Delete", nil, http.StatusAccepted, "已受理"},
		{"无地址可删", http.MethodDelete, "/v1/session/address", "Delete", session.ErrNoAddress, http.StatusUnprocessableEntity, MsgNoAddress},
		{"刷新收件箱", http.MethodPost, "/v1/session/inbox/refresh", "RefreshInbox", nil, http.StatusAccepted, "已受理"},
		{"事件循环已停止", http.MethodPost, "/v1/session/inbox/refresh", "RefreshInbox", fmt.Errorf("session: %w", loop.ErrStopped), http.StatusServiceUnavailable, MsgSessionStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockSession)
			svc.On(tt.op, mock.Anything).Return(tt.err)
			svc.On("Snapshot", mock.Anything).Return(snapshot, nil).Maybe()
			r := newTestRouter(svc, nil)

			w, resp := perform(r, tt.method, tt.path, "")

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, resp.Msg)
			svc.AssertExpectations(t)
		})
	}
}

func TestClearInbox(t *testing.T) {
	svc := new(mockSession)
	svc.On("ClearInbox", mock.Anything).Return(nil)
	svc.On("Snapshot", mock.Anything).Return(snapshot, nil)
	r := newTestRouter(svc, nil)

	w, _ := perform(r, http.MethodDelete, "/v1/session/inbox", "")

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestCopyAddress(t *testing.T) {
	t.Run("复制成功", func(t *testing.T) {
		svc := new(mockSession)
		svc.On("Copy", mock.Anything).Return(snapshot.Address, nil)
		r := newTestRouter(svc, nil)

		w, resp := perform(r, http.MethodPost, "/v1/session/address/copy", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "swift.fox123@tempmail.dev", resp.Data.(map[string]interface{})["address"])
	})

	t.Run("剪贴板不可用仍返回地址", func(t *testing.T) {
		svc := new(mockSession)
		svc.On("Copy", mock.Anything).Return(snapshot.Address, session.ErrClipboard)
		r := newTestRouter(svc, nil)

		w, resp := perform(r, http.MethodPost, "/v1/session/address/copy", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, MsgClipboardFailed, resp.Msg)
		assert.Equal(t, "swift.fox123@tempmail.dev", resp.Data.(map[string]interface{})["address"])
	})

	t.Run("无地址", func(t *testing.T) {
		svc := new(mockSession)
		svc.On("Copy", mock.Anything).Return(domain.Address(""), session.ErrNoAddress)
		r := newTestRouter(svc, nil)

		w, resp := perform(r, http.MethodPost, "/v1/session/address/copy", "")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, MsgNoAddress, resp.Msg)
	})
}

func TestExtendExpiry(t *testing.T) {
	t.Run("默认时长", func(t *testing.T) {
		svc := new(mockSession)
		svc.On("Extend", mock.Anything, 0).Return(900, nil)
		r := newTestRouter(svc, nil)

		w, resp := perform(r, http.MethodPost, "/v1/session/expiry/extend", "")

		assert.Equal(t, http.StatusOK, w.Code)
		data := resp.Data.(map[string]interface{})
		assert.EqualValues(t, 900, data["countdown"])
		assert.Equal(t, "15:00", data["countdownLabel"])
	})

	t.Run("指定秒数", func(t *testing.T) {
		svc := new(mockSession)
		svc.On("Extend", mock.Anything, 120).Return(720, nil)
		r := newTestRouter(svc, nil)

		w, _ := perform(r, http.MethodPost, "/v1/session/expiry/extend", `{"seconds":120}`)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("负数秒", func(t *testing.T) {
		svc := new(mockSession)
		r := newTestRouter(svc, nil)

		w, resp := perform(r, http.MethodPost, "/v1/session/expiry/extend", `{"seconds":-5}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, MsgInvalidExtension, resp.Msg)
		svc.AssertNotCalled(t, "Extend", mock.Anything, mock.Anything)
	})

	t.Run("超大秒数不会使倒计时变为负数", func(t *testing.T) {
		sched := scheduler.NewManual(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
		ctrl := session.NewController(session.DefaultConfig(), session.Dependencies{Scheduler: sched})
		svc := session.NewService(ctrl, inlineRunner{})
		require.NoError(t, svc.Start(context.Background()))
		r := newTestRouter(svc, nil)

		w, _ := perform(r, http.MethodPost, "/v1/session/expiry/extend", `{"seconds":9223372036854775807}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Countdown int `json:"countdown"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, math.MaxInt, resp.Data.Countdown)

		sched.Advance(3 * time.Second)
		assert.Equal(t, math.MaxInt-3, ctrl.Countdown())
	})

	t.Run("非法JSON", func(t *testing.T) {
		svc := new(mockSession)
		r := newTestRouter(svc, nil)

		w, _ := perform(r, http.MethodPost, "/v1/session/expiry/extend", `{"seconds":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestToggles(t *testing.T) {
	svc := new(mockSession)
	svc.On("ToggleAutoRefresh", mock.Anything).Return(true, nil)
	svc.On("ToggleTheme", mock.Anything).Return(domain.ThemeDark, nil)
	r := newTestRouter(svc, nil)

	w, resp := perform(r, http.MethodPost, "/v1/session/auto-refresh/toggle", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp.Data.(map[string]interface{})["autoRefresh"])

	w, resp = perform(r, http.MethodPost, "/v1/session/theme/toggle", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dark", resp.Data.(map[string]interface{})["theme"])
}

func TestShortcut(t *testing.T) {
	t.Run("Ctrl+R 生成地址", func(t *testing.T) {
		svc := new(mockSession)
		svc.On("Shortcut", mock.Anything, domain.Shortcut{Key: "r", Ctrl: true}).Return(domain.CommandGenerate, nil)
		r := newTestRouter(svc, nil)

		w, resp := perform(r, http.MethodPost, "/v1/session/shortcut", `{"key":"r","ctrl":true}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "generate", resp.Data.(map[string]interface{})["command"])
	})

	t.Run("未映射的按键", func(t *testing.T) {
		svc := new(mockSession)
		svc.On("Shortcut", mock.Anything, domain.Shortcut{Key: "x", Ctrl: true}).Return(domain.Command(""), domain.ErrUnknownCommand)
		r := newTestRouter(svc, nil)

		w, resp := perform(r, http.MethodPost, "/v1/session/shortcut", `{"key":"x","ctrl":true}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, MsgUnknownCommand, resp.Msg)
	})
}

func TestPublicConfig(t *testing.T) {
	r := newTestRouter(new(mockSession), nil)

	w, resp := perform(r, http.MethodGet, "/v1/public/config", "")

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Len(t, data["domains"], len(domain.AddressDomains()))
	timings := data["timings"].(map[string]interface{})
	assert.EqualValues(t, 600, timings["baseExpiry"])
	assert.EqualValues(t, 30, timings["autoRefreshPeriod"])
}

func TestListNotifications(t *testing.T) {
	feed := staticFeed{
		{ID: "b", Level: domain.NotificationSuccess, Message: "Inbox cleared"},
		{ID: "a", Level: domain.NotificationInfo, Message: "New email address generated successfully!"},
	}
	r := newTestRouter(new(mockSession), func(d *RouterDependencies) { d.Notifications = feed })

	w, resp := perform(r, http.MethodGet, "/v1/notifications", "")

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.EqualValues(t, 2, data["count"])
	assert.Equal(t, "b", data["items"].([]interface{})[0].(map[string]interface{})["id"])
}

func TestRateLimit(t *testing.T) {
	svc := new(mockSession)
	svc.On("ToggleTheme", mock.Anything).Return(domain.ThemeDark, nil)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	r := newTestRouter(svc, func(d *RouterDependencies) {
		d.RateLimiter = middleware.NewRateLimiter(0.001, 1)
		d.Metrics = metrics
	})

	w, _ := perform(r, http.MethodPost, "/v1/session/theme/toggle", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = perform(r, http.MethodPost, "/v1/session/theme/toggle", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestOpsRoutes(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	reporter := monitoring.NewReporter(metrics, nil, "test")
	r := newTestRouter(new(mockSession), func(d *RouterDependencies) {
		d.Metrics = metrics
		d.Reporter = reporter
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"test"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tempmail_")
}
