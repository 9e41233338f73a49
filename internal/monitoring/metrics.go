package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
//
// 同时实现 session.Recorder 与 notify.Recorder。
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 会话指标
	AddressRotations  *prometheus.CounterVec
	MessagesSimulated *prometheus.CounterVec
	AutoRefreshActive prometheus.Gauge
	CountdownSeconds  prometheus.Gauge

	// 通知与推送
	NotificationsTotal *prometheus.CounterVec
	WebSocketClients   prometheus.Gauge

	// 系统指标
	SystemUptime prometheus.Gauge
	PanicsTotal  prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics 创建监控指标并注册到 reg
//
// 参数:
//   - reg: 注册表，为 nil 时使用默认注册表；测试中传入 prometheus.NewRegistry()
func NewMetrics(reg prometheus.Registerer) *Metrics {
	gatherer := prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tempmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		AddressRotations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_address_rotations_total",
				Help: "Total number of address rotations by reason",
			},
			[]string{"reason"},
		),

		MessagesSimulated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_messages_simulated_total",
				Help: "Total number of simulated incoming messages by source",
			},
			[]string{"source"},
		),

		AutoRefreshActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tempmail_auto_refresh_active",
				Help: "Whether auto-refresh is active (1) or not (0)",
			},
		),

		CountdownSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tempmail_countdown_seconds",
				Help: "Seconds remaining before the current address expires",
			},
		),

		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_notifications_total",
				Help: "Total number of notifications by level",
			},
			[]string{"level"},
		),

		WebSocketClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tempmail_websocket_clients",
				Help: "Number of connected websocket clients",
			},
		),

		SystemUptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tempmail_system_uptime_seconds",
				Help: "System uptime in seconds",
			},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tempmail_panics_total",
				Help: "Total number of recovered panics",
			},
		),

		RateLimitBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_rate_limit_blocks_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"endpoint"},
		),

		gatherer: gatherer,
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// AddressRotated 记录地址轮换
func (m *Metrics) AddressRotated(reason string) {
	m.AddressRotations.WithLabelValues(reason).Inc()
}

// MessageSimulated 记录模拟来信
func (m *Metrics) MessageSimulated(source string) {
	m.MessagesSimulated.WithLabelValues(source).Inc()
}

// AutoRefreshChanged 更新自动刷新状态
func (m *Metrics) AutoRefreshChanged(active bool) {
	if active {
		m.AutoRefreshActive.Set(1)
		return
	}
	m.AutoRefreshActive.Set(0)
}

// CountdownChanged 更新剩余秒数
func (m *Metrics) CountdownChanged(seconds int) {
	m.CountdownSeconds.Set(float64(seconds))
}

// NotificationEmitted 记录通知
func (m *Metrics) NotificationEmitted(level string) {
	m.NotificationsTotal.WithLabelValues(level).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(endpoint string) {
	m.RateLimitBlocks.WithLabelValues(endpoint).Inc()
}

// UpdateWebSocketClients 更新 websocket 连接数
func (m *Metrics) UpdateWebSocketClients(count int) {
	m.WebSocketClients.Set(float64(count))
}

// UpdateSystemUptime 更新系统运行时间
func (m *Metrics) UpdateSystemUptime(uptime time.Duration) {
	m.SystemUptime.Set(uptime.Seconds())
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
