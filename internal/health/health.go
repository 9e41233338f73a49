// Package health 提供 Kubernetes 风格的存活与就绪探针。
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

// Pinger 可探测的依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker 健康检查器
//
// 存活：事件循环仍在处理任务；就绪：偏好存储可用。
type HealthChecker struct {
	health  healthcheck.Handler
	loop    Pinger
	prefs   Pinger
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthChecker 创建健康检查器
//
// 参数:
//   - loop: 会话事件循环探测
//   - prefs: 偏好存储探测，可为 nil
//   - logger: 日志记录器
func NewHealthChecker(loop, prefs Pinger, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &HealthChecker{
		health:  healthcheck.NewHandler(),
		loop:    loop,
		prefs:   prefs,
		timeout: 2 * time.Second,
		logger:  logger,
	}

	hc.addChecks()
	return hc
}

// addChecks 添加健康检查
func (hc *HealthChecker) addChecks() {
	hc.health.AddLivenessCheck("event_loop", healthcheck.Timeout(hc.probe("event_loop", hc.loop), hc.timeout))

	if hc.prefs != nil {
		hc.health.AddReadinessCheck("preferences", healthcheck.Timeout(hc.probe("preferences", hc.prefs), hc.timeout))
	}
}

func (hc *HealthChecker) probe(name string, target Pinger) healthcheck.Check {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), hc.timeout)
		defer cancel()

		if err := target.Ping(ctx); err != nil {
			hc.logger.Warn("health probe failed", zap.String("check", name), zap.Error(err))
			return err
		}
		return nil
	}
}

// LiveHandler 存活探针
func (hc *HealthChecker) LiveHandler() http.HandlerFunc {
	return hc.health.LiveEndpoint
}

// ReadyHandler 就绪探针（包含存活检查）
func (hc *HealthChecker) ReadyHandler() http.HandlerFunc {
	return hc.health.ReadyEndpoint
}

// Handler 返回完整的健康检查处理器（/live 与 /ready）
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}
