package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
)

// HealthStatus 健康状态
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck 单项检查结果
type HealthCheck struct {
	Name        string        `json:"name"`
	Status      HealthStatus  `json:"status"`
	Message     string        `json:"message,omitempty"`
	Duration    time.Duration `json:"duration"`
	LastChecked time.Time     `json:"last_checked"`
}

// HealthReport 健康报告
type HealthReport struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    time.Duration `json:"uptime"`
	Checks    []HealthCheck `json:"checks"`
	Version   string        `json:"version"`
}

// Probe 依赖探测函数
type Probe func(ctx context.Context) error

type probeEntry struct {
	probe    Probe
	critical bool // 失败时整体不健康，否则只降级
}

// Reporter 汇总依赖探测与运行时状态，生成健康报告
type Reporter struct {
	probes    map[string]probeEntry
	metrics   *Metrics
	logger    *zap.Logger
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewReporter 创建健康报告器
func NewReporter(metrics *Metrics, logger *zap.Logger, version string) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		probes:    make(map[string]probeEntry),
		metrics:   metrics,
		logger:    logger,
		startTime: time.Now(),
		version:   version,
		timeout:   2 * time.Second,
	}
}

// AddProbe 注册依赖探测
//
// 参数:
//   - name: 检查项名称
//   - probe: 探测函数
//   - critical: 失败时是否判定为不健康
func (r *Reporter) AddProbe(name string, probe Probe, critical bool) {
	r.probes[name] = probeEntry{probe: probe, critical: critical}
}

// CheckHealth 执行全部检查
func (r *Reporter) CheckHealth(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Timestamp: time.Now(),
		Uptime:    time.Since(r.startTime),
		Version:   r.version,
		Checks:    make([]HealthCheck, 0, len(r.probes)+2),
	}

	names := make([]string, 0, len(r.probes))
	for name := range r.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		report.Checks = append(report.Checks, r.runProbe(ctx, name, r.probes[name]))
	}
	report.Checks = append(report.Checks, r.checkMemory(), r.checkGoroutines())

	overallStatus := HealthStatusHealthy
	for _, check := range report.Checks {
		switch check.Status {
		case HealthStatusUnhealthy:
			overallStatus = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overallStatus != HealthStatusUnhealthy {
				overallStatus = HealthStatusDegraded
			}
		}
	}

	report.Status = overallStatus
	return report
}

func (r *Reporter) runProbe(ctx context.Context, name string, entry probeEntry) HealthCheck {
	start := time.Now()
	check := HealthCheck{Name: name, LastChecked: start}

	probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := entry.probe(probeCtx); err != nil {
		check.Status = HealthStatusDegraded
		if entry.critical {
			check.Status = HealthStatusUnhealthy
		}
		check.Message = fmt.Sprintf("%s check failed: %v", name, err)
	} else {
		check.Status = HealthStatusHealthy
		check.Message = "ok"
	}

	check.Duration = time.Since(start)
	return check
}

// checkMemory 检查内存使用
func (r *Reporter) checkMemory() HealthCheck {
	start := time.Now()
	check := HealthCheck{Name: "memory", LastChecked: start}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memoryUsageMB := float64(m.Alloc) / 1024 / 1024
	if memoryUsageMB > 512 {
		check.Status = HealthStatusDegraded
		check.Message = fmt.Sprintf("High memory usage: %.2f MB", memoryUsageMB)
	} else {
		check.Status = HealthStatusHealthy
		check.Message = fmt.Sprintf("Memory usage: %.2f MB", memoryUsageMB)
	}

	check.Duration = time.Since(start)
	return check
}

// checkGoroutines 检查协程数量
func (r *Reporter) checkGoroutines() HealthCheck {
	start := time.Now()
	check := HealthCheck{Name: "goroutines", LastChecked: start}

	numGoroutines := runtime.NumGoroutine()
	if numGoroutines > 1000 {
		check.Status = HealthStatusDegraded
		check.Message = fmt.Sprintf("High goroutine count: %d", numGoroutines)
	} else {
		check.Status = HealthStatusHealthy
		check.Message = fmt.Sprintf("Goroutines: %d", numGoroutines)
	}

	check.Duration = time.Since(start)
	return check
}

// Run 定期执行健康检查并更新运行时间指标，直到 ctx 取消
func (r *Reporter) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report := r.CheckHealth(ctx)
			if r.metrics != nil {
				r.metrics.UpdateSystemUptime(report.Uptime)
			}

			switch report.Status {
			case HealthStatusUnhealthy:
				r.logger.Error("health check failed",
					zap.String("status", string(report.Status)),
					zap.Duration("uptime", report.Uptime),
				)
			case HealthStatusDegraded:
				r.logger.Warn("health check degraded",
					zap.String("status", string(report.Status)),
					zap.Duration("uptime", report.Uptime),
				)
			default:
				r.logger.Debug("health check passed", zap.Duration("uptime", report.Uptime))
			}
		}
	}
}
