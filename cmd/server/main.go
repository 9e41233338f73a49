package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tempmail/playground/internal/clipboard"
	"tempmail/playground/internal/config"
	"tempmail/playground/internal/domain"
	"tempmail/playground/internal/generator"
	"tempmail/playground/internal/health"
	"tempmail/playground/internal/logger"
	"tempmail/playground/internal/loop"
	"tempmail/playground/internal/middleware"
	"tempmail/playground/internal/monitoring"
	"tempmail/playground/internal/notify"
	"tempmail/playground/internal/preference"
	"tempmail/playground/internal/scheduler"
	"tempmail/playground/internal/session"
	httptransport "tempmail/playground/internal/transport/http"
	"tempmail/playground/internal/websocket"
)

const version = "1.0.0"

// main 启动临时邮箱会话服务（HTTP + WebSocket）。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAge:      cfg.Log.MaxAge,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting tempmail playground",
		zap.String("version", version),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// run 组装全部组件并阻塞到 ctx 取消
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// 初始化监控系统
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// 通知中心
	center := notify.NewCenter(notify.Options{
		TTL:      cfg.Notify.TTL,
		Capacity: cfg.Notify.Capacity,
		Recorder: metrics,
		Logger:   log.Named("notify"),
	})
	defer center.Close()

	// 偏好存储
	prefStore, err := preference.Open(ctx, cfg.Preference, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("failed to open preference store: %w", err)
	}
	defer prefStore.Close()

	// 事件循环与调度器
	eventLoop := loop.New(cfg.Session.QueueSize, log.Named("loop"))
	eventLoop.OnPanic(func(recovered interface{}) {
		metrics.RecordPanic()
		center.Notify(domain.NotificationWarning, "Something went wrong. Please refresh the page.")
	})
	timer := scheduler.NewTimer(eventLoop, log.Named("scheduler"))

	// WebSocket Hub 需要先于控制器创建，作为会话观察者
	var service *session.Service
	wsHub := websocket.NewHub(commanderFunc(func() websocket.Commander { return service }), websocket.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         log.Named("websocket"),
		ErrorMessage:   httptransport.GetErrorMessage,
		OnClientCount:  metrics.UpdateWebSocketClients,
	})
	unsubscribe := center.Subscribe(wsHub.NotificationPublished)
	defer unsubscribe()

	sessionCfg := sessionConfig(cfg.Session)
	ctrl := session.NewController(sessionCfg, session.Dependencies{
		Scheduler: timer,
		Source:    generator.NewSource(cfg.Session.Seed),
		Notifier:  center,
		Observer:  wsHub,
		Recorder:  metrics,
		Logger:    log.Named("session"),
	})

	service = session.NewService(ctrl, eventLoop,
		session.WithPreferences(preference.NewThemeStore(prefStore, cfg.Preference.Key)),
		session.WithClipboard(clipboard.New(clipboard.Config{
			Enabled:       cfg.Clipboard.Enabled,
			OSC52Fallback: cfg.Clipboard.OSC52Fallback,
			Tmux:          cfg.Clipboard.Tmux,
		}, log.Named("clipboard"))),
		session.WithNotifier(center),
		session.WithLogger(log.Named("session")),
	)

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	eventLoop.Start(loopCtx)

	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	log.Info("session initialized", zap.Duration("base_expiry", sessionCfg.BaseExpiry))

	// 健康检查
	healthChecker := health.NewHealthChecker(service, prefStore, log)
	reporter := monitoring.NewReporter(metrics, log, version)
	reporter.AddProbe("event_loop", service.Ping, true)
	reporter.AddProbe("preferences", prefStore.Ping, false)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:        cfg,
		Session:       service,
		SessionConfig: sessionCfg,
		Notifications: center,
		WebSocketHub:  wsHub,
		Health:        healthChecker,
		Reporter:      reporter,
		Metrics:       metrics,
		RateLimiter:   rateLimiter,
		Logger:        log,
	})

	httpAddr := cfg.Server.Addr()
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		wsHub.Wait()
		return nil
	})

	// 监控服务 goroutine
	group.Go(func() error {
		log.Info("starting monitoring services")
		return reporter.Run(groupCtx, 30*time.Second)
	})

	// 定时清理空闲限流器 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if removed := rateLimiter.Cleanup(); removed > 0 {
					log.Debug("idle rate limiters removed", zap.Int("count", removed))
				}
			}
		}
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// 关闭 HTTP 服务器
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		// 取消全部会话任务，再停止调度器与事件循环
		if err := service.Close(shutdownCtx); err != nil {
			log.Warn("session close warning", zap.Error(err))
		}
		timer.Stop()
		eventLoop.Stop()

		log.Info("servers stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	return group.Wait()
}

// commanderFunc 延迟解析 WebSocket 命令入口，Hub 与 Service 互相引用
type commanderFunc func() websocket.Commander

func (f commanderFunc) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	return f().Snapshot(ctx)
}

func (f commanderFunc) Dispatch(ctx context.Context, cmd domain.Command) error {
	return f().Dispatch(ctx, cmd)
}

func (f commanderFunc) Shortcut(ctx context.Context, sc domain.Shortcut) (domain.Command, error) {
	return f().Shortcut(ctx, sc)
}

// sessionConfig 将配置文件中的会话参数转换为控制器配置
func sessionConfig(c config.SessionConfig) session.Config {
	return session.Config{
		BaseExpiry:            c.BaseExpiry,
		Extension:             c.Extension,
		AutoRefreshPeriod:     c.AutoRefreshPeriod,
		BackgroundMin:         c.BackgroundMin,
		BackgroundMax:         c.BackgroundMax,
		BackgroundProbability: c.BackgroundProbability,
		HistoryLimit:          c.HistoryLimit,
		GenerateDelay:         c.GenerateDelay,
		RefreshDelay:          c.RefreshDelay,
		DeleteDelay:           c.DeleteDelay,
		InitialMailDelay:      c.InitialMailDelay,
	}
}
