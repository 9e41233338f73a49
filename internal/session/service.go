package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tempmail/playground/internal/domain"
)

// Runner 串行执行器，通常是 loop.Loop
type Runner interface {
	Do(ctx context.Context, task func()) error
}

// PreferenceStore 主题偏好存储
type PreferenceStore interface {
	LoadTheme(ctx context.Context) (domain.Theme, error)
	SaveTheme(ctx context.Context, theme domain.Theme) error
}

// Clipboard 剪贴板写入
type Clipboard interface {
	WriteText(text string) error
}

// Service 会话服务
//
// 对外暴露并发安全的会话操作：状态变更一律投递到事件循环内执行，
// 剪贴板与偏好存储等 IO 在事件循环之外完成。
type Service struct {
	ctrl      *Controller
	runner    Runner
	prefs     PreferenceStore
	clipboard Clipboard
	notifier  Notifier
	log       *zap.Logger
}

// ServiceOption 服务选项
type ServiceOption func(*Service)

// WithPreferences 设置主题偏好存储
func WithPreferences(store PreferenceStore) ServiceOption {
	return func(s *Service) { s.prefs = store }
}

// WithClipboard 设置剪贴板
func WithClipboard(clip Clipboard) ServiceOption {
	return func(s *Service) { s.clipboard = clip }
}

// WithNotifier 设置服务层通知输出（剪贴板结果、持久化失败等）
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithLogger 设置日志记录器
func WithLogger(log *zap.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

// NewService 创建会话服务
//
// 参数:
//   - ctrl: 会话控制器
//   - runner: 控制器所在的事件循环
//   - opts: 可选依赖
func NewService(ctrl *Controller, runner Runner, opts ...ServiceOption) *Service {
	s := &Service{
		ctrl:   ctrl,
		runner: runner,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start 读取主题偏好并初始化会话
func (s *Service) Start(ctx context.Context) error {
	theme := domain.DefaultTheme
	if s.prefs != nil {
		loaded, err := s.prefs.LoadTheme(ctx)
		if err != nil {
			s.log.Warn("failed to load theme preference, using default", zap.Error(err))
		} else {
			theme = loaded
		}
	}

	var initErr error
	if err := s.run(ctx, func() { initErr = s.ctrl.Init(theme) }); err != nil {
		return err
	}
	return initErr
}

// Snapshot 获取当前会话快照
func (s *Service) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.run(ctx, func() { snap = s.ctrl.Snapshot() })
	return snap, err
}

// Inbox 获取收件箱（最新在前）
func (s *Service) Inbox(ctx context.Context) ([]domain.Message, error) {
	var msgs []domain.Message
	err := s.run(ctx, func() { msgs = s.ctrl.Inbox() })
	return msgs, err
}

// Generate 生成新地址
func (s *Service) Generate(ctx context.Context) error {
	return s.call(ctx, s.ctrl.Generate)
}

// Delete 删除当前地址并换新
func (s *Service) Delete(ctx context.Context) error {
	return s.call(ctx, s.ctrl.Delete)
}

// RefreshInbox 刷新收件箱
func (s *Service) RefreshInbox(ctx context.Context) error {
	return s.call(ctx, s.ctrl.RefreshInbox)
}

// ClearInbox 清空收件箱
func (s *Service) ClearInbox(ctx context.Context) error {
	return s.call(ctx, s.ctrl.ClearInbox)
}

// Extend 延长有效期，返回延长后的剩余秒数
func (s *Service) Extend(ctx context.Context, seconds int) (int, error) {
	var (
		remaining int
		opErr     error
	)
	if err := s.run(ctx, func() { remaining, opErr = s.ctrl.Extend(seconds) }); err != nil {
		return 0, err
	}
	return remaining, opErr
}

// ToggleAutoRefresh 切换自动刷新，返回切换后的状态
func (s *Service) ToggleAutoRefresh(ctx context.Context) (bool, error) {
	var (
		active bool
		opErr  error
	)
	if err := s.run(ctx, func() { active, opErr = s.ctrl.ToggleAutoRefresh() }); err != nil {
		return false, err
	}
	return active, opErr
}

// ToggleTheme 切换主题并持久化。持久化失败只记录警告，不影响本次切换。
func (s *Service) ToggleTheme(ctx context.Context) (domain.Theme, error) {
	var (
		theme domain.Theme
		opErr error
	)
	if err := s.run(ctx, func() { theme, opErr = s.ctrl.ToggleTheme() }); err != nil {
		return "", err
	}
	if opErr != nil {
		return "", opErr
	}

	if s.prefs != nil {
		if err := s.prefs.SaveTheme(ctx, theme); err != nil {
			s.log.Warn("failed to persist theme preference",
				zap.String("theme", string(theme)),
				zap.Error(err),
			)
		}
	}
	return theme, nil
}

// Copy 将当前地址写入剪贴板
//
// 剪贴板失败时仍返回地址，错误包装 ErrClipboard，调用方可以自行展示地址。
func (s *Service) Copy(ctx context.Context) (domain.Address, error) {
	var (
		addr  domain.Address
		opErr error
	)
	if err := s.run(ctx, func() { addr, opErr = s.ctrl.Copy() }); err != nil {
		return "", err
	}
	if opErr != nil {
		return "", opErr
	}

	if s.clipboard == nil {
		s.notify(domain.NotificationWarning, "Failed to copy email address")
		return addr, ErrClipboard
	}
	if err := s.clipboard.WriteText(addr.String()); err != nil {
		s.log.Warn("clipboard write failed", zap.Error(err))
		s.notify(domain.NotificationWarning, "Failed to copy email address")
		return addr, fmt.Errorf("%w: %v", ErrClipboard, err)
	}

	s.notify(domain.NotificationSuccess, "Email address copied to clipboard!")
	return addr, nil
}

// Dispatch 按命令名执行操作
func (s *Service) Dispatch(ctx context.Context, cmd domain.Command) error {
	switch cmd {
	case domain.CommandGenerate:
		return s.Generate(ctx)
	case domain.CommandCopy:
		_, err := s.Copy(ctx)
		return err
	case domain.CommandRefresh:
		return s.RefreshInbox(ctx)
	case domain.CommandDelete:
		return s.Delete(ctx)
	case domain.CommandToggleAutoRefresh:
		_, err := s.ToggleAutoRefresh(ctx)
		return err
	case domain.CommandClearInbox:
		return s.ClearInbox(ctx)
	case domain.CommandExtend:
		_, err := s.Extend(ctx, 0)
		return err
	case domain.CommandToggleTheme:
		_, err := s.ToggleTheme(ctx)
		return err
	default:
		return domain.ErrUnknownCommand
	}
}

// Shortcut 处理键盘快捷键，返回触发的命令
func (s *Service) Shortcut(ctx context.Context, sc domain.Shortcut) (domain.Command, error) {
	cmd, ok := domain.ShortcutCommand(sc)
	if !ok {
		return "", domain.ErrUnknownCommand
	}
	return cmd, s.Dispatch(ctx, cmd)
}

// Ping 确认事件循环仍在处理任务
func (s *Service) Ping(ctx context.Context) error {
	return s.run(ctx, func() {})
}

// Close 关闭会话，取消全部调度任务
func (s *Service) Close(ctx context.Context) error {
	return s.run(ctx, s.ctrl.Close)
}

func (s *Service) call(ctx context.Context, op func() error) error {
	var opErr error
	if err := s.run(ctx, func() { opErr = op() }); err != nil {
		return err
	}
	return opErr
}

func (s *Service) run(ctx context.Context, fn func()) error {
	if err := s.runner.Do(ctx, fn); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

func (s *Service) notify(level domain.NotificationLevel, message string) {
	if s.notifier != nil {
		s.notifier.Notify(level, message)
	}
}
