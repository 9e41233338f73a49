// Package session 实现一次性邮箱会话的状态机：
// 地址轮换、过期倒计时、自动刷新调度和模拟收件箱。
package session

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"tempmail/playground/internal/domain"
	"tempmail/playground/internal/generator"
	"tempmail/playground/internal/scheduler"
)

// 调度任务名
const (
	JobExpiry         = "expiry"
	JobAutoRefresh    = "auto-refresh"
	JobBackgroundMail = "background-mail"
	JobInitialMail    = "initial-mail"
	jobBusyPrefix     = "busy:"
)

// RotationReason 地址轮换原因
type RotationReason string

const (
	RotationInit        RotationReason = "init"
	RotationManual      RotationReason = "manual"
	RotationDelete      RotationReason = "delete"
	RotationExpiry      RotationReason = "expiry"
	RotationAutoRefresh RotationReason = "auto-refresh"
)

// 模拟来信来源
const (
	SourceManual      = "manual"
	SourceRefresh     = "refresh"
	SourceAutoRefresh = "auto-refresh"
	SourceBackground  = "background"
	SourceInitial     = "initial"
)

// Notifier 短暂状态提示的输出通道
type Notifier interface {
	Notify(level domain.NotificationLevel, message string)
}

// Observer 状态变更观察者（渲染层）
//
// 回调在事件循环内执行，实现方不得阻塞。
type Observer interface {
	SessionChanged(snapshot domain.Snapshot)
}

// Recorder 业务指标记录
type Recorder interface {
	AddressRotated(reason string)
	MessageSimulated(source string)
	AutoRefreshChanged(active bool)
	CountdownChanged(seconds int)
}

// Dependencies 控制器依赖项
type Dependencies struct {
	Scheduler scheduler.Scheduler // 必需
	Source    generator.Source    // 为 nil 时使用基于时间的随机源
	Notifier  Notifier
	Observer  Observer
	Recorder  Recorder
	Logger    *zap.Logger
}

// Controller 会话状态机
//
// 持有全部会话状态（当前地址、历史、收件箱、倒计时、自动刷新句柄），
// 所有方法都必须在同一个事件循环内调用，彼此之间天然串行。
type Controller struct {
	cfg       Config
	sched     scheduler.Scheduler
	src       generator.Source
	addresses *generator.AddressGenerator
	simulator *generator.Simulator
	notifier  Notifier
	observer  Observer
	recorder  Recorder
	log       *zap.Logger

	initialized bool
	closed      bool
	current     domain.Address
	history     *History
	inbox       *Inbox
	countdown   int
	theme       domain.Theme

	expiryJob     scheduler.Handle
	initialJob    scheduler.Handle
	backgroundJob scheduler.Handle
	autoRefresh   scheduler.Handle
	busy          map[domain.Command]scheduler.Handle
}

// NewController 创建会话控制器
func NewController(cfg Config, deps Dependencies) *Controller {
	if deps.Scheduler == nil {
		panic("session: scheduler is required")
	}
	src := deps.Source
	if src == nil {
		src = generator.NewSource(0)
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Controller{
		cfg:       cfg,
		sched:     deps.Scheduler,
		src:       src,
		addresses: generator.NewAddressGenerator(src),
		simulator: generator.NewSimulator(src, deps.Scheduler.Now),
		notifier:  deps.Notifier,
		observer:  deps.Observer,
		recorder:  deps.Recorder,
		log:       log,
		history:   NewHistory(cfg.HistoryLimit),
		inbox:     NewInbox(),
		theme:     domain.DefaultTheme,
		busy:      make(map[domain.Command]scheduler.Handle),
	}
}

// Init 初始化会话：生成首个地址，启动倒计时、首封来信和后台来信任务。
//
// 重复调用无效。
func (c *Controller) Init(theme domain.Theme) error {
	if c.closed {
		return ErrClosed
	}
	if c.initialized {
		return nil
	}

	if theme != "" {
		c.theme = theme
	}
	c.rotate(RotationInit)

	c.expiryJob = c.sched.Every(JobExpiry, time.Second, c.Tick)
	c.initialJob = c.sched.After(JobInitialMail, c.cfg.InitialMailDelay, c.initialMail)
	c.backgroundJob = c.sched.EveryFunc(JobBackgroundMail, c.backgroundInterval, c.backgroundMail)
	c.initialized = true

	c.log.Info("session initialized",
		zap.String("address", c.current.String()),
		zap.String("theme", string(c.theme)),
	)
	c.notify(domain.NotificationSuccess, "New email address generated successfully!")
	c.publish()
	return nil
}

// Close 取消所有调度任务，倒计时进入停止状态。
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true

	for _, h := range []scheduler.Handle{c.expiryJob, c.initialJob, c.backgroundJob, c.autoRefresh} {
		if h != nil {
			h.Cancel()
		}
	}
	for cmd, h := range c.busy {
		h.Cancel()
		delete(c.busy, cmd)
	}
	c.expiryJob, c.initialJob, c.backgroundJob, c.autoRefresh = nil, nil, nil, nil

	c.log.Info("session closed")
}

// Generate 手动生成新地址（带模拟处理延迟）。
func (c *Controller) Generate() error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.delayed(domain.CommandGenerate, c.cfg.GenerateDelay, func() {
		c.rotate(RotationManual)
		c.notify(domain.NotificationSuccess, "New email address generated successfully!")
	})
}

// Delete 删除当前地址。删除与轮换是同一操作：删除后立即获得新地址。
func (c *Controller) Delete() error {
	if c.current.IsZero() {
		c.log.Warn("delete requested without current address")
		c.notify(domain.NotificationWarning, "No email address to delete!")
		return ErrNoAddress
	}
	if err := c.ready(); err != nil {
		return err
	}
	return c.delayed(domain.CommandDelete, c.cfg.DeleteDelay, func() {
		c.rotate(RotationDelete)
		c.notify(domain.NotificationSuccess, "Email deleted and new one generated!")
	})
}

// Copy 返回当前地址供复制。剪贴板写入不在事件循环内进行。
func (c *Controller) Copy() (domain.Address, error) {
	if c.current.IsZero() {
		c.log.Warn("copy requested without current address")
		c.notify(domain.NotificationWarning, "No email address to copy!")
		return "", ErrNoAddress
	}
	return c.current, nil
}

// RefreshInbox 手动刷新收件箱：延迟后注入一封模拟邮件。
func (c *Controller) RefreshInbox() error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.delayed(domain.CommandRefresh, c.cfg.RefreshDelay, func() {
		wasEmpty := c.inbox.Len() == 0
		c.simulate(SourceRefresh)
		if wasEmpty {
			c.notify(domain.NotificationSuccess, "Inbox refreshed successfully!")
		} else {
			c.notify(domain.NotificationSuccess, "New emails added to inbox!")
		}
	})
}

// SimulateIncoming 立即注入一封模拟邮件。
func (c *Controller) SimulateIncoming() (domain.Message, error) {
	if err := c.ready(); err != nil {
		return domain.Message{}, err
	}
	msg := c.simulate(SourceManual)
	c.publish()
	return msg, nil
}

// ClearInbox 清空收件箱
func (c *Controller) ClearInbox() error {
	if err := c.ready(); err != nil {
		return err
	}
	c.inbox.Clear()
	c.notify(domain.NotificationInfo, "Inbox cleared")
	c.publish()
	return nil
}

// Extend 延长当前地址的有效期，seconds <= 0 时使用默认延长时长。
//
// 无设计上限，但加法在 math.MaxInt 处饱和，倒计时不会溢出为负数；
// 也不会重置每秒的倒计时节奏。
func (c *Controller) Extend(seconds int) (int, error) {
	if err := c.ready(); err != nil {
		return c.countdown, err
	}
	if seconds <= 0 {
		seconds = c.cfg.extensionSeconds()
	}

	if seconds > math.MaxInt-c.countdown {
		c.countdown = math.MaxInt
	} else {
		c.countdown += seconds
	}
	c.log.Info("expiry extended",
		zap.Int("seconds", seconds),
		zap.Int("countdown", c.countdown),
	)
	c.record(func(r Recorder) { r.CountdownChanged(c.countdown) })
	c.notify(domain.NotificationSuccess, fmt.Sprintf("Email expiry extended by %s!", describeSeconds(seconds)))
	c.publish()
	return c.countdown, nil
}

// Tick 倒计时前进一秒，归零时轮换地址并继续运行。
func (c *Controller) Tick() {
	if !c.initialized || c.closed {
		return
	}

	if c.countdown > 0 {
		c.countdown--
	}
	if c.countdown == 0 {
		c.log.Info("address expired", zap.String("address", c.current.String()))
		c.notify(domain.NotificationInfo, "Email expired! Generating new address...")
		c.rotate(RotationExpiry)
	}

	c.record(func(r Recorder) { r.CountdownChanged(c.countdown) })
	c.publish()
}

// ToggleAutoRefresh 切换自动刷新，返回切换后的状态。
func (c *Controller) ToggleAutoRefresh() (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	if c.autoRefresh != nil {
		c.StopAutoRefresh()
	} else {
		c.StartAutoRefresh()
	}
	return c.autoRefresh != nil, nil
}

// StartAutoRefresh 开启自动刷新。已开启时不做任何事，保证最多只有一个周期任务。
func (c *Controller) StartAutoRefresh() {
	if c.autoRefresh != nil || c.closed {
		return
	}

	c.autoRefresh = c.sched.Every(JobAutoRefresh, c.cfg.AutoRefreshPeriod, c.autoRefreshFire)
	c.log.Info("auto-refresh activated", zap.Duration("period", c.cfg.AutoRefreshPeriod))
	c.record(func(r Recorder) { r.AutoRefreshChanged(true) })
	c.notify(domain.NotificationSuccess,
		fmt.Sprintf("Auto-refresh activated! New emails every %s.", describeSeconds(int(c.cfg.AutoRefreshPeriod/time.Second))))
	c.publish()
}

// StopAutoRefresh 关闭自动刷新并取消周期任务。
func (c *Controller) StopAutoRefresh() {
	if c.autoRefresh == nil {
		return
	}

	c.autoRefresh.Cancel()
	c.autoRefresh = nil
	c.log.Info("auto-refresh deactivated")
	c.record(func(r Recorder) { r.AutoRefreshChanged(false) })
	c.notify(domain.NotificationInfo, "Auto-refresh deactivated.")
	c.publish()
}

// ToggleTheme 切换主题，返回新主题。持久化由调用方负责。
func (c *Controller) ToggleTheme() (domain.Theme, error) {
	if err := c.ready(); err != nil {
		return c.theme, err
	}
	c.theme = c.theme.Toggle()
	c.notify(domain.NotificationInfo, fmt.Sprintf("Switched to %s theme", c.theme))
	c.publish()
	return c.theme, nil
}

// Theme 当前主题
func (c *Controller) Theme() domain.Theme {
	return c.theme
}

// Address 当前地址
func (c *Controller) Address() domain.Address {
	return c.current
}

// Countdown 剩余秒数
func (c *Controller) Countdown() int {
	return c.countdown
}

// AutoRefreshActive 自动刷新是否开启
func (c *Controller) AutoRefreshActive() bool {
	return c.autoRefresh != nil
}

// Inbox 收件箱副本，最新在前
func (c *Controller) Inbox() []domain.Message {
	return c.inbox.List()
}

// History 地址历史副本，最旧在前。仅供内部使用（预留撤销功能）。
func (c *Controller) History() []domain.Address {
	return c.history.Entries()
}

// Busy 判断命令是否处于处理中
func (c *Controller) Busy(cmd domain.Command) bool {
	_, ok := c.busy[cmd]
	return ok
}

// Snapshot 构建渲染快照
func (c *Controller) Snapshot() domain.Snapshot {
	busy := make([]domain.Command, 0, len(c.busy))
	for _, cmd := range []domain.Command{domain.CommandGenerate, domain.CommandRefresh, domain.CommandDelete} {
		if c.Busy(cmd) {
			busy = append(busy, cmd)
		}
	}

	return domain.Snapshot{
		Initialized:    c.initialized,
		Address:        c.current,
		Countdown:      c.countdown,
		CountdownLabel: domain.FormatCountdown(c.countdown),
		ExpiryLevel:    domain.ExpiryLevelFor(c.countdown),
		AutoRefresh:    c.autoRefresh != nil,
		Theme:          c.theme,
		Inbox:          c.inbox.List(),
		InboxLabel:     domain.InboxCountLabel(c.inbox.Len()),
		Busy:           busy,
		HistorySize:    c.history.Len(),
	}
}

// rotate 完整的地址轮换：归档旧地址、生成新地址、清空收件箱、重置倒计时。
func (c *Controller) rotate(reason RotationReason) {
	prev := c.current
	next := c.addresses.Generate()
	for next == prev {
		next = c.addresses.Generate()
	}

	if !prev.IsZero() {
		c.history.Push(prev)
	}
	c.current = next
	c.inbox.Clear()
	c.countdown = c.cfg.baseSeconds()

	c.log.Info("address rotated",
		zap.String("reason", string(reason)),
		zap.String("previous", prev.String()),
		zap.String("address", next.String()),
	)
	c.record(func(r Recorder) {
		r.AddressRotated(string(reason))
		r.CountdownChanged(c.countdown)
	})
}

// simulate 生成一封模拟邮件并插入收件箱最前面
func (c *Controller) simulate(source string) domain.Message {
	msg := c.simulator.Next()
	c.inbox.Prepend(msg)

	c.log.Debug("simulated message received",
		zap.String("source", source),
		zap.String("sender", msg.Sender),
		zap.String("subject", msg.Subject),
	)
	c.record(func(r Recorder) { r.MessageSimulated(source) })
	return msg
}

// delayed 以"忙碌标记 + 延迟续体"的方式执行命令，处理中重复调用返回 ErrBusy。
func (c *Controller) delayed(cmd domain.Command, delay time.Duration, fn func()) error {
	if c.Busy(cmd) {
		c.log.Debug("command ignored while busy", zap.String("command", string(cmd)))
		return ErrBusy
	}

	if delay <= 0 {
		fn()
		c.publish()
		return nil
	}

	c.busy[cmd] = c.sched.After(jobBusyPrefix+string(cmd), delay, func() {
		delete(c.busy, cmd)
		if c.closed {
			return
		}
		fn()
		c.publish()
	})
	c.publish()
	return nil
}

func (c *Controller) autoRefreshFire() {
	c.rotate(RotationAutoRefresh)
	c.simulate(SourceAutoRefresh)
	c.notify(domain.NotificationInfo, "New email address generated successfully!")
	c.publish()
}

func (c *Controller) initialMail() {
	c.initialJob = nil
	if !c.initialized || c.closed {
		return
	}
	c.simulate(SourceInitial)
	c.publish()
}

func (c *Controller) backgroundInterval() time.Duration {
	return generator.Between(c.cfg.BackgroundMin, c.cfg.BackgroundMax, c.src)
}

// backgroundMail 低概率后台来信，自动刷新开启时跳过
func (c *Controller) backgroundMail() {
	if !c.initialized || c.closed || c.autoRefresh != nil {
		return
	}
	if c.src.Float64() >= c.cfg.BackgroundProbability {
		return
	}
	c.simulate(SourceBackground)
	c.publish()
}

func (c *Controller) ready() error {
	if c.closed {
		return ErrClosed
	}
	if !c.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (c *Controller) notify(level domain.NotificationLevel, message string) {
	if c.notifier != nil {
		c.notifier.Notify(level, message)
	}
}

func (c *Controller) publish() {
	if c.observer != nil {
		c.observer.SessionChanged(c.Snapshot())
	}
}

func (c *Controller) record(fn func(r Recorder)) {
	if c.recorder != nil {
		fn(c.recorder)
	}
}

// describeSeconds 将秒数描述为 "5 minutes" / "30 seconds"
func describeSeconds(seconds int) string {
	switch {
	case seconds%60 == 0 && seconds >= 120:
		return fmt.Sprintf("%d minutes", seconds/60)
	case seconds == 60:
		return "1 minute"
	case seconds == 1:
		return "1 second"
	default:
		return fmt.Sprintf("%d seconds", seconds)
	}
}
