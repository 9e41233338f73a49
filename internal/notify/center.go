// Package notify 管理短暂展示的状态通知（toast）。
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tempmail/playground/internal/cache"
	"tempmail/playground/internal/domain"
)

// DefaultTTL 通知展示时长
const DefaultTTL = 4 * time.Second

// DefaultCapacity 同时保留的通知上限
const DefaultCapacity = 32

// Recorder 通知指标记录
type Recorder interface {
	NotificationEmitted(level string)
}

// Center 通知中心
//
// 通知写入 TTL 缓存，到期自动消失；每条新通知同步推送给所有订阅者。
// 订阅回调不得阻塞。
type Center struct {
	store    *cache.LocalCache
	ttl      time.Duration
	now      func() time.Time
	recorder Recorder
	log      *zap.Logger

	mu          sync.RWMutex
	subscribers map[uint64]func(domain.Notification)
	nextID      uint64
}

// Options 通知中心选项
type Options struct {
	TTL      time.Duration
	Capacity int
	Now      func() time.Time
	Recorder Recorder
	Logger   *zap.Logger
}

// NewCenter 创建通知中心
func NewCenter(opts Options) *Center {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Center{
		store: cache.NewLocalCache(opts.Capacity, opts.TTL,
			cache.WithClock(opts.Now),
			cache.WithCleanupInterval(opts.TTL),
		),
		ttl:         opts.TTL,
		now:         opts.Now,
		recorder:    opts.Recorder,
		log:         opts.Logger,
		subscribers: make(map[uint64]func(domain.Notification)),
	}
}

// Notify 实现 session.Notifier
func (c *Center) Notify(level domain.NotificationLevel, message string) {
	c.Publish(level, message)
}

// Publish 发布一条通知并返回它
func (c *Center) Publish(level domain.NotificationLevel, message string) domain.Notification {
	now := c.now()
	n := domain.Notification{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.store.Set(n.ID, n, c.ttl)

	c.log.Debug("notification published",
		zap.String("level", string(level)),
		zap.String("message", message),
	)
	if c.recorder != nil {
		c.recorder.NotificationEmitted(string(level))
	}

	c.mu.RLock()
	subs := make([]func(domain.Notification), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.RUnlock()

	for _, fn := range subs {
		fn(n)
	}
	return n
}

// Subscribe 订阅新通知，返回取消订阅函数
func (c *Center) Subscribe(fn func(domain.Notification)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// Active 返回仍在展示期内的通知，最新在前
func (c *Center) Active() []domain.Notification {
	entries := c.store.Entries()
	active := make([]domain.Notification, 0, len(entries))
	for _, e := range entries {
		active = append(active, e.Value.(domain.Notification))
	}

	// 过期时间与创建时间同序，倒序即最新在前
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return active
}

// Dismiss 提前移除通知
func (c *Center) Dismiss(id string) {
	c.store.Delete(id)
}

// Close 停止后台清理
func (c *Center) Close() {
	c.store.Close()
}
