// Package cache 提供带 TTL 与容量上限的本地内存缓存。
package cache

import (
	"sort"
	"sync"
	"time"
)

// LocalCache 本地内存缓存
//
// 特点：
// - 使用 sync.Map 实现无锁读取
// - 支持 TTL 过期，时钟可注入
// - 后台协程定期清理过期条目
// - 容量满时淘汰最早过期的条目
type LocalCache struct {
	data    sync.Map
	mu      sync.Mutex
	count   int
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// Entry 缓存条目快照
type Entry struct {
	Key       string
	Value     interface{}
	ExpiresAt time.Time
}

// Option 缓存选项
type Option func(*LocalCache)

// WithClock 设置时钟，测试中用于控制过期
func WithClock(now func() time.Time) Option {
	return func(c *LocalCache) { c.now = now }
}

// WithCleanupInterval 设置后台清理间隔，<= 0 时不启动清理协程
func WithCleanupInterval(d time.Duration) Option {
	return func(c *LocalCache) { c.cleanupInterval = d }
}

// NewLocalCache 创建本地缓存
//
// 参数:
//   - maxSize: 最大缓存条目数，<= 0 表示不限制
//   - ttl: 默认过期时间
func NewLocalCache(maxSize int, ttl time.Duration, opts ...Option) *LocalCache {
	cache := &LocalCache{
		maxSize:         maxSize,
		ttl:             ttl,
		now:             time.Now,
		cleanupInterval: time.Minute,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(cache)
	}

	if cache.cleanupInterval > 0 {
		go cache.cleanupLoop()
	}

	return cache
}

// Get 获取缓存值
func (c *LocalCache) Get(key string) (interface{}, bool) {
	val, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}

	entry := val.(*cacheEntry)

	// 检查是否过期
	if !c.now().Before(entry.expiresAt) {
		c.Delete(key)
		return nil, false
	}

	return entry.value, true
}

// Set 设置缓存值，ttl 为 0 时使用默认过期时间
func (c *LocalCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}

	entry := &cacheEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, loaded := c.data.Swap(key, entry); !loaded {
		c.count++
	}
	for c.maxSize > 0 && c.count > c.maxSize {
		if !c.evictOldestLocked(key) {
			break
		}
	}
}

// Delete 删除缓存值
func (c *LocalCache) Delete(key string) {
	c.mu.Lock()
	if _, loaded := c.data.LoadAndDelete(key); loaded {
		c.count--
	}
	c.mu.Unlock()
}

// Clear 清空所有缓存
func (c *LocalCache) Clear() {
	c.mu.Lock()
	c.data.Range(func(key, _ interface{}) bool {
		c.data.Delete(key)
		return true
	})
	c.count = 0
	c.mu.Unlock()
}

// Len 当前条目数（可能包含尚未清理的过期条目）
func (c *LocalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Entries 返回全部未过期条目，按过期时间升序
func (c *LocalCache) Entries() []Entry {
	now := c.now()
	var entries []Entry
	c.data.Range(func(key, value interface{}) bool {
		entry := value.(*cacheEntry)
		if now.Before(entry.expiresAt) {
			entries = append(entries, Entry{
				Key:       key.(string),
				Value:     entry.value,
				ExpiresAt: entry.expiresAt,
			})
		}
		return true
	})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ExpiresAt.Before(entries[j].ExpiresAt)
	})
	return entries
}

// Purge 立即清理过期条目，返回清理数量
func (c *LocalCache) Purge() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Range(func(key, value interface{}) bool {
		entry := value.(*cacheEntry)
		if !now.Before(entry.expiresAt) {
			c.data.Delete(key)
			c.count--
			removed++
		}
		return true
	})
	return removed
}

// Close 停止后台清理协程
func (c *LocalCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// evictOldestLocked 淘汰最早过期的条目（跳过刚写入的 keep）
func (c *LocalCache) evictOldestLocked(keep string) bool {
	var (
		victim    interface{}
		victimExp time.Time
	)
	c.data.Range(func(key, value interface{}) bool {
		if key.(string) == keep {
			return true
		}
		entry := value.(*cacheEntry)
		if victim == nil || entry.expiresAt.Before(victimExp) {
			victim = key
			victimExp = entry.expiresAt
		}
		return true
	})

	if victim == nil {
		return false
	}
	c.data.Delete(victim)
	c.count--
	return true
}

// cleanupLoop 定期清理过期条目
func (c *LocalCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}
