package preference

import (
	"context"
	"sync"
)

// Memory 内存存储，进程退出后丢失
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory 创建内存存储
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get 读取
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set 写入
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

// Ping 总是可用
func (m *Memory) Ping(context.Context) error {
	return nil
}

// Close 无需释放资源
func (m *Memory) Close() error {
	return nil
}
