package session

import "tempmail/playground/internal/domain"

// DefaultHistoryLimit 地址历史默认保留条数
const DefaultHistoryLimit = 10

// History 已被替换的地址记录，超出上限时淘汰最旧的一条。
type History struct {
	limit   int
	entries []domain.Address
}

// NewHistory 创建地址历史，limit <= 0 时使用默认值
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push 追加一条记录
func (h *History) Push(addr domain.Address) {
	h.entries = append(h.entries, addr)
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
}

// Len 记录条数
func (h *History) Len() int {
	return len(h.entries)
}

// Entries 返回记录副本，最旧在前
func (h *History) Entries() []domain.Address {
	out := make([]domain.Address, len(h.entries))
	copy(out, h.entries)
	return out
}
