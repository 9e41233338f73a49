package session

import "tempmail/playground/internal/domain"

// Inbox 收件箱，按接收时间倒序（最新在前），不设上限。
//
// 收件箱只属于一代地址：地址变更时必须清空。
type Inbox struct {
	messages []domain.Message
}

// NewInbox 创建空收件箱
func NewInbox() *Inbox {
	return &Inbox{}
}

// Prepend 插入新邮件到最前面
func (b *Inbox) Prepend(msg domain.Message) {
	b.messages = append(b.messages, domain.Message{})
	copy(b.messages[1:], b.messages)
	b.messages[0] = msg
}

// Clear 清空收件箱
func (b *Inbox) Clear() {
	b.messages = nil
}

// Len 邮件数量
func (b *Inbox) Len() int {
	return len(b.messages)
}

// List 返回邮件副本，最新在前
func (b *Inbox) List() []domain.Message {
	out := make([]domain.Message, len(b.messages))
	copy(out, b.messages)
	return out
}
