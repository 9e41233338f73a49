package domain

import "time"

// NotificationLevel 通知级别
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
)

// Notification 短暂展示的状态提示（toast）。
type Notification struct {
	ID        string            `json:"id"`
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Expired 判断通知在 now 时刻是否已过期。
func (n Notification) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}
