package domain

import "time"

// Message 表示收件箱中的一封模拟邮件，创建后不可变。
type Message struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Preview    string    `json:"preview"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// TimeLabel 根据距离接收时间的时长生成展示标签。
//
// 必须在每次渲染时重新计算，不能在入库时缓存：
//   - 不足 1 分钟: "Just now"
//   - 不足 60 分钟: "<n>m ago"
//   - 不足 24 小时: "<n>h ago"
//   - 其他: 日历日期
func TimeLabel(receivedAt, now time.Time) string {
	elapsed := now.Sub(receivedAt)
	minutes := int64(elapsed / time.Minute)
	hours := int64(elapsed / time.Hour)

	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return itoa(minutes) + "m ago"
	case hours < 24:
		return itoa(hours) + "h ago"
	default:
		return receivedAt.Format("1/2/2006")
	}
}

// InboxCountLabel 返回 "N email" / "N emails"。
func InboxCountLabel(count int) string {
	if count == 1 {
		return "1 email"
	}
	return itoa(int64(count)) + " emails"
}
