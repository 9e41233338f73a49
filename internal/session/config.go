package session

import "time"

// Config 会话状态机参数
type Config struct {
	BaseExpiry            time.Duration // 每个地址的初始有效期
	Extension             time.Duration // 单次延长的默认时长
	AutoRefreshPeriod     time.Duration // 自动刷新周期
	BackgroundMin         time.Duration // 后台来信间隔下限
	BackgroundMax         time.Duration // 后台来信间隔上限
	BackgroundProbability float64       // 后台来信每次触发的概率
	HistoryLimit          int           // 地址历史上限
	GenerateDelay         time.Duration // 生成地址的模拟处理时间
	RefreshDelay          time.Duration // 刷新收件箱的模拟处理时间
	DeleteDelay           time.Duration // 删除地址的模拟处理时间
	InitialMailDelay      time.Duration // 初始化后首封模拟邮件的延迟
}

// DefaultConfig 返回默认参数
func DefaultConfig() Config {
	return Config{
		BaseExpiry:            600 * time.Second,
		Extension:             300 * time.Second,
		AutoRefreshPeriod:     30 * time.Second,
		BackgroundMin:         2 * time.Minute,
		BackgroundMax:         5 * time.Minute,
		BackgroundProbability: 0.3,
		HistoryLimit:          DefaultHistoryLimit,
		GenerateDelay:         800 * time.Millisecond,
		RefreshDelay:          600 * time.Millisecond,
		DeleteDelay:           700 * time.Millisecond,
		InitialMailDelay:      2 * time.Second,
	}
}

func (c Config) baseSeconds() int {
	return int(c.BaseExpiry / time.Second)
}

func (c Config) extensionSeconds() int {
	return int(c.Extension / time.Second)
}
