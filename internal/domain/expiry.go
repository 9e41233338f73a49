package domain

import (
	"fmt"
	"strconv"
)

// ExpiryLevel 倒计时展示级别
type ExpiryLevel string

const (
	ExpiryNormal   ExpiryLevel = "normal"
	ExpiryWarning  ExpiryLevel = "warning"
	ExpiryCritical ExpiryLevel = "critical"
)

// 倒计时阈值（秒），边界值属于较严重的级别。
const (
	CriticalThreshold = 60
	WarningThreshold  = 300
)

// ExpiryLevelFor 返回剩余秒数对应的展示级别。
func ExpiryLevelFor(seconds int) ExpiryLevel {
	switch {
	case seconds <= CriticalThreshold:
		return ExpiryCritical
	case seconds <= WarningThreshold:
		return ExpiryWarning
	default:
		return ExpiryNormal
	}
}

// FormatCountdown 将剩余秒数格式化为 m:ss。
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
