// Package scheduler 提供带取消句柄的定时任务抽象。
//
// 每个任务都有名字，便于统计某类任务当前是否仍在排队，
// 从而保证开启/关闭周期任务时不会泄漏第二个任务。
package scheduler

import "time"

// Handle 已调度任务的句柄
type Handle interface {
	// Name 任务名
	Name() string
	// Cancel 取消任务，返回任务此前是否仍处于待执行状态
	Cancel() bool
}

// Scheduler 定时任务调度器
//
// 回调一律在会话事件循环内执行，调度方法本身也只应在事件循环内调用。
type Scheduler interface {
	// Now 当前时间
	Now() time.Time
	// After 延迟 d 后执行一次
	After(name string, d time.Duration, fn func()) Handle
	// Every 以固定周期重复执行
	Every(name string, period time.Duration, fn func()) Handle
	// EveryFunc 重复执行，每次触发后调用 next 计算下一次的间隔
	EveryFunc(name string, next func() time.Duration, fn func()) Handle
	// Pending 返回指定名字仍在排队的任务数，name 为空时统计全部
	Pending(name string) int
}

// constant 固定间隔
func constant(d time.Duration) func() time.Duration {
	return func() time.Duration { return d }
}

// minInterval 周期任务的最小间隔，避免零间隔导致忙等
const minInterval = time.Millisecond

func clampInterval(d time.Duration) time.Duration {
	if d < minInterval {
		return minInterval
	}
	return d
}
