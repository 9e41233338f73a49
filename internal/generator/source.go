// Package generator 负责地址生成与模拟来信，所有随机性都来自可注入的 Source。
package generator

import (
	"math/rand"
	"time"
)

// Source 随机数来源。*rand.Rand 天然满足该接口。
//
// 不要求并发安全：所有调用都发生在会话事件循环内。
type Source interface {
	Intn(n int) int
	Float64() float64
}

// NewSource 创建伪随机数来源，seed 为 0 时使用当前时间。
func NewSource(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Pick 从只读候选表中等概率挑选一项，空表返回零值。
func Pick[T any](table []T, src Source) T {
	var zero T
	if len(table) == 0 {
		return zero
	}
	return table[src.Intn(len(table))]
}

// Between 返回 [min, max] 区间内的随机时长。
func Between(min, max time.Duration, src Source) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(src.Float64()*float64(max-min))
}
