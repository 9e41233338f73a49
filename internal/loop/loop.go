// Package loop 提供单协程串行执行队列，会话的所有状态变更都在这里排队执行。
package loop

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped 事件循环已停止
var ErrStopped = errors.New("event loop stopped")

// Loop 事件循环
//
// 只有一个工作协程，任务按提交顺序逐个执行，互不抢占。
// 任务内部禁止调用 Do，否则会死锁。
type Loop struct {
	taskQueue chan func()
	done      chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
	wg        sync.WaitGroup
	log       *zap.Logger

	mu      sync.RWMutex
	onPanic func(recovered interface{})
}

// New 创建事件循环
//
// 参数:
//   - queueSize: 任务队列大小
//   - log: 日志记录器，为 nil 时不输出
func New(queueSize int, log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	return &Loop{
		taskQueue: make(chan func(), queueSize),
		done:      make(chan struct{}),
		log:       log,
	}
}

// OnPanic 设置任务 panic 后的回调，回调在循环协程内执行。
func (l *Loop) OnPanic(fn func(recovered interface{})) {
	l.mu.Lock()
	l.onPanic = fn
	l.mu.Unlock()
}

// Start 启动工作协程，重复调用无效。
func (l *Loop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		l.wg.Add(1)
		go l.worker(ctx)
	})
}

// Submit 提交任务
//
// 如果队列已满，会阻塞直到有空位或循环停止
func (l *Loop) Submit(task func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}

	select {
	case l.taskQueue <- task:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// TrySubmit 尝试提交任务
//
// 如果队列已满或循环已停止，立即返回 false
func (l *Loop) TrySubmit(task func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.taskQueue <- task:
		return true
	default:
		return false
	}
}

// Do 提交任务并等待其执行完毕。
func (l *Loop) Do(ctx context.Context, task func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		task()
	}

	select {
	case l.taskQueue <- wrapped:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop 停止事件循环并等待工作协程退出，未执行的任务被丢弃。
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}

// worker 工作协程
func (l *Loop) worker(ctx context.Context) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			l.stopOnce.Do(func() { close(l.done) })
			return
		case <-l.done:
			return
		case task := <-l.taskQueue:
			l.run(task)
		}
	}
}

// run 执行单个任务（捕获 panic）
func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("event loop task panicked",
				zap.Any("error", r),
				zap.Stack("stack"),
			)

			l.mu.RLock()
			fn := l.onPanic
			l.mu.RUnlock()
			if fn != nil {
				fn(r)
			}
		}
	}()
	task()
}
