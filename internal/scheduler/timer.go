package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Submitter 可以接收任务的事件循环
type Submitter interface {
	Submit(task func()) error
}

// Timer 基于真实时间的调度器
//
// 到期后把回调投递到事件循环，而不是在定时器协程中直接执行。
type Timer struct {
	loop Submitter
	log  *zap.Logger

	mu   sync.Mutex
	jobs map[*timerJob]struct{}
}

type timerJob struct {
	name      string
	owner     *Timer
	next      func() time.Duration // 为 nil 表示一次性任务
	fn        func()
	timer     *time.Timer
	due       time.Time // 本次计划触发时间
	cancelled bool
}

// NewTimer 创建真实时间调度器
func NewTimer(loop Submitter, log *zap.Logger) *Timer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Timer{
		loop: loop,
		log:  log,
		jobs: make(map[*timerJob]struct{}),
	}
}

// Now 当前时间
func (s *Timer) Now() time.Time {
	return time.Now()
}

// After 延迟执行一次
func (s *Timer) After(name string, d time.Duration, fn func()) Handle {
	j := &timerJob{name: name, owner: s, fn: fn}
	s.add(j)
	s.arm(j, d)
	return j
}

// Every 固定周期执行
func (s *Timer) Every(name string, period time.Duration, fn func()) Handle {
	return s.EveryFunc(name, constant(period), fn)
}

// EveryFunc 可变周期执行
func (s *Timer) EveryFunc(name string, next func() time.Duration, fn func()) Handle {
	j := &timerJob{name: name, owner: s, next: next, fn: fn}
	s.add(j)
	s.arm(j, clampInterval(next()))
	return j
}

// Pending 统计排队中的任务
func (s *Timer) Pending(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for j := range s.jobs {
		if name == "" || j.name == name {
			count++
		}
	}
	return count
}

// Stop 取消全部任务
func (s *Timer) Stop() {
	s.mu.Lock()
	jobs := make([]*timerJob, 0, len(s.jobs))
	for j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	for _, j := range jobs {
		j.Cancel()
	}
}

func (s *Timer) add(j *timerJob) {
	s.mu.Lock()
	s.jobs[j] = struct{}{}
	s.mu.Unlock()
}

func (s *Timer) remove(j *timerJob) {
	s.mu.Lock()
	delete(s.jobs, j)
	s.mu.Unlock()
}

// arm 启动底层定时器
func (s *Timer) arm(j *timerJob, d time.Duration) {
	now := time.Now()
	s.armAt(j, now.Add(d), d)
}

// rearm 以上次计划时间为基准排下一次，回调与排队耗时不会累积
func (s *Timer) rearm(j *timerJob, period time.Duration) {
	s.mu.Lock()
	prev := j.due
	s.mu.Unlock()

	due, delay := nextFire(prev, period, time.Now())
	s.armAt(j, due, delay)
}

func (s *Timer) armAt(j *timerJob, due time.Time, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j.cancelled {
		return
	}
	j.due = due
	j.timer = time.AfterFunc(delay, func() {
		if err := s.loop.Submit(func() { s.fire(j) }); err != nil {
			s.log.Debug("dropping scheduled job", zap.String("job", j.name), zap.Error(err))
			s.remove(j)
		}
	})
}

// fire 在事件循环内执行任务
func (s *Timer) fire(j *timerJob) {
	s.mu.Lock()
	cancelled := j.cancelled
	s.mu.Unlock()

	// 取消之前已经投递到队列中的回调在这里被丢弃
	if cancelled {
		return
	}

	if j.next == nil {
		s.remove(j)
		j.fn()
		return
	}

	j.fn()
	s.rearm(j, j.next())
}

// nextFire 计算周期任务的下一次计划时间与等待时长
//
// 计划时间只由上一次计划时间加周期得出；已经落后时等待时长取最小间隔，
// 随后几次触发会追上计划。
func nextFire(prevDue time.Time, period time.Duration, now time.Time) (time.Time, time.Duration) {
	due := prevDue.Add(clampInterval(period))
	return due, clampInterval(due.Sub(now))
}

// Name 任务名
func (j *timerJob) Name() string {
	return j.name
}

// Cancel 取消任务
func (j *timerJob) Cancel() bool {
	s := j.owner

	s.mu.Lock()
	_, pending := s.jobs[j]
	j.cancelled = true
	if j.timer != nil {
		j.timer.Stop()
	}
	delete(s.jobs, j)
	s.mu.Unlock()

	return pending
}
