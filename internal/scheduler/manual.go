package scheduler

import "time"

// Manual 虚拟时钟调度器，仅由 Advance 推动时间前进。
//
// 回调在调用 Advance 的协程中同步执行，适合确定性测试。
type Manual struct {
	now  time.Time
	seq  uint64
	jobs []*manualJob
}

type manualJob struct {
	name  string
	owner *Manual
	due   time.Time
	seq   uint64
	next  func() time.Duration
	fn    func()
}

// NewManual 创建虚拟时钟调度器
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now 当前虚拟时间
func (m *Manual) Now() time.Time {
	return m.now
}

// After 延迟执行一次
func (m *Manual) After(name string, d time.Duration, fn func()) Handle {
	return m.schedule(&manualJob{name: name, owner: m, fn: fn}, d)
}

// Every 固定周期执行
func (m *Manual) Every(name string, period time.Duration, fn func()) Handle {
	return m.EveryFunc(name, constant(period), fn)
}

// EveryFunc 可变周期执行
func (m *Manual) EveryFunc(name string, next func() time.Duration, fn func()) Handle {
	j := &manualJob{name: name, owner: m, next: next, fn: fn}
	return m.schedule(j, clampInterval(next()))
}

// Pending 统计排队中的任务
func (m *Manual) Pending(name string) int {
	count := 0
	for _, j := range m.jobs {
		if name == "" || j.name == name {
			count++
		}
	}
	return count
}

// Advance 推进虚拟时间，按到期时间顺序执行期间到期的全部任务。
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)

	for {
		j := m.earliest(target)
		if j == nil {
			break
		}

		m.now = j.due
		if j.next == nil {
			m.remove(j)
			j.fn()
			continue
		}

		j.fn()
		// 回调内部可能取消了自己
		if m.contains(j) {
			m.seq++
			j.seq = m.seq
			j.due = m.now.Add(clampInterval(j.next()))
		}
	}

	m.now = target
}

func (m *Manual) schedule(j *manualJob, d time.Duration) Handle {
	if d < 0 {
		d = 0
	}
	m.seq++
	j.seq = m.seq
	j.due = m.now.Add(d)
	m.jobs = append(m.jobs, j)
	return j
}

// earliest 返回不晚于 limit 的最早到期任务，同时到期时按调度顺序
func (m *Manual) earliest(limit time.Time) *manualJob {
	var found *manualJob
	for _, j := range m.jobs {
		if j.due.After(limit) {
			continue
		}
		if found == nil || j.due.Before(found.due) || (j.due.Equal(found.due) && j.seq < found.seq) {
			found = j
		}
	}
	return found
}

func (m *Manual) contains(j *manualJob) bool {
	for _, other := range m.jobs {
		if other == j {
			return true
		}
	}
	return false
}

func (m *Manual) remove(j *manualJob) bool {
	for i, other := range m.jobs {
		if other == j {
			m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
			return true
		}
	}
	return false
}

// Name 任务名
func (j *manualJob) Name() string {
	return j.name
}

// Cancel 取消任务
func (j *manualJob) Cancel() bool {
	return j.owner.remove(j)
}
