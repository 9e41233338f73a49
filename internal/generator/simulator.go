package generator

import (
	"time"

	"github.com/google/uuid"

	"tempmail/playground/internal/domain"
)

// Simulator 模拟来信生成器。
type Simulator struct {
	src      Source
	now      func() time.Time
	senders  []string
	subjects []string
	previews []string
}

// NewSimulator 创建模拟来信生成器。
//
// 参数:
//   - src: 随机数来源
//   - now: 时间来源，为 nil 时使用 time.Now
func NewSimulator(src Source, now func() time.Time) *Simulator {
	if now == nil {
		now = time.Now
	}
	return &Simulator{
		src:      src,
		now:      now,
		senders:  domain.MessageSenders(),
		subjects: domain.MessageSubjects(),
		previews: domain.MessagePreviews(),
	}
}

// Next 生成一封模拟邮件，发件人、主题、摘要各自独立随机。
func (s *Simulator) Next() domain.Message {
	return domain.Message{
		ID:         uuid.NewString(),
		Sender:     Pick(s.senders, s.src),
		Subject:    Pick(s.subjects, s.src),
		Preview:    Pick(s.previews, s.src),
		ReceivedAt: s.now(),
	}
}
