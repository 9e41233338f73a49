// Package clipboard 将邮箱地址写入剪贴板。
//
// 首选系统剪贴板，不可用时退回 OSC52 终端转义序列。
package clipboard

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
	"go.uber.org/zap"
)

var (
	// ErrUnsupported 当前环境没有可用的系统剪贴板
	ErrUnsupported = errors.New("system clipboard unsupported")
	// ErrDisabled 剪贴板功能已关闭
	ErrDisabled = errors.New("clipboard disabled")
)

// Writer 剪贴板写入器
type Writer interface {
	WriteText(text string) error
}

// Config 剪贴板配置
type Config struct {
	Enabled       bool
	OSC52Fallback bool
	Tmux          bool // 在 tmux 中运行时包装转义序列
}

// New 按配置组装剪贴板写入器
func New(cfg Config, log *zap.Logger) Writer {
	if !cfg.Enabled {
		return Disabled{}
	}
	if !cfg.OSC52Fallback {
		return System{}
	}

	osc := NewOSC52(os.Stderr)
	osc.Tmux = cfg.Tmux
	return NewFallback(System{}, osc, log)
}

// System 系统剪贴板
type System struct{}

// WriteText 写入系统剪贴板
func (System) WriteText(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// OSC52 通过终端转义序列写入剪贴板
type OSC52 struct {
	out  io.Writer
	Tmux bool
}

// NewOSC52 创建 OSC52 写入器
func NewOSC52(out io.Writer) *OSC52 {
	return &OSC52{out: out}
}

// WriteText 输出 OSC52 序列
func (o *OSC52) WriteText(text string) error {
	seq := osc52.New(text)
	if o.Tmux {
		seq = seq.Tmux()
	}
	if _, err := seq.WriteTo(o.out); err != nil {
		return fmt.Errorf("write osc52 sequence: %w", err)
	}
	return nil
}

// Fallback 主写入器失败时使用备用写入器
type Fallback struct {
	primary   Writer
	secondary Writer
	log       *zap.Logger
}

// NewFallback 创建带备用方案的写入器
func NewFallback(primary, secondary Writer, log *zap.Logger) *Fallback {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fallback{primary: primary, secondary: secondary, log: log}
}

// WriteText 依次尝试主、备写入器
func (f *Fallback) WriteText(text string) error {
	primaryErr := f.primary.WriteText(text)
	if primaryErr == nil {
		return nil
	}

	f.log.Debug("primary clipboard failed, trying fallback", zap.Error(primaryErr))
	if err := f.secondary.WriteText(text); err != nil {
		return errors.Join(primaryErr, err)
	}
	return nil
}

// Disabled 关闭状态，总是返回 ErrDisabled
type Disabled struct{}

// WriteText 总是失败
func (Disabled) WriteText(string) error {
	return ErrDisabled
}
