package session

import "errors"

var (
	// ErrNoAddress 当前没有邮箱地址（前置条件不满足）
	ErrNoAddress = errors.New("no current address")
	// ErrBusy 同一命令仍在处理中
	ErrBusy = errors.New("operation already in progress")
	// ErrNotInitialized 会话尚未初始化
	ErrNotInitialized = errors.New("session not initialized")
	// ErrClosed 会话已关闭
	ErrClosed = errors.New("session closed")
	// ErrClipboard 剪贴板写入失败（含备用方案）
	ErrClipboard = errors.New("clipboard write failed")
)
