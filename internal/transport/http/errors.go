package httptransport

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tempmail/playground/internal/domain"
	"tempmail/playground/internal/loop"
	"tempmail/playground/internal/session"
)

// 通用错误消息
const (
	MsgInvalidRequest    = "请求参数格式错误"
	MsgBusy              = "操作进行中，请稍候"
	MsgNoAddress         = "当前没有邮箱地址"
	MsgNotInitialized    = "会话尚未初始化"
	MsgSessionStopped    = "会话已停止"
	MsgUnknownCommand    = "未知的命令或快捷键"
	MsgClipboardFailed   = "复制失败，请手动复制邮箱地址"
	MsgRequestTimeout    = "请求超时"
	MsgInternalError     = "服务器内部错误，请稍后重试"
	MsgInvalidExtension  = "延长时长必须为正整数秒"
)

type errorEntry struct {
	status int
	msg    string
}

// 错误映射表（业务错误 -> HTTP 状态码与中文消息）
var errorMessages = []struct {
	target error
	errorEntry
}{
	{session.ErrBusy, errorEntry{http.StatusConflict, MsgBusy}},
	{session.ErrNoAddress, errorEntry{http.StatusUnprocessableEntity, MsgNoAddress}},
	{session.ErrNotInitialized, errorEntry{http.StatusServiceUnavailable, MsgNotInitialized}},
	{session.ErrClosed, errorEntry{http.StatusServiceUnavailable, MsgSessionStopped}},
	{loop.ErrStopped, errorEntry{http.StatusServiceUnavailable, MsgSessionStopped}},
	{domain.ErrUnknownCommand, errorEntry{http.StatusBadRequest, MsgUnknownCommand}},
	{session.ErrClipboard, errorEntry{http.StatusInternalServerError, MsgClipboardFailed}},
	{context.DeadlineExceeded, errorEntry{http.StatusServiceUnavailable, MsgRequestTimeout}},
}

func lookupError(err error) errorEntry {
	for _, e := range errorMessages {
		if errors.Is(err, e.target) {
			return e.errorEntry
		}
	}
	return errorEntry{http.StatusInternalServerError, MsgInternalError}
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	return lookupError(err).msg
}

// writeError 按错误类型写出响应
func writeError(c *gin.Context, err error) {
	e := lookupError(err)
	Error(c, e.status, e.msg)
}
