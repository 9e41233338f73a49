package httptransport

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tempmail/playground/internal/domain"
	"tempmail/playground/internal/session"
)

// SessionService 会话服务接口
type SessionService interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	Inbox(ctx context.Context) ([]domain.Message, error)
	Generate(ctx context.Context) error
	Delete(ctx context.Context) error
	Copy(ctx context.Context) (domain.Address, error)
	RefreshInbox(ctx context.Context) error
	ClearInbox(ctx context.Context) error
	Extend(ctx context.Context, seconds int) (int, error)
	ToggleAutoRefresh(ctx context.Context) (bool, error)
	ToggleTheme(ctx context.Context) (domain.Theme, error)
	Shortcut(ctx context.Context, sc domain.Shortcut) (domain.Command, error)
}

// SessionHandler 会话接口处理器
type SessionHandler struct {
	service SessionService
	now     func() time.Time
	log     *zap.Logger
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(service SessionService, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{service: service, now: time.Now, log: log}
}

type inboxItem struct {
	domain.Message
	TimeLabel string `json:"timeLabel"`
}

type inboxResponse struct {
	Items []inboxItem `json:"items"`
	Count int         `json:"count"`
	Label string      `json:"label"`
}

type extendRequest struct {
	Seconds int `json:"seconds"`
}

// GetSession godoc
// @Summary 获取会话快照
// @Tags Session
// @Produce json
// @Success 200 {object} Response{data=domain.Snapshot}
// @Router /v1/session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, snap)
}

// GetInbox godoc
// @Summary 获取收件箱
// @Description 最新邮件在前，时间标签按请求时刻计算
// @Tags Session
// @Produce json
// @Success 200 {object} Response{data=inboxResponse}
// @Router /v1/session/inbox [get]
func (h *SessionHandler) GetInbox(c *gin.Context) {
	msgs, err := h.service.Inbox(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	now := h.now()
	items := make([]inboxItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, inboxItem{Message: m, TimeLabel: domain.TimeLabel(m.ReceivedAt, now)})
	}

	Success(c, inboxResponse{
		Items: items,
		Count: len(items),
		Label: domain.InboxCountLabel(len(items)),
	})
}

// GenerateAddress godoc
// @Summary 生成新邮箱地址
// @Tags Session
// @Produce json
// @Success 202 {object} Response{data=domain.Snapshot}
// @Failure 409 {object} Response
// @Router /v1/session/address [post]
func (h *SessionHandler) GenerateAddress(c *gin.Context) {
	h.accept(c, h.service.Generate)
}

// DeleteAddress godoc
// @Summary 删除当前地址并生成新地址
// @Tags Session
// @Produce json
// @Success 202 {object} Response{data=domain.Snapshot}
// @Failure 409 {object} Response
// @Failure 422 {object} Response
// @Router /v1/session/address [delete]
func (h *SessionHandler) DeleteAddress(c *gin.Context) {
	h.accept(c, h.service.Delete)
}

// CopyAddress godoc
// @Summary 复制当前地址到剪贴板
// @Description 剪贴板不可用时返回 500，data 中仍携带地址
// @Tags Session
// @Produce json
// @Success 200 {object} Response{data=object{address=string}}
// @Failure 422 {object} Response
// @Router /v1/session/address/copy [post]
func (h *SessionHandler) CopyAddress(c *gin.Context) {
	addr, err := h.service.Copy(c.Request.Context())
	if err != nil {
		if errors.Is(err, session.ErrClipboard) && !addr.IsZero() {
			h.log.Warn("clipboard unavailable", zap.Error(err))
			c.JSON(lookupError(err).status, Response{
				Code: CodeInternalError,
				Msg:  MsgClipboardFailed,
				Data: gin.H{"address": addr},
			})
			return
		}
		writeError(c, err)
		return
	}
	SuccessWithMsg(c, "已复制到剪贴板", gin.H{"address": addr})
}

// RefreshInbox godoc
// @Summary 刷新收件箱
// @Tags Session
// @Produce json
// @Success 202 {object} Response{data=domain.Snapshot}
// @Failure 409 {object} Response
// @Router /v1/session/inbox/refresh [post]
func (h *SessionHandler) RefreshInbox(c *gin.Context) {
	h.accept(c, h.service.RefreshInbox)
}

// ClearInbox godoc
// @Summary 清空收件箱
// @Tags Session
// @Produce json
// @Success 200 {object} Response{data=domain.Snapshot}
// @Router /v1/session/inbox [delete]
func (h *SessionHandler) ClearInbox(c *gin.Context) {
	if err := h.service.ClearInbox(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	h.respondSnapshot(c)
}

// ExtendExpiry godoc
// @Summary 延长地址有效期
// @Description 请求体可选，未指定 seconds 时使用默认延长时长
// @Tags Session
// @Accept json
// @Produce json
// @Param request body extendRequest false "延长秒数"
// @Success 200 {object} Response{data=object{countdown=int}}
// @Router /v1/session/expiry/extend [post]
func (h *SessionHandler) ExtendExpiry(c *gin.Context) {
	var req extendRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			BadRequest(c, MsgInvalidRequest)
			return
		}
	}
	if req.Seconds < 0 {
		BadRequest(c, MsgInvalidExtension)
		return
	}

	remaining, err := h.service.Extend(c.Request.Context(), req.Seconds)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{
		"countdown":      remaining,
		"countdownLabel": domain.FormatCountdown(remaining),
	})
}

// ToggleAutoRefresh godoc
// @Summary 切换自动刷新
// @Tags Session
// @Produce json
// @Success 200 {object} Response{data=object{autoRefresh=bool}}
// @Router /v1/session/auto-refresh/toggle [post]
func (h *SessionHandler) ToggleAutoRefresh(c *gin.Context) {
	active, err := h.service.ToggleAutoRefresh(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"autoRefresh": active})
}

// ToggleTheme godoc
// @Summary 切换主题
// @Tags Session
// @Produce json
// @Success 200 {object} Response{data=object{theme=string}}
// @Router /v1/session/theme/toggle [post]
func (h *SessionHandler) ToggleTheme(c *gin.Context) {
	theme, err := h.service.ToggleTheme(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"theme": theme})
}

// Shortcut godoc
// @Summary 处理键盘快捷键
// @Description 仅 Ctrl/Cmd 组合键有效：C 复制、R 生成、T 切换主题、D 删除
// @Tags Session
// @Accept json
// @Produce json
// @Param request body domain.Shortcut true "快捷键"
// @Success 200 {object} Response{data=object{command=string}}
// @Failure 400 {object} Response
// @Router /v1/session/shortcut [post]
func (h *SessionHandler) Shortcut(c *gin.Context) {
	var sc domain.Shortcut
	if err := c.ShouldBindJSON(&sc); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	cmd, err := h.service.Shortcut(c.Request.Context(), sc)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"command": cmd})
}

// accept 执行延迟命令，成功后返回 202 与当前快照
func (h *SessionHandler) accept(c *gin.Context, op func(context.Context) error) {
	if err := op(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}

	snap, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	Accepted(c, snap)
}

func (h *SessionHandler) respondSnapshot(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, snap)
}
