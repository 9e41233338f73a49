package httptransport

import (
	"github.com/gin-gonic/gin"

	"tempmail/playground/internal/domain"
)

// NotificationFeed 通知来源
type NotificationFeed interface {
	Active() []domain.Notification
}

// NotificationHandler 通知接口处理器
type NotificationHandler struct {
	feed NotificationFeed
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(feed NotificationFeed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// ListNotifications godoc
// @Summary 获取当前通知
// @Description 返回未过期的通知，最新在前
// @Tags Notifications
// @Produce json
// @Success 200 {object} Response{data=object{items=[]domain.Notification,count=int}}
// @Router /v1/notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	items := h.feed.Active()
	if items == nil {
		items = []domain.Notification{}
	}
	Success(c, gin.H{"items": items, "count": len(items)})
}
