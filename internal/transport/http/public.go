package httptransport

import (
	"github.com/gin-gonic/gin"

	"tempmail/playground/internal/domain"
	"tempmail/playground/internal/session"
)

// PublicHandler 公开配置处理器
type PublicHandler struct {
	cfg session.Config
}

// NewPublicHandler 创建公开配置处理器
func NewPublicHandler(cfg session.Config) *PublicHandler {
	return &PublicHandler{cfg: cfg}
}

// GetSystemConfig godoc
// @Summary 获取公开配置
// @Description 返回地址域名候选表与会话计时参数（秒）
// @Tags Public
// @Produce json
// @Success 200 {object} Response{data=object{domains=[]string,timings=object}}
// @Router /v1/public/config [get]
func (h *PublicHandler) GetSystemConfig(c *gin.Context) {
	domains := domain.AddressDomains()

	Success(c, gin.H{
		"domains": domains,
		"count":   len(domains),
		"timings": gin.H{
			"baseExpiry":            int(h.cfg.BaseExpiry.Seconds()),
			"extension":             int(h.cfg.Extension.Seconds()),
			"autoRefreshPeriod":     int(h.cfg.AutoRefreshPeriod.Seconds()),
			"backgroundMin":         int(h.cfg.BackgroundMin.Seconds()),
			"backgroundMax":         int(h.cfg.BackgroundMax.Seconds()),
			"backgroundProbability": h.cfg.BackgroundProbability,
			"historyLimit":          h.cfg.HistoryLimit,
		},
		"shortcuts": gin.H{
			"c": domain.CommandCopy,
			"r": domain.CommandGenerate,
			"t": domain.CommandToggleTheme,
			"d": domain.CommandDelete,
		},
	})
}
