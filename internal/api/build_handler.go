package api

import (
	"net/http"
	"sync/atomic"

	"OpinionMatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type BuildHandler struct {
	buildService *service.BuildService
	matchService *service.MatchService
	logger       *logrus.Logger
	running      atomic.Bool
}

func NewBuildHandler(buildService *service.BuildService, matchService *service.MatchService, logger *logrus.Logger) *BuildHandler {
	return &BuildHandler{
		buildService: buildService,
		matchService: matchService,
		logger:       logger,
	}
}

// TriggerBuild 触发一次索引构建，完成后热重载匹配器
// @Summary 构建索引快照
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /sync/index [post]
func (h *BuildHandler) TriggerBuild(c *gin.Context) {
	// 构建会调用外部 AI 接口，禁止并发触发
	if !h.running.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "上一次构建尚未结束",
		})
		return
	}
	defer h.running.Store(false)

	data, err := h.buildService.RunBuild(c.Request.Context())
	if err != nil {
		h.logger.Errorf("构建索引失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}
	h.matchService.Reload(data)

	c.JSON(http.StatusOK, gin.H{
		"message":     "索引构建成功",
		"generatedAt": data.Meta.GeneratedAt,
		"runId":       data.Meta.RunID,
		"counts":      data.Meta.Counts,
	})
}
