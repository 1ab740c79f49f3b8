package api

import (
	"net/http"

	"OpinionMatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type MatchHandler struct {
	matchService *service.MatchService
	logger       *logrus.Logger
}

func NewMatchHandler(matchService *service.MatchService, logger *logrus.Logger) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
		logger:       logger,
	}
}

type matchRequest struct {
	Text string `json:"text" binding:"required"`
}

// Match 对任意文本打分并返回 topN 候选
// @Summary 文本匹配
// @Param body body matchRequest true "待匹配文本"
// @Success 200 {object} matcher.MatchResult
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/match [post]
func (h *MatchHandler) Match(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "请求体需要包含非空 text 字段",
		})
		return
	}
	h.respond(c, req.Text)
}

// MatchQuery GET 形式的匹配接口，方便浏览器和脚本直接调
// @Router /api/match [get]
func (h *MatchHandler) MatchQuery(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "缺少 text 参数",
		})
		return
	}
	h.respond(c, text)
}

func (h *MatchHandler) respond(c *gin.Context, text string) {
	res, err := h.matchService.Match(text)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Meta 返回当前加载快照的构建元信息
// @Router /api/meta [get]
func (h *MatchHandler) Meta(c *gin.Context) {
	meta, ok := h.matchService.Meta()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "索引尚未加载",
		})
		return
	}
	c.JSON(http.StatusOK, meta)
}
