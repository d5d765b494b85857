package handler

import (
	"io"
	"net/http"
	"strconv"
	"tune-fusion/app/logger"
	"tune-fusion/app/service"

	"github.com/gin-gonic/gin"
)

// LogsHandler 进度流处理器
type LogsHandler struct {
	logger *logger.Logger
	svc    *service.MashupService
}

// NewLogsHandler 创建进度流处理器
func NewLogsHandler(log *logger.Logger, svc *service.MashupService) *LogsHandler {
	return &LogsHandler{
		logger: log,
		svc:    svc,
	}
}

// Stream 以 SSE 推送单个任务的进度事件。
// 连接保持到任务事件流读空关闭或客户端断开为止
func (h *LogsHandler) Stream(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		failure(c, http.StatusBadRequest, 400, "任务ID格式错误")
		return
	}

	feed, found := h.svc.Bus().Get(uint(id))
	if !found {
		failure(c, http.StatusNotFound, 404, "任务进度流不存在或已过期")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		event, ok := feed.Next(c.Request.Context())
		if !ok {
			return false
		}
		c.SSEvent("message", gin.H{
			"type":    event.Type,
			"message": event.Message,
		})
		return true
	})
}
