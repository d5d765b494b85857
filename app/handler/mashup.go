package handler

import (
	"net/http"
	"strconv"
	"tune-fusion/app/logger"
	"tune-fusion/app/service"

	"github.com/gin-gonic/gin"
)

// MashupHandler 串烧任务提交与查询处理器
type MashupHandler struct {
	logger *logger.Logger
	svc    *service.MashupService
}

// NewMashupHandler 创建串烧任务处理器
func NewMashupHandler(log *logger.Logger, svc *service.MashupService) *MashupHandler {
	return &MashupHandler{
		logger: log,
		svc:    svc,
	}
}

// CreateMashupRequest 表单提交参数
type CreateMashupRequest struct {
	SingerName    string `form:"singer_name" binding:"required"`
	NumVideos     int    `form:"num_videos" binding:"required"`
	TrimDuration  int    `form:"trim_duration" binding:"required"`
	ReceiverEmail string `form:"receiver_email" binding:"required,email"`
}

// CreateMashupResponse 提交接口响应
type CreateMashupResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	JobID   uint   `json:"job_id,omitempty"`
}

// CreateMashup 受理一次串烧任务。
// 同步响应只反映参数校验结果，受理后的执行进度通过进度流查看
func (h *MashupHandler) CreateMashup(c *gin.Context) {
	var req CreateMashupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusOK, CreateMashupResponse{
			Status:  "error",
			Message: "参数错误: " + err.Error(),
		})
		return
	}

	job, err := h.svc.Submit(service.MashupRequest{
		Query:      req.SingerName,
		VideoCount: req.NumVideos,
		Duration:   req.TrimDuration,
		Email:      req.ReceiverEmail,
	})
	if err != nil {
		c.JSON(http.StatusOK, CreateMashupResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, CreateMashupResponse{
		Status:  "success",
		Message: "串烧任务已开始，生成完毕后会通过邮件发送给你。",
		JobID:   job.ID,
	})
}

// GetJob 查询单个任务的状态
func (h *MashupHandler) GetJob(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		failure(c, http.StatusBadRequest, 400, "任务ID格式错误")
		return
	}

	job, err := h.svc.Job(uint(id))
	if err != nil {
		failure(c, http.StatusNotFound, 404, "任务不存在")
		return
	}

	success(c, job, "查询成功")
}
