package model

import (
	"time"
)

// JobStatus 串烧任务状态
type JobStatus string

const (
	JobStatusAccepted  JobStatus = "accepted"  // 已受理，尚未开始
	JobStatusRunning   JobStatus = "running"   // 执行中
	JobStatusSucceeded JobStatus = "succeeded" // 成功结束
	JobStatusFailed    JobStatus = "failed"    // 失败结束
)

// MashupJob 串烧任务模型
type MashupJob struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	SessionID   string    `json:"session_id" gorm:"size:64;index;comment:会话标识"`         // 会话标识
	Query       string    `json:"query" gorm:"not null;comment:歌手名称/搜索关键词"`             // 搜索关键词
	VideoCount  int       `json:"video_count" gorm:"not null;comment:请求的视频数量"`          // 请求的视频数量
	Duration    int       `json:"duration" gorm:"not null;comment:单个片段时长（秒）"`           // 单个片段时长
	OutputName  string    `json:"output_name" gorm:"comment:最终输出文件名"`                   // 最终输出文件名
	Email       string    `json:"email" gorm:"comment:接收邮箱"`                            // 接收邮箱
	Status      JobStatus `json:"status" gorm:"size:20;default:accepted;index;comment:状态"` // 状态
	ErrorMsg    string    `json:"error_msg" gorm:"type:text;comment:失败原因"`              // 失败原因
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (MashupJob) TableName() string {
	return "mashup_jobs"
}

// IsTerminal 判断任务是否已结束
func (j *MashupJob) IsTerminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}

// SetRunning 设置为执行中状态
func (j *MashupJob) SetRunning() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// SetSucceeded 设置为成功状态
func (j *MashupJob) SetSucceeded() {
	now := time.Now()
	j.Status = JobStatusSucceeded
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// SetFailed 设置为失败状态并记录原因
func (j *MashupJob) SetFailed(err error) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	if err != nil {
		j.ErrorMsg = err.Error()
	}
}
