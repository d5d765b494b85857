package database

import "tune-fusion/app/model"

func AutoMigrate() error {
	// 自动迁移表结构
	return DB.AutoMigrate(
		&model.MashupJob{},
	)
}

// ResetStaleJobs 进程重启后，运行中的任务已不可能恢复，统一标记为失败
func ResetStaleJobs() error {
	return DB.Model(&model.MashupJob{}).
		Where("status = ?", model.JobStatusRunning).
		Updates(map[string]any{
			"status":    model.JobStatusFailed,
			"error_msg": "服务重启导致任务中断",
		}).Error
}
