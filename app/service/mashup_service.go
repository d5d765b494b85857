package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"tune-fusion/app/config"
	"tune-fusion/app/logger"
	"tune-fusion/app/model"
	"tune-fusion/app/progress"
	"tune-fusion/app/utils/ffmpeghelper"
	"tune-fusion/app/utils/pathhelper"

	"gorm.io/gorm"
)

// MashupRequest 一次串烧任务的输入参数
type MashupRequest struct {
	Query      string // 歌手名称/搜索关键词
	VideoCount int    // 下载的视频数量
	Duration   int    // 单个片段时长（秒）
	Email      string // 接收邮箱，为空则不投递
	OutputName string // 成品文件名，为空时根据关键词生成
	KeepPath   string // 会话清理前把成品另存到该路径，为空则不保留
}

// MashupService 串烧任务执行器。
// Submit 受理任务后在独立协程中执行完整流水线，进度通过每任务独立的事件流对外可见
type MashupService struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *gorm.DB // 可为 nil（CLI 模式不持久化任务记录）
	bus    *progress.Bus

	sessions   *SessionService
	resolver   *LinkResolver
	downloader *VideoDownloader
	normalizer *AudioNormalizer
	assembler  *MashupAssembler
	notifier   Notifier // 可为 nil
}

// NewMashupService 创建串烧任务执行器
func NewMashupService(cfg *config.Config, log *logger.Logger, db *gorm.DB, fetcher MediaFetcher, ffmpeg *ffmpeghelper.FFmpeg, notifier Notifier) *MashupService {
	return &MashupService{
		cfg:        cfg,
		logger:     log,
		db:         db,
		bus:        progress.NewBus(time.Duration(cfg.Mashup.FeedTTLMinutes) * time.Minute),
		sessions:   NewSessionService(cfg, log),
		resolver:   NewLinkResolver(cfg, log, fetcher, nil),
		downloader: NewVideoDownloader(cfg, log, fetcher),
		normalizer: NewAudioNormalizer(log, ffmpeg),
		assembler:  NewMashupAssembler(log, ffmpeg),
		notifier:   notifier,
	}
}

// SetTitleLookup 配置链接解析阶段使用的标题查询服务
func (s *MashupService) SetTitleLookup(titles TitleLookup) {
	s.resolver.titles = titles
}

// Bus 返回进度事件流注册表
func (s *MashupService) Bus() *progress.Bus {
	return s.bus
}

// Sessions 返回会话管理服务
func (s *MashupService) Sessions() *SessionService {
	return s.sessions
}

// Validate 同步校验提交参数，校验失败的任务不会被受理
func (s *MashupService) Validate(req MashupRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("%w: 歌手名称不能为空", ErrValidation)
	}
	if req.VideoCount < s.cfg.Mashup.MinVideos || req.VideoCount > s.cfg.Mashup.MaxVideos {
		return fmt.Errorf("%w: 视频数量必须在 %d 到 %d 之间", ErrValidation, s.cfg.Mashup.MinVideos, s.cfg.Mashup.MaxVideos)
	}
	if req.Duration < s.cfg.Mashup.MinDuration || req.Duration > s.cfg.Mashup.MaxDuration {
		return fmt.Errorf("%w: 片段时长必须在 %d 到 %d 秒之间", ErrValidation, s.cfg.Mashup.MinDuration, s.cfg.Mashup.MaxDuration)
	}
	return nil
}

// Submit 受理任务并立即返回。
// 流水线在独立协程中执行，受理后的失败只通过进度流和任务记录对外可见
func (s *MashupService) Submit(req MashupRequest) (*model.MashupJob, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	job := &model.MashupJob{
		Query:      req.Query,
		VideoCount: req.VideoCount,
		Duration:   req.Duration,
		OutputName: s.outputName(req),
		Email:      req.Email,
		Status:     model.JobStatusAccepted,
	}
	if err := s.saveJob(job); err != nil {
		return nil, fmt.Errorf("创建任务记录失败: %w", err)
	}

	feed := s.bus.Create(job.ID)

	go func() {
		// 任务结束后关闭事件流，并从此刻起为其启动保留倒计时
		defer func() {
			feed.Close()
			s.bus.Expire(job.ID)
		}()
		if err := s.execute(context.Background(), req, job, feed); err != nil {
			s.logger.Errorf("串烧任务失败: JobID=%d, %v", job.ID, err)
		}
	}()

	s.logger.Infof("串烧任务已受理: JobID=%d, Query=%s, 数量=%d, 时长=%d", job.ID, req.Query, req.VideoCount, req.Duration)
	return job, nil
}

// Run 同步执行一次完整流水线（CLI 模式），结束时关闭事件流
func (s *MashupService) Run(ctx context.Context, req MashupRequest, feed *progress.Feed) error {
	defer feed.Close()

	if err := s.Validate(req); err != nil {
		return err
	}

	job := &model.MashupJob{
		Query:      req.Query,
		VideoCount: req.VideoCount,
		Duration:   req.Duration,
		OutputName: s.outputName(req),
		Email:      req.Email,
		Status:     model.JobStatusAccepted,
	}
	return s.execute(ctx, req, job, feed)
}

// Job 查询任务记录
func (s *MashupService) Job(id uint) (*model.MashupJob, error) {
	if s.db == nil {
		return nil, fmt.Errorf("任务记录未启用持久化")
	}

	var job model.MashupJob
	if err := s.db.First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// execute 执行完整流水线：解析 → 下载 → 转音频 → 拼接 → 投递。
// 会话在任何可能失败的步骤之前创建，并保证在所有退出路径上被清理一次
func (s *MashupService) execute(ctx context.Context, req MashupRequest, job *model.MashupJob, feed *progress.Feed) error {
	feed.Logf("开始生成串烧...")

	job.SetRunning()
	s.mustSaveJob(job)

	session, err := s.sessions.Begin()
	if err != nil {
		return s.fail(job, feed, err)
	}
	defer func() {
		s.sessions.End(session)
		feed.Logf("会话清理完成")
	}()

	job.SessionID = session.ID
	s.mustSaveJob(job)

	links, err := s.resolver.Resolve(ctx, req.Query, req.VideoCount, session.LinksDir, feed)
	if err != nil {
		return s.fail(job, feed, err)
	}

	media := s.downloader.FetchAll(ctx, links, session.VideosDir, feed)
	if len(media) == 0 {
		return s.fail(job, feed, fmt.Errorf("没有任何视频下载成功"))
	}

	s.normalizer.NormalizeAll(ctx, media, session.AudiosDir, feed)

	outputPath := filepath.Join(session.MashupDir, job.OutputName)
	if err := s.assembler.Assemble(ctx, session.AudiosDir, outputPath, req.Duration, feed); err != nil {
		return s.fail(job, feed, err)
	}

	// 投递失败不影响成品本身的生成结果
	if req.Email != "" && s.notifier != nil {
		s.deliver(req, job, outputPath, feed)
	}

	// 会话目录即将被清理，需要保留成品时先另存
	if req.KeepPath != "" {
		if err := pathhelper.CopyFile(outputPath, req.KeepPath); err != nil {
			return s.fail(job, feed, fmt.Errorf("保存成品文件失败: %w", err))
		}
		feed.Logf("成品已保存到 %s", req.KeepPath)
	}

	job.SetSucceeded()
	s.mustSaveJob(job)
	feed.Logf("串烧生成完成")
	return nil
}

// deliver 把成品通过邮件投递给用户
func (s *MashupService) deliver(req MashupRequest, job *model.MashupJob, outputPath string, feed *progress.Feed) {
	subject := fmt.Sprintf("你的 %s 串烧已生成完毕！", req.Query)
	body := "你好，\n\n你的串烧已生成完毕，请查收附件。\n\n祝你收听愉快！"

	if err := s.notifier.Send(req.Email, subject, body, outputPath); err != nil {
		s.logger.Errorf("邮件投递失败: JobID=%d, %v", job.ID, err)
		feed.Errorf("邮件发送失败: %v", err)
		return
	}
	feed.Logf("邮件已发送至 %s", req.Email)
}

// fail 统一的失败收尾：更新任务记录并追加最终错误事件
func (s *MashupService) fail(job *model.MashupJob, feed *progress.Feed, err error) error {
	job.SetFailed(err)
	s.mustSaveJob(job)
	feed.Errorf("任务失败: %v", err)
	return err
}

// outputName 决定成品文件名
func (s *MashupService) outputName(req MashupRequest) string {
	if req.OutputName != "" {
		return filepath.Base(req.OutputName)
	}
	return pathhelper.SanitizeFileName(req.Query) + "_mashup.mp3"
}

// saveJob 持久化任务记录；未启用持久化时为空操作
func (s *MashupService) saveJob(job *model.MashupJob) error {
	if s.db == nil {
		return nil
	}
	return s.db.Save(job).Error
}

// mustSaveJob 持久化任务记录，失败只记录日志
func (s *MashupService) mustSaveJob(job *model.MashupJob) {
	if err := s.saveJob(job); err != nil {
		s.logger.Errorf("保存任务记录失败: JobID=%d, %v", job.ID, err)
	}
}
