package service

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
	"tune-fusion/app/config"
	"tune-fusion/app/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// 会话目录命名模式：1.links_<SID> ... 4.mashup_<SID>
var sessionDirPattern = regexp.MustCompile(`^[1-4]\.(links|videos|audios|mashup)_\d{8}_\d{6}_[0-9a-f]{8}$`)

// Session 一次串烧任务的隔离工作空间
type Session struct {
	ID        string
	LinksDir  string
	VideosDir string
	AudiosDir string
	MashupDir string
}

// Dirs 返回会话的全部工作目录
func (s *Session) Dirs() []string {
	return []string{s.LinksDir, s.VideosDir, s.AudiosDir, s.MashupDir}
}

// SessionService 会话生命周期管理：分配唯一标识、创建和清理工作目录
type SessionService struct {
	logger     *logger.Logger
	workDir    string
	sweepAfter time.Duration
	cron       *cron.Cron
	mu         sync.Mutex
	running    bool
}

// NewSessionService 创建会话管理服务
func NewSessionService(cfg *config.Config, log *logger.Logger) *SessionService {
	sweepAfter := time.Duration(cfg.Mashup.SweepAfterHours) * time.Hour
	if sweepAfter <= 0 {
		sweepAfter = 6 * time.Hour
	}
	return &SessionService{
		logger:     log,
		workDir:    cfg.Mashup.WorkDir,
		sweepAfter: sweepAfter,
		cron:       cron.New(),
	}
}

// Begin 分配一个全新会话并创建四个工作目录。
// 标识由时间戳加随机后缀组成，同一秒内的并发任务也不会冲突
func (s *SessionService) Begin() (*Session, error) {
	id := time.Now().Format("20060102_150405") + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	session := &Session{
		ID:        id,
		LinksDir:  filepath.Join(s.workDir, fmt.Sprintf("1.links_%s", id)),
		VideosDir: filepath.Join(s.workDir, fmt.Sprintf("2.videos_%s", id)),
		AudiosDir: filepath.Join(s.workDir, fmt.Sprintf("3.audios_%s", id)),
		MashupDir: filepath.Join(s.workDir, fmt.Sprintf("4.mashup_%s", id)),
	}

	for _, dir := range session.Dirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			// 创建失败时回收已经建好的目录
			s.End(session)
			return nil, fmt.Errorf("创建会话目录失败: %w", err)
		}
	}

	s.logger.Infof("会话已创建: %s", id)
	return session, nil
}

// End 无条件移除会话的全部工作目录。
// 允许传入 nil 或部分创建的会话；清理失败只记录日志，不向上传递
func (s *SessionService) End(session *Session) {
	if session == nil {
		return
	}

	for _, dir := range session.Dirs() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Errorf("清理会话目录失败: %s, %v", dir, err)
		}
	}
	s.logger.Infof("会话已清理: %s", session.ID)
}

// StartSweeper 启动定时清理，回收异常退出遗留的会话目录
func (s *SessionService) StartSweeper() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	s.cron.AddFunc("@hourly", s.sweep)
	s.cron.Start()
	s.logger.Infof("会话目录清理任务已启动，滞留超过 %v 的目录将被回收", s.sweepAfter)
}

// StopSweeper 停止定时清理
func (s *SessionService) StopSweeper() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.cron.Stop()
}

// sweep 扫描工作根目录，移除超过滞留时长的会话目录
func (s *SessionService) sweep() {
	entries, err := os.ReadDir(s.workDir)
	if err != nil {
		s.logger.Errorf("扫描工作目录失败: %v", err)
		return
	}

	cutoff := time.Now().Add(-s.sweepAfter)
	for _, entry := range entries {
		if !entry.IsDir() || !sessionDirPattern.MatchString(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.workDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.Errorf("回收残留会话目录失败: %s, %v", path, err)
			continue
		}
		s.logger.Infof("已回收残留会话目录: %s", path)
	}
}
