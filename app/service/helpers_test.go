package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"tune-fusion/app/config"
	"tune-fusion/app/logger"
	"tune-fusion/app/progress"
)

// testConfig 返回测试用配置，工作目录指向临时目录
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Port: "5000"},
		Log:    config.LogConfig{Level: "error", Format: "text", Output: "stdout"},
		Mashup: config.MashupConfig{
			MinVideos:       2,
			MaxVideos:       30,
			MinDuration:     5,
			MaxDuration:     500,
			Concurrency:     2,
			WorkDir:         t.TempDir(),
			SearchSuffix:    "official new video song",
			FeedTTLMinutes:  60,
			SweepAfterHours: 6,
		},
		Media: config.MediaConfig{
			FFmpegPath:   "ffmpeg",
			FFprobePath:  "ffprobe",
			AudioBitrate: "192k",
		},
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(config.LogConfig{Level: "error", Format: "text", Output: "stdout"})
}

// fakeFetcher 可编程的媒体搜索/下载实现
type fakeFetcher struct {
	results   []string        // Search 返回的链接
	searchErr error           // Search 返回的错误
	failURLs  map[string]bool // 下载必定失败的链接
	delay     time.Duration   // 每次下载的耗时

	mu          sync.Mutex
	searchCalls int
	inFlight    int
	maxInFlight int
}

func (f *fakeFetcher) Search(ctx context.Context, query string, limit int) ([]string, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()

	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.results) > limit {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func (f *fakeFetcher) Download(ctx context.Context, url, destDir string, ordinal int) (string, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.failURLs[url] {
		return "", errors.New("模拟下载失败")
	}

	path := filepath.Join(destDir, fmt.Sprintf("video_%d.mp4", ordinal))
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// fakeTitles 按映射返回标题，缺失的链接返回错误
type fakeTitles struct {
	titles map[string]string
}

func (f *fakeTitles) Title(ctx context.Context, url string) (string, error) {
	if title, found := f.titles[url]; found {
		return title, nil
	}
	return "", errors.New("标题不存在")
}

// fakeRunner 模拟 ffmpeg/ffprobe：探测返回固定时长，转码/拼接落盘占位文件
type fakeRunner struct {
	probeOutput string // ffprobe 的 stdout
	failExtract bool   // 音频提取是否失败
	failConcat  bool   // 拼接是否失败

	mu    sync.Mutex
	calls [][]string // 按调用顺序记录 name + args
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()

	if strings.Contains(name, "ffprobe") {
		if r.probeOutput == "" {
			return "30.0\n", "", nil
		}
		return r.probeOutput, "", nil
	}

	concat := false
	for _, arg := range args {
		if arg == "-filter_complex" {
			concat = true
			break
		}
	}
	if concat && r.failConcat {
		return "", "filter failed", errors.New("exit status 1")
	}
	if !concat && r.failExtract {
		return "", "decode failed", errors.New("exit status 1")
	}

	// 最后一个参数是输出路径
	output := args[len(args)-1]
	if err := os.WriteFile(output, []byte("audio"), 0644); err != nil {
		return "", "", err
	}
	return "", "", nil
}

// drainFeed 读空已关闭的事件流
func drainFeed(t *testing.T, feed *progress.Feed) []progress.Event {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []progress.Event
	for {
		event, ok := feed.Next(ctx)
		if !ok {
			break
		}
		events = append(events, event)
	}
	return events
}

// containsMessage 判断事件流中是否存在包含 substr 的事件
func containsMessage(events []progress.Event, substr string) bool {
	for _, event := range events {
		if strings.Contains(event.Message, substr) {
			return true
		}
	}
	return false
}

// timeHoursAgo 返回 n 小时前的时间点
func timeHoursAgo(n int) time.Time {
	return time.Now().Add(-time.Duration(n) * time.Hour)
}

// countErrors 统计错误类型事件的数量
func countErrors(events []progress.Event) int {
	count := 0
	for _, event := range events {
		if event.Type == progress.EventTypeError {
			count++
		}
	}
	return count
}
