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
	"tune-fusion/app/model"
	"tune-fusion/app/progress"
	"tune-fusion/app/utils/ffmpeghelper"
)

// fakeNotifier 记录投递调用
type fakeNotifier struct {
	mu      sync.Mutex
	sendErr error
	sent    []string // 收件人列表
	attach  string   // 最后一次投递的附件路径
}

func (f *fakeNotifier) Send(to, subject, body, attachmentPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, to)
	f.attach = attachmentPath
	return nil
}

func searchResults(n int) []string {
	results := make([]string, n)
	for i := range results {
		results[i] = fmt.Sprintf("https://example.com/watch?v=%03d", i+1)
	}
	return results
}

func TestValidateRejectsBadInput(t *testing.T) {
	cfg := testConfig(t)
	svc := NewMashupService(cfg, testLogger(t), nil, &fakeFetcher{}, ffmpeghelper.NewWithRunner("ffmpeg", "ffprobe", "192k", &fakeRunner{}), nil)

	cases := []struct {
		name string
		req  MashupRequest
	}{
		{"空关键词", MashupRequest{Query: "  ", VideoCount: 5, Duration: 30}},
		{"视频数量过少", MashupRequest{Query: "歌手", VideoCount: cfg.Mashup.MinVideos - 1, Duration: 30}},
		{"视频数量过多", MashupRequest{Query: "歌手", VideoCount: cfg.Mashup.MaxVideos + 1, Duration: 30}},
		{"时长过短", MashupRequest{Query: "歌手", VideoCount: 5, Duration: cfg.Mashup.MinDuration - 1}},
		{"时长过长", MashupRequest{Query: "歌手", VideoCount: 5, Duration: cfg.Mashup.MaxDuration + 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Validate(tc.req); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, 期望 ErrValidation", err)
			}
		})
	}

	// 校验失败的提交不应留下任何会话目录
	if _, err := svc.Submit(MashupRequest{Query: "", VideoCount: 5, Duration: 30}); !errors.Is(err, ErrValidation) {
		t.Fatal("Submit 应拒绝非法参数")
	}
	entries, err := os.ReadDir(cfg.Mashup.WorkDir)
	if err != nil {
		t.Fatalf("读取工作目录失败: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("校验失败后工作目录不应有残留: %v", entries)
	}
}

func TestRunFullPipeline(t *testing.T) {
	cfg := testConfig(t)

	// 10 条链接中 2 条下载失败，其余 8 条完成整条流水线
	fetcher := &fakeFetcher{
		results: searchResults(10),
		failURLs: map[string]bool{
			"https://example.com/watch?v=002": true,
			"https://example.com/watch?v=007": true,
		},
	}
	runner := &fakeRunner{}
	notifier := &fakeNotifier{}
	svc := NewMashupService(cfg, testLogger(t), nil, fetcher, ffmpeghelper.NewWithRunner("ffmpeg", "ffprobe", "192k", runner), notifier)

	keepPath := filepath.Join(t.TempDir(), "成品.mp3")
	req := MashupRequest{
		Query:      "周杰伦",
		VideoCount: 10,
		Duration:   30,
		Email:      "user@example.com",
		KeepPath:   keepPath,
	}

	feed := progress.NewFeed()
	if err := svc.Run(context.Background(), req, feed); err != nil {
		t.Fatalf("Run 失败: %v", err)
	}

	events := drainFeed(t, feed)
	if countErrors(events) != 2 {
		t.Fatalf("错误事件数量 = %d, 期望 2 条下载失败", countErrors(events))
	}
	for _, msg := range []string{"开始生成串烧", "共找到 10 条链接", "串烧文件已保存", "邮件已发送至 user@example.com", "会话清理完成", "串烧生成完成"} {
		if !containsMessage(events, msg) {
			t.Fatalf("事件流中缺少 %q", msg)
		}
	}

	// 8 段各 30 秒进入拼接，成品总时长由滤镜保证为 240 秒
	var concatArgs string
	for _, call := range runner.calls {
		for _, arg := range call {
			if arg == "-filter_complex" {
				concatArgs = strings.Join(call, " ")
			}
		}
	}
	if !strings.Contains(concatArgs, "concat=n=8:v=0:a=1") {
		t.Fatalf("拼接段数错误: %s", concatArgs)
	}
	if !strings.Contains(concatArgs, "atrim=end=30,apad=whole_dur=30") {
		t.Fatalf("拼接滤镜缺少固定时长处理: %s", concatArgs)
	}

	// 成品在会话清理前另存到 KeepPath
	if _, err := os.Stat(keepPath); err != nil {
		t.Fatalf("成品未保留: %v", err)
	}

	// 会话目录全部清理
	entries, err := os.ReadDir(cfg.Mashup.WorkDir)
	if err != nil {
		t.Fatalf("读取工作目录失败: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("任务结束后工作目录不应有残留: %v", entries)
	}

	// 邮件投递了一次，附件是成品文件
	if len(notifier.sent) != 1 || notifier.sent[0] != "user@example.com" {
		t.Fatalf("邮件投递记录错误: %v", notifier.sent)
	}
	if filepath.Base(notifier.attach) != "周杰伦_mashup.mp3" {
		t.Fatalf("附件文件名 = %s", filepath.Base(notifier.attach))
	}
}

func TestRunNoResultsFails(t *testing.T) {
	cfg := testConfig(t)
	svc := NewMashupService(cfg, testLogger(t), nil, &fakeFetcher{}, ffmpeghelper.NewWithRunner("ffmpeg", "ffprobe", "192k", &fakeRunner{}), nil)

	feed := progress.NewFeed()
	err := svc.Run(context.Background(), MashupRequest{Query: "歌手", VideoCount: 5, Duration: 30}, feed)
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, 期望 ErrNoResults", err)
	}

	if !containsMessage(drainFeed(t, feed), "任务失败") {
		t.Fatal("事件流中缺少失败事件")
	}

	// 失败路径同样要清理会话目录
	entries, readErr := os.ReadDir(cfg.Mashup.WorkDir)
	if readErr != nil {
		t.Fatalf("读取工作目录失败: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("失败后工作目录不应有残留: %v", entries)
	}
}

func TestRunAllDownloadsFailed(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{
		results: searchResults(2),
		failURLs: map[string]bool{
			"https://example.com/watch?v=001": true,
			"https://example.com/watch?v=002": true,
		},
	}
	svc := NewMashupService(cfg, testLogger(t), nil, fetcher, ffmpeghelper.NewWithRunner("ffmpeg", "ffprobe", "192k", &fakeRunner{}), nil)

	feed := progress.NewFeed()
	err := svc.Run(context.Background(), MashupRequest{Query: "歌手", VideoCount: 2, Duration: 30}, feed)
	if err == nil {
		t.Fatal("全部下载失败时任务应失败")
	}
	if !containsMessage(drainFeed(t, feed), "没有任何视频下载成功") {
		t.Fatal("事件流中缺少失败原因")
	}
}

func TestRunAssembleFailureCleansUp(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{results: searchResults(3)}
	runner := &fakeRunner{failConcat: true}
	svc := NewMashupService(cfg, testLogger(t), nil, fetcher, ffmpeghelper.NewWithRunner("ffmpeg", "ffprobe", "192k", runner), nil)

	feed := progress.NewFeed()
	err := svc.Run(context.Background(), MashupRequest{Query: "歌手", VideoCount: 3, Duration: 30}, feed)
	if err == nil {
		t.Fatal("拼接失败时任务应失败")
	}

	entries, readErr := os.ReadDir(cfg.Mashup.WorkDir)
	if readErr != nil {
		t.Fatalf("读取工作目录失败: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("失败后工作目录不应有残留: %v", entries)
	}
}

func TestRunEmailFailureDoesNotFailJob(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{results: searchResults(2)}
	notifier := &fakeNotifier{sendErr: errors.New("SMTP 连接被拒绝")}
	svc := NewMashupService(cfg, testLogger(t), nil, fetcher, ffmpeghelper.NewWithRunner("ffmpeg", "ffprobe", "192k", &fakeRunner{}), notifier)

	feed := progress.NewFeed()
	err := svc.Run(context.Background(), MashupRequest{Query: "歌手", VideoCount: 2, Duration: 30, Email: "user@example.com"}, feed)
	if err != nil {
		t.Fatalf("邮件失败不应导致任务失败: %v", err)
	}

	events := drainFeed(t, feed)
	if !containsMessage(events, "邮件发送失败") {
		t.Fatal("事件流中缺少邮件失败事件")
	}
	if !containsMessage(events, "串烧生成完成") {
		t.Fatal("任务仍应正常完成")
	}
}

func TestSubmitRunsAsyncAndTracksStatus(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{results: searchResults(2)}
	svc := NewMashupService(cfg, testLogger(t), nil, fetcher, ffmpeghelper.NewWithRunner("ffmpeg", "ffprobe", "192k", &fakeRunner{}), nil)

	job, err := svc.Submit(MashupRequest{Query: "歌手", VideoCount: 2, Duration: 30})
	if err != nil {
		t.Fatalf("Submit 失败: %v", err)
	}

	feed, found := svc.Bus().Get(job.ID)
	if !found {
		t.Fatal("受理后应能查到任务的进度流")
	}

	// 读空进度流即等到任务结束
	events := drainFeed(t, feed)
	if !containsMessage(events, "串烧生成完成") {
		t.Fatal("事件流中缺少完成事件")
	}
	if job.Status != model.JobStatusSucceeded {
		t.Fatalf("任务状态 = %s, 期望 succeeded", job.Status)
	}

	// 任务结束后事件流进入保留期，晚一步连接仍能找到
	if _, found := svc.Bus().Get(job.ID); !found {
		t.Fatal("任务结束后保留期内事件流应仍可查")
	}
}

func TestOutputNameFallsBackToQuery(t *testing.T) {
	cfg := testConfig(t)
	svc := NewMashupService(cfg, testLogger(t), nil, &fakeFetcher{}, ffmpeghelper.NewWithRunner("ffmpeg", "ffprobe", "192k", &fakeRunner{}), nil)

	if name := svc.outputName(MashupRequest{Query: "A B/C"}); name != "A_BC_mashup.mp3" {
		t.Fatalf("默认文件名 = %s", name)
	}
	if name := svc.outputName(MashupRequest{Query: "歌手", OutputName: "/tmp/自定义.mp3"}); name != "自定义.mp3" {
		t.Fatalf("自定义文件名 = %s", name)
	}
}
