package ffmpeghelper

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"tune-fusion/app/config"
	"unicode/utf8"
)

// Runner 抽象外部命令执行，便于测试替换
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

// execRunner 通过 os/exec 执行外部命令
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// FFmpeg 封装 ffmpeg/ffprobe 的音频处理操作
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	bitrate     string
	runner      Runner
}

// New 创建使用配置中可执行文件路径的 FFmpeg 实例
func New(cfg *config.Config) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  cfg.Media.FFmpegPath,
		ffprobePath: cfg.Media.FFprobePath,
		bitrate:     cfg.Media.AudioBitrate,
		runner:      &execRunner{},
	}
}

// NewWithRunner 创建使用自定义命令执行器的 FFmpeg 实例（测试用）
func NewWithRunner(ffmpegPath, ffprobePath, bitrate string, runner Runner) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		bitrate:     bitrate,
		runner:      runner,
	}
}

// ExtractAudio 从视频文件中提取音轨并转码为 mp3，丢弃视频轨
func (f *FFmpeg) ExtractAudio(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", f.bitrate,
		outputPath,
	}

	_, stderr, err := f.runner.Run(ctx, f.ffmpegPath, args...)
	if err != nil {
		return fmt.Errorf("音频提取失败: %w (stderr: %s)", err, tail(stderr))
	}
	return nil
}

// Duration 通过 ffprobe 获取媒体文件时长（秒）
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	stdout, stderr, err := f.runner.Run(ctx, f.ffprobePath, args...)
	if err != nil {
		return 0, fmt.Errorf("获取媒体时长失败: %w (stderr: %s)", err, tail(stderr))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("解析媒体时长失败: %q", stdout)
	}
	return duration, nil
}

// ConcatFixed 把多个音频文件裁剪/补齐为固定时长后按顺序拼接为一个 mp3。
// 每段都先截断到 seconds 秒，不足的在末尾补静音，保证输出总时长 = seconds × len(inputs)
func (f *FFmpeg) ConcatFixed(ctx context.Context, inputs []string, outputPath string, seconds int) error {
	if len(inputs) == 0 {
		return fmt.Errorf("没有输入文件")
	}

	args := []string{"-hide_banner", "-nostdin", "-y"}
	for _, input := range inputs {
		args = append(args, "-i", input)
	}

	// 每路输入：截断 → 补静音 → 重置时间戳，最后统一 concat
	var filter strings.Builder
	for i := range inputs {
		fmt.Fprintf(&filter, "[%d:a]atrim=end=%d,apad=whole_dur=%d,asetpts=PTS-STARTPTS[a%d];", i, seconds, seconds, i)
	}
	for i := range inputs {
		fmt.Fprintf(&filter, "[a%d]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=0:a=1[out]", len(inputs))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[out]",
		"-c:a", "libmp3lame",
		"-b:a", f.bitrate,
		outputPath,
	)

	_, stderr, err := f.runner.Run(ctx, f.ffmpegPath, args...)
	if err != nil {
		return fmt.Errorf("音频拼接失败: %w (stderr: %s)", err, tail(stderr))
	}
	return nil
}

// tail 截取 stderr 的末尾部分，避免错误信息过长。
// 截断点对齐到字符边界，多字节字符不会被切碎
func tail(s string) string {
	s = strings.TrimSpace(s)
	const limit = 300
	if len(s) <= limit {
		return s
	}

	cut := len(s) - limit
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return "..." + s[cut:]
}
