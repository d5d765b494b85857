package ffmpeghelper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

// recordRunner 记录命令并返回预设结果
type recordRunner struct {
	stdout string
	err    error

	name string
	args []string
}

func (r *recordRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	r.name = name
	r.args = args
	return r.stdout, "some stderr", r.err
}

func TestExtractAudioArgs(t *testing.T) {
	runner := &recordRunner{}
	f := NewWithRunner("/usr/bin/ffmpeg", "ffprobe", "192k", runner)

	if err := f.ExtractAudio(context.Background(), "in.mp4", "out.mp3"); err != nil {
		t.Fatalf("ExtractAudio 失败: %v", err)
	}

	if runner.name != "/usr/bin/ffmpeg" {
		t.Fatalf("命令 = %s", runner.name)
	}
	joined := strings.Join(runner.args, " ")
	for _, want := range []string{"-i in.mp4", "-vn", "-c:a libmp3lame", "-b:a 192k", "out.mp3"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("参数缺少 %q: %s", want, joined)
		}
	}
}

func TestExtractAudioError(t *testing.T) {
	runner := &recordRunner{err: errors.New("exit status 1")}
	f := NewWithRunner("ffmpeg", "ffprobe", "192k", runner)

	err := f.ExtractAudio(context.Background(), "in.mp4", "out.mp3")
	if err == nil {
		t.Fatal("命令失败时应返回错误")
	}
	if !strings.Contains(err.Error(), "some stderr") {
		t.Fatalf("错误信息应携带 stderr: %v", err)
	}
}

func TestDuration(t *testing.T) {
	runner := &recordRunner{stdout: "123.456\n"}
	f := NewWithRunner("ffmpeg", "/usr/bin/ffprobe", "192k", runner)

	duration, err := f.Duration(context.Background(), "song.mp3")
	if err != nil {
		t.Fatalf("Duration 失败: %v", err)
	}
	if duration != 123.456 {
		t.Fatalf("时长 = %f", duration)
	}
	if runner.name != "/usr/bin/ffprobe" {
		t.Fatalf("命令 = %s", runner.name)
	}
}

func TestDurationUnparsableOutput(t *testing.T) {
	runner := &recordRunner{stdout: "N/A"}
	f := NewWithRunner("ffmpeg", "ffprobe", "192k", runner)

	if _, err := f.Duration(context.Background(), "song.mp3"); err == nil {
		t.Fatal("无法解析的输出应返回错误")
	}
}

func TestConcatFixedFilter(t *testing.T) {
	runner := &recordRunner{}
	f := NewWithRunner("ffmpeg", "ffprobe", "128k", runner)

	inputs := []string{"song_1.mp3", "song_2.mp3", "song_3.mp3"}
	if err := f.ConcatFixed(context.Background(), inputs, "mashup.mp3", 45); err != nil {
		t.Fatalf("ConcatFixed 失败: %v", err)
	}

	joined := strings.Join(runner.args, " ")
	// 每路输入先裁剪/补齐为 45 秒再拼接
	for i := range inputs {
		want := "-i " + inputs[i]
		if !strings.Contains(joined, want) {
			t.Fatalf("参数缺少 %q: %s", want, joined)
		}
	}
	if !strings.Contains(joined, "[0:a]atrim=end=45,apad=whole_dur=45,asetpts=PTS-STARTPTS[a0]") {
		t.Fatalf("滤镜缺少固定时长处理: %s", joined)
	}
	if !strings.Contains(joined, "[a0][a1][a2]concat=n=3:v=0:a=1[out]") {
		t.Fatalf("滤镜缺少拼接表达式: %s", joined)
	}
	if !strings.Contains(joined, "-map [out]") || !strings.Contains(joined, "-b:a 128k") {
		t.Fatalf("输出参数错误: %s", joined)
	}
	if runner.args[len(runner.args)-1] != "mashup.mp3" {
		t.Fatalf("输出路径应为最后一个参数: %s", joined)
	}
}

func TestTailKeepsRuneBoundary(t *testing.T) {
	// 超长的多字节输出截断后仍须是合法的 UTF-8。
	// 总长 451 字节，截断点落在一个三字节字符中间
	long := strings.Repeat("错", 150) + "e"
	got := tail(long)

	if !strings.HasPrefix(got, "...") {
		t.Fatalf("截断结果缺少省略前缀: %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("截断结果不是合法 UTF-8: %q", got)
	}
	if len(got) > 3+300 {
		t.Fatalf("截断结果过长: %d 字节", len(got))
	}

	if short := tail("  short stderr  "); short != "short stderr" {
		t.Fatalf("短输出应只去掉首尾空白: %q", short)
	}
}

func TestConcatFixedNoInputs(t *testing.T) {
	f := NewWithRunner("ffmpeg", "ffprobe", "192k", &recordRunner{})
	if err := f.ConcatFixed(context.Background(), nil, "out.mp3", 30); err == nil {
		t.Fatal("没有输入文件时应返回错误")
	}
}
