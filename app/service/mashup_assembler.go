package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"tune-fusion/app/logger"
	"tune-fusion/app/progress"
	"tune-fusion/app/utils/ffmpeghelper"
	"tune-fusion/app/utils/pathhelper"
)

// MashupAssembler 把一组音频文件裁剪/补齐为固定时长并按序拼接成一个成品文件
type MashupAssembler struct {
	logger *logger.Logger
	ffmpeg *ffmpeghelper.FFmpeg
}

// NewMashupAssembler 创建拼接服务
func NewMashupAssembler(log *logger.Logger, ffmpeg *ffmpeghelper.FFmpeg) *MashupAssembler {
	return &MashupAssembler{
		logger: log,
		ffmpeg: ffmpeg,
	}
}

// Assemble 枚举 inputDir 中的音频文件，按序号排序后拼接写入 outputPath。
// 每段都被精确裁剪或补齐到 seconds 秒，成品总时长 = seconds × 段数。
// 目录中没有可识别的音频文件时返回 ErrEmptyInput
func (a *MashupAssembler) Assemble(ctx context.Context, inputDir, outputPath string, seconds int, feed *progress.Feed) error {
	feed.Logf("开始生成串烧文件")

	inputs, err := a.listAudioFiles(inputDir)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		feed.Errorf("没有找到可用于合成的音频文件")
		return ErrEmptyInput
	}

	for _, input := range inputs {
		// 原始时长仅用于进度展示，探测失败不影响拼接
		if duration, err := a.ffmpeg.Duration(ctx, input); err == nil {
			feed.Logf("已加入 %s（原时长 %.1f 秒，统一为 %d 秒）", filepath.Base(input), duration, seconds)
		} else {
			a.logger.Debugf("探测音频时长失败: %s, %v", input, err)
			feed.Logf("已加入 %s（统一为 %d 秒）", filepath.Base(input), seconds)
		}
	}

	// ffmpeg 带 -y 执行，已存在的同名成品会被覆盖
	if err := a.ffmpeg.ConcatFixed(ctx, inputs, outputPath, seconds); err != nil {
		return err
	}

	feed.Logf("串烧文件已保存: %s", outputPath)
	return nil
}

// listAudioFiles 枚举目录中可识别的音频文件，按文件名中的序号稳定排序
func (a *MashupAssembler) listAudioFiles(inputDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("读取音频目录失败: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !pathhelper.IsAudioFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(inputDir, entry.Name()))
	}

	// 优先按文件名携带的序号排序，保证拼接顺序与解析顺序一致；
	// 无法解析序号的文件按名称兜底排序
	sort.Slice(files, func(i, j int) bool {
		oi, oki := pathhelper.OrdinalFromFileName(files[i])
		oj, okj := pathhelper.OrdinalFromFileName(files[j])
		if oki && okj {
			return oi < oj
		}
		if oki != okj {
			return oki
		}
		return files[i] < files[j]
	})

	return files, nil
}
