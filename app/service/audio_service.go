package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"tune-fusion/app/logger"
	"tune-fusion/app/progress"
	"tune-fusion/app/utils/ffmpeghelper"
)

// AudioNormalizer 把下载的视频文件逐个转换为纯音频文件。
// 这一步只负责去掉视频轨并转码，时长的裁剪/补齐统一由拼接阶段完成
type AudioNormalizer struct {
	logger *logger.Logger
	ffmpeg *ffmpeghelper.FFmpeg
}

// NewAudioNormalizer 创建音频转换服务
func NewAudioNormalizer(log *logger.Logger, ffmpeg *ffmpeghelper.FFmpeg) *AudioNormalizer {
	return &AudioNormalizer{
		logger: log,
		ffmpeg: ffmpeg,
	}
}

// NormalizeAll 把每个视频转换为 destDir/song_<ordinal>.mp3，保留来源序号。
// 单个文件转换失败只记录并跳过，返回转换成功的音频文件路径
func (n *AudioNormalizer) NormalizeAll(ctx context.Context, media []FetchedMedia, destDir string, feed *progress.Feed) []string {
	feed.Logf("开始转换 %d 个视频为音频", len(media))

	// 按序号处理，进度展示更直观
	ordered := make([]FetchedMedia, len(media))
	copy(ordered, media)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Ordinal < ordered[j].Ordinal })

	audios := make([]string, 0, len(ordered))
	for _, item := range ordered {
		outputPath := filepath.Join(destDir, fmt.Sprintf("song_%d.mp3", item.Ordinal))

		if err := n.ffmpeg.ExtractAudio(ctx, item.Path, outputPath); err != nil {
			// 单个文件转换失败不中断批次
			n.logger.Warnf("转换第 %d 个视频失败: %v", item.Ordinal, err)
			feed.Errorf("转换第 %d 个视频为音频失败: %v", item.Ordinal, err)
			continue
		}

		audios = append(audios, outputPath)
		feed.Logf("已转换第 %d 个视频为音频", item.Ordinal)
	}

	feed.Logf("音频转换结束: 成功 %d 个", len(audios))
	return audios
}
