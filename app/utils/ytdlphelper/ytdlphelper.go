package ytdlphelper

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
	"tune-fusion/app/config"

	"github.com/lrstanley/go-ytdlp"
)

// Client 基于 yt-dlp 的媒体搜索与下载客户端
type Client struct {
	format  string
	timeout time.Duration
}

// New 创建新的 yt-dlp 客户端
func New(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Media.FetchTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		format:  cfg.Media.Format,
		timeout: timeout,
	}
}

// Search 搜索媒体，返回不超过 limit 条观看链接
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	dl := ytdlp.New().
		FlatPlaylist().
		SkipDownload().
		DumpSingleJSON()

	result, err := dl.Run(ctx, fmt.Sprintf("ytsearch%d:%s", limit, query))
	if err != nil {
		return nil, fmt.Errorf("搜索失败: %w", err)
	}

	info, err := result.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("解析搜索结果失败: %w", err)
	}

	links := make([]string, 0, limit)
	for _, item := range info {
		for _, entry := range item.Entries {
			if entry == nil || entry.ID == "" {
				continue
			}
			links = append(links, "https://www.youtube.com/watch?v="+entry.ID)
		}
		// 非播放列表结果直接取自身
		if len(item.Entries) == 0 && item.ID != "" {
			links = append(links, "https://www.youtube.com/watch?v="+item.ID)
		}
	}
	return links, nil
}

// Download 下载单个媒体到 destDir，文件名为 video_<ordinal>.<ext>，返回实际落盘路径
func (c *Client) Download(ctx context.Context, url, destDir string, ordinal int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	dl := ytdlp.New().
		Format(c.format).
		ForceOverwrites().
		RestrictFilenames().
		Output(filepath.Join(destDir, fmt.Sprintf("video_%d.%%(ext)s", ordinal)))

	if _, err := dl.Run(ctx, url); err != nil {
		return "", fmt.Errorf("下载失败: %w", err)
	}

	// 扩展名由 yt-dlp 决定，按序号找回实际文件
	matches, err := filepath.Glob(filepath.Join(destDir, fmt.Sprintf("video_%d.*", ordinal)))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("下载完成但未找到输出文件: video_%d.*", ordinal)
	}
	return matches[0], nil
}
