package service

import (
	"context"
	"sync"
	"tune-fusion/app/config"
	"tune-fusion/app/logger"
	"tune-fusion/app/progress"
)

// VideoDownloader 并发下载调度器。
// 通过有限大小的工作者池对每条链接派发一个下载任务，
// 单个任务失败只记录并跳过，不影响其余任务
type VideoDownloader struct {
	logger      *logger.Logger
	fetcher     MediaFetcher
	concurrency int
}

// NewVideoDownloader 创建下载调度器
func NewVideoDownloader(cfg *config.Config, log *logger.Logger, fetcher MediaFetcher) *VideoDownloader {
	concurrency := cfg.Mashup.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &VideoDownloader{
		logger:      log,
		fetcher:     fetcher,
		concurrency: concurrency,
	}
}

// FetchAll 下载全部链接到 destDir，等待所有任务结束后返回下载成功的文件。
// 返回列表按完成顺序排列，序号通过 FetchedMedia.Ordinal 恢复
func (d *VideoDownloader) FetchAll(ctx context.Context, links []SourceLink, destDir string, feed *progress.Feed) []FetchedMedia {
	workers := make(chan struct{}, d.concurrency) // 控制并发数的信号量
	var wg sync.WaitGroup

	var mu sync.Mutex
	fetched := make([]FetchedMedia, 0, len(links))

	for _, link := range links {
		wg.Add(1)
		go func(link SourceLink) {
			defer wg.Done()

			workers <- struct{}{} // 获取工作者槽位
			defer func() { <-workers }()

			feed.Logf("正在下载第 %d 个视频: %s", link.Ordinal, link.URL)

			path, err := d.fetcher.Download(ctx, link.URL, destDir, link.Ordinal)
			if err != nil {
				// 单个视频失败不中断批次，记录后继续
				d.logger.Warnf("下载第 %d 个视频失败: %s, %v", link.Ordinal, link.URL, err)
				feed.Errorf("下载第 %d 个视频失败: %v", link.Ordinal, err)
				return
			}

			mu.Lock()
			fetched = append(fetched, FetchedMedia{Ordinal: link.Ordinal, Path: path})
			mu.Unlock()

			feed.Logf("第 %d 个视频下载完成", link.Ordinal)
		}(link)
	}

	wg.Wait()

	feed.Logf("下载阶段结束: 成功 %d 个，失败 %d 个", len(fetched), len(links)-len(fetched))
	return fetched
}
