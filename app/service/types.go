package service

import "context"

// SourceLink 搜索解析出的单个媒体链接，Ordinal 为解析列表中的 1 起始序号
type SourceLink struct {
	Ordinal int
	URL     string
	Title   string
}

// FetchedMedia 下载成功的单个本地媒体文件，保留来源链接的序号
type FetchedMedia struct {
	Ordinal int
	Path    string
}

// MediaFetcher 外部媒体搜索与下载服务
type MediaFetcher interface {
	// Search 返回不超过 limit 条媒体链接
	Search(ctx context.Context, query string, limit int) ([]string, error)
	// Download 把单个媒体下载到 destDir，文件名为 video_<ordinal>.<ext>，返回落盘路径
	Download(ctx context.Context, url, destDir string, ordinal int) (string, error)
}

// TitleLookup 媒体标题查询服务，用于进度展示和链接有效性确认
type TitleLookup interface {
	Title(ctx context.Context, url string) (string, error)
}

// Notifier 成品投递服务
type Notifier interface {
	Send(to, subject, body, attachmentPath string) error
}
