package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"tune-fusion/app/config"
	"tune-fusion/app/logger"
	"tune-fusion/app/progress"

	"github.com/patrickmn/go-cache"
)

// LinkResolver 把搜索关键词解析为有序、去重的媒体链接列表
type LinkResolver struct {
	logger       *logger.Logger
	fetcher      MediaFetcher
	titles       TitleLookup // 可为 nil，此时跳过标题确认
	searchSuffix string
	cache        *cache.Cache
}

// NewLinkResolver 创建链接解析服务
func NewLinkResolver(cfg *config.Config, log *logger.Logger, fetcher MediaFetcher, titles TitleLookup) *LinkResolver {
	return &LinkResolver{
		logger:       log,
		fetcher:      fetcher,
		titles:       titles,
		searchSuffix: cfg.Mashup.SearchSuffix,
		cache:        cache.New(10*time.Minute, 10*time.Minute),
	}
}

// Resolve 搜索并解析 count 条链接，持久化到 linksDir/links.txt。
// 单条链接的元数据确认失败只跳过该条；解析结果为空时返回 ErrNoResults
func (r *LinkResolver) Resolve(ctx context.Context, query string, count int, linksDir string, feed *progress.Feed) ([]SourceLink, error) {
	feed.Logf("正在搜索 '%s' 的相关视频", query)

	links, err := r.lookupLinks(ctx, query, count, feed)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		feed.Errorf("没有找到任何可用链接")
		return nil, ErrNoResults
	}

	if err := r.writeLinksFile(links, linksDir); err != nil {
		return nil, err
	}

	feed.Logf("共找到 %d 条链接", len(links))
	return links, nil
}

// lookupLinks 返回去重后的链接列表，优先使用短期缓存避免重复搜索
func (r *LinkResolver) lookupLinks(ctx context.Context, query string, count int, feed *progress.Feed) ([]SourceLink, error) {
	cacheKey := fmt.Sprintf("%s|%d", query, count)
	if cached, found := r.cache.Get(cacheKey); found {
		r.logger.Debugf("搜索结果命中缓存: %s", cacheKey)
		return cached.([]SourceLink), nil
	}

	searchQuery := strings.TrimSpace(query + " " + r.searchSuffix)
	candidates, err := r.fetcher.Search(ctx, searchQuery, count)
	if err != nil {
		return nil, fmt.Errorf("搜索媒体链接失败: %w", err)
	}

	seen := make(map[string]struct{}, len(candidates))
	links := make([]SourceLink, 0, len(candidates))
	for _, url := range candidates {
		if url == "" {
			continue
		}
		if _, duplicate := seen[url]; duplicate {
			continue
		}
		seen[url] = struct{}{}

		link := SourceLink{URL: url}
		if r.titles != nil {
			title, err := r.titles.Title(ctx, url)
			if err != nil {
				// 元数据查不到说明链接大概率不可用，跳过这一条继续
				feed.Logf("跳过链接 %s: %v", url, err)
				continue
			}
			link.Title = title
		}

		link.Ordinal = len(links) + 1
		links = append(links, link)
	}

	r.cache.Set(cacheKey, links, cache.DefaultExpiration)
	return links, nil
}

// writeLinksFile 把链接列表覆盖写入 links.txt，每行一条
func (r *LinkResolver) writeLinksFile(links []SourceLink, linksDir string) error {
	var content strings.Builder
	for _, link := range links {
		content.WriteString(link.URL)
		content.WriteString("\n")
	}

	if content.Len() == 0 {
		return fmt.Errorf("链接列表为空，拒绝写入")
	}

	path := filepath.Join(linksDir, "links.txt")
	if err := os.WriteFile(path, []byte(content.String()), 0644); err != nil {
		return fmt.Errorf("写入链接文件失败: %w", err)
	}
	return nil
}
