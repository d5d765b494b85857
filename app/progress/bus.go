package progress

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// Bus 按任务ID管理进度事件流。
// 每个任务一条独立的流，避免并发任务的事件在同一条流上交错。
// 任务结束后事件流仍保留一段时间，保证浏览器晚一步连接也能读到完整记录。
type Bus struct {
	feeds *cache.Cache
}

// NewBus 创建事件流注册表，ttl 为任务结束后事件流的保留时间
func NewBus(ttl time.Duration) *Bus {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Bus{
		feeds: cache.New(ttl, 10*time.Minute),
	}
}

// Create 为任务创建并注册一条新的事件流。
// 运行中的任务不设过期时间，结束后通过 Expire 启动保留倒计时
func (b *Bus) Create(jobID uint) *Feed {
	feed := NewFeed()
	b.feeds.Set(feedKey(jobID), feed, cache.NoExpiration)
	return feed
}

// Expire 任务结束后调用，保留时间从这一刻起计算，超时后事件流被回收
func (b *Bus) Expire(jobID uint) {
	value, found := b.feeds.Get(feedKey(jobID))
	if !found {
		return
	}
	b.feeds.Set(feedKey(jobID), value, cache.DefaultExpiration)
}

// Get 获取任务的事件流
func (b *Bus) Get(jobID uint) (*Feed, bool) {
	value, found := b.feeds.Get(feedKey(jobID))
	if !found {
		return nil, false
	}
	feed, ok := value.(*Feed)
	return feed, ok
}

func feedKey(jobID uint) string {
	return strconv.FormatUint(uint64(jobID), 10)
}
