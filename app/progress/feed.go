package progress

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EventType 进度事件类型
type EventType string

const (
	EventTypeLog   EventType = "log"   // 普通进度日志
	EventTypeError EventType = "error" // 错误信息
)

// Event 一条面向用户的进度事件
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Feed 单个任务的进度事件流。
// 无界先进先出队列：任意数量的生产者并发追加，单个消费者通过 Next 阻塞读取。
// 任务结束后调用 Close，消费者读完剩余事件后 Next 返回 false。
type Feed struct {
	mu      sync.Mutex
	pending []Event
	notify  chan struct{}
	closed  bool
}

// NewFeed 创建一个新的进度事件流
func NewFeed() *Feed {
	return &Feed{
		notify: make(chan struct{}, 1),
	}
}

// Logf 追加一条普通进度事件
func (f *Feed) Logf(format string, args ...any) {
	f.publish(EventTypeLog, fmt.Sprintf(format, args...))
}

// Errorf 追加一条错误事件
func (f *Feed) Errorf(format string, args ...any) {
	f.publish(EventTypeError, fmt.Sprintf(format, args...))
}

// publish 追加事件并唤醒消费者
func (f *Feed) publish(eventType EventType, message string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.pending = append(f.pending, Event{
		Type:    eventType,
		Message: message,
		Time:    time.Now(),
	})
	f.mu.Unlock()

	f.signal()
}

// Close 结束事件流。已追加但未消费的事件仍然可以被读取完
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.signal()
}

// Next 阻塞等待下一条事件。
// 返回 false 表示事件流已关闭且读空，或者 ctx 已取消。
func (f *Feed) Next(ctx context.Context) (Event, bool) {
	for {
		f.mu.Lock()
		if len(f.pending) > 0 {
			event := f.pending[0]
			f.pending = f.pending[1:]
			f.mu.Unlock()
			return event, true
		}
		closed := f.closed
		f.mu.Unlock()

		if closed {
			return Event{}, false
		}

		select {
		case <-f.notify:
		case <-ctx.Done():
			return Event{}, false
		}
	}
}

// signal 非阻塞地向消费者发送唤醒信号
func (f *Feed) signal() {
	select {
	case f.notify <- struct{}{}:
	default:
	}
}
