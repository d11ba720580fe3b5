package internal_test

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/koopa0/anonymous-chat/internal"
)

// 創建測試用的 logger
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // 測試時只顯示錯誤
	}))
}

// 測試用配置：背景迴圈的週期拉長，測試直接呼叫 Sweep / Reap
func testConfig(policy string) *internal.Config {
	config := internal.DefaultConfig()
	config.Matching.Policy = policy
	config.Matching.SweepInterval = time.Minute
	config.Reaper.Interval = time.Minute
	config.Reaper.Timeout = time.Minute
	return config
}

// recorded 一筆被記錄的出站事件
type recorded struct {
	Event   string
	Payload any
}

// fakeConn 測試替身：記錄收到的事件
type fakeConn struct {
	id string

	mu     sync.Mutex
	events []recorded
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string {
	return c.id
}

func (c *fakeConn) Send(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, recorded{Event: event, Payload: payload})
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// all 獲取全部事件快照
func (c *fakeConn) all() []recorded {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]recorded, len(c.events))
	copy(result, c.events)
	return result
}

// count 統計某事件出現次數
func (c *fakeConn) count(event string) int {
	n := 0
	for _, e := range c.all() {
		if e.Event == event {
			n++
		}
	}
	return n
}

// last 獲取某事件最後一次的負載，沒有時返回 nil
func (c *fakeConn) last(event string) any {
	events := c.all()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Event == event {
			return events[i].Payload
		}
	}
	return nil
}

// isClosed 連接是否已被關閉
func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// reset 清空已記錄的事件
func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
