package internal

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testSweepConfig() *Config {
	config := DefaultConfig()
	config.Matching.Policy = PolicySweep
	config.Matching.SweepInterval = time.Minute
	config.Reaper.Interval = time.Minute
	return config
}

func testNopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubConn 白盒測試用的最小連接替身
type stubConn struct {
	id     string
	events []string
}

func (c *stubConn) ID() string               { return c.id }
func (c *stubConn) Send(event string, _ any) { c.events = append(c.events, event) }
func (c *stubConn) Close() error             { return nil }

// 白盒測試：直接往佇列塞幽靈條目，驗證「丟棄而非重試」。
// 正常運行時斷線清理會移除佇列條目，這條防線只在清理競態的瞬間生效，
// 從外部無法構造，所以在套件內部測。

// TestSweep_DiscardsInjectedGhost 測試掃描丟棄幽靈條目
func TestSweep_DiscardsInjectedGhost(t *testing.T) {
	c := NewCore(testSweepConfig(), testNopLogger())
	defer c.Stop()

	x := &stubConn{id: "conn-x"}
	c.Connect(x, "X")

	c.mu.Lock()
	c.queue = append([]string{"ghost-1", "ghost-2"}, c.queue...)
	c.mu.Unlock()

	c.Sweep()

	// 幽靈被丟棄且沒有重新入隊；X 留在佇列裡等待，沒有房間被創建
	c.mu.Lock()
	assert.Equal(t, []string{"conn-x"}, c.queue)
	assert.Empty(t, c.rooms)
	c.mu.Unlock()
}

// TestRequestMatch_SkipsGhostHead 測試即時配對跳過佇列頭的幽靈
func TestRequestMatch_SkipsGhostHead(t *testing.T) {
	config := testSweepConfig()
	config.Matching.Policy = PolicyOnDemand
	c := NewCore(config, testNopLogger())
	defer c.Stop()

	a := &stubConn{id: "conn-a"}
	b := &stubConn{id: "conn-b"}
	c.Connect(a, "A")
	c.Connect(b, "B")

	c.mu.Lock()
	c.queue = []string{"ghost-1", "conn-a"}
	c.mu.Unlock()

	c.HandleEvent("conn-b", EventFindStranger, nil)

	// 幽靈被跳過，B 與活躍的 A 配對
	c.mu.Lock()
	assert.Empty(t, c.queue)
	assert.Len(t, c.rooms, 1)
	sessionA := c.sessions["conn-a"]
	sessionB := c.sessions["conn-b"]
	assert.NotEmpty(t, sessionA.RoomID)
	assert.Equal(t, sessionA.RoomID, sessionB.RoomID)
	c.mu.Unlock()
}
