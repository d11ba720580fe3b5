package internal

import (
	"log/slog"
	"sync"
	"time"
)

// 系統設計問題：
//   如何為匿名使用者做即時隨機配對聊天，並把訊息正確路由到對的連接集合？
//
// 核心挑戰：
//   1. 狀態一致性：會話表、等待佇列、房間表三者有跨結構不變量
//      （在佇列中 ⇒ 不在房間；Session.RoomID 非空 ⇒ 房間成員表包含它）
//   2. 競態條件：斷線與配對可能同時發生（佇列裡留下幽靈連接）
//   3. 廣播安全：向客戶端發送不能在持鎖時進行（慢客戶端會拖垮全場）
//   4. 資源回收：傳輸層不一定回報斷線，需要閒置清理兜底
//
// 設計方案：
//   ✅ 單一互斥鎖 - 會話表 + 佇列 + 房間表視為一個臨界區
//   ✅ 收集後發送 - 臨界區內只收集 outbound，解鎖後統一送出
//   ✅ 冪等清理 - unregister 對不存在的連接是 no-op（容忍重複斷線事件）
//   ✅ stopCh + WaitGroup - 背景迴圈（掃描配對、閒置清理）可取消

// Core 聊天核心
//
// 集中持有全部共享狀態：
//   - sessions：connID → Session（連接註冊表）
//   - conns：connID → Conn（發送能力，與 sessions 同生命週期）
//   - queue：等待配對的 connID（FIFO，無重複）
//   - rooms：roomID → 成員集合
//
// 為什麼是一把鎖而不是分層鎖？
//   - 跨結構不變量必須原子維護（配對 = 出佇列 + 建房間 + 改兩個會話）
//   - 臨界區都很短（純記憶體操作），鎖競爭不是瓶頸
//   - 分層鎖需要嚴格的取鎖順序，否則死鎖；一把鎖直接消除這類錯誤
type Core struct {
	mu       sync.Mutex
	sessions map[string]*Session
	conns    map[string]Conn
	queue    []string
	rooms    map[string]map[string]bool

	config *Config
	logger *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// 測試用的時間源，正式運行時為 time.Now
	now func() time.Time
}

// NewCore 創建聊天核心並啟動背景迴圈
//
// 背景迴圈：
//   - 閒置清理（永遠啟動）
//   - 掃描配對（只在 matching.policy = sweep 時啟動）
func NewCore(config *Config, logger *slog.Logger) *Core {
	c := &Core{
		sessions: make(map[string]*Session),
		conns:    make(map[string]Conn),
		rooms:    make(map[string]map[string]bool),
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	c.wg.Add(1)
	go c.reapLoop()

	if config.Matching.Policy == PolicySweep {
		c.wg.Add(1)
		go c.sweepLoop()
	}

	return c
}

// Stop 停止背景迴圈並關閉所有連接
func (c *Core) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()

	c.mu.Lock()
	conns := make([]Conn, 0, len(c.conns))
	for _, conn := range c.conns {
		conns = append(conns, conn)
	}
	c.sessions = make(map[string]*Session)
	c.conns = make(map[string]Conn)
	c.queue = nil
	c.rooms = make(map[string]map[string]bool)
	c.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}

	c.logger.Info("聊天核心已停止")
}

// Stats 獲取統計資訊
func (c *Core) Stats() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	inRoom := 0
	for _, s := range c.sessions {
		if s.RoomID != "" {
			inRoom++
		}
	}

	return map[string]any{
		"total_connections": len(c.sessions),
		"waiting":           len(c.queue),
		"in_room":           inRoom,
		"total_rooms":       len(c.rooms),
	}
}
