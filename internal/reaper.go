package internal

import (
	"time"
)

// 閒置清理：定期驅逐超過逾時未有任何活動的連接。
//
// 為什麼需要？
//   傳輸層不一定可靠地回報斷線（網路異常、客戶端崩潰），
//   死連接會永久佔住會話、佇列條目甚至房間名額。
//   清理走與 Disconnect 完全相同的路徑：離房 + 出隊 + 人數廣播。

// reapLoop 閒置清理背景迴圈
func (c *Core) reapLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Reaper.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Reap()
		case <-c.stopCh:
			return
		}
	}
}

// Reap 執行一輪閒置清理（公開方法供測試使用）
//
// 返回被驅逐的連接數。
func (c *Core) Reap() int {
	deadline := c.now().Add(-c.config.Reaper.Timeout)

	c.mu.Lock()
	var stale []string
	for connID, session := range c.sessions {
		if session.LastActive.Before(deadline) {
			stale = append(stale, connID)
		}
	}

	var out []outbound
	var closers []Conn
	for _, connID := range stale {
		if conn, ok := c.conns[connID]; ok {
			closers = append(closers, conn)
		}
		out = append(out, c.unregisterLocked(connID)...)
		c.logger.Info("閒置連接已驅逐", "conn_id", connID)
	}
	c.mu.Unlock()

	deliver(out)
	for _, conn := range closers {
		_ = conn.Close()
	}

	return len(stale)
}
