package internal

import (
	"fmt"
	"time"
)

// 系統設計問題：
//   如何公平地把等待中的陌生人兩兩配對，且不配到自己、不配到幽靈連接？
//
// 核心挑戰：
//   1. FIFO 公平：等最久的人優先被配對
//   2. 競態條件：入隊與掃描之間對方可能已斷線
//   3. 冪等入隊：重複點擊「找陌生人」不能在佇列裡出現兩次
//
// 設計方案：
//   ✅ 兩種策略 - 即時配對（請求觸發）與定期掃描（背景觸發），配置切換
//   ✅ 幽靈丟棄 - 佇列條目找不到活躍會話時直接丟棄，絕不重試回佇列
//   ✅ 先離房再入隊 - 已在房間的請求者先走離開流程，維持「佇列 ⇒ 無房間」不變量

// matchLocked 將兩個連接配成一對（需持鎖）
//
// 生成新房間、更新兩個會話、向雙方發送 stranger_found。
// 呼叫者保證兩個會話都存在且互不相同。
func (c *Core) matchLocked(a, b *Session) []outbound {
	// 配對即離隊：請求者自己可能也還掛在佇列裡（重複請求的殘留）
	c.removeFromQueueLocked(a.ConnID)
	c.removeFromQueueLocked(b.ConnID)

	roomID := c.createRoomLocked(a.ConnID, b.ConnID)

	var out []outbound
	pairs := [2]struct {
		self, partner *Session
	}{{a, b}, {b, a}}

	for _, p := range pairs {
		if conn, ok := c.conns[p.self.ConnID]; ok {
			out = append(out, outbound{conn, EventStrangerFound, StrangerFoundPayload{
				RoomID:      roomID,
				PartnerName: p.partner.Username,
				Message:     fmt.Sprintf("You're now chatting with %s!", p.partner.Username),
			}})
		}
	}

	c.logger.Info("配對成功",
		"room_id", roomID,
		"user_a", a.Username,
		"user_b", b.Username)

	return out
}

// requestMatchLocked 處理配對請求（需持鎖）
//
// 即時策略：佇列頭是別人就立刻配對；否則冪等入隊並回覆等待中。
// 掃描策略：一律入隊，交給背景迴圈配對。
//
// 請求者若在房間中，先離開（通知前房間成員）再進入配對流程。
func (c *Core) requestMatchLocked(session *Session) []outbound {
	var out []outbound

	if session.RoomID != "" {
		out = append(out, c.leaveRoomLocked(session)...)
	}

	if c.config.Matching.Policy == PolicyOnDemand {
		// 跳過佇列頭部的幽靈條目（斷線與配對的競態殘留）
		for len(c.queue) > 0 && c.queue[0] != session.ConnID {
			partnerID := c.queue[0]
			c.queue = c.queue[1:]

			partner, exists := c.sessions[partnerID]
			if !exists || partner.State == StateGone {
				c.logger.Debug("丟棄佇列中的幽靈條目", "conn_id", partnerID)
				continue
			}

			return append(out, c.matchLocked(partner, session)...)
		}
	}

	c.enqueueLocked(session.ConnID)
	if conn, ok := c.conns[session.ConnID]; ok {
		out = append(out, outbound{conn, EventWaiting, WaitingPayload{
			Message: "Looking for a stranger to chat with...",
		}})
	}
	return out
}

// sweepLoop 定期掃描配對（掃描策略專用的背景迴圈）
func (c *Core) sweepLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Matching.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stopCh:
			return
		}
	}
}

// Sweep 執行一輪掃描配對（公開方法供測試使用）
//
// 佇列持有 ≥2 個條目時，取出最早的兩個並驗證會話仍然活躍：
// 幽靈條目丟棄後繼續掃描，絕不為它創建房間，也不重新插回佇列。
func (c *Core) Sweep() {
	c.mu.Lock()

	var out []outbound
	for len(c.queue) >= 2 {
		a, exists := c.sessions[c.queue[0]]
		if !exists || a.State == StateGone {
			c.logger.Debug("丟棄佇列中的幽靈條目", "conn_id", c.queue[0])
			c.queue = c.queue[1:]
			continue
		}

		b, exists := c.sessions[c.queue[1]]
		if !exists || b.State == StateGone {
			c.logger.Debug("丟棄佇列中的幽靈條目", "conn_id", c.queue[1])
			c.queue = append(c.queue[:1], c.queue[2:]...)
			continue
		}

		c.queue = c.queue[2:]
		out = append(out, c.matchLocked(a, b)...)
	}

	c.mu.Unlock()
	deliver(out)
}
