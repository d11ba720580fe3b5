package internal

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// 連接註冊表：connID → Session 的生命週期管理。
//
// 設計重點：
//   - Connect / Disconnect 是僅有的建立與銷毀路徑，
//     閒置清理與傳輸層斷線都走同一條 Disconnect 路徑（清理恰好一次）
//   - Disconnect 對不存在的連接是 no-op：傳輸層可能重複回報斷線
//   - 任何註冊表人數變動都向全場廣播 user_count_update

// Connect 註冊新連接
//
// 流程：分配 UserID → 生成唯一顯示名稱 → 建立 Session →
// 向新連接發送 user_connected 問候 → 向全場廣播最新人數。
//
// requestedName 為空時隨機生成；否則以衝突加後綴的方式採用客戶端指定名稱。
// 返回會話副本：Session 由核心獨佔持有，外部只能觀察。
func (c *Core) Connect(conn Conn, requestedName string) Session {
	c.mu.Lock()

	connID := conn.ID()

	// 重複註冊視為舊連接已失效，先走一次完整清理
	var out []outbound
	if _, exists := c.sessions[connID]; exists {
		out = append(out, c.unregisterLocked(connID)...)
	}

	now := c.now()
	session := &Session{
		ConnID:     connID,
		UserID:     uuid.New().String(),
		Username:   c.uniqueNameLocked(requestedName),
		State:      StateUnmatched,
		LastActive: now,
		JoinedAt:   now,
	}
	c.sessions[connID] = session
	c.conns[connID] = conn

	out = append(out, outbound{conn, EventUserConnected, UserConnectedPayload{
		Username:   session.Username,
		UserID:     session.UserID,
		TotalUsers: len(c.sessions),
	}})
	out = append(out, c.userCountLocked()...)

	snapshot := *session
	c.mu.Unlock()
	deliver(out)

	c.logger.Info("連接已註冊",
		"conn_id", connID,
		"username", snapshot.Username)

	return snapshot
}

// Disconnect 註銷連接並執行完整清理
//
// 清理順序：移出等待佇列 → 離開房間（通知剩餘成員）→
// 刪除會話 → 廣播最新人數。對已註銷的連接是 no-op。
func (c *Core) Disconnect(connID string) {
	c.mu.Lock()
	out := c.unregisterLocked(connID)
	c.mu.Unlock()
	deliver(out)
}

// unregisterLocked 註銷連接（需持鎖）
//
// 返回清理過程產生的待發送事件。找不到會話時返回 nil（冪等）。
func (c *Core) unregisterLocked(connID string) []outbound {
	session, exists := c.sessions[connID]
	if !exists {
		return nil
	}

	var out []outbound

	c.removeFromQueueLocked(connID)

	if session.RoomID != "" {
		out = append(out, c.leaveRoomLocked(session)...)
	}

	session.State = StateGone
	delete(c.sessions, connID)
	delete(c.conns, connID)

	out = append(out, c.userCountLocked()...)

	c.logger.Info("連接已註銷",
		"conn_id", connID,
		"username", session.Username)

	return out
}

// Session 查詢會話（返回副本，避免外部觀察到不一致狀態）
func (c *Core) Session(connID string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, exists := c.sessions[connID]
	if !exists {
		return Session{}, false
	}
	return *session, true
}

// touchLocked 更新最後活動時間（需持鎖）
//
// 每個入站事件都會呼叫，只被閒置清理消費。
func (c *Core) touchLocked(session *Session) {
	session.LastActive = c.now()
}

// uniqueNameLocked 生成唯一顯示名稱（需持鎖）
//
// requested 為空時隨機生成（形容詞+名詞+兩位數字）；
// 與現有名稱衝突時依序嘗試 name_1、name_2…直到唯一。
func (c *Core) uniqueNameLocked(requested string) string {
	base := strings.TrimSpace(requested)
	if base == "" {
		base = randomName()
	}

	taken := make(map[string]bool, len(c.sessions))
	for _, s := range c.sessions {
		taken[s.Username] = true
	}

	if !taken[base] {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if !taken[candidate] {
			return candidate
		}
	}
}

// renameLocked 套用客戶端指定名稱（需持鎖）
//
// 名稱相同或為空時不變；否則重新做衝突檢查。
func (c *Core) renameLocked(session *Session, requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == session.Username {
		return session.Username
	}
	session.Username = c.uniqueNameLocked(requested)
	return session.Username
}

// randomName 生成隨機匿名名稱
func randomName() string {
	adj := nameAdjectives[randInt(len(nameAdjectives))]
	noun := nameNouns[randInt(len(nameNouns))]
	return fmt.Sprintf("%s%s%d", adj, noun, 10+randInt(90))
}

// randInt 生成 [0, max) 的隨機數
func randInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(n.Int64())
}
