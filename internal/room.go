package internal

import (
	"fmt"

	"github.com/google/uuid"
)

// 房間表：roomID → 成員集合，作為廣播範圍。
//
// 不變量（與註冊表在同一臨界區內維護）：
//   - Session.RoomID 非空 ⇒ 該房間的成員集合包含此連接
//   - 成員數歸零的房間立即刪除（不存在孤兒房間）

// createRoomLocked 創建房間並登記成員（需持鎖）
//
// 同時更新每個成員會話的 RoomID 與狀態，保持雙向一致。
func (c *Core) createRoomLocked(connIDs ...string) string {
	roomID := uuid.New().String()
	members := make(map[string]bool, len(connIDs))
	for _, id := range connIDs {
		members[id] = true
		if session, exists := c.sessions[id]; exists {
			session.RoomID = roomID
			session.State = StateInRoom
		}
	}
	c.rooms[roomID] = members
	return roomID
}

// leaveRoomLocked 將會話移出其當前房間（需持鎖）
//
// 流程：移除成員 → 通知剩餘成員 user_left → 清空會話的 RoomID →
// 剩不到兩人的房間立即解散（對話已結束，剩餘成員回到未配對）。
// 會話不在房間時是 no-op。
//
// 返回對剩餘成員的通知事件；絕不向離開者本人發送任何事件。
func (c *Core) leaveRoomLocked(session *Session) []outbound {
	roomID := session.RoomID
	if roomID == "" {
		return nil
	}

	var out []outbound
	if members, exists := c.rooms[roomID]; exists {
		delete(members, session.ConnID)

		payload := UserLeftPayload{
			Username: session.Username,
			Message:  fmt.Sprintf("%s left the chat", session.Username),
		}
		for id := range members {
			if conn, ok := c.conns[id]; ok {
				out = append(out, outbound{conn, EventUserLeft, payload})
			}
		}

		// 兩人房少了一人就沒有對話可言：解散房間，剩餘成員回到未配對
		if len(members) < 2 {
			for id := range members {
				if remaining, ok := c.sessions[id]; ok {
					remaining.RoomID = ""
					if remaining.State == StateInRoom {
						remaining.State = StateUnmatched
					}
				}
			}
			delete(c.rooms, roomID)
			c.logger.Debug("房間已解散", "room_id", roomID)
		}
	}

	session.RoomID = ""
	if session.State == StateInRoom {
		session.State = StateUnmatched
	}

	return out
}

// membersOfLocked 獲取房間成員（需持鎖）
func (c *Core) membersOfLocked(roomID string) map[string]bool {
	return c.rooms[roomID]
}

// RoomMembers 獲取房間成員快照
func (c *Core) RoomMembers(roomID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	members, exists := c.rooms[roomID]
	if !exists {
		return nil
	}
	result := make([]string, 0, len(members))
	for id := range members {
		result = append(result, id)
	}
	return result
}
