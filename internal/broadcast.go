package internal

// 廣播路由：把一個事件映射到正確的連接集合。
//
// 三種範圍：房間（可排除發送者）、全場、單一連接。
// 目標連接若已斷線（不在 conns 中）直接跳過，不是錯誤——
// 房間成員表與連接表的差集只會在清理競態的瞬間出現。

// toRoomLocked 收集對房間成員的廣播（需持鎖）
//
// excludeID 非空時跳過該連接（打字指示器用，發送者不該看到自己的回音）。
func (c *Core) toRoomLocked(roomID, event string, payload any, excludeID string) []outbound {
	members := c.membersOfLocked(roomID)
	if len(members) == 0 {
		return nil
	}

	out := make([]outbound, 0, len(members))
	for id := range members {
		if id == excludeID {
			continue
		}
		if conn, ok := c.conns[id]; ok {
			out = append(out, outbound{conn, event, payload})
		}
	}
	return out
}

// toAllLocked 收集對所有連接的廣播（需持鎖）
func (c *Core) toAllLocked(event string, payload any) []outbound {
	out := make([]outbound, 0, len(c.conns))
	for _, conn := range c.conns {
		out = append(out, outbound{conn, event, payload})
	}
	return out
}

// userCountLocked 收集人數更新廣播（需持鎖）
//
// 註冊表人數任何變動（連接、斷線、閒置清理）後呼叫。
func (c *Core) userCountLocked() []outbound {
	return c.toAllLocked(EventUserCountUpdate, UserCountPayload{
		Count: len(c.sessions),
	})
}
