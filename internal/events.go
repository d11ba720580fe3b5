package internal

import (
	"encoding/json"
	"strings"
)

// 事件協定：抽象連接邊界上的邏輯事件。
//
// 錯誤處理分類（全部不回傳錯誤給客戶端，只推送正向事件）：
//   - 找不到會話：靜默忽略（事件可能與斷線發生競態）
//   - 幽靈引用：丟棄條目，其他參與者照常繼續
//   - 負載格式錯誤：丟棄事件，不做任何狀態變更
//   - 其他內部錯誤：在處理邊界 recover 並記錄，行程與背景迴圈不得崩潰

// 入站事件
const (
	EventFindStranger = "find_stranger"
	EventSendMessage  = "send_message"
	EventTyping       = "typing"
	EventLeaveChat    = "leave_chat"
	EventPing         = "ping"
)

// 出站事件
const (
	EventUserConnected   = "user_connected"
	EventUserCountUpdate = "user_count_update"
	EventWaiting         = "waiting_for_stranger"
	EventStrangerFound   = "stranger_found"
	EventReceiveMessage  = "receive_message"
	EventUserTyping      = "user_typing"
	EventUserLeft        = "user_left"
	EventChatLeft        = "chat_left"
	EventPong            = "pong"
)

// 入站負載
type findStrangerRequest struct {
	Username string `json:"username,omitempty"`
}

type sendMessageRequest struct {
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type typingRequest struct {
	// 指標用於區分「未帶欄位」與 false
	Typing *bool `json:"typing"`
}

// 出站負載
type UserConnectedPayload struct {
	Username   string `json:"username"`
	UserID     string `json:"user_id"`
	TotalUsers int    `json:"total_users"`
}

type UserCountPayload struct {
	Count int `json:"count"`
}

type WaitingPayload struct {
	Message string `json:"message"`
}

type StrangerFoundPayload struct {
	RoomID      string `json:"room_id"`
	PartnerName string `json:"partner_name"`
	Message     string `json:"message"`
}

type ReceiveMessagePayload struct {
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	UserID    string `json:"user_id"`
}

type UserTypingPayload struct {
	Username string `json:"username"`
	Typing   bool   `json:"typing"`
}

type UserLeftPayload struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type ChatLeftPayload struct {
	Message string `json:"message"`
}

// HandleEvent 處理一個入站事件
//
// 傳輸層對每個收到的訊息呼叫一次。任何處理中的 panic
// 在這裡被攔截並記錄，連接與背景迴圈維持可用。
func (c *Core) HandleEvent(connID, event string, data json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("事件處理失敗",
				"event", event,
				"conn_id", connID,
				"panic", r)
		}
	}()

	deliver(c.handleEvent(connID, event, data))
}

// handleEvent 事件分派（內部，整段為一個臨界區）
func (c *Core) handleEvent(connID, event string, data json.RawMessage) []outbound {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 找不到會話 ⇒ 靜默忽略（可能與斷線競態）
	session, exists := c.sessions[connID]
	if !exists || session.State == StateGone {
		return nil
	}

	c.touchLocked(session)

	switch event {
	case EventFindStranger:
		var req findStrangerRequest
		if len(data) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				c.logger.Debug("丟棄格式錯誤的負載", "event", event, "error", err)
				return nil
			}
		}
		c.renameLocked(session, req.Username)
		return c.requestMatchLocked(session)

	case EventSendMessage:
		var req sendMessageRequest
		if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.Text) == "" {
			c.logger.Debug("丟棄格式錯誤的負載", "event", event)
			return nil
		}
		if session.RoomID == "" {
			return nil
		}
		ts := req.Timestamp
		if ts == 0 {
			// 客戶端未帶時間戳時由服務端補上
			ts = c.now().UnixMilli()
		}
		// 回音給發送者本人：與全房間廣播一致，客戶端以 user_id 區分自己的訊息
		return c.toRoomLocked(session.RoomID, EventReceiveMessage, ReceiveMessagePayload{
			Username:  session.Username,
			Text:      req.Text,
			Timestamp: ts,
			UserID:    session.UserID,
		}, "")

	case EventTyping:
		var req typingRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Typing == nil {
			c.logger.Debug("丟棄格式錯誤的負載", "event", event)
			return nil
		}
		if session.RoomID == "" {
			return nil
		}
		// 排除發送者：不該看到自己的打字指示
		return c.toRoomLocked(session.RoomID, EventUserTyping, UserTypingPayload{
			Username: session.Username,
			Typing:   *req.Typing,
		}, session.ConnID)

	case EventLeaveChat:
		if session.RoomID == "" {
			return nil
		}
		out := c.leaveRoomLocked(session)
		if conn, ok := c.conns[connID]; ok {
			out = append(out, outbound{conn, EventChatLeft, ChatLeftPayload{
				Message: "You left the chat",
			}})
		}
		return out

	case EventPing:
		if conn, ok := c.conns[connID]; ok {
			return []outbound{{conn, EventPong, nil}}
		}
		return nil

	default:
		c.logger.Debug("收到未知事件",
			"event", event,
			"conn_id", connID)
		return nil
	}
}
