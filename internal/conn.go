package internal

// Conn 抽象連接能力
//
// 系統設計考量：
//   - 核心邏輯不依賴具體傳輸層（WebSocket、SSE、測試替身皆可）
//   - Send 必須是非阻塞的：核心在臨界區外送出事件，
//     慢客戶端不能拖慢其他人（實作以緩衝 channel 達成）
//   - Close 供閒置清理使用：傳輸層不一定會回報斷線
type Conn interface {
	// ID 返回傳輸層連接的唯一識別
	ID() string

	// Send 向客戶端發送一個事件（非阻塞，失敗時靜默丟棄）
	Send(event string, payload any)

	// Close 關閉底層連接
	Close() error
}

// outbound 待發送的事件
//
// 廣播不能在持鎖時進行（發送可能阻塞或回調），
// 所以所有操作在臨界區內只收集 outbound，解鎖後統一送出。
type outbound struct {
	conn    Conn
	event   string
	payload any
}

// deliver 送出收集到的事件（必須在臨界區外呼叫）
func deliver(out []outbound) {
	for _, o := range out {
		o.conn.Send(o.event, o.payload)
	}
}
