package internal

import (
	"time"
)

// SessionState 會話狀態
//
// 有限狀態機設計：
//
//	unmatched → in_room → unmatched
//	    ↓          ↓
//	   gone ←──────┘
//
// 狀態轉換規則：
//   - unmatched → in_room：配對成功
//   - in_room → unmatched：離開聊天 / 對方離開 / 重新配對
//   - 任何狀態 → gone：斷線或閒置逾時（gone 為吸收態，之後的事件一律忽略）
type SessionState string

const (
	StateUnmatched SessionState = "unmatched" // 未配對，可能在等待佇列中
	StateInRoom    SessionState = "in_room"   // 已配對，在房間中聊天
	StateGone      SessionState = "gone"      // 已離線，不再處理任何事件
)

// Session 會話資訊
//
// 每個活躍連接對應一個 Session，由 Core 獨佔持有。
// 其他元件（配對器、房間表）只透過 connID 引用，不複製。
type Session struct {
	ConnID     string       // 連接 ID（傳輸層唯一識別）
	UserID     string       // 匿名使用者 ID（UUID）
	Username   string       // 顯示名稱（隨機生成或客戶端指定，衝突時加後綴）
	RoomID     string       // 當前房間 ID，未配對時為空
	State      SessionState // 狀態機狀態
	LastActive time.Time    // 最後活動時間（供閒置清理使用）
	JoinedAt   time.Time    // 連接建立時間
}

// 隨機名稱詞庫
var (
	nameAdjectives = []string{"Cool", "Fast", "Smart", "Funny", "Wild", "Brave", "Quick", "Sharp", "Bright", "Swift"}
	nameNouns      = []string{"Tiger", "Eagle", "Wolf", "Fox", "Bear", "Lion", "Shark", "Falcon", "Panther", "Hawk"}
)
