// Package internal 實現了一個匿名陌生人即時配對聊天服務的核心。
//
// 為即時連線的匿名參與者做兩兩配對，並把訊息與打字信號
// 路由到正確的連接集合，不保存任何聊天歷史：
//
// 會話與配對
//
// 提供完整的會話生命週期管理：
//   - 連接註冊與註銷（隨機顯示名稱，衝突自動加後綴）
//   - FIFO 等待佇列（冪等入隊、幽靈條目丟棄）
//   - 兩種配對策略（即時配對 / 背景掃描），配置切換
//   - 房間成員與會話指標雙向一致，空房間立即刪除
//
// 併發安全設計
//
// 會話表、等待佇列、房間表共用一把互斥鎖：
//   - 跨結構不變量永遠不會被併發讀者觀察到撕裂狀態
//   - 臨界區內只收集待發送事件，解鎖後統一送出
//   - 背景迴圈（掃描配對、閒置清理）以 stopCh 取消
//
// # WebSocket 通訊
//
// 傳輸層是可替換的邊界：核心只依賴 Conn 能力介面。
// 內建 gorilla/websocket 適配層：
//   - 心跳檢測（Ping/Pong，54s/60s）
//   - 非阻塞發送（緩衝 channel，滿時丟棄）
//   - 斷線觸發與手動離開完全相同的清理路徑
//
// 使用範例
//
// 啟動服務器：
//
//	core := internal.NewCore(config, logger)
//	hub := internal.NewHub(core, logger)
//	handler := internal.NewHandler(core, logger)
//
//	mux := http.NewServeMux()
//	mux.Handle("/", handler.Routes())
//	mux.HandleFunc("/ws", hub.ServeWS)
//	log.Fatal(http.ListenAndServe(":8080", mux))
//
// 客戶端以查詢參數指定名稱連接：
//
//	ws://localhost:8080/ws?username=Alice
//
// 事件協定
//
// 入站：find_stranger、send_message、typing、leave_chat、ping。
// 出站：user_connected、user_count_update、waiting_for_stranger、
// stranger_found、receive_message、user_typing、user_left、chat_left、pong。
//
// 配置選項
//
// 支援多種運行時配置：
//   - -port：服務監聽端口（預設 8080）
//   - -config：yaml 配置檔路徑
//   - -log-level：日誌級別（debug/info/warn/error）
//   - -log-format：日誌格式（text/json）
package internal
