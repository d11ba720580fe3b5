package internal

// 等待佇列：尋求配對的 connID，FIFO 有序且無重複。
//
// 不變量：
//   - 同一 connID 最多出現一次（入隊冪等）
//   - 配對成功或斷線時，條目被移除且不會重新插入
//   - 佇列中的連接必定不在任何房間（入隊前先離開房間）

// enqueueLocked 將連接加入等待佇列（需持鎖，冪等）
//
// 已在佇列中時返回 false，不重複插入。
func (c *Core) enqueueLocked(connID string) bool {
	for _, id := range c.queue {
		if id == connID {
			return false
		}
	}
	c.queue = append(c.queue, connID)
	return true
}

// removeFromQueueLocked 將連接移出等待佇列（需持鎖）
//
// 不在佇列中時是 no-op。
func (c *Core) removeFromQueueLocked(connID string) {
	for i, id := range c.queue {
		if id == connID {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return
		}
	}
}

// QueueLen 獲取等待佇列長度
func (c *Core) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
