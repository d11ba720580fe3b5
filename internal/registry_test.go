package internal_test

import (
	"fmt"
	"testing"

	"github.com/koopa0/anonymous-chat/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCore_Connect 測試連接註冊
func TestCore_Connect(t *testing.T) {
	tests := []struct {
		name          string
		requestedName string
		validate      func(t *testing.T, conn *fakeConn, session internal.Session)
	}{
		{
			name:          "connect with random name",
			requestedName: "",
			validate: func(t *testing.T, conn *fakeConn, session internal.Session) {
				assert.NotEmpty(t, session.Username)
				assert.NotEmpty(t, session.UserID)
				assert.Equal(t, internal.StateUnmatched, session.State)
				assert.Empty(t, session.RoomID)

				payload, ok := conn.last(internal.EventUserConnected).(internal.UserConnectedPayload)
				require.True(t, ok)
				assert.Equal(t, session.Username, payload.Username)
				assert.Equal(t, session.UserID, payload.UserID)
				assert.Equal(t, 1, payload.TotalUsers)
			},
		},
		{
			name:          "connect with chosen name",
			requestedName: "Alice",
			validate: func(t *testing.T, conn *fakeConn, session internal.Session) {
				assert.Equal(t, "Alice", session.Username)

				// 連接者本人也收到人數廣播
				payload, ok := conn.last(internal.EventUserCountUpdate).(internal.UserCountPayload)
				require.True(t, ok)
				assert.Equal(t, 1, payload.Count)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core := internal.NewCore(testConfig(internal.PolicyOnDemand), testLogger())
			defer core.Stop()

			conn := newFakeConn("conn-1")
			session := core.Connect(conn, tt.requestedName)

			require.NotEmpty(t, session.ConnID)
			tt.validate(t, conn, session)
		})
	}
}

// TestCore_UsernameCollision 測試顯示名稱衝突加後綴
func TestCore_UsernameCollision(t *testing.T) {
	core := internal.NewCore(testConfig(internal.PolicyOnDemand), testLogger())
	defer core.Stop()

	first := core.Connect(newFakeConn("conn-1"), "Alice")
	second := core.Connect(newFakeConn("conn-2"), "Alice")
	third := core.Connect(newFakeConn("conn-3"), "Alice")

	assert.Equal(t, "Alice", first.Username)
	assert.Equal(t, "Alice_1", second.Username)
	assert.Equal(t, "Alice_2", third.Username)

	// 原名釋出後可再被使用
	core.Disconnect("conn-1")
	fourth := core.Connect(newFakeConn("conn-4"), "Alice")
	assert.Equal(t, "Alice", fourth.Username)
}

// TestCore_Disconnect_Idempotent 測試重複斷線是 no-op
func TestCore_Disconnect_Idempotent(t *testing.T) {
	core := internal.NewCore(testConfig(internal.PolicyOnDemand), testLogger())
	defer core.Stop()

	conn := newFakeConn("conn-1")
	core.Connect(conn, "")

	core.Disconnect("conn-1")
	_, exists := core.Session("conn-1")
	assert.False(t, exists)

	// 第二次斷線不做任何事，也不發出任何事件
	other := newFakeConn("conn-2")
	core.Connect(other, "")
	other.reset()

	core.Disconnect("conn-1")
	assert.Empty(t, other.all())

	// 從未註冊過的連接同樣是 no-op
	core.Disconnect("never-registered")
}

// TestCore_UserCountAlwaysMatchesRegistry 測試人數廣播恆等於註冊表大小
func TestCore_UserCountAlwaysMatchesRegistry(t *testing.T) {
	core := internal.NewCore(testConfig(internal.PolicyOnDemand), testLogger())
	defer core.Stop()

	conns := make(map[string]*fakeConn)

	check := func() {
		stats := core.Stats()
		total := stats["total_connections"].(int)
		for id, conn := range conns {
			payload, ok := conn.last(internal.EventUserCountUpdate).(internal.UserCountPayload)
			require.True(t, ok, "連接 %s 尚未收到人數廣播", id)
			assert.Equal(t, total, payload.Count, "連接 %s 的人數與註冊表不一致", id)
		}
	}

	// 任意的連接 / 斷線序列
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("conn-%d", i)
		conn := newFakeConn(id)
		conns[id] = conn
		core.Connect(conn, "")
		check()
	}

	for _, id := range []string{"conn-1", "conn-3"} {
		core.Disconnect(id)
		delete(conns, id)
		check()
	}

	conn := newFakeConn("conn-9")
	conns["conn-9"] = conn
	core.Connect(conn, "")
	check()
}

// TestCore_Session 測試會話查詢
func TestCore_Session(t *testing.T) {
	core := internal.NewCore(testConfig(internal.PolicyOnDemand), testLogger())
	defer core.Stop()

	core.Connect(newFakeConn("conn-1"), "Bob")

	session, exists := core.Session("conn-1")
	require.True(t, exists)
	assert.Equal(t, "Bob", session.Username)

	_, exists = core.Session("unknown")
	assert.False(t, exists)
}
