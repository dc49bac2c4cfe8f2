package gateway_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/homeplace/internal/chat"
	"github.com/nfrund/homeplace/internal/connection"
	"github.com/nfrund/homeplace/internal/gateway"
	"github.com/nfrund/homeplace/internal/gateway/history"
	"github.com/nfrund/homeplace/internal/middleware"
	"github.com/nfrund/homeplace/internal/protocol"
	"github.com/nfrund/homeplace/internal/pubsub"
)

type fixture struct {
	bridge *gateway.Bridge
	store  *history.MemoryStore
	server *httptest.Server
}

// newFixture serves the bridge with the member taken from the "member" query param.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := pubsub.NewWatermillBridge()
	store := history.NewMemoryStore(50)
	bridge := gateway.NewBridge(bus, store)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bridge.Run(ctx))

	e := echo.New()
	e.GET("/ws/chat", bridge.Handler(), func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id := c.QueryParam("member"); id != "" {
				c.Set(middleware.MemberContextKey, &protocol.MemberData{ID: id, Nick: "nick-" + id})
			}
			return next(c)
		}
	})
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		server.Close()
		cancel()
		_ = bus.Close()
	})
	return &fixture{bridge: bridge, store: store, server: server}
}

func (f *fixture) url(member string) string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/chat?member=" + member
}

func (f *fixture) dial(t *testing.T, member string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url(member), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// next reads frames until one decodes to an event matching want.
func next[T protocol.Event](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		ev, err := protocol.Decode(data)
		require.NoError(t, err)
		if v, ok := ev.(T); ok {
			return v
		}
	}
}

func TestBridge_JoinReceivesHistoryThenPresence(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Append(context.Background(), protocol.ChatMessage{Event: protocol.TagMessage, Text: "earlier", SenderID: "u0"}))

	a := f.dial(t, "u1")
	snap := next[protocol.HistorySnapshot](t, a)
	require.Len(t, snap.List, 1)
	assert.Equal(t, "earlier", snap.List[0].Text)

	info := next[protocol.Info](t, a)
	assert.Equal(t, 1, info.TotalClients)
	assert.Equal(t, "join", info.Action)
	assert.Equal(t, "u1", info.MemberData.ID)

	b := f.dial(t, "u2")
	next[protocol.HistorySnapshot](t, b)
	info = next[protocol.Info](t, a)
	assert.Equal(t, 2, info.TotalClients)
	assert.Equal(t, "u2", info.MemberData.ID)
}

func TestBridge_MessageEchoedToEveryone(t *testing.T) {
	f := newFixture(t)
	a := f.dial(t, "u1")
	next[protocol.Info](t, a)
	b := f.dial(t, "u2")
	next[protocol.Info](t, b)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("hello <b>there</b> & you")))

	for _, conn := range []*websocket.Conn{a, b} {
		msg := next[protocol.Message](t, conn)
		assert.Equal(t, "hello there & you", msg.Text)
		assert.Equal(t, "u1", msg.SenderID)
		require.NotNil(t, msg.MemberData)
		assert.Equal(t, "nick-u1", msg.MemberData.Nick)
	}

	stored, err := f.store.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "hello there & you", stored[0].Text)
}

func TestBridge_BlankMessagesDropped(t *testing.T) {
	f := newFixture(t)
	a := f.dial(t, "u1")
	next[protocol.Info](t, a)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("   ")))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("<script>x</script>")))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("real")))

	assert.Equal(t, "real", next[protocol.Message](t, a).Text)
}

func TestBridge_LeaveBroadcast(t *testing.T) {
	f := newFixture(t)
	a := f.dial(t, "u1")
	next[protocol.Info](t, a)
	b := f.dial(t, "u2")
	next[protocol.Info](t, a)

	require.NoError(t, b.Close())

	info := next[protocol.Info](t, a)
	assert.Equal(t, "leave", info.Action)
	assert.Equal(t, 1, info.TotalClients)
	assert.Eventually(t, func() bool { return !f.bridge.Presence().IsOnline("u2") }, time.Second, 10*time.Millisecond)
}

func TestBridge_RequiresMember(t *testing.T) {
	f := newFixture(t)
	_, resp, err := websocket.DefaultDialer.Dial(f.url(""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

// The client stack end to end: a chat.Session on a connection.Manager sees
// its own message echoed with its identity.
func TestBridge_ClientStackEcho(t *testing.T) {
	f := newFixture(t)

	bus := pubsub.NewWatermillBridge()
	defer bus.Close()
	mgr := connection.NewManager(connection.Config{URL: f.url("u1"), Retry: connection.DefaultRetryPolicy()}, &connection.WebsocketDialer{}, bus)
	defer mgr.Close()

	s := chat.NewSession("u1")
	require.NoError(t, s.Mount(context.Background(), mgr))
	defer s.Unmount()
	require.Eventually(t, mgr.Ready, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return s.Snapshot().OnlineCount == 1 }, 3*time.Second, 10*time.Millisecond)

	s.UpdateDraft("from the client")
	require.NoError(t, s.SubmitDraft(context.Background()))
	assert.Empty(t, s.Snapshot().DraftText)

	require.Eventually(t, func() bool { return len(s.Snapshot().Messages) == 1 }, 3*time.Second, 10*time.Millisecond)
	msg := s.Snapshot().Messages[0]
	assert.Equal(t, "from the client", msg.Text)
	assert.True(t, s.IsOwn(msg))

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"senderId":"u1"`)
}
