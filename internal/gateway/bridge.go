// Package gateway is a reference chat gateway: it accepts member sockets,
// replays history, tracks presence and broadcasts chat frames.
package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/homeplace/internal/gateway/history"
	"github.com/nfrund/homeplace/internal/middleware"
	"github.com/nfrund/homeplace/internal/protocol"
	"github.com/nfrund/homeplace/internal/pubsub"
)

// TopicBroadcast carries frames every connected client receives.
const TopicBroadcast = "gateway.chat.broadcast"

const (
	sendBuffer   = 256
	writeTimeout = 10 * time.Second
	readLimit    = 64 << 10
)

// client is one accepted socket.
type client struct {
	id     string
	member *protocol.MemberData
	conn   *websocket.Conn
	send   chan []byte
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithHistoryLimit sets how many messages a new client is sent. Zero sends
// everything the store retains.
func WithHistoryLimit(n int) Option {
	return func(b *Bridge) { b.historyLimit = n }
}

// WithPresence shares a Presence tracker.
func WithPresence(p *Presence) Option {
	return func(b *Bridge) { b.presence = p }
}

// Bridge connects member sockets to the broadcast bus.
type Bridge struct {
	bus          pubsub.PubSub
	history      history.Store
	presence     *Presence
	historyLimit int
	logger       *slog.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

// NewBridge returns a Bridge. Call Run before serving sockets.
func NewBridge(bus pubsub.PubSub, store history.Store, opts ...Option) *Bridge {
	b := &Bridge{
		bus:      bus,
		history:  store,
		presence: NewPresence(),
		logger:   slog.Default().With("component", "gateway_bridge"),
		clients:  make(map[string]*client),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Presence returns the bridge's presence tracker.
func (b *Bridge) Presence() *Presence { return b.presence }

// Run subscribes the bridge to broadcasts until ctx is canceled.
func (b *Bridge) Run(ctx context.Context) error {
	return b.bus.Subscribe(ctx, TopicBroadcast, b.deliver)
}

// deliver fans one broadcast out to every client's send buffer.
func (b *Bridge) deliver(_ context.Context, msg pubsub.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.clients {
		select {
		case c.send <- msg.Payload:
		default:
			b.logger.Warn("Client send channel full, dropping message", "client_id", c.id, "member_id", c.member.ID)
		}
	}
	return nil
}

func (b *Bridge) register(c *client) int {
	b.mu.Lock()
	b.clients[c.id] = c
	b.mu.Unlock()
	return b.presence.Join(c.member.ID, c.id)
}

func (b *Bridge) unregister(c *client) int {
	b.mu.Lock()
	if _, ok := b.clients[c.id]; ok {
		delete(b.clients, c.id)
		close(c.send)
	}
	b.mu.Unlock()
	_, total := b.presence.Leave(c.id)
	return total
}

// Handler upgrades an authenticated request to a chat socket. It blocks until
// the socket closes.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		member, ok := c.Get(middleware.MemberContextKey).(*protocol.MemberData)
		if !ok || member == nil {
			b.logger.Error("No member in context for chat socket")
			return c.String(http.StatusUnauthorized, "member not authenticated")
		}

		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			InsecureSkipVerify: true, // In production, check origin.
		})
		if err != nil {
			b.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
			return err
		}
		conn.SetReadLimit(readLimit)

		ctx := c.Request().Context()
		cl := &client{
			id:     uuid.NewString(),
			member: member,
			conn:   conn,
			send:   make(chan []byte, sendBuffer),
		}

		total := b.register(cl)
		b.logger.Info("Chat client connected", "event", "chat_client_connected", "client_id", cl.id, "member_id", member.ID, "total", total)

		b.sendHistory(ctx, cl)
		go b.writePump(cl)
		b.broadcastInfo(ctx, total, "join", member)

		b.readPump(ctx, cl)

		total = b.unregister(cl)
		b.logger.Info("Chat client disconnected", "event", "chat_client_disconnected", "client_id", cl.id, "member_id", member.ID, "total", total)
		b.broadcastInfo(context.WithoutCancel(ctx), total, "leave", member)
		return nil
	}
}

func (b *Bridge) sendHistory(ctx context.Context, c *client) {
	list, err := b.history.Recent(ctx, b.historyLimit)
	if err != nil {
		b.logger.Error("Failed to load chat history", "error", err)
		list = nil
	}
	frame, err := protocol.EncodeHistory(list)
	if err != nil {
		b.logger.Error("Failed to encode chat history", "error", err)
		return
	}
	c.send <- frame
}

func (b *Bridge) broadcastInfo(ctx context.Context, total int, action string, member *protocol.MemberData) {
	frame, err := protocol.EncodeInfo(total, action, member)
	if err != nil {
		b.logger.Error("Failed to encode info frame", "error", err)
		return
	}
	b.publish(ctx, member.ID, frame)
}

func (b *Bridge) publish(ctx context.Context, memberID string, frame []byte) {
	err := b.bus.Publish(ctx, pubsub.Message{
		Topic:   TopicBroadcast,
		UserID:  memberID,
		Payload: frame,
		Metadata: map[string]string{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		b.logger.Error("Failed to publish chat frame", "member_id", memberID, "error", err)
	}
}

// readPump turns each inbound text frame into a broadcast chat message.
func (b *Bridge) readPump(ctx context.Context, c *client) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				b.logger.Debug("WebSocket closed normally by client", "client_id", c.id)
			case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
			default:
				b.logger.Warn("WebSocket read error", "client_id", c.id, "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		text := SanitizeText(string(data))
		if text == "" {
			continue
		}

		msg := protocol.ChatMessage{
			Event:      protocol.TagMessage,
			Text:       text,
			SenderID:   c.member.ID,
			MemberData: c.member,
		}
		if err := b.history.Append(ctx, msg); err != nil {
			b.logger.Error("Failed to store chat message", "error", err)
		}
		frame, err := protocol.EncodeMessage(msg.Text, msg.SenderID, msg.MemberData)
		if err != nil {
			b.logger.Error("Failed to encode chat message", "error", err)
			continue
		}
		b.publish(ctx, c.member.ID, frame)
	}
}

func (b *Bridge) writePump(c *client) {
	defer c.conn.Close(websocket.StatusNormalClosure, "server-side cleanup")

	for frame := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, frame)
		cancel()
		if err != nil {
			b.logger.Warn("WebSocket write error", "client_id", c.id, "error", err)
			return
		}
	}
}
