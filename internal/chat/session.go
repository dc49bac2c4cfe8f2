package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/nfrund/homeplace/internal/connection"
	"github.com/nfrund/homeplace/internal/protocol"
)

// Visibility is the panel's display state.
type Visibility int

const (
	Closed Visibility = iota
	Open
	// Minimized implies open: the log keeps updating.
	Minimized
)

func (v Visibility) String() string {
	switch v {
	case Open:
		return "open"
	case Minimized:
		return "minimized"
	default:
		return "closed"
	}
}

// State is a point-in-time copy of a Session for rendering.
type State struct {
	Messages    []protocol.ChatMessage
	OnlineCount int
	IsOpen      bool
	IsMinimized bool
	DraftText   string
	Connected   bool
}

// Session is the chat panel state machine for one local member.
type Session struct {
	localID     string
	variant     Variant
	maxMessages int
	scroll      ScrollLocker
	alerter     Alerter
	logger      *slog.Logger

	mu          sync.Mutex
	transport   Transport
	sub         *connection.Subscription
	messages    []protocol.ChatMessage
	onlineCount int
	visibility  Visibility
	draft       string
	observers   []func(State)
}

// NewSession creates a closed, unmounted session for localUserID.
func NewSession(localUserID string, opts ...Option) *Session {
	s := &Session{
		localID:  localUserID,
		variant:  VariantWindow,
		logger:   slog.Default(),
		messages: []protocol.ChatMessage{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "chat_session", "member_id", localUserID)
	return s
}

// Mount attaches the session to t. Every inbound frame is routed to ReceiveFrame.
// Mounting an already mounted session detaches the previous listener first.
func (s *Session) Mount(ctx context.Context, t Transport) error {
	sub, err := t.Attach(ctx, func(_ context.Context, frame []byte) {
		s.ReceiveFrame(frame)
	})
	if err != nil {
		return fmt.Errorf("mount chat session: %w", err)
	}

	s.mu.Lock()
	prev := s.sub
	s.transport = t
	s.sub = sub
	s.mu.Unlock()

	if prev != nil {
		prev.Detach()
	}
	s.logger.Debug("Chat session mounted", "event", "chat_mounted")
	s.notify()
	return nil
}

// Unmount detaches from the transport and resets every field. The shared
// connection only closes if this was its last listener.
func (s *Session) Unmount() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.transport = nil
	s.messages = []protocol.ChatMessage{}
	s.onlineCount = 0
	s.visibility = Closed
	s.draft = ""
	s.mu.Unlock()

	if sub != nil {
		sub.Detach()
	}
	if s.scroll != nil {
		s.scroll.UnlockScroll()
	}
	s.logger.Debug("Chat session unmounted", "event", "chat_unmounted")
	s.notify()
}

// OpenChat shows the panel. Reopening a minimized panel restores it.
func (s *Session) OpenChat() {
	s.mu.Lock()
	s.visibility = Open
	s.mu.Unlock()

	if s.variant == VariantAssistant && s.scroll != nil {
		s.scroll.LockScroll()
	}
	s.notify()
}

// CloseChat hides the panel. The assistant variant also drops its history.
func (s *Session) CloseChat() {
	s.mu.Lock()
	s.visibility = Closed
	if s.variant == VariantAssistant {
		s.messages = []protocol.ChatMessage{}
	}
	s.mu.Unlock()

	if s.scroll != nil {
		s.scroll.UnlockScroll()
	}
	s.notify()
}

// ToggleMinimize switches between open and minimized. It does nothing while closed.
func (s *Session) ToggleMinimize() {
	s.mu.Lock()
	switch s.visibility {
	case Open:
		s.visibility = Minimized
	case Minimized:
		s.visibility = Open
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.notify()
}

// UpdateDraft replaces the draft text.
func (s *Session) UpdateDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
	s.notify()
}

// ReceiveFrame applies one inbound frame. Frames that fail to decode are
// logged and leave the state untouched.
func (s *Session) ReceiveFrame(raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic while handling chat frame", "event", "chat_frame_panic", "panic", r)
		}
	}()

	ev, err := protocol.Decode(raw)
	if err != nil {
		var decErr *protocol.DecodeError
		if errors.As(err, &decErr) {
			s.logger.Warn("Discarding chat frame", "event", "chat_frame_rejected", "tag", decErr.Tag, "error", err)
		} else {
			s.logger.Warn("Discarding chat frame", "event", "chat_frame_rejected", "error", err)
		}
		return
	}

	s.mu.Lock()
	switch e := ev.(type) {
	case protocol.Info:
		s.onlineCount = e.TotalClients
	case protocol.HistorySnapshot:
		s.messages = append([]protocol.ChatMessage(nil), e.List...)
		s.trimLocked()
	case protocol.Message:
		s.messages = append(s.messages, e.ChatMessage)
		s.trimLocked()
	}
	s.mu.Unlock()

	s.notify()
}

func (s *Session) trimLocked() {
	if s.maxMessages > 0 && len(s.messages) > s.maxMessages {
		s.messages = append([]protocol.ChatMessage(nil), s.messages[len(s.messages)-s.maxMessages:]...)
	}
}

// SubmitDraft sends the draft verbatim and clears it. The message itself only
// appears once the gateway echoes it back. A failed send puts the draft back
// unless it was edited in the meantime.
func (s *Session) SubmitDraft(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic while sending chat message", "event", "chat_send_panic", "panic", r)
			err = fmt.Errorf("chat: send panicked: %v", r)
		}
	}()

	s.mu.Lock()
	text := s.draft
	transport := s.transport
	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		s.alert(alertEmptyDraft)
		return ErrEmptyDraft
	}
	if transport == nil {
		s.mu.Unlock()
		s.alert(alertNotReady)
		return ErrNotMounted
	}
	if !transport.Ready() {
		s.mu.Unlock()
		s.alert(alertNotReady)
		return ErrNotReady
	}
	s.draft = ""
	s.mu.Unlock()
	s.notify()

	if err := transport.Send(ctx, text); err != nil {
		s.logger.Warn("Chat message not sent", "event", "chat_send_failed", "error", err)
		s.restoreDraft(text)
		if errors.Is(err, connection.ErrNotReady) {
			s.alert(alertNotReady)
			return ErrNotReady
		}
		s.alert(alertSendFailed)
		return fmt.Errorf("chat: send: %w", err)
	}
	return nil
}

func (s *Session) restoreDraft(text string) {
	s.mu.Lock()
	if s.draft != "" {
		s.mu.Unlock()
		return
	}
	s.draft = text
	s.mu.Unlock()
	s.notify()
}

// IsOwn reports whether msg was sent by the local member. Either identity field
// may match; a disagreement between them is logged.
func (s *Session) IsOwn(msg protocol.ChatMessage) bool {
	bySender := msg.SenderID != "" && msg.SenderID == s.localID
	memberID := msg.MemberData.Identifier()
	byMember := memberID != "" && memberID == s.localID

	if msg.SenderID != "" && memberID != "" && msg.SenderID != memberID {
		s.logger.Warn("Chat message identity fields disagree",
			"event", "chat_identity_mismatch", "sender_id", msg.SenderID, "member_id", memberID)
	}
	return bySender || byMember
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	connected := false
	if s.transport != nil {
		connected = s.transport.Ready()
	}
	return State{
		Messages:    append([]protocol.ChatMessage{}, s.messages...),
		OnlineCount: s.onlineCount,
		IsOpen:      s.visibility != Closed,
		IsMinimized: s.visibility == Minimized,
		DraftText:   s.draft,
		Connected:   connected,
	}
}

// OnChange registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change and must not block.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Session) notify() {
	s.mu.Lock()
	if len(s.observers) == 0 {
		s.mu.Unlock()
		return
	}
	st := s.snapshotLocked()
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(st)
	}
}

func (s *Session) alert(msg string) {
	if s.alerter != nil {
		s.alerter.Alert(msg)
	}
}
