package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nfrund/homeplace/internal/pubsub"
)

// TopicInboundFrames prefixes the bus topic a Manager publishes received frames on.
const TopicInboundFrames = "connection.frames.inbound"

const defaultWriteTimeout = 10 * time.Second

// Config configures a Manager.
type Config struct {
	URL           string
	Retry         RetryPolicy
	SendQueueSize int
	WriteTimeout  time.Duration
	// ReplayLimit caps the messages kept for late listeners.
	ReplayLimit int
}

// Listener receives every inbound frame while attached. Listeners must not
// call Attach.
type Listener func(ctx context.Context, frame []byte)

// Option configures a Manager.
type Option func(*Manager)

// WithTopic overrides the bus topic. Managers sharing a bus need distinct topics;
// the default is unique per Manager.
func WithTopic(topic string) Option {
	return func(m *Manager) { m.topic = topic }
}

// WithLogger sets the logger. The component attribute is added.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager owns a single shared socket to the chat gateway. The socket is opened
// when the first listener attaches and torn down when the last one detaches.
type Manager struct {
	cfg    Config
	dialer Dialer
	bus    pubsub.PubSub
	topic  string
	logger *slog.Logger

	// deliverMu orders live delivery against replay to a new listener.
	deliverMu sync.Mutex
	backlog   backlog

	mu        sync.Mutex
	state     State
	refs      int
	gen       uint64
	cancel    context.CancelFunc
	done      chan struct{}
	outbound  chan []byte
	lastErr   error
	closed    bool
	observers []func(State)
	pending   []State
	notifying bool
}

// NewManager creates an idle Manager. Nothing is dialed until Attach.
func NewManager(cfg Config, dialer Dialer, bus pubsub.PubSub, opts ...Option) *Manager {
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ReplayLimit <= 0 {
		cfg.ReplayLimit = defaultReplayLimit
	}
	m := &Manager{
		cfg:    cfg,
		dialer: dialer,
		bus:    bus,
		topic:  TopicInboundFrames + "." + uuid.NewString(),
		state:  StateDisconnected,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.backlog.limit = cfg.ReplayLimit
	m.logger = m.logger.With("component", "connection_manager")
	return m
}

// Subscription is the handle returned by Attach.
type Subscription struct {
	m      *Manager
	cancel context.CancelFunc
	once   sync.Once
}

// Detach stops delivery to the listener. Calling it more than once is a no-op.
func (s *Subscription) Detach() {
	s.once.Do(func() {
		s.cancel()
		s.m.release()
	})
}

// Attach registers l for inbound frames and takes a reference on the socket.
// When the socket is already live, l first receives the latest history
// snapshot, the messages since and the latest presence frame.
func (m *Manager) Attach(ctx context.Context, l Listener) (*Subscription, error) {
	if l == nil {
		return nil, errors.New("connection: nil listener")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.mu.Unlock()

	// Detached from ctx cancellation: the subscription lives until Detach.
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	m.deliverMu.Lock()
	err := m.bus.Subscribe(subCtx, m.topic, func(ctx context.Context, msg pubsub.Message) error {
		l(ctx, msg.Payload)
		return nil
	})
	if err != nil {
		m.deliverMu.Unlock()
		cancel()
		return nil, fmt.Errorf("subscribe to inbound frames: %w", err)
	}
	m.mu.Lock()
	live := m.done != nil && !m.closed
	m.mu.Unlock()
	if live {
		// A socket that is already up will not resend its history snapshot.
		for _, frame := range m.backlog.frames() {
			l(subCtx, frame)
		}
	}
	m.deliverMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		cancel()
		return nil, ErrClosed
	}
	m.refs++
	if m.refs == 1 || m.done == nil {
		m.startLocked()
	}
	m.logger.Debug("Listener attached", "event", "listener_attached", "refs", m.refs)

	return &Subscription{m: m, cancel: cancel}, nil
}

func (m *Manager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs == 0 {
		return
	}
	m.refs--
	m.logger.Debug("Listener detached", "event", "listener_detached", "refs", m.refs)
	if m.refs == 0 {
		m.stopLocked()
	}
}

// startLocked launches a fresh connection loop. Caller holds mu.
func (m *Manager) startLocked() {
	m.gen++
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.lastErr = nil
	go m.run(ctx, m.gen, done)
}

// stopLocked cancels the loop without waiting for it. Caller holds mu.
func (m *Manager) stopLocked() {
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.done = nil
	m.outbound = nil
	m.gen++
	m.setStateLocked(StateDisconnected)
}

func (m *Manager) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	m.deliverMu.Lock()
	m.backlog.reset()
	m.deliverMu.Unlock()

	backoff := NewBackoff(m.cfg.Retry)
	attempt := 0

	for {
		if !m.transition(gen, StateConnecting) {
			return
		}

		conn, err := m.dialer.Dial(ctx, m.cfg.URL)
		if err == nil {
			attempt = 0
			m.logger.Info("Chat connection established", "event", "ws_connected", "url", m.cfg.URL)
			err = m.serve(ctx, gen, conn)
		}
		if ctx.Err() != nil {
			return
		}

		m.recordError(gen, err)
		if !m.transition(gen, StateDisconnected) {
			return
		}

		if backoff.Exhausted(attempt) {
			m.logger.Error("Giving up on chat connection", "event", "ws_retries_exhausted", "attempts", attempt+1, "error", err)
			m.mu.Lock()
			if m.gen == gen {
				m.lastErr = fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
				m.done = nil
				m.setStateLocked(StateClosed)
			}
			m.mu.Unlock()
			return
		}

		delay := backoff.Delay(attempt)
		attempt++
		m.logger.Warn("Chat connection lost, retrying", "event", "ws_reconnect_scheduled",
			"attempt", attempt, "delay_ms", delay.Milliseconds(), "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// serve pumps one open socket until it fails or ctx is canceled.
func (m *Manager) serve(ctx context.Context, gen uint64, conn Conn) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.Close()

	out := make(chan []byte, m.cfg.SendQueueSize)
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return ctx.Err()
	}
	m.outbound = out
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.gen == gen {
			m.outbound = nil
		}
		m.mu.Unlock()
	}()

	m.deliverMu.Lock()
	m.backlog.reset()
	m.deliverMu.Unlock()

	go m.writePump(connCtx, conn, out)

	for {
		frame, err := conn.Read(connCtx)
		if err != nil {
			return err
		}
		m.deliver(connCtx, frame)
	}
}

// deliver records frame for late listeners and publishes it. The publish
// blocks until every listener has handled the frame.
func (m *Manager) deliver(ctx context.Context, frame []byte) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	m.backlog.record(frame)
	if err := m.bus.Publish(ctx, pubsub.Message{Topic: m.topic, Payload: frame}); err != nil {
		m.logger.Error("Failed to publish inbound frame", "event", "frame_publish_failed", "error", err)
	}
}

func (m *Manager) writePump(ctx context.Context, conn Conn, out <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-out:
			wctx, cancel := context.WithTimeout(ctx, m.cfg.WriteTimeout)
			err := conn.Write(wctx, frame)
			cancel()
			if err != nil {
				m.logger.Warn("Chat write failed, closing socket", "event", "ws_write_failed", "error", err)
				// Unblocks the reader, which triggers a reconnect.
				_ = conn.Close()
				return
			}
		}
	}
}

// Send queues text for transmission as-is. It does not wait for the write.
func (m *Manager) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.state != StateConnected || m.outbound == nil {
		return ErrNotReady
	}

	select {
	case m.outbound <- []byte(text):
		return nil
	default:
		m.logger.Warn("Chat send queue full, dropping frame", "event", "send_queue_full")
		return ErrSendQueueFull
	}
}

func (m *Manager) transition(gen uint64, s State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return false
	}
	m.setStateLocked(s)
	return true
}

func (m *Manager) recordError(gen uint64, err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	if m.gen == gen {
		m.lastErr = err
	}
	m.mu.Unlock()
}

// setStateLocked updates state and queues the transition for observers.
// Caller holds mu.
func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	if len(m.observers) == 0 {
		return
	}
	m.pending = append(m.pending, s)
	if !m.notifying {
		m.notifying = true
		go m.drainNotifications()
	}
}

// drainNotifications delivers queued transitions one at a time, in order.
func (m *Manager) drainNotifications() {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.notifying = false
			m.mu.Unlock()
			return
		}
		s := m.pending[0]
		m.pending = m.pending[1:]
		observers := slices.Clone(m.observers)
		m.mu.Unlock()

		for _, fn := range observers {
			fn(s)
		}
	}
}

// OnStateChange registers fn to be called on every transition. Calls happen
// off the caller's goroutine, one at a time, in transition order.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready reports whether Send can currently succeed.
func (m *Manager) Ready() bool {
	return m.State() == StateConnected
}

// RefCount returns the number of attached listeners.
func (m *Manager) RefCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// LastError returns the most recent dial/read failure, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Close shuts the connection down regardless of attached listeners and waits
// for the loop to exit. Further Attach and Send calls fail with ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	done := m.done
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.done = nil
	m.outbound = nil
	m.gen++
	m.refs = 0
	m.setStateLocked(StateClosed)
	m.mu.Unlock()

	if done != nil {
		<-done
	}
	return nil
}
