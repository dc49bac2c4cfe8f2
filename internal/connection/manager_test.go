package connection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nfrund/homeplace/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written [][]byte
	failW   error
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, errors.New("socket closed")
	case f := <-c.inbound:
		return f, nil
	}
}

func (c *fakeConn) Write(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failW != nil {
		return c.failW
	}
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.written))
	for i, w := range c.written {
		out[i] = string(w)
	}
	return out
}

// fakeDialer hands out conns in order; once exhausted every dial fails.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.conns) == 0 {
		return nil, errors.New("connection refused")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func newTestManager(t *testing.T, d Dialer, policy RetryPolicy) *Manager {
	t.Helper()
	bus := pubsub.NewWatermillBridge()
	m := NewManager(Config{URL: "ws://test/ws/chat", Retry: policy, SendQueueSize: 2}, d, bus)
	t.Cleanup(func() {
		_ = m.Close()
		_ = bus.Close()
	})
	return m
}

type frameLog struct {
	mu     sync.Mutex
	frames []string
}

func (f *frameLog) listen(_ context.Context, frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, string(frame))
}

func (f *frameLog) get() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.frames...)
}

func TestManager_FirstAttachConnects(t *testing.T) {
	conn := newFakeConn()
	d := &fakeDialer{conns: []*fakeConn{conn}}
	m := newTestManager(t, d, fastPolicy(3))

	assert.Equal(t, StateDisconnected, m.State())
	assert.False(t, m.Ready())

	sub, err := m.Attach(context.Background(), func(context.Context, []byte) {})
	require.NoError(t, err)
	defer sub.Detach()

	require.Eventually(t, m.Ready, time.Second, time.Millisecond)
	assert.Equal(t, 1, m.RefCount())
	assert.Equal(t, 1, d.dialCount())
}

func TestManager_EveryListenerSeesEveryFrameInOrder(t *testing.T) {
	conn := newFakeConn()
	m := newTestManager(t, &fakeDialer{conns: []*fakeConn{conn}}, fastPolicy(3))

	a, b := &frameLog{}, &frameLog{}
	subA, err := m.Attach(context.Background(), a.listen)
	require.NoError(t, err)
	defer subA.Detach()
	subB, err := m.Attach(context.Background(), b.listen)
	require.NoError(t, err)
	defer subB.Detach()

	require.Eventually(t, m.Ready, time.Second, time.Millisecond)
	for _, f := range []string{"f1", "f2", "f3"} {
		conn.inbound <- []byte(f)
	}

	want := []string{"f1", "f2", "f3"}
	require.Eventually(t, func() bool { return len(a.get()) == 3 && len(b.get()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, want, a.get())
	assert.Equal(t, want, b.get())
}

func TestManager_TeardownOnlyOnLastDetach(t *testing.T) {
	conn := newFakeConn()
	m := newTestManager(t, &fakeDialer{conns: []*fakeConn{conn}}, fastPolicy(3))

	subA, err := m.Attach(context.Background(), func(context.Context, []byte) {})
	require.NoError(t, err)
	subB, err := m.Attach(context.Background(), func(context.Context, []byte) {})
	require.NoError(t, err)
	require.Eventually(t, m.Ready, time.Second, time.Millisecond)

	subA.Detach()
	subA.Detach()
	assert.Equal(t, 1, m.RefCount())
	assert.True(t, m.Ready())
	assert.False(t, conn.isClosed())

	subB.Detach()
	assert.Equal(t, 0, m.RefCount())
	assert.Equal(t, StateDisconnected, m.State())
	require.Eventually(t, conn.isClosed, time.Second, time.Millisecond)
}

func TestManager_DetachedListenerStopsReceiving(t *testing.T) {
	conn := newFakeConn()
	m := newTestManager(t, &fakeDialer{conns: []*fakeConn{conn}}, fastPolicy(3))

	keep, gone := &frameLog{}, &frameLog{}
	subKeep, err := m.Attach(context.Background(), keep.listen)
	require.NoError(t, err)
	defer subKeep.Detach()
	subGone, err := m.Attach(context.Background(), gone.listen)
	require.NoError(t, err)
	require.Eventually(t, m.Ready, time.Second, time.Millisecond)

	subGone.Detach()
	time.Sleep(20 * time.Millisecond)
	conn.inbound <- []byte("after")

	require.Eventually(t, func() bool { return len(keep.get()) == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, gone.get())
}

func TestManager_ReconnectsAfterDrop(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	d := &fakeDialer{conns: []*fakeConn{first, second}}
	m := newTestManager(t, d, fastPolicy(3))

	log := &frameLog{}
	sub, err := m.Attach(context.Background(), log.listen)
	require.NoError(t, err)
	defer sub.Detach()
	require.Eventually(t, m.Ready, time.Second, time.Millisecond)

	first.Close()
	require.Eventually(t, func() bool { return d.dialCount() == 2 && m.Ready() }, time.Second, time.Millisecond)
	assert.Error(t, m.LastError())

	second.inbound <- []byte("again")
	require.Eventually(t, func() bool { return len(log.get()) == 1 }, time.Second, time.Millisecond)
}

func TestManager_RetriesExhausted(t *testing.T) {
	d := &fakeDialer{}
	m := newTestManager(t, d, fastPolicy(2))

	var mu sync.Mutex
	var seen []State
	m.OnStateChange(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	sub, err := m.Attach(context.Background(), func(context.Context, []byte) {})
	require.NoError(t, err)
	defer sub.Detach()

	require.Eventually(t, func() bool { return m.State() == StateClosed }, time.Second, time.Millisecond)
	assert.Equal(t, 3, d.dialCount())
	assert.ErrorIs(t, m.LastError(), ErrRetriesExhausted)
	assert.ErrorIs(t, m.Send(context.Background(), "hi"), ErrNotReady)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, s := range seen {
			if s == StateClosed {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
}

func TestManager_SendNotReady(t *testing.T) {
	m := newTestManager(t, &fakeDialer{}, fastPolicy(0))
	assert.ErrorIs(t, m.Send(context.Background(), "hello"), ErrNotReady)
}

func TestManager_SendWritesVerbatim(t *testing.T) {
	conn := newFakeConn()
	m := newTestManager(t, &fakeDialer{conns: []*fakeConn{conn}}, fastPolicy(3))

	sub, err := m.Attach(context.Background(), func(context.Context, []byte) {})
	require.NoError(t, err)
	defer sub.Detach()
	require.Eventually(t, m.Ready, time.Second, time.Millisecond)

	require.NoError(t, m.Send(context.Background(), "hello there"))
	require.Eventually(t, func() bool { return len(conn.writes()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"hello there"}, conn.writes())
}

func TestManager_WriteFailureTriggersReconnect(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	first.failW = errors.New("broken pipe")
	d := &fakeDialer{conns: []*fakeConn{first, second}}
	m := newTestManager(t, d, fastPolicy(3))

	sub, err := m.Attach(context.Background(), func(context.Context, []byte) {})
	require.NoError(t, err)
	defer sub.Detach()
	require.Eventually(t, m.Ready, time.Second, time.Millisecond)

	require.NoError(t, m.Send(context.Background(), "lost"))
	require.Eventually(t, func() bool { return d.dialCount() == 2 && m.Ready() }, time.Second, time.Millisecond)
	assert.True(t, first.isClosed())
}

func TestManager_CloseIsFinal(t *testing.T) {
	conn := newFakeConn()
	m := newTestManager(t, &fakeDialer{conns: []*fakeConn{conn}}, fastPolicy(3))

	_, err := m.Attach(context.Background(), func(context.Context, []byte) {})
	require.NoError(t, err)
	require.Eventually(t, m.Ready, time.Second, time.Millisecond)

	require.NoError(t, m.Close())
	assert.Equal(t, StateClosed, m.State())
	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, m.RefCount())

	_, err = m.Attach(context.Background(), func(context.Context, []byte) {})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Send(context.Background(), "x"), ErrClosed)
	assert.NoError(t, m.Close())
}

func TestManager_ReattachAfterTeardownRedials(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	d := &fakeDialer{conns: []*fakeConn{first, second}}
	m := newTestManager(t, d, fastPolicy(3))

	sub, err := m.Attach(context.Background(), func(context.Context, []byte) {})
	require.NoError(t, err)
	require.Eventually(t, m.Ready, time.Second, time.Millisecond)
	sub.Detach()

	sub, err = m.Attach(context.Background(), func(context.Context, []byte) {})
	require.NoError(t, err)
	defer sub.Detach()
	require.Eventually(t, func() bool { return d.dialCount() == 2 && m.Ready() }, time.Second, time.Millisecond)
}

func TestManager_LateListenerCatchesUp(t *testing.T) {
	conn := newFakeConn()
	m := newTestManager(t, &fakeDialer{conns: []*fakeConn{conn}}, fastPolicy(3))

	first := &frameLog{}
	subA, err := m.Attach(context.Background(), first.listen)
	require.NoError(t, err)
	defer subA.Detach()
	require.Eventually(t, m.Ready, time.Second, time.Millisecond)

	snapshot := `{"event":"getMessages","list":[{"event":"message","text":"old"}]}`
	info := `{"event":"info","totalClients":2,"action":"join"}`
	msg := `{"event":"message","text":"new","senderId":"u2"}`
	for _, f := range []string{snapshot, info, msg, "not json"} {
		conn.inbound <- []byte(f)
	}
	require.Eventually(t, func() bool { return len(first.get()) == 4 }, time.Second, time.Millisecond)

	late := &frameLog{}
	subB, err := m.Attach(context.Background(), late.listen)
	require.NoError(t, err)
	defer subB.Detach()

	assert.Equal(t, []string{snapshot, msg, info}, late.get(), "replayed before Attach returns")

	live := `{"event":"message","text":"after"}`
	conn.inbound <- []byte(live)
	require.Eventually(t, func() bool { return len(late.get()) == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, live, late.get()[3])
	require.Eventually(t, func() bool { return len(first.get()) == 5 }, time.Second, time.Millisecond)
	assert.Equal(t, live, first.get()[4], "existing listener is not replayed to")
}

func TestManager_NoReplayOnFreshSocket(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	m := newTestManager(t, &fakeDialer{conns: []*fakeConn{first, second}}, fastPolicy(3))

	a := &frameLog{}
	sub, err := m.Attach(context.Background(), a.listen)
	require.NoError(t, err)
	require.Eventually(t, m.Ready, time.Second, time.Millisecond)
	first.inbound <- []byte(`{"event":"getMessages","list":[]}`)
	require.Eventually(t, func() bool { return len(a.get()) == 1 }, time.Second, time.Millisecond)
	sub.Detach()

	b := &frameLog{}
	sub, err = m.Attach(context.Background(), b.listen)
	require.NoError(t, err)
	defer sub.Detach()
	assert.Empty(t, b.get())
}

func TestManager_StateObserversSeeTransitionsInOrder(t *testing.T) {
	conn := newFakeConn()
	m := newTestManager(t, &fakeDialer{conns: []*fakeConn{conn}}, fastPolicy(3))

	var mu sync.Mutex
	var seen []State
	m.OnStateChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})
	snapshot := func() []State {
		mu.Lock()
		defer mu.Unlock()
		return append([]State(nil), seen...)
	}

	sub, err := m.Attach(context.Background(), func(context.Context, []byte) {})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(snapshot()) >= 2 }, time.Second, time.Millisecond)
	sub.Detach()
	require.NoError(t, m.Close())

	require.Eventually(t, func() bool { return len(snapshot()) == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, []State{StateConnecting, StateConnected, StateDisconnected, StateClosed}, snapshot())
}

func TestBacklog_KeepsNewestMessages(t *testing.T) {
	b := backlog{limit: 2}
	b.record([]byte(`{"event":"message","text":"1"}`))
	b.record([]byte(`{"event":"getMessages","list":[]}`))
	for _, n := range []string{"2", "3", "4"} {
		b.record([]byte(`{"event":"message","text":"` + n + `"}`))
	}

	assert.Equal(t, []string{
		`{"event":"getMessages","list":[]}`,
		`{"event":"message","text":"3"}`,
		`{"event":"message","text":"4"}`,
	}, asStrings(b.frames()))

	b.reset()
	assert.Empty(t, b.frames())
}

func asStrings(frames [][]byte) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = string(f)
	}
	return out
}
