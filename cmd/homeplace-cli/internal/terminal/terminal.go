// Package terminal is a line-oriented presentation layer for a chat session.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nfrund/homeplace/internal/chat"
	"github.com/nfrund/homeplace/internal/protocol"
)

// Commands recognized on the input stream. Any other line is sent as a message.
const (
	CmdOpen  = "/open"
	CmdClose = "/close"
	CmdMin   = "/min"
	CmdWho   = "/who"
	CmdQuit  = "/quit"
)

// View prints session changes to w.
type View struct {
	session *chat.Session

	mu      sync.Mutex
	w       io.Writer
	printed int
	online  int
	first   string
}

// NewView creates a View. Register it with Attach before mounting.
func NewView(w io.Writer) *View {
	return &View{w: w, online: -1}
}

// Attach subscribes the view to s.
func (v *View) Attach(s *chat.Session) {
	v.mu.Lock()
	v.session = s
	v.mu.Unlock()
	s.OnChange(v.render)
}

// Alert implements chat.Alerter.
func (v *View) Alert(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.w, "! %s\n", msg)
}

func (v *View) render(st chat.State) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if st.OnlineCount != v.online {
		v.online = st.OnlineCount
		fmt.Fprintf(v.w, "* %d online\n", st.OnlineCount)
	}

	// A snapshot replaced the log: start over.
	if len(st.Messages) < v.printed || (len(st.Messages) > 0 && v.printed > 0 && st.Messages[0].Text != v.first) {
		v.printed = 0
	}
	if !st.IsOpen || st.IsMinimized {
		return
	}
	for _, m := range st.Messages[v.printed:] {
		fmt.Fprintln(v.w, v.line(m))
	}
	v.printed = len(st.Messages)
	if len(st.Messages) > 0 {
		v.first = st.Messages[0].Text
	}
}

func (v *View) line(m protocol.ChatMessage) string {
	who := m.SenderID
	if m.MemberData != nil && m.MemberData.Nick != "" {
		who = m.MemberData.Nick
	}
	if who == "" {
		who = "anonymous"
	}
	if v.session != nil && v.session.IsOwn(m) {
		who = "you"
	}
	return fmt.Sprintf("[%s] %s", who, m.Text)
}

// Run reads lines from r until EOF, /quit or ctx is done.
func Run(ctx context.Context, s *chat.Session, r io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			if quit := Dispatch(ctx, s, line, out); quit {
				return nil
			}
		}
	}
}

// Dispatch applies one input line and reports whether the user asked to quit.
func Dispatch(ctx context.Context, s *chat.Session, line string, out io.Writer) bool {
	switch strings.TrimSpace(line) {
	case CmdQuit:
		return true
	case CmdOpen:
		s.OpenChat()
	case CmdClose:
		s.CloseChat()
	case CmdMin:
		s.ToggleMinimize()
	case CmdWho:
		st := s.Snapshot()
		fmt.Fprintf(out, "* %d online, connected=%t\n", st.OnlineCount, st.Connected)
	default:
		s.UpdateDraft(line)
		// Failures reach the user through the session's alerter.
		_ = s.SubmitDraft(ctx)
	}
	return false
}
