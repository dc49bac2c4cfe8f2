package connection

import (
	"github.com/nfrund/homeplace/internal/protocol"
)

const defaultReplayLimit = 500

// backlog holds what a late listener needs to catch up with the socket: the
// latest history snapshot, the messages received after it and the latest
// presence frame. Frames that do not decode are not kept.
type backlog struct {
	limit    int
	snapshot []byte
	messages [][]byte
	info     []byte
}

func (b *backlog) record(frame []byte) {
	ev, err := protocol.Decode(frame)
	if err != nil {
		return
	}
	switch ev.(type) {
	case protocol.HistorySnapshot:
		b.snapshot = frame
		b.messages = nil
	case protocol.Message:
		b.messages = append(b.messages, frame)
		if b.limit > 0 && len(b.messages) > b.limit {
			b.messages = append([][]byte{}, b.messages[len(b.messages)-b.limit:]...)
		}
	case protocol.Info:
		b.info = frame
	}
}

// frames returns the replay sequence in delivery order.
func (b *backlog) frames() [][]byte {
	out := make([][]byte, 0, len(b.messages)+2)
	if b.snapshot != nil {
		out = append(out, b.snapshot)
	}
	out = append(out, b.messages...)
	if b.info != nil {
		out = append(out, b.info)
	}
	return out
}

func (b *backlog) reset() {
	b.snapshot = nil
	b.messages = nil
	b.info = nil
}
