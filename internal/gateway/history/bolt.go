package history

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/nfrund/homeplace/internal/protocol"
	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

var bucketMessages = []byte("messages")

// dbMessage is the stored form of a chat message.
type dbMessage struct {
	Text        string `msgpack:"text"`
	SenderID    string `msgpack:"senderId"`
	MemberID    string `msgpack:"memberId"`
	MemberNick  string `msgpack:"memberNick"`
	MemberImage string `msgpack:"memberImage"`
	Timestamp   int64  `msgpack:"ts"`
}

func (m *dbMessage) MarshalBinary() ([]byte, error) {
	type alias dbMessage
	return msgpack.Marshal((*alias)(m))
}

func (m *dbMessage) UnmarshalBinary(data []byte) error {
	type alias dbMessage
	return msgpack.Unmarshal(data, (*alias)(m))
}

func toDB(msg protocol.ChatMessage) dbMessage {
	d := dbMessage{Text: msg.Text, SenderID: msg.SenderID, Timestamp: time.Now().UnixMilli()}
	if md := msg.MemberData; md != nil {
		d.MemberID, d.MemberNick, d.MemberImage = md.ID, md.Nick, md.Image
	}
	return d
}

func (m dbMessage) toProtocol() protocol.ChatMessage {
	msg := protocol.ChatMessage{Event: protocol.TagMessage, Text: m.Text, SenderID: m.SenderID}
	if m.MemberID != "" || m.MemberNick != "" || m.MemberImage != "" {
		msg.MemberData = &protocol.MemberData{ID: m.MemberID, Nick: m.MemberNick, Image: m.MemberImage}
	}
	return msg
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// BoltStore persists the log in a bbolt file. Keys are big-endian sequence
// numbers so cursor order is append order. When limit > 0 older entries are
// pruned on append.
type BoltStore struct {
	db    *bbolt.DB
	limit int
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string, limit int) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMessages)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db, limit: limit}, nil
}

func (s *BoltStore) Append(_ context.Context, msg protocol.ChatMessage) error {
	rec := toDB(msg)
	data, err := rec.MarshalBinary()
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMessages)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(seq), data); err != nil {
			return err
		}
		if s.limit > 0 && seq > uint64(s.limit) {
			return prune(b, seq-uint64(s.limit))
		}
		return nil
	})
}

// prune deletes every key up to and including upTo.
func prune(b *bbolt.Bucket, upTo uint64) error {
	c := b.Cursor()
	for k, _ := c.First(); k != nil && binary.BigEndian.Uint64(k) <= upTo; k, _ = c.First() {
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return nil
}

func (s *BoltStore) Recent(_ context.Context, n int) ([]protocol.ChatMessage, error) {
	var out []protocol.ChatMessage
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketMessages).Cursor()
		for k, v := c.Last(); k != nil && (n <= 0 || len(out) < n); k, v = c.Prev() {
			var rec dbMessage
			if err := rec.UnmarshalBinary(v); err != nil {
				return fmt.Errorf("decode message %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, rec.toProtocol())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Collected newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if out == nil {
		out = []protocol.ChatMessage{}
	}
	return out, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
