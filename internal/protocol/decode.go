package protocol

import (
	"encoding/json"
	"fmt"
)

// envelope is the union of every field any inbound frame may carry.
type envelope struct {
	Event        EventTag      `json:"event"`
	TotalClients *int          `json:"totalClients"`
	Action       string        `json:"action"`
	MemberData   *MemberData   `json:"memberData"`
	List         []ChatMessage `json:"list"`
	Text         string        `json:"text"`
	SenderID     string        `json:"senderId"`
}

// Decode parses one inbound frame. Every failure is a *DecodeError wrapping
// ErrMalformed, ErrUnknownEvent or ErrInvalidPayload.
func Decode(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, newDecodeError(fmt.Errorf("%w: %v", ErrMalformed, err), "", raw)
	}

	switch env.Event {
	case TagInfo:
		if env.TotalClients == nil {
			return nil, newDecodeError(fmt.Errorf("%w: totalClients is required", ErrInvalidPayload), env.Event, raw)
		}
		if *env.TotalClients < 0 {
			return nil, newDecodeError(fmt.Errorf("%w: totalClients is negative", ErrInvalidPayload), env.Event, raw)
		}
		return Info{
			TotalClients: *env.TotalClients,
			Action:       env.Action,
			MemberData:   env.MemberData,
		}, nil

	case TagHistory:
		list := make([]ChatMessage, len(env.List))
		for i, m := range env.List {
			if m.Event == "" {
				m.Event = TagMessage
			}
			list[i] = m
		}
		return HistorySnapshot{List: list}, nil

	case TagMessage:
		return Message{ChatMessage: ChatMessage{
			Event:      TagMessage,
			Text:       env.Text,
			SenderID:   env.SenderID,
			MemberData: env.MemberData,
		}}, nil

	default:
		return nil, newDecodeError(fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event), env.Event, raw)
	}
}
