// Package protocol defines the chat gateway wire format and decodes inbound
// frames into a closed set of typed events.
package protocol

// EventTag is the discriminant carried in the "event" field of every frame.
type EventTag string

const (
	TagInfo    EventTag = "info"
	TagHistory EventTag = "getMessages"
	TagMessage EventTag = "message"
)

// MemberData is the denormalized sender snapshot attached to frames so that
// clients can render a message without a separate lookup.
type MemberData struct {
	ID    string `json:"_id"`
	Nick  string `json:"memberNick,omitempty"`
	Image string `json:"memberImage,omitempty"`
}

// Identifier returns the member identifier, tolerating a nil receiver.
func (m *MemberData) Identifier() string {
	if m == nil {
		return ""
	}
	return m.ID
}

// ChatMessage is a single chat line as it appears on the wire and in the
// session's message log.
type ChatMessage struct {
	Event      EventTag    `json:"event"`
	Text       string      `json:"text"`
	SenderID   string      `json:"senderId,omitempty"`
	MemberData *MemberData `json:"memberData,omitempty"`
}

// Event is one of Info, HistorySnapshot or Message. The unexported marker
// keeps the set closed to this package.
type Event interface {
	Tag() EventTag
	isEvent()
}

// Info reports presence: the number of connected participants and what
// caused the change.
type Info struct {
	TotalClients int
	Action       string
	MemberData   *MemberData
}

// HistorySnapshot carries the full message history and replaces whatever the
// receiver holds.
type HistorySnapshot struct {
	List []ChatMessage
}

// Message is a single incoming chat message.
type Message struct {
	ChatMessage
}

func (Info) Tag() EventTag            { return TagInfo }
func (HistorySnapshot) Tag() EventTag { return TagHistory }
func (Message) Tag() EventTag         { return TagMessage }

func (Info) isEvent()            {}
func (HistorySnapshot) isEvent() {}
func (Message) isEvent()         {}
