package protocol

import "encoding/json"

type infoFrame struct {
	Event        EventTag    `json:"event"`
	TotalClients int         `json:"totalClients"`
	Action       string      `json:"action,omitempty"`
	MemberData   *MemberData `json:"memberData,omitempty"`
}

type historyFrame struct {
	Event EventTag      `json:"event"`
	List  []ChatMessage `json:"list"`
}

// EncodeInfo builds an "info" frame.
func EncodeInfo(totalClients int, action string, member *MemberData) ([]byte, error) {
	return json.Marshal(infoFrame{
		Event:        TagInfo,
		TotalClients: totalClients,
		Action:       action,
		MemberData:   member,
	})
}

// EncodeHistory builds a "getMessages" frame. A nil list is sent as [].
func EncodeHistory(list []ChatMessage) ([]byte, error) {
	if list == nil {
		list = []ChatMessage{}
	}
	return json.Marshal(historyFrame{Event: TagHistory, List: list})
}

// EncodeMessage builds a "message" frame.
func EncodeMessage(text, senderID string, member *MemberData) ([]byte, error) {
	return json.Marshal(ChatMessage{
		Event:      TagMessage,
		Text:       text,
		SenderID:   senderID,
		MemberData: member,
	})
}
