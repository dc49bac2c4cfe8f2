package handlers

import "github.com/nfrund/homeplace/internal/protocol"

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionResponse echoes the member stored in the session.
type SessionResponse struct {
	Member protocol.MemberData `json:"member"`
}

// PresenceResponse reports who is connected to the chat.
type PresenceResponse struct {
	TotalClients int      `json:"totalClients"`
	Members      []string `json:"members"`
}
