package chat

import (
	"errors"
	"fmt"

	"github.com/nfrund/homeplace/internal/connection"
)

var (
	// ErrEmptyDraft is returned by SubmitDraft when the draft is blank after trimming.
	ErrEmptyDraft = errors.New("chat: message is empty")
	// ErrNotReady is returned by SubmitDraft while the transport is not connected.
	// It matches connection.ErrNotReady with errors.Is.
	ErrNotReady = fmt.Errorf("chat: %w", connection.ErrNotReady)
	// ErrNotMounted is returned when the session has no transport.
	ErrNotMounted = errors.New("chat: session not mounted")
)

// User-facing alert texts.
const (
	alertEmptyDraft = "Type a message before sending."
	alertNotReady   = "Chat is not connected yet. Please try again in a moment."
	alertSendFailed = "Your message could not be sent."
)
