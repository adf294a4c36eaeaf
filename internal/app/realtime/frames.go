/*
Package realtime is the WebSocket gateway. Each connection belongs to one session and carries
the session's live DM list, the timeline of its active chat, changes to the signed-in user, and
the composer and editor commands sent by the client.
*/
package realtime

import (
	"encoding/json"
	"time"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/message"
	"relaychat/internal/app/user"
)

// FrameType names the kind of a frame.
type FrameType string

// Inbound frame types.
const (
	TypeOpenChat      FrameType = "OPEN_CHAT"
	TypeSendText      FrameType = "SEND_TEXT"
	TypeEditText      FrameType = "EDIT_TEXT"
	TypeDeleteMessage FrameType = "DELETE_MESSAGE"
)

// Outbound frame types.
const (
	TypeSession  FrameType = "SESSION"
	TypeDMList   FrameType = "DM_LIST"
	TypeMessages FrameType = "MESSAGES"
	TypeConfirm  FrameType = "CONFIRM"
	TypeNotice   FrameType = "NOTICE"
)

// Frame is the envelope of every WebSocket message in both directions.
type Frame struct {
	Type      FrameType       `json:"type"`
	TempID    string          `json:"tempId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func newFrame(t FrameType, tempID string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, TempID: tempID, Payload: raw, Timestamp: time.Now().UnixMilli()}, nil
}

// OpenChatPayload selects the active chat.
type OpenChatPayload struct {
	ChatID string `json:"chatId"`
}

// SendTextPayload submits a new message.
type SendTextPayload struct {
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

// EditTextPayload replaces the text of a message.
type EditTextPayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

// DeleteMessagePayload removes a message.
type DeleteMessagePayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

// SessionPayload carries the signed-in user.
type SessionPayload struct {
	User user.User `json:"user"`
}

// DMListPayload carries the viewer's direct messages.
type DMListPayload struct {
	DMs []chat.Descriptor `json:"dms"`
}

// MessagesPayload carries the active chat view.
type MessagesPayload = message.View

// ConfirmPayload acknowledges a command. ID is the id of the affected message.
type ConfirmPayload struct {
	TempID string `json:"tempId"`
	ID     string `json:"id"`
}

// NoticePayload reports a failed command or subscription.
type NoticePayload struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
