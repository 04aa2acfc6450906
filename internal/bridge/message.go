// Package bridge carries request/response calls between two worlds that can
// only exchange messages. Requests and responses are correlated by id, so
// responses may arrive in any order.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
)

type MessageType string

const (
	TypeRequest  MessageType = "ONLYLIKES_REQUEST"
	TypeResponse MessageType = "ONLYLIKES_RESPONSE"
)

type Action string

const (
	ActionLog              Action = "log"
	ActionAnalyzeComments  Action = "analyzeComments"
	ActionFilterComments   Action = "filterComments"
	ActionGetUserThreshold Action = "getUserThreshold"
	ActionHideComment      Action = "hideComment"
	ActionShowComment      Action = "showComment"
)

type Message struct {
	Type    MessageType     `json:"type"`
	ID      uint64          `json:"id"`
	Source  string          `json:"source"`
	Action  Action          `json:"action,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

var (
	ErrTimeout       = errors.New("bridge: request timed out")
	ErrUnknownAction = errors.New("bridge: unknown action")
)

// RemoteError is a failure reported by the handler on the other side.
type RemoteError struct {
	Action  Action
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bridge: %s failed remotely: %s", e.Action, e.Message)
}
