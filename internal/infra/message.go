package infra

import "github.com/google/uuid"

// Message is the envelope every broker publisher writes; consumers
// pattern-match on Pattern.
type Message struct {
	Pattern string `json:"pattern"`
	Data    any    `json:"data"`
	ID      string `json:"id,omitempty"`
}

func NewMessage(pattern string, data any) Message {
	return Message{Pattern: pattern, Data: data, ID: uuid.NewString()}
}
