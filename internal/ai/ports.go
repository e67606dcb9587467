package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

// NoReply substitutes an upstream answer with no extractable content.
const NoReply = "Sorry, no reply"

// AI is the external chat-completion model. It knows nothing about twins or storage.
type AI interface {
	GetReply(
		ctx context.Context,
		systemPrompt string,
		userMessage string,
	) (Reply, error)
}

// Message is the role/content pair sent upstream.
type Message struct {
	Role string // "user" | "assistant" | "system"
	Text string
}

type Reply struct {
	Text string
	Raw  json.RawMessage
}

// UpstreamError is returned when the completion API answers with a non-success status.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status=%d body=%s", e.StatusCode, e.Body)
}
