package provider

import (
	"context"
	"errors"
	"fmt"

	"carechat/config"
)

// APIError is a non-success response from a completion endpoint.
// ErrMissingAPIKey is returned by constructors of hosted providers when no
// key is configured.
var ErrMissingAPIKey = errors.New("API key is required")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// streamFunc performs one streamed request, passing each text fragment to
// emit, and returns when the response body is exhausted.
type streamFunc func(ctx context.Context, emit func(string)) error

// dispatch runs fn and turns its outcome into exactly one terminal callback.
func dispatch(ctx context.Context, cb Callbacks, fn streamFunc) {
	err := fn(ctx, func(text string) {
		if text == "" || ctx.Err() != nil {
			return
		}
		if cb.OnDelta != nil {
			cb.OnDelta(text)
		}
	})

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return
	}
	if cb.OnComplete != nil {
		cb.OnComplete()
	}
}

// withSystemPrompt returns messages with the product system prompt in front.
func withSystemPrompt(prompt string, messages []Message) []Message {
	if prompt == "" {
		return messages
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: "system", Content: prompt})
	return append(out, messages...)
}

func logf(format string, args ...any) {
	if config.DebugLog != nil {
		config.DebugLog.Printf(format, args...)
	}
}
