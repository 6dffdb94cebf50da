package chat

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

const (
	DefaultTitle       = "New Chat"
	DefaultModel       = "llama3-70b-8192"
	DefaultTemperature = 0.7

	// ErrorAnnotation is appended to a reply whose stream failed.
	ErrorAnnotation = "\n\n*Error: Failed to complete response.*"
)

// SupportedModels is the built-in model list used when none is configured.
var SupportedModels = []string{
	"llama3-8b-8192",
	"llama3-70b-8192",
	"mixtral-8x7b-32768",
	"gemma-7b-it",
}

// Message is one turn of a conversation. Only Content changes after
// creation, and only while the message is the in-flight assistant reply.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Session is a conversation thread.
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Messages  []Message `json:"messages" yaml:"messages"`
	Model     string    `json:"model" yaml:"model"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

func (s *Session) clone() Session {
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	return c
}

func (s *Session) message(id string) *Message {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return &s.Messages[i]
		}
	}
	return nil
}

// GenerationState is the sendMessage state machine:
// Idle -> Sending -> Streaming -> Idle.
type GenerationState int

const (
	Idle GenerationState = iota
	Sending
	Streaming
)

func (g GenerationState) String() string {
	switch g {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Streaming:
		return "streaming"
	default:
		return "unknown"
	}
}
