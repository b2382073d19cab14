package chat

import "time"

// Origin identifies who produced a transcript entry.
type Origin string

const (
	OriginUser      Origin = "user"
	OriginResponder Origin = "responder"
)

// Greeting seeds every fresh conversation.
const Greeting = "Hello! I'm here to help with snake bite emergencies. Please describe the situation."

// Message is one turn of the conversation as rendered by the presentation layer.
type Message struct {
	ID        string    `json:"id"`
	Origin    Origin    `json:"origin"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// FromUser reports whether the message was typed locally.
func (m Message) FromUser() bool {
	return m.Origin == OriginUser
}
