package responder

import "time"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a responder conversation.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session is the conversation the responder keeps per sender.
type Session struct {
	Sender    string    `json:"sender"`
	Turns     []Turn    `json:"turns"`
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Recent returns at most limit trailing turns. A non-positive limit yields none.
func (s Session) Recent(limit int) []Turn {
	if limit <= 0 || len(s.Turns) == 0 {
		return nil
	}
	start := 0
	if len(s.Turns) > limit {
		start = len(s.Turns) - limit
	}
	return s.Turns[start:]
}
