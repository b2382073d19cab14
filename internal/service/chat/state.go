package chat

import "github.com/zhouzirui/snakeaid/backend/internal/model/chat"

// conversationState is the transcript plus the two exchange flags. Only the
// Service touches it.
type conversationState struct {
	transcript            []chat.Message
	awaitingReply         bool
	hasReceivedFirstReply bool
}

func newConversationState(greeting chat.Message) conversationState {
	transcript := make([]chat.Message, 0, 16)
	return conversationState{transcript: append(transcript, greeting)}
}

func (c *conversationState) append(message chat.Message) {
	c.transcript = append(c.transcript, message)
}

func (c *conversationState) copyTranscript() []chat.Message {
	copied := make([]chat.Message, len(c.transcript))
	copy(copied, c.transcript)
	return copied
}
