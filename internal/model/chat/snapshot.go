package chat

// Snapshot is the read-only view handed to presentation collaborators.
type Snapshot struct {
	Transcript    []Message `json:"transcript"`
	AwaitingReply bool      `json:"awaitingReply"`
	Epoch         uint64    `json:"epoch"`
}

// Last returns the most recent message, if any.
func (s Snapshot) Last() (Message, bool) {
	if len(s.Transcript) == 0 {
		return Message{}, false
	}
	return s.Transcript[len(s.Transcript)-1], true
}
