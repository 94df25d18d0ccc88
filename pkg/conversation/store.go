package conversation

import "fmt"

// Store is the ordered conversation log for one session.
// It is owned by a single loop and is not safe for concurrent use.
type Store struct {
	messages []Message
}

// NewStore returns a store seeded with the system prompt.
func NewStore(systemPrompt string) *Store {
	return &Store{messages: []Message{SystemMessage(systemPrompt)}}
}

// Append adds messages to the end of the log.
func (s *Store) Append(msgs ...Message) {
	s.messages = append(s.messages, msgs...)
}

// Snapshot returns a copy of the full ordered log.
func (s *Store) Snapshot() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the log.
func (s *Store) Len() int {
	return len(s.messages)
}

// Truncate discards every message after the first n. The system message is
// always kept.
func (s *Store) Truncate(n int) {
	if n < 1 {
		n = 1
	}
	if n >= len(s.messages) {
		return
	}
	s.messages = s.messages[:n]
}

// Validate checks that every tool message directly answers a call made by the
// assistant message that opens its block.
func (s *Store) Validate() error {
	var pending map[string]bool
	for i, msg := range s.messages {
		switch msg.Role {
		case RoleAssistant:
			pending = make(map[string]bool, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				pending[call.ID] = true
			}
		case RoleTool:
			if !pending[msg.ToolCallID] {
				return fmt.Errorf("tool message at index %d answers unknown call %q", i, msg.ToolCallID)
			}
			delete(pending, msg.ToolCallID)
		default:
			pending = nil
		}
	}
	return nil
}
