package domain

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

// MaxReplyTargets is the dual-reply limit: a message can quote at most
// two earlier messages from its own conversation.
const MaxReplyTargets = 2

// UserSet is a set of user ids. Membership is structural, so a user can
// never appear twice for the same emoji.
type UserSet map[uuid.UUID]struct{}

func (s UserSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

func (s UserSet) Add(id uuid.UUID) {
	s[id] = struct{}{}
}

func (s UserSet) Remove(id uuid.UUID) {
	delete(s, id)
}

// MarshalJSON renders the set as a sorted array so output is stable.
func (s UserSet) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	return json.Marshal(ids)
}

func (s UserSet) clone() UserSet {
	out := make(UserSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

type Message struct {
	ID       uuid.UUID   `json:"id"`
	SenderID uuid.UUID   `json:"sender_id"`
	Content  string      `json:"content"`
	// Timestamp is monotonic within a conversation: the store rejects an
	// append whose timestamp precedes the last appended message.
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
	FileURL   string      `json:"file_url,omitempty"`
	FileName  string      `json:"file_name,omitempty"`
	FileSize  int64       `json:"file_size,omitempty"`
	// ReplyToIDs holds up to MaxReplyTargets ids of earlier messages in
	// the same conversation (dual reply).
	ReplyToIDs []uuid.UUID        `json:"reply_to_ids,omitempty"`
	Reactions  map[string]UserSet `json:"reactions,omitempty"`
	// DestructAfter (seconds) and ExpiresAt are set once at send time.
	DestructAfter int        `json:"destruct_after,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// HasAttachment reports whether the message type requires file fields.
func (m *Message) HasAttachment() bool {
	return m.Type == MessageImage || m.Type == MessageFile
}

// Ephemeral reports whether the message carries a self-destruct countdown.
func (m *Message) Ephemeral() bool {
	return m.ExpiresAt != nil
}

// Clone deep-copies the message so mutations happen on a replacement
// record, never in place on a record a reader may hold.
func (m *Message) Clone() *Message {
	out := *m
	if m.ReplyToIDs != nil {
		out.ReplyToIDs = append([]uuid.UUID(nil), m.ReplyToIDs...)
	}
	if m.Reactions != nil {
		out.Reactions = make(map[string]UserSet, len(m.Reactions))
		for emoji, users := range m.Reactions {
			out.Reactions[emoji] = users.clone()
		}
	}
	if m.ExpiresAt != nil {
		t := *m.ExpiresAt
		out.ExpiresAt = &t
	}
	return &out
}
