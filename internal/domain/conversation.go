package domain

import (
	"github.com/google/uuid"
)

type ConversationType string

const (
	// ConversationDirect is the only supported shape: one-to-one, or a
	// single-participant self-conversation used for personal notes.
	ConversationDirect ConversationType = "direct"
)

type Conversation struct {
	ID   uuid.UUID        `json:"id"`
	Type ConversationType `json:"type"`
	// Participants holds 1 or 2 users; exactly 1 denotes a
	// self-conversation, which is always accepted and never request-linked.
	Participants []User    `json:"participants"`
	Messages     []Message `json:"messages"`
	UnreadCount  int       `json:"unread_count"`
	LastMessage  *Message  `json:"last_message,omitempty"`
	// RequestID links the conversation to the contact request it
	// originated from, when it has one.
	RequestID *uuid.UUID `json:"request_id,omitempty"`
	IsAccepted bool       `json:"is_accepted"`
	BlockedBy  *uuid.UUID `json:"blocked_by,omitempty"`
}

// IsSelf reports whether this is a single-participant self-conversation.
func (c *Conversation) IsSelf() bool {
	return len(c.Participants) == 1
}

// HasParticipant reports whether the user takes part in the conversation.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant other than userID, or nil for a
// self-conversation.
func (c *Conversation) OtherParticipant(userID uuid.UUID) *User {
	for i := range c.Participants {
		if c.Participants[i].ID != userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// MessageByID returns the message with the given id, or nil.
func (c *Conversation) MessageByID(id uuid.UUID) *Message {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return &c.Messages[i]
		}
	}
	return nil
}

// Clone deep-copies the conversation for handing out to readers.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Participants = append([]User(nil), c.Participants...)
	out.Messages = make([]Message, len(c.Messages))
	for i := range c.Messages {
		out.Messages[i] = *c.Messages[i].Clone()
	}
	if c.LastMessage != nil {
		out.LastMessage = c.LastMessage.Clone()
	}
	if c.RequestID != nil {
		id := *c.RequestID
		out.RequestID = &id
	}
	if c.BlockedBy != nil {
		id := *c.BlockedBy
		out.BlockedBy = &id
	}
	return &out
}
