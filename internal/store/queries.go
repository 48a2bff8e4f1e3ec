package store

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/vedran77/commlink/internal/domain"
)

// Conversations returns the visible conversation collection, in collection
// order. A non-empty filter keeps conversations where the display name of a
// participant other than the current user contains it, case-insensitively.
func (s *Store) Conversations(filter string) []domain.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter = strings.ToLower(strings.TrimSpace(filter))

	var currentID uuid.UUID
	if s.currentUser != nil {
		currentID = s.currentUser.ID
	}

	out := make([]domain.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if filter != "" && !matchesFilter(conv, filter, currentID) {
			continue
		}
		out = append(out, *conv.Clone())
	}
	return out
}

// PendingRequests returns pending contact requests addressed to the
// current user, newest first.
func (s *Store) PendingRequests() []domain.ContactRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentUser == nil {
		return nil
	}

	out := make([]domain.ContactRequest, 0)
	for _, req := range s.requests {
		if req.Status == domain.RequestPending && req.ReceiverID == s.currentUser.ID {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Conversation returns a copy of the conversation, or nil when the id does
// not resolve.
func (s *Store) Conversation(id uuid.UUID) *domain.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if conv := s.findConversation(id); conv != nil {
		return conv.Clone()
	}
	return nil
}

// Message returns a copy of a single message. Expired messages never
// resolve.
func (s *Store) Message(conversationID, messageID uuid.UUID) *domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.expired[conversationID].Has(messageID) {
		return nil
	}
	conv := s.findConversation(conversationID)
	if conv == nil {
		return nil
	}
	if m := conv.MessageByID(messageID); m != nil {
		return m.Clone()
	}
	return nil
}

// Request returns a copy of a contact request, or nil.
func (s *Store) Request(id uuid.UUID) *domain.ContactRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if req, ok := s.requests[id]; ok {
		copied := *req
		return &copied
	}
	return nil
}

// CurrentUser returns a copy of the session user, or nil.
func (s *Store) CurrentUser() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentUser == nil {
		return nil
	}
	copied := *s.currentUser
	return &copied
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// ActiveConversationID returns the focus marker; false when nothing is
// selected.
func (s *Store) ActiveConversationID() (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID, s.activeID != uuid.Nil
}

func (s *Store) IsBlocked(userID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocked.Has(userID)
}

func matchesFilter(conv *domain.Conversation, lowered string, currentID uuid.UUID) bool {
	for _, p := range conv.Participants {
		if p.ID == currentID {
			continue
		}
		if strings.Contains(strings.ToLower(p.DisplayName), lowered) {
			return true
		}
	}
	return false
}
