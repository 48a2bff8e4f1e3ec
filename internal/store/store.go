// Package store holds the authoritative in-process state for the current
// session: the current user, the conversation collection, contact requests,
// and the block set. All mutations go through it; readers get copies.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vedran77/commlink/internal/collab"
	"github.com/vedran77/commlink/internal/domain"
	"github.com/vedran77/commlink/pkg/apperrors"
	"github.com/vedran77/commlink/pkg/validator"
)

var (
	ErrNoCurrentUser        = apperrors.PermissionDenied("no current user")
	ErrConversationNotFound = apperrors.NotFound("conversation not found")
	ErrNotParticipant       = apperrors.PermissionDenied("sender is not a participant of this conversation")
	ErrConversationLocked   = apperrors.PermissionDenied("conversation is awaiting request acceptance")
	ErrTimestampOrder       = apperrors.InvalidInput("message timestamp precedes the last message in the conversation")
	ErrDuplicateMessageID   = apperrors.Conflict("message id already used in this conversation")
)

// Tracker is notified of every appended ephemeral message so expiry can be
// scheduled outside the store.
type Tracker interface {
	Track(conversationID, messageID uuid.UUID, expiresAt time.Time)
}

type Store struct {
	mu sync.RWMutex

	directory collab.Directory
	tracker   Tracker
	log       *zap.Logger
	now       func() time.Time

	currentUser   *domain.User
	authenticated bool
	conversations []*domain.Conversation
	activeID      uuid.UUID
	requests      map[uuid.UUID]*domain.ContactRequest
	blocked       domain.UserSet
	// expired remembers message ids removed by expiry, per conversation,
	// so an expired message can never resurface.
	expired map[uuid.UUID]domain.UserSet
}

func New(directory collab.Directory, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		directory: directory,
		log:       log,
		now:       time.Now,
		requests:  make(map[uuid.UUID]*domain.ContactRequest),
		blocked:   make(domain.UserSet),
		expired:   make(map[uuid.UUID]domain.UserSet),
	}
}

// SetTracker wires the ephemeral-message tracker. Call before use.
func (s *Store) SetTracker(t Tracker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker = t
}

// SetNowFunc overrides the clock.
func (s *Store) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetCurrentUser replaces the session identity. A nil user clears the
// session and the active-conversation selection.
func (s *Store) SetCurrentUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u == nil {
		s.currentUser = nil
		s.authenticated = false
		s.activeID = uuid.Nil
		return
	}
	copied := *u
	s.currentUser = &copied
	s.authenticated = true
}

// SetActiveConversation records which conversation is being viewed. It is a
// focus marker only; the id is not validated against the collection.
// Focusing a conversation marks it read.
func (s *Store) SetActiveConversation(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeID = id
	if conv := s.findConversation(id); conv != nil {
		conv.UnreadCount = 0
	}
}

// Logout clears the current user, the authenticated flag, and the active
// selection. Conversations stay, as cached local state.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentUser = nil
	s.authenticated = false
	s.activeID = uuid.Nil
}

// ProfileUpdate is a pointer-field patch over the mutable profile fields.
// Username is deliberately absent: it is immutable after account creation.
type ProfileUpdate struct {
	DisplayName         *string
	AvatarURL           *string
	About               *string
	Status              *domain.Presence
	ReadReceiptsEnabled *bool
}

// UpdateProfile merges the patch into the current user.
func (s *Store) UpdateProfile(p ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentUser == nil {
		return ErrNoCurrentUser
	}

	updated := *s.currentUser
	if p.DisplayName != nil {
		updated.DisplayName = *p.DisplayName
	}
	if p.AvatarURL != nil {
		updated.AvatarURL = *p.AvatarURL
	}
	if p.About != nil {
		updated.About = *p.About
	}
	if p.Status != nil {
		updated.Status = *p.Status
	}
	if p.ReadReceiptsEnabled != nil {
		updated.ReadReceiptsEnabled = *p.ReadReceiptsEnabled
	}

	if errs := validator.ValidateProfile(updated.DisplayName, updated.About); errs.HasErrors() {
		return apperrors.InvalidInput(firstError(errs))
	}

	s.currentUser = &updated
	return nil
}

// StartSelfChat finds or creates the single-participant conversation used
// for personal notes, and makes it active. Idempotent: a second call
// returns the same conversation.
func (s *Store) StartSelfChat() (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentUser == nil {
		return nil, ErrNoCurrentUser
	}

	for _, conv := range s.conversations {
		if conv.IsSelf() && conv.Participants[0].ID == s.currentUser.ID {
			s.activeID = conv.ID
			return conv.Clone(), nil
		}
	}

	conv := &domain.Conversation{
		ID:           uuid.New(),
		Type:         domain.ConversationDirect,
		Participants: []domain.User{*s.currentUser},
		Messages:     []domain.Message{},
		IsAccepted:   true,
	}
	s.conversations = append([]*domain.Conversation{conv}, s.conversations...)
	s.activeID = conv.ID

	return conv.Clone(), nil
}

// AddMessage validates and appends a message to the conversation, sets it
// as the last message, and schedules expiry if the message is ephemeral.
// Returns the stored record.
func (s *Store) AddMessage(conversationID uuid.UUID, msg domain.Message) (*domain.Message, error) {
	s.mu.Lock()

	conv := s.findConversation(conversationID)
	if conv == nil {
		s.mu.Unlock()
		return nil, ErrConversationNotFound
	}
	if !conv.IsAccepted {
		s.mu.Unlock()
		return nil, ErrConversationLocked
	}
	if !conv.HasParticipant(msg.SenderID) {
		s.mu.Unlock()
		return nil, ErrNotParticipant
	}

	stored, err := s.prepareMessage(conv, msg)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	conv.Messages = append(conv.Messages, *stored)
	conv.LastMessage = stored.Clone()
	if s.currentUser == nil || stored.SenderID != s.currentUser.ID {
		if s.activeID != conv.ID {
			conv.UnreadCount++
		}
	}

	tracker := s.tracker
	out := stored.Clone()
	s.mu.Unlock()

	if tracker != nil && out.ExpiresAt != nil {
		tracker.Track(conversationID, out.ID, *out.ExpiresAt)
	}

	return out, nil
}

// prepareMessage checks the per-message invariants and returns the record
// to append. Caller holds the lock.
func (s *Store) prepareMessage(conv *domain.Conversation, msg domain.Message) (*domain.Message, error) {
	stored := msg.Clone()

	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if conv.MessageByID(stored.ID) != nil {
		return nil, ErrDuplicateMessageID
	}
	if s.expired[conv.ID].Has(stored.ID) {
		// Expiry is irreversible; a removed id cannot come back.
		return nil, ErrDuplicateMessageID
	}

	switch stored.Type {
	case domain.MessageText, domain.MessageSystem:
		if stored.FileURL != "" || stored.FileName != "" || stored.FileSize != 0 {
			return nil, apperrors.InvalidInput("file fields are only valid on image and file messages")
		}
	case domain.MessageImage, domain.MessageFile:
		if stored.FileURL == "" {
			return nil, apperrors.InvalidInput("image and file messages require a file url")
		}
	default:
		return nil, apperrors.InvalidInput("unknown message type")
	}

	if len(stored.ReplyToIDs) > domain.MaxReplyTargets {
		return nil, apperrors.InvalidInput("a message can reply to at most 2 messages")
	}
	for _, replyID := range stored.ReplyToIDs {
		if conv.MessageByID(replyID) == nil {
			return nil, apperrors.InvalidInput("reply target does not exist in this conversation")
		}
	}

	if stored.Timestamp.IsZero() {
		stored.Timestamp = s.now()
	}
	if last := lastOf(conv.Messages); last != nil && stored.Timestamp.Before(last.Timestamp) {
		return nil, ErrTimestampOrder
	}

	if stored.DestructAfter < 0 {
		return nil, apperrors.InvalidInput("destruct countdown cannot be negative")
	}
	if stored.DestructAfter > 0 && stored.ExpiresAt == nil {
		at := stored.Timestamp.Add(time.Duration(stored.DestructAfter) * time.Second)
		stored.ExpiresAt = &at
	}

	return stored, nil
}

// AddReaction toggles userID's membership in the reaction set for emoji on
// the given message. An emoji whose set empties is removed entirely.
// Reactions count as composition, so a conversation still gated behind a
// pending request rejects them. Missing conversation or message is a silent
// no-op: the message may have expired concurrently, which is a benign race.
func (s *Store) AddReaction(conversationID, messageID uuid.UUID, emoji string, userID uuid.UUID) error {
	if errs := validator.ValidateEmoji(emoji); errs.HasErrors() {
		return apperrors.InvalidInput(firstError(errs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findConversation(conversationID)
	if conv == nil {
		return nil
	}
	if !conv.IsAccepted {
		return ErrConversationLocked
	}
	idx := -1
	for i := range conv.Messages {
		if conv.Messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	// Replace the record wholesale so a concurrent reader never observes
	// a half-applied toggle.
	updated := conv.Messages[idx].Clone()
	if updated.Reactions == nil {
		updated.Reactions = make(map[string]domain.UserSet)
	}
	users, ok := updated.Reactions[emoji]
	if !ok {
		users = make(domain.UserSet)
		updated.Reactions[emoji] = users
	}
	if users.Has(userID) {
		users.Remove(userID)
	} else {
		users.Add(userID)
	}
	if len(users) == 0 {
		delete(updated.Reactions, emoji)
	}
	if len(updated.Reactions) == 0 {
		updated.Reactions = nil
	}

	conv.Messages[idx] = *updated
	if conv.LastMessage != nil && conv.LastMessage.ID == messageID {
		conv.LastMessage = updated.Clone()
	}
	return nil
}

// ExpireMessage removes an ephemeral message whose countdown has elapsed
// and tombstones its id. Reports whether anything was removed.
func (s *Store) ExpireMessage(conversationID, messageID uuid.UUID, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findConversation(conversationID)
	if conv == nil {
		return false
	}
	for i := range conv.Messages {
		m := &conv.Messages[i]
		if m.ID != messageID {
			continue
		}
		if m.ExpiresAt == nil || now.Before(*m.ExpiresAt) {
			return false
		}
		conv.Messages = append(conv.Messages[:i], conv.Messages[i+1:]...)
		tombs, ok := s.expired[conv.ID]
		if !ok {
			tombs = make(domain.UserSet)
			s.expired[conv.ID] = tombs
		}
		tombs.Add(messageID)
		if last := lastOf(conv.Messages); last != nil {
			conv.LastMessage = last.Clone()
		} else {
			conv.LastMessage = nil
		}
		s.log.Debug("message expired",
			zap.String("conversation_id", conversationID.String()),
			zap.String("message_id", messageID.String()))
		return true
	}
	return false
}

// findConversation returns the live record. Caller holds the lock.
func (s *Store) findConversation(id uuid.UUID) *domain.Conversation {
	for _, conv := range s.conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

// removeConversation drops the conversation from the visible collection.
// Caller holds the lock.
func (s *Store) removeConversation(id uuid.UUID) {
	for i, conv := range s.conversations {
		if conv.ID == id {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			if s.activeID == id {
				s.activeID = uuid.Nil
			}
			return
		}
	}
}

func lastOf(messages []domain.Message) *domain.Message {
	if len(messages) == 0 {
		return nil
	}
	return &messages[len(messages)-1]
}

func firstError(errs validator.ValidationErrors) string {
	for _, msg := range errs {
		return msg
	}
	return "invalid input"
}
