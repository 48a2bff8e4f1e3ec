package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vedran77/commlink/internal/collab"
	"github.com/vedran77/commlink/internal/domain"
	"github.com/vedran77/commlink/pkg/apperrors"
	"github.com/vedran77/commlink/pkg/validator"
)

var (
	ErrReceiverNotFound      = apperrors.NotFound("receiver not found")
	ErrRequestNotFound       = apperrors.NotFound("contact request not found")
	ErrCannotRequestSelf     = apperrors.Conflict("cannot send a contact request to yourself")
	ErrRequestAlreadyPending = apperrors.Conflict("a pending request to this user already exists")
	ErrAlreadyConnected      = apperrors.Conflict("an accepted conversation with this user already exists")
	ErrRequestResolved       = apperrors.Conflict("contact request is already resolved")
	ErrNotRequestReceiver    = apperrors.PermissionDenied("only the request receiver can perform this action")
	ErrNotRequestSender      = apperrors.PermissionDenied("only the request sender can withdraw")
	ErrNotBlocked            = apperrors.NotFound("user is not blocked")
)

// SendRequest opens the contact handshake: it resolves the receiver by
// username through the directory collaborator, creates a pending request,
// and creates the gated conversation carrying the introduction message as
// its founding (and, until acceptance, only) message.
func (s *Store) SendRequest(ctx context.Context, receiverUsername, message string) (*domain.ContactRequest, error) {
	if errs := validator.ValidateRequestMessage(message); errs.HasErrors() {
		return nil, apperrors.InvalidInput(firstError(errs))
	}
	if errs := validator.ValidateUsername(receiverUsername); errs.HasErrors() {
		return nil, apperrors.InvalidInput(firstError(errs))
	}

	s.mu.RLock()
	sender := s.currentUser
	s.mu.RUnlock()
	if sender == nil {
		return nil, ErrNoCurrentUser
	}

	// Directory lookups happen outside the lock: they are external calls
	// and may take arbitrarily long. Resolve the identity first, then
	// fetch the profile needed for the participant list.
	receiverID, err := s.directory.ResolveUsername(ctx, receiverUsername)
	if err != nil {
		if errors.Is(err, collab.ErrUserNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, apperrors.CollaboratorFailure(fmt.Sprintf("resolving username %q", receiverUsername), err)
	}
	if receiverID == sender.ID {
		return nil, ErrCannotRequestSelf
	}

	receiver, err := s.directory.SearchUser(ctx, receiverUsername)
	if err != nil {
		if errors.Is(err, collab.ErrUserNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, apperrors.CollaboratorFailure(fmt.Sprintf("searching user %q", receiverUsername), err)
	}

	s.mu.Lock()

	for _, req := range s.requests {
		if req.Status == domain.RequestPending && req.SenderID == sender.ID && req.ReceiverID == receiver.ID {
			s.mu.Unlock()
			return nil, ErrRequestAlreadyPending
		}
	}
	for _, conv := range s.conversations {
		if !conv.IsSelf() && conv.HasParticipant(sender.ID) && conv.HasParticipant(receiver.ID) && conv.IsAccepted {
			s.mu.Unlock()
			return nil, ErrAlreadyConnected
		}
	}

	now := s.now()
	req := &domain.ContactRequest{
		ID:         uuid.New(),
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Message:    message,
		Status:     domain.RequestPending,
		CreatedAt:  now,
	}
	s.requests[req.ID] = req

	founding := domain.Message{
		ID:        uuid.New(),
		SenderID:  sender.ID,
		Content:   message,
		Timestamp: now,
		Type:      domain.MessageText,
	}

	conv := s.findPairConversation(sender.ID, receiver.ID)
	if conv == nil {
		reqID := req.ID
		conv = &domain.Conversation{
			ID:           uuid.New(),
			Type:         domain.ConversationDirect,
			Participants: []domain.User{*sender, *receiver},
			Messages:     []domain.Message{},
			RequestID:    &reqID,
			IsAccepted:   false,
		}
		s.conversations = append([]*domain.Conversation{conv}, s.conversations...)
	} else {
		reqID := req.ID
		conv.RequestID = &reqID
		conv.IsAccepted = false
	}
	conv.Messages = append(conv.Messages, founding)
	conv.LastMessage = founding.Clone()

	s.mu.Unlock()
	return req, nil
}

// AcceptRequest unlocks the conversation linked to the request. Only the
// receiver may accept.
func (s *Store) AcceptRequest(requestID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.pendingRequest(requestID)
	if err != nil {
		return err
	}
	if s.currentUser == nil || s.currentUser.ID != req.ReceiverID {
		return ErrNotRequestReceiver
	}

	req.Status = domain.RequestAccepted
	if conv := s.requestConversation(requestID); conv != nil {
		conv.IsAccepted = true
	}
	return nil
}

// DeclineRequest resolves the request negatively and removes the linked
// conversation from the visible collection entirely.
func (s *Store) DeclineRequest(requestID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.pendingRequest(requestID)
	if err != nil {
		return err
	}
	if s.currentUser == nil || s.currentUser.ID != req.ReceiverID {
		return ErrNotRequestReceiver
	}

	req.Status = domain.RequestDeclined
	if conv := s.requestConversation(requestID); conv != nil {
		s.removeConversation(conv.ID)
	}
	return nil
}

// WithdrawRequest lets the original sender take a still-pending request
// back. The conversation disappears with it.
func (s *Store) WithdrawRequest(requestID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.pendingRequest(requestID)
	if err != nil {
		return err
	}
	if s.currentUser == nil || s.currentUser.ID != req.SenderID {
		return ErrNotRequestSender
	}

	req.Status = domain.RequestWithdrawn
	if conv := s.requestConversation(requestID); conv != nil {
		s.removeConversation(conv.ID)
	}
	return nil
}

// BlockUser adds the user to the block set and removes every conversation
// they take part in, regardless of acceptance state. Pending requests
// involving the user transition to blocked. Blocking is one-directional:
// it filters this session's view only.
func (s *Store) BlockUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperrors.InvalidInput("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocked.Add(userID)

	var doomed []uuid.UUID
	for _, conv := range s.conversations {
		if conv.IsSelf() {
			continue
		}
		if conv.HasParticipant(userID) {
			doomed = append(doomed, conv.ID)
			if conv.RequestID != nil {
				if req, ok := s.requests[*conv.RequestID]; ok && req.Status == domain.RequestPending {
					req.Status = domain.RequestBlocked
				}
			}
		}
	}
	for _, id := range doomed {
		s.removeConversation(id)
	}
	return nil
}

// UnblockUser removes the user from the block set. Conversations removed
// by the block are not restored.
func (s *Store) UnblockUser(userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.blocked.Has(userID) {
		return ErrNotBlocked
	}
	s.blocked.Remove(userID)
	return nil
}

// CanCompose reports whether new messages may be composed into the
// conversation: it must exist and be past the request gate.
func (s *Store) CanCompose(conversationID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv := s.findConversation(conversationID)
	return conv != nil && conv.IsAccepted
}

// CanRespond reports whether the current user may accept or decline the
// conversation's linked request: only the participant who did not send the
// request may, and only while it is pending.
func (s *Store) CanRespond(conversationID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv := s.findConversation(conversationID)
	if conv == nil || conv.IsAccepted || conv.RequestID == nil || s.currentUser == nil {
		return false
	}
	req, ok := s.requests[*conv.RequestID]
	return ok && req.Status == domain.RequestPending && req.ReceiverID == s.currentUser.ID
}

// pendingRequest fetches a request and verifies it is still open. Caller
// holds the lock.
func (s *Store) pendingRequest(requestID uuid.UUID) (*domain.ContactRequest, error) {
	req, ok := s.requests[requestID]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if req.Status.Terminal() {
		return nil, ErrRequestResolved
	}
	return req, nil
}

// requestConversation finds the conversation linked to a request. Caller
// holds the lock.
func (s *Store) requestConversation(requestID uuid.UUID) *domain.Conversation {
	for _, conv := range s.conversations {
		if conv.RequestID != nil && *conv.RequestID == requestID {
			return conv
		}
	}
	return nil
}

// findPairConversation locates the one-to-one conversation between two
// users, if any. Caller holds the lock.
func (s *Store) findPairConversation(a, b uuid.UUID) *domain.Conversation {
	for _, conv := range s.conversations {
		if !conv.IsSelf() && conv.HasParticipant(a) && conv.HasParticipant(b) {
			return conv
		}
	}
	return nil
}
