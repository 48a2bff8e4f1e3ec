package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/commlink/internal/collab/memory"
	"github.com/vedran77/commlink/internal/domain"
	"github.com/vedran77/commlink/pkg/apperrors"
)

func testUser(username, displayName string) domain.User {
	return domain.User{
		ID:                  uuid.New(),
		Email:               username + "@example.com",
		EmailVerified:       true,
		Username:            username,
		DisplayName:         displayName,
		Status:              domain.PresenceActiveSignal,
		AccountStatus:       domain.AccountActive,
		ReadReceiptsEnabled: true,
		CreatedAt:           time.Now(),
	}
}

// newTestStore returns a store with u1 as the session user and an accepted
// conversation between u1 and u2.
func newTestStore(t *testing.T) (*Store, domain.User, domain.User, uuid.UUID) {
	t.Helper()

	u1 := testUser("commander_shep", "Cmdr. Shepard")
	u2 := testUser("garrus_v", "Garrus V.")

	s := New(memory.NewDirectory(u1, u2), nil)
	s.SetCurrentUser(&u1)

	conv := &domain.Conversation{
		ID:           uuid.New(),
		Type:         domain.ConversationDirect,
		Participants: []domain.User{u1, u2},
		Messages:     []domain.Message{},
		IsAccepted:   true,
	}
	s.mu.Lock()
	s.conversations = append(s.conversations, conv)
	s.mu.Unlock()

	return s, u1, u2, conv.ID
}

func TestStartSelfChat(t *testing.T) {
	s, u1, _, _ := newTestStore(t)

	first, err := s.StartSelfChat()
	require.NoError(t, err)
	require.True(t, first.IsSelf())
	assert.Equal(t, u1.ID, first.Participants[0].ID)
	assert.True(t, first.IsAccepted)
	assert.Nil(t, first.RequestID)

	active, ok := s.ActiveConversationID()
	require.True(t, ok)
	assert.Equal(t, first.ID, active)

	second, err := s.StartSelfChat()
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "second call must reuse the existing self-chat")

	selfChats := 0
	for _, conv := range s.Conversations("") {
		if conv.IsSelf() {
			selfChats++
		}
	}
	assert.Equal(t, 1, selfChats)
}

func TestStartSelfChatRequiresUser(t *testing.T) {
	s := New(memory.NewDirectory(), nil)
	_, err := s.StartSelfChat()
	assert.ErrorIs(t, err, ErrNoCurrentUser)
}

func TestAddMessage(t *testing.T) {
	t.Run("appends and sets last message", func(t *testing.T) {
		s, u1, _, convID := newTestStore(t)

		msg, err := s.AddMessage(convID, domain.Message{
			SenderID: u1.ID,
			Content:  "We move out at 0800.",
			Type:     domain.MessageText,
		})
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, msg.ID)
		assert.False(t, msg.Timestamp.IsZero())

		conv := s.Conversation(convID)
		require.NotNil(t, conv)
		require.Len(t, conv.Messages, 1)
		require.NotNil(t, conv.LastMessage)
		assert.Equal(t, msg.ID, conv.LastMessage.ID)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		s, u1, _, _ := newTestStore(t)
		_, err := s.AddMessage(uuid.New(), domain.Message{SenderID: u1.ID, Content: "x", Type: domain.MessageText})
		assert.ErrorIs(t, err, ErrConversationNotFound)
		assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
	})

	t.Run("sender must be a participant", func(t *testing.T) {
		s, _, _, convID := newTestStore(t)
		outsider := testUser("urdnot_wrex", "Wrex")
		_, err := s.AddMessage(convID, domain.Message{SenderID: outsider.ID, Content: "Shepard.", Type: domain.MessageText})
		assert.ErrorIs(t, err, ErrNotParticipant)
	})

	t.Run("timestamps are monotonic per conversation", func(t *testing.T) {
		s, u1, _, convID := newTestStore(t)
		base := time.Now()

		_, err := s.AddMessage(convID, domain.Message{SenderID: u1.ID, Content: "first", Type: domain.MessageText, Timestamp: base})
		require.NoError(t, err)

		_, err = s.AddMessage(convID, domain.Message{SenderID: u1.ID, Content: "stale", Type: domain.MessageText, Timestamp: base.Add(-time.Minute)})
		assert.ErrorIs(t, err, ErrTimestampOrder)

		_, err = s.AddMessage(convID, domain.Message{SenderID: u1.ID, Content: "equal", Type: domain.MessageText, Timestamp: base})
		assert.NoError(t, err, "equal timestamps are allowed")
	})

	t.Run("file fields only on attachment types", func(t *testing.T) {
		s, u1, _, convID := newTestStore(t)

		_, err := s.AddMessage(convID, domain.Message{SenderID: u1.ID, Content: "x", Type: domain.MessageText, FileURL: "mem://f"})
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

		_, err = s.AddMessage(convID, domain.Message{SenderID: u1.ID, Type: domain.MessageImage})
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

		_, err = s.AddMessage(convID, domain.Message{SenderID: u1.ID, Type: domain.MessageImage, FileURL: "mem://f", FileName: "a.png", FileSize: 12})
		assert.NoError(t, err)
	})

	t.Run("reply targets", func(t *testing.T) {
		s, u1, u2, convID := newTestStore(t)

		m1, err := s.AddMessage(convID, domain.Message{SenderID: u1.ID, Content: "one", Type: domain.MessageText})
		require.NoError(t, err)
		m2, err := s.AddMessage(convID, domain.Message{SenderID: u2.ID, Content: "two", Type: domain.MessageText})
		require.NoError(t, err)

		reply, err := s.AddMessage(convID, domain.Message{
			SenderID:   u1.ID,
			Content:    "answering both",
			Type:       domain.MessageText,
			ReplyToIDs: []uuid.UUID{m1.ID, m2.ID},
		})
		require.NoError(t, err)
		assert.Len(t, reply.ReplyToIDs, 2)

		_, err = s.AddMessage(convID, domain.Message{
			SenderID:   u1.ID,
			Content:    "too many",
			Type:       domain.MessageText,
			ReplyToIDs: []uuid.UUID{m1.ID, m2.ID, reply.ID},
		})
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

		_, err = s.AddMessage(convID, domain.Message{
			SenderID:   u1.ID,
			Content:    "dangling",
			Type:       domain.MessageText,
			ReplyToIDs: []uuid.UUID{uuid.New()},
		})
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		s, u1, _, convID := newTestStore(t)
		id := uuid.New()
		_, err := s.AddMessage(convID, domain.Message{ID: id, SenderID: u1.ID, Content: "a", Type: domain.MessageText})
		require.NoError(t, err)
		_, err = s.AddMessage(convID, domain.Message{ID: id, SenderID: u1.ID, Content: "b", Type: domain.MessageText})
		assert.ErrorIs(t, err, ErrDuplicateMessageID)
	})

	t.Run("ephemeral messages get an expiry", func(t *testing.T) {
		s, u1, _, convID := newTestStore(t)

		msg, err := s.AddMessage(convID, domain.Message{SenderID: u1.ID, Content: "vanishing", Type: domain.MessageText, DestructAfter: 10})
		require.NoError(t, err)
		require.NotNil(t, msg.ExpiresAt)
		assert.Equal(t, msg.Timestamp.Add(10*time.Second), *msg.ExpiresAt)

		_, err = s.AddMessage(convID, domain.Message{SenderID: u1.ID, Content: "x", Type: domain.MessageText, DestructAfter: -1})
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
	})
}

func TestUnreadCount(t *testing.T) {
	s, _, u2, convID := newTestStore(t)

	// Messages from the other participant while the conversation is not
	// focused count as unread.
	_, err := s.AddMessage(convID, domain.Message{SenderID: u2.ID, Content: "hey", Type: domain.MessageText})
	require.NoError(t, err)
	_, err = s.AddMessage(convID, domain.Message{SenderID: u2.ID, Content: "you there?", Type: domain.MessageText})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Conversation(convID).UnreadCount)

	// Focusing marks the conversation read.
	s.SetActiveConversation(convID)
	assert.Equal(t, 0, s.Conversation(convID).UnreadCount)

	// While focused, incoming messages do not accumulate.
	_, err = s.AddMessage(convID, domain.Message{SenderID: u2.ID, Content: "still here", Type: domain.MessageText})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Conversation(convID).UnreadCount)
}

func TestAddReaction(t *testing.T) {
	s, u1, u2, convID := newTestStore(t)
	msg, err := s.AddMessage(convID, domain.Message{SenderID: u2.ID, Content: "Copy that.", Type: domain.MessageText})
	require.NoError(t, err)

	t.Run("toggle is its own inverse", func(t *testing.T) {
		require.NoError(t, s.AddReaction(convID, msg.ID, "👍", u1.ID))
		got := s.Message(convID, msg.ID)
		require.NotNil(t, got)
		require.Contains(t, got.Reactions, "👍")
		assert.True(t, got.Reactions["👍"].Has(u1.ID))

		require.NoError(t, s.AddReaction(convID, msg.ID, "👍", u1.ID))
		got = s.Message(convID, msg.ID)
		require.NotNil(t, got)
		assert.NotContains(t, got.Reactions, "👍", "an emptied reaction set must be removed")
	})

	t.Run("same user at most once per emoji", func(t *testing.T) {
		require.NoError(t, s.AddReaction(convID, msg.ID, "🔥", u1.ID))
		require.NoError(t, s.AddReaction(convID, msg.ID, "🔥", u2.ID))
		got := s.Message(convID, msg.ID)
		require.NotNil(t, got)
		assert.Len(t, got.Reactions["🔥"], 2)
	})

	t.Run("missing conversation or message is a no-op", func(t *testing.T) {
		assert.NoError(t, s.AddReaction(uuid.New(), msg.ID, "👍", u1.ID))
		assert.NoError(t, s.AddReaction(convID, uuid.New(), "👍", u1.ID))
	})

	t.Run("malformed emoji rejected", func(t *testing.T) {
		err := s.AddReaction(convID, msg.ID, "", u1.ID)
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
		err = s.AddReaction(convID, msg.ID, "not an emoji", u1.ID)
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
	})
}

func TestUpdateProfile(t *testing.T) {
	s, u1, _, _ := newTestStore(t)

	name := "Commander Shepard"
	about := "Saving the galaxy"
	status := domain.PresenceCloaked
	receipts := false
	require.NoError(t, s.UpdateProfile(ProfileUpdate{
		DisplayName:         &name,
		About:               &about,
		Status:              &status,
		ReadReceiptsEnabled: &receipts,
	}))

	got := s.CurrentUser()
	require.NotNil(t, got)
	assert.Equal(t, name, got.DisplayName)
	assert.Equal(t, about, got.About)
	assert.Equal(t, status, got.Status)
	assert.False(t, got.ReadReceiptsEnabled)
	assert.Equal(t, u1.Username, got.Username)

	empty := ""
	err := s.UpdateProfile(ProfileUpdate{DisplayName: &empty})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	s.Logout()
	err = s.UpdateProfile(ProfileUpdate{About: &about})
	assert.ErrorIs(t, err, ErrNoCurrentUser)
}

func TestSessionLifecycle(t *testing.T) {
	s, _, _, convID := newTestStore(t)
	s.SetActiveConversation(convID)

	require.True(t, s.IsAuthenticated())

	s.Logout()
	assert.Nil(t, s.CurrentUser())
	assert.False(t, s.IsAuthenticated())
	_, ok := s.ActiveConversationID()
	assert.False(t, ok)
	// Conversations survive logout as cached local state.
	assert.NotEmpty(t, s.Conversations(""))

	u := testUser("liara_tsoni", "Dr. T'Soni")
	s.SetCurrentUser(&u)
	assert.True(t, s.IsAuthenticated())

	s.SetActiveConversation(convID)
	s.SetCurrentUser(nil)
	assert.False(t, s.IsAuthenticated())
	_, ok = s.ActiveConversationID()
	assert.False(t, ok, "clearing the user clears the active selection")
}

func TestConversationsFilter(t *testing.T) {
	s, u1, _, _ := newTestStore(t)

	wrex := testUser("urdnot_wrex", "Wrex")
	s.mu.Lock()
	s.conversations = append(s.conversations, &domain.Conversation{
		ID:           uuid.New(),
		Type:         domain.ConversationDirect,
		Participants: []domain.User{u1, wrex},
		IsAccepted:   true,
	})
	s.mu.Unlock()

	assert.Len(t, s.Conversations(""), 2)
	assert.Len(t, s.Conversations("garrus"), 1)
	assert.Len(t, s.Conversations("WREX"), 1)
	assert.Len(t, s.Conversations("tali"), 0)

	t.Run("own name never matches", func(t *testing.T) {
		// The filter searches the people you talk to, not yourself:
		// u1 appears in every conversation, so matching on u1 would
		// return everything.
		assert.Empty(t, s.Conversations("shepard"))
	})

	t.Run("matches display names only", func(t *testing.T) {
		assert.Empty(t, s.Conversations("urdnot_wrex"))
	})

	t.Run("self-chat has no one to match", func(t *testing.T) {
		_, err := s.StartSelfChat()
		require.NoError(t, err)
		assert.Empty(t, s.Conversations("shepard"))
		assert.Len(t, s.Conversations(""), 3)
	})
}

func TestEphemeralExpiry(t *testing.T) {
	s, u1, _, convID := newTestStore(t)

	base := time.Now()
	s.SetNowFunc(func() time.Time { return base })

	msg, err := s.AddMessage(convID, domain.Message{SenderID: u1.ID, Content: "burn after reading", Type: domain.MessageText, DestructAfter: 10})
	require.NoError(t, err)

	t.Run("not due yet", func(t *testing.T) {
		assert.False(t, s.ExpireMessage(convID, msg.ID, base.Add(9*time.Second)))
		assert.NotNil(t, s.Message(convID, msg.ID))
	})

	t.Run("expires at the deadline", func(t *testing.T) {
		assert.True(t, s.ExpireMessage(convID, msg.ID, base.Add(10*time.Second)))
		assert.Nil(t, s.Message(convID, msg.ID))

		conv := s.Conversation(convID)
		require.NotNil(t, conv)
		assert.Empty(t, conv.Messages)
		assert.Nil(t, conv.LastMessage)
	})

	t.Run("expiry is irreversible", func(t *testing.T) {
		// Reacting to the expired message is a benign no-op.
		assert.NoError(t, s.AddReaction(convID, msg.ID, "👍", u1.ID))
		assert.Nil(t, s.Message(convID, msg.ID))

		// The id can never re-enter the conversation.
		_, err := s.AddMessage(convID, domain.Message{ID: msg.ID, SenderID: u1.ID, Content: "resurrected", Type: domain.MessageText})
		assert.ErrorIs(t, err, ErrDuplicateMessageID)
	})

	t.Run("non-ephemeral messages never expire", func(t *testing.T) {
		plain, err := s.AddMessage(convID, domain.Message{SenderID: u1.ID, Content: "permanent", Type: domain.MessageText})
		require.NoError(t, err)
		assert.False(t, s.ExpireMessage(convID, plain.ID, base.Add(time.Hour)))
		assert.NotNil(t, s.Message(convID, plain.ID))
	})
}

func TestLastMessageRecomputedAfterExpiry(t *testing.T) {
	s, u1, _, convID := newTestStore(t)

	base := time.Now()
	s.SetNowFunc(func() time.Time { return base })

	keep, err := s.AddMessage(convID, domain.Message{SenderID: u1.ID, Content: "keep", Type: domain.MessageText, Timestamp: base})
	require.NoError(t, err)
	gone, err := s.AddMessage(convID, domain.Message{SenderID: u1.ID, Content: "gone", Type: domain.MessageText, Timestamp: base.Add(time.Second), DestructAfter: 5})
	require.NoError(t, err)

	require.True(t, s.ExpireMessage(convID, gone.ID, base.Add(10*time.Second)))

	conv := s.Conversation(convID)
	require.NotNil(t, conv)
	require.NotNil(t, conv.LastMessage)
	assert.Equal(t, keep.ID, conv.LastMessage.ID)
}
