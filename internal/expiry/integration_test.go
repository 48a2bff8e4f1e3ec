package expiry

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/commlink/internal/collab/memory"
	"github.com/vedran77/commlink/internal/domain"
	"github.com/vedran77/commlink/internal/store"
)

// TestEngineAgainstStore wires a real store to the engine through the
// tracker hook and walks a message through its whole ephemeral lifecycle.
func TestEngineAgainstStore(t *testing.T) {
	u := domain.User{ID: uuid.New(), Username: "commander_shep", DisplayName: "Cmdr. Shepard"}
	st := store.New(memory.NewDirectory(u), nil)
	st.SetCurrentUser(&u)

	base := time.Now()
	st.SetNowFunc(func() time.Time { return base })

	e := New(st, time.Second, nil)
	st.SetTracker(e)

	conv, err := st.StartSelfChat()
	require.NoError(t, err)

	msg, err := st.AddMessage(conv.ID, domain.Message{
		SenderID:      u.ID,
		Content:       "burn after reading",
		Type:          domain.MessageText,
		DestructAfter: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 1, e.Tracked(), "the store must hand ephemeral messages to the tracker")

	plain, err := st.AddMessage(conv.ID, domain.Message{
		SenderID: u.ID,
		Content:  "stays",
		Type:     domain.MessageText,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Tracked(), "plain messages are never tracked")

	// Before the deadline nothing happens.
	assert.Equal(t, 0, e.Sweep(base.Add(9*time.Second)))
	assert.NotNil(t, st.Message(conv.ID, msg.ID))

	// At the deadline the message becomes unretrievable, permanently.
	assert.Equal(t, 1, e.Sweep(base.Add(10*time.Second)))
	assert.Nil(t, st.Message(conv.ID, msg.ID))
	assert.Equal(t, 0, e.Tracked())

	got := st.Conversation(conv.ID)
	require.NotNil(t, got)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, plain.ID, got.Messages[0].ID)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, plain.ID, got.LastMessage.ID)

	// Later queries never see it again.
	assert.Nil(t, st.Message(conv.ID, msg.ID))
}
