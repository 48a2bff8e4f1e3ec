package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/commlink/internal/collab"
	"github.com/vedran77/commlink/internal/collab/memory"
	"github.com/vedran77/commlink/internal/compose"
	"github.com/vedran77/commlink/internal/config"
	"github.com/vedran77/commlink/internal/domain"
	"github.com/vedran77/commlink/internal/expiry"
	"github.com/vedran77/commlink/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	shepard := demoUser("commander_shep", "Cmdr. Shepard", "Spectre | Alliance Navy | N7")
	thane := demoUser("thane_krios", "Thane Krios", "Drell assassin")
	garrus := demoUser("garrus_v", "Garrus V.", "Calibrating...")

	directory := memory.NewDirectory(shepard, thane, garrus)
	files := memory.NewFileStore()

	st := store.New(directory, logger)
	engine := expiry.New(st, cfg.ExpiryPollInterval, logger)
	st.SetTracker(engine)
	composer := compose.New(st, files, cfg.UploadTimeout, logger)

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return demo(ctx, logger, st, composer, shepard, thane)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("demo failed", zap.Error(err))
	}
}

// demo walks the full conversation lifecycle: self-chat, contact request,
// accept, reply, reaction, and an ephemeral message expiring.
func demo(ctx context.Context, logger *zap.Logger, st *store.Store, composer *compose.Composer, shepard, thane domain.User) error {
	st.SetCurrentUser(&shepard)

	self, err := st.StartSelfChat()
	if err != nil {
		return err
	}
	if _, err := composer.SendText(self.ID, "Pick up thermal clips before the mission.", compose.SendOptions{}); err != nil {
		return err
	}
	logger.Info("self-chat ready", zap.String("conversation_id", self.ID.String()))

	req, err := st.SendRequest(ctx, "thane_krios", "Hello, assassin.")
	if err != nil {
		return err
	}
	logger.Info("contact request sent", zap.String("request_id", req.ID.String()))

	// The receiver's side of the handshake, on the same demo store.
	st.SetCurrentUser(&thane)
	if err := st.AcceptRequest(req.ID); err != nil {
		return err
	}
	logger.Info("contact request accepted")

	convs := st.Conversations("shepard")
	if len(convs) == 0 {
		return store.ErrConversationNotFound
	}
	conv := convs[0]

	reply, err := composer.SendText(conv.ID, "Commander. I was expecting you.", compose.SendOptions{
		ReplyToIDs: []uuid.UUID{conv.Messages[0].ID},
	})
	if err != nil {
		return err
	}

	st.SetCurrentUser(&shepard)
	if err := st.AddReaction(conv.ID, reply.ID, "👍", shepard.ID); err != nil {
		return err
	}

	if _, err := composer.SendFile(ctx, conv.ID, "Mission briefing attached.",
		[]byte("classified"), collab.FileMeta{Name: "briefing.txt", ContentType: "text/plain"},
		compose.SendOptions{}); err != nil {
		return err
	}

	ephemeral, err := composer.SendText(conv.ID, "This message will self-destruct.", compose.SendOptions{DestructAfter: 1})
	if err != nil {
		return err
	}
	logger.Info("ephemeral message sent", zap.String("message_id", ephemeral.ID.String()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
	}

	if st.Message(conv.ID, ephemeral.ID) == nil {
		logger.Info("ephemeral message expired")
	} else {
		logger.Warn("ephemeral message still visible; engine lagging")
	}
	return nil
}

func demoUser(username, displayName, about string) domain.User {
	return domain.User{
		ID:                  uuid.New(),
		Email:               username + "@example.com",
		EmailVerified:       true,
		Username:            username,
		DisplayName:         displayName,
		Status:              domain.PresenceActiveSignal,
		AccountStatus:       domain.AccountActive,
		About:               about,
		ReadReceiptsEnabled: true,
		CreatedAt:           time.Now(),
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err == nil {
		cfg.Level = lvl
	}
	return cfg.Build()
}
