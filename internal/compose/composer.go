// Package compose builds and submits messages on behalf of the session
// user. File sends block until the upload collaborator resolves, under a
// timeout, so a committed message never carries a dangling file reference.
package compose

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vedran77/commlink/internal/collab"
	"github.com/vedran77/commlink/internal/domain"
	"github.com/vedran77/commlink/internal/store"
	"github.com/vedran77/commlink/pkg/apperrors"
)

// DefaultUploadTimeout bounds how long a file send waits on the upload
// collaborator before aborting.
const DefaultUploadTimeout = 10 * time.Second

// SendOptions carries the optional message attributes.
type SendOptions struct {
	// ReplyToIDs quotes up to two earlier messages from the conversation.
	ReplyToIDs []uuid.UUID
	// DestructAfter, in seconds, makes the message ephemeral.
	DestructAfter int
}

type Composer struct {
	store         *store.Store
	files         collab.FileStore
	uploadTimeout time.Duration
	log           *zap.Logger
}

func New(st *store.Store, files collab.FileStore, uploadTimeout time.Duration, log *zap.Logger) *Composer {
	if uploadTimeout <= 0 {
		uploadTimeout = DefaultUploadTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{
		store:         st,
		files:         files,
		uploadTimeout: uploadTimeout,
		log:           log,
	}
}

// SendText composes a text message as the current user.
func (c *Composer) SendText(conversationID uuid.UUID, content string, opts SendOptions) (*domain.Message, error) {
	sender := c.store.CurrentUser()
	if sender == nil {
		return nil, store.ErrNoCurrentUser
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.InvalidInput("message content is required")
	}

	return c.store.AddMessage(conversationID, domain.Message{
		SenderID:      sender.ID,
		Content:       content,
		Type:          domain.MessageText,
		ReplyToIDs:    opts.ReplyToIDs,
		DestructAfter: opts.DestructAfter,
	})
}

// SendFile uploads the bytes through the file collaborator and commits the
// message only once the upload resolves. On failure or timeout nothing is
// appended and the caller gets a collaborator failure.
func (c *Composer) SendFile(ctx context.Context, conversationID uuid.UUID, caption string, data []byte, meta collab.FileMeta, opts SendOptions) (*domain.Message, error) {
	sender := c.store.CurrentUser()
	if sender == nil {
		return nil, store.ErrNoCurrentUser
	}
	if len(data) == 0 {
		return nil, apperrors.InvalidInput("file data is required")
	}
	if meta.Name == "" {
		return nil, apperrors.InvalidInput("file name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	url, err := c.files.Upload(ctx, data, meta)
	if err != nil {
		c.log.Warn("file upload failed",
			zap.String("conversation_id", conversationID.String()),
			zap.String("file_name", meta.Name),
			zap.Error(err))
		return nil, apperrors.CollaboratorFailure("uploading file", err)
	}

	msgType := domain.MessageFile
	if strings.HasPrefix(meta.ContentType, "image/") {
		msgType = domain.MessageImage
	}

	size := meta.Size
	if size == 0 {
		size = int64(len(data))
	}

	return c.store.AddMessage(conversationID, domain.Message{
		SenderID:      sender.ID,
		Content:       caption,
		Type:          msgType,
		FileURL:       url,
		FileName:      meta.Name,
		FileSize:      size,
		ReplyToIDs:    opts.ReplyToIDs,
		DestructAfter: opts.DestructAfter,
	})
}
