package telegram

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
)

// Channel adapts the MTProto client to the notification-channel surface the
// pipeline consumes. MTProto needs a full InputPeer (id plus access hash) for
// every call, so peers are remembered as updates come in and looked up by
// bare chat id afterwards.
type Channel struct {
	api    *tg.Client
	sender *message.Sender
	upload *uploader.Uploader

	mu    sync.RWMutex
	peers map[int64]tg.InputPeerClass
}

func NewChannel(api *tg.Client) *Channel {
	return &Channel{
		api:    api,
		sender: message.NewSender(api),
		upload: uploader.NewUploader(api),
		peers:  make(map[int64]tg.InputPeerClass),
	}
}

// Remember stores the resolved peer for a chat id, overwriting any older
// entry (access hashes can rotate).
func (c *Channel) Remember(chatID int64, peer tg.InputPeerClass) {
	c.mu.Lock()
	c.peers[chatID] = peer
	c.mu.Unlock()
}

func (c *Channel) peer(chatID int64) (tg.InputPeerClass, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	peer, ok := c.peers[chatID]
	if !ok {
		return nil, fmt.Errorf("no known peer for chat %d", chatID)
	}
	return peer, nil
}

func (c *Channel) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	peer, err := c.peer(chatID)
	if err != nil {
		return 0, err
	}
	updates, err := c.sender.To(peer).Text(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("send message failed: %w", err)
	}
	return msgIDFromUpdates(updates), nil
}

func (c *Channel) EditText(ctx context.Context, chatID int64, msgID int, text string) error {
	peer, err := c.peer(chatID)
	if err != nil {
		return err
	}
	if _, err := c.sender.To(peer).Edit(msgID).Text(ctx, text); err != nil {
		return fmt.Errorf("edit message %d failed: %w", msgID, err)
	}
	return nil
}

func (c *Channel) Delete(ctx context.Context, chatID int64, msgID int) error {
	if _, err := c.api.MessagesDeleteMessages(ctx, &tg.MessagesDeleteMessagesRequest{
		ID:     []int{msgID},
		Revoke: true,
	}); err != nil {
		return fmt.Errorf("delete message %d failed: %w", msgID, err)
	}
	return nil
}

func (c *Channel) SendVideo(ctx context.Context, chatID int64, media io.Reader, filename, caption string) error {
	peer, err := c.peer(chatID)
	if err != nil {
		return err
	}

	file, err := c.upload.FromReader(ctx, filename, media)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	doc := message.UploadedDocument(file, styling.Plain(caption)).
		MIME("video/mp4").
		Filename(filename).
		Attributes(&tg.DocumentAttributeVideo{
			SupportsStreaming: true,
		})

	if _, err := c.sender.To(peer).Media(ctx, doc); err != nil {
		return fmt.Errorf("send video failed: %w", err)
	}
	return nil
}

func (c *Channel) SendPhoto(ctx context.Context, chatID int64, media io.Reader, filename, caption string) error {
	peer, err := c.peer(chatID)
	if err != nil {
		return err
	}

	file, err := c.upload.FromReader(ctx, filename, media)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	photo := message.UploadedPhoto(file, styling.Plain(caption))
	if _, err := c.sender.To(peer).Media(ctx, photo); err != nil {
		return fmt.Errorf("send photo failed: %w", err)
	}
	return nil
}

func msgIDFromUpdates(updates tg.UpdatesClass) int {
	switch u := updates.(type) {
	case *tg.UpdateShortSentMessage:
		return u.ID
	case *tg.Updates:
		for _, update := range u.Updates {
			if msg, ok := update.(*tg.UpdateNewMessage); ok {
				if m, ok := msg.Message.(*tg.Message); ok {
					return m.ID
				}
			}
			if msg, ok := update.(*tg.UpdateNewChannelMessage); ok {
				if m, ok := msg.Message.(*tg.Message); ok {
					return m.ID
				}
			}
		}
	}
	return 0
}
