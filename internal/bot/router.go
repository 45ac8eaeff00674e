package bot

import (
	"context"
	"strings"

	"github.com/gotd/td/tg"

	"fetchbot/internal/provider"
	"fetchbot/internal/queue"
	"fetchbot/internal/telegram"
	"fetchbot/pkg/logger"
)

type Router struct {
	ch *telegram.Channel
	q  *queue.Queue
}

func NewRouter(ch *telegram.Channel, q *queue.Queue) *Router {
	return &Router{ch: ch, q: q}
}

func (r *Router) OnMessage(ctx context.Context, e tg.Entities, update *tg.UpdateNewMessage) error {
	msg, ok := update.Message.(*tg.Message)
	if !ok {
		return nil
	}
	return r.HandleMessage(ctx, e, msg)
}

func (r *Router) OnChannelMessage(ctx context.Context, e tg.Entities, update *tg.UpdateNewChannelMessage) error {
	msg, ok := update.Message.(*tg.Message)
	if !ok {
		return nil
	}
	return r.HandleMessage(ctx, e, msg)
}

func (r *Router) HandleMessage(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	if msg.Out {
		return nil
	}

	text := msg.Message
	if strings.HasPrefix(text, "/") {
		// Strip the @botname suffix groups attach to commands.
		parts := strings.Fields(text)
		if len(parts) > 0 {
			cmd := parts[0]
			if idx := strings.Index(cmd, "@"); idx != -1 {
				text = cmd[:idx] + text[len(cmd):]
			}
		}
	}

	peer, err := resolvePeer(msg.PeerID, e)
	if err != nil {
		return err
	}
	chatID := peerID(msg.PeerID)
	r.ch.Remember(chatID, peer)

	switch {
	case strings.HasPrefix(text, "/start"), strings.HasPrefix(text, "/help"):
		_, err := r.ch.SendText(ctx, chatID, startText())
		return err
	case strings.HasPrefix(text, "/stats"):
		return r.handleStats(ctx, chatID)
	}

	p, match := provider.Detect(text)
	if p == nil {
		return nil
	}

	requester := requesterName(e, msg)
	logger.Info("Link detected", "provider", p.Name(), "requester", requester)

	statusMsgID, err := r.ch.SendText(ctx, chatID, queuedText())
	if err != nil {
		return err
	}

	job := queue.NewJob(p, match, match[0], r.ch, chatID, statusMsgID, requester)
	r.q.Enqueue(ctx, job)
	return nil
}

func (r *Router) handleStats(ctx context.Context, chatID int64) error {
	active, pending := r.q.Counts()
	_, err := r.ch.SendText(ctx, chatID, statsText(active, pending))
	return err
}
