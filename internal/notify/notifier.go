package notify

import (
	"context"
	"sync"
	"time"

	"fetchbot/pkg/logger"
)

const editCallTimeout = 10 * time.Second

// Notifier serializes status-message edits per chat and spaces them at least
// minGap apart. Telegram caps message edits per chat per minute; a burst of
// queue-position updates sent naively would blow that cap and get the bot
// throttled. At most one unsent edit exists per (chat, message): a newer edit
// for the same message replaces the old text in place and resolves the
// superseded waiter.
type Notifier struct {
	minGap time.Duration

	mu    sync.Mutex
	chats map[int64]*chatQueue
}

type chatQueue struct {
	edits    []*pendingEdit
	lastSent time.Time
	draining bool
}

type pendingEdit struct {
	msgID int
	text  string
	done  chan struct{}
}

func New(minGap time.Duration) *Notifier {
	return &Notifier{
		minGap: minGap,
		chats:  make(map[int64]*chatQueue),
	}
}

// Schedule queues an edit for (chatID, msgID). The returned channel closes
// once the edit has been sent, superseded by a newer one, or canceled.
func (n *Notifier) Schedule(ch Channel, chatID int64, msgID int, text string) <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	cq := n.chats[chatID]
	if cq == nil {
		cq = &chatQueue{}
		n.chats[chatID] = cq
	}

	// Dedup: replace in place, keeping the entry's queue position.
	for _, e := range cq.edits {
		if e.msgID == msgID {
			close(e.done)
			e.text = text
			e.done = make(chan struct{})
			return e.done
		}
	}

	e := &pendingEdit{msgID: msgID, text: text, done: make(chan struct{})}
	cq.edits = append(cq.edits, e)

	if !cq.draining {
		cq.draining = true
		go n.drain(ch, chatID)
	}
	return e.done
}

// Cancel drops a not-yet-sent edit for (chatID, msgID) and resolves its
// waiter without sending. A no-op when nothing is queued for that message.
func (n *Notifier) Cancel(chatID int64, msgID int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	cq := n.chats[chatID]
	if cq == nil {
		return
	}
	for i, e := range cq.edits {
		if e.msgID == msgID {
			cq.edits = append(cq.edits[:i], cq.edits[i+1:]...)
			close(e.done)
			return
		}
	}
}

// drain runs while the chat's queue is non-empty; one per chat at a time.
// Independent chats never wait on each other.
func (n *Notifier) drain(ch Channel, chatID int64) {
	for {
		n.mu.Lock()
		cq := n.chats[chatID]
		if len(cq.edits) == 0 {
			cq.draining = false
			n.mu.Unlock()
			return
		}
		wait := n.minGap - time.Since(cq.lastSent)
		n.mu.Unlock()

		if wait > 0 {
			time.Sleep(wait)
		}

		n.mu.Lock()
		if len(cq.edits) == 0 {
			// Everything was canceled while we slept.
			cq.draining = false
			n.mu.Unlock()
			return
		}
		e := cq.edits[0]
		cq.edits = cq.edits[1:]
		n.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), editCallTimeout)
		if err := ch.EditText(ctx, chatID, e.msgID, e.text); err != nil {
			// Best-effort: a dropped status edit is not worth retrying.
			logger.Debug("Status edit failed", "chat", chatID, "msg", e.msgID, "error", err)
		}
		cancel()

		n.mu.Lock()
		cq.lastSent = time.Now()
		n.mu.Unlock()

		close(e.done)
	}
}
