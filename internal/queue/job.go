package queue

import (
	"context"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"fetchbot/internal/notify"
	"fetchbot/internal/provider"
)

type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Job is one extraction request moving through the queue. The queue owns its
// lifecycle and slot accounting; nothing else mutates Status.
type Job struct {
	ID  int64  // monotonic, assigned at enqueue; the FIFO ordering key
	Tag string // short correlation tag for log lines

	Status   Status
	Provider provider.Provider
	Match    []string
	URL      string // original link, for user-facing captions

	Ch          notify.Channel
	ChatID      int64
	StatusMsgID int
	Requester   string

	EnqueuedAt time.Time

	ctx        context.Context
	done       chan struct{}
	finishOnce sync.Once
}

func NewJob(p provider.Provider, match []string, url string, ch notify.Channel, chatID int64, statusMsgID int, requester string) *Job {
	return &Job{
		Tag:         shortuuid.New()[:8],
		Status:      StatusPending,
		Provider:    p,
		Match:       match,
		URL:         url,
		Ch:          ch,
		ChatID:      chatID,
		StatusMsgID: statusMsgID,
		Requester:   requester,
		done:        make(chan struct{}),
	}
}

// Done closes when the job has fully finished, success or failure alike.
func (j *Job) Done() <-chan struct{} {
	return j.done
}
