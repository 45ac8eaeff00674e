// Package queue is the admission control for extraction jobs: at most N run
// at once, the rest park in FIFO order with their queue position kept current
// through the rate-limited notifier.
package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"fetchbot/internal/notify"
	"fetchbot/pkg/logger"
)

// RunFunc executes an activated job. The queue guarantees Finish is called
// after it returns, panics included.
type RunFunc func(ctx context.Context, j *Job)

type Queue struct {
	limit    int
	notifier *notify.Notifier
	run      RunFunc

	mu      sync.Mutex
	active  []*Job
	pending []*Job
	nextID  int64
}

func New(limit int, notifier *notify.Notifier, run RunFunc) *Queue {
	if limit < 1 {
		limit = 1
	}
	return &Queue{
		limit:    limit,
		notifier: notifier,
		run:      run,
	}
}

// Enqueue admits the job immediately when a slot is free, otherwise parks it
// and schedules a queue-position edit. The returned channel closes when the
// job has fully finished.
func (q *Queue) Enqueue(ctx context.Context, j *Job) <-chan struct{} {
	q.mu.Lock()
	q.nextID++
	j.ID = q.nextID
	j.ctx = ctx
	j.EnqueuedAt = time.Now()

	if len(q.active) < q.limit {
		q.activateLocked(j)
		q.mu.Unlock()
		logger.Info("Job activated", "job", j.Tag, "provider", j.Provider.Name())

		// Jobs that skip the wait switch straight to their working line.
		editCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := j.Ch.EditText(editCtx, j.ChatID, j.StatusMsgID, j.Provider.Working()); err != nil {
			logger.Debug("Activation edit failed", "job", j.Tag, "error", err)
		}
		cancel()

		q.launch(j)
		return j.done
	}

	q.pending = append(q.pending, j)
	text := q.positionTextLocked(len(q.pending) - 1)
	q.mu.Unlock()

	logger.Info("Job parked", "job", j.Tag, "provider", j.Provider.Name())
	q.notifier.Schedule(j.Ch, j.ChatID, j.StatusMsgID, text)
	return j.done
}

// Finish releases the job's slot and promotes the next parked job. Safe to
// call more than once; only the first call has effect.
func (q *Queue) Finish(j *Job) {
	j.finishOnce.Do(func() {
		q.finish(j)
	})
}

// Counts reports active and pending job counts, for the stats command.
func (q *Queue) Counts() (int, int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active), len(q.pending)
}

func (q *Queue) activateLocked(j *Job) {
	j.Status = StatusActive
	q.active = append(q.active, j)
}

// launch runs the job off the caller's goroutine. Finish is deferred first so
// it still runs when the executor panics.
func (q *Queue) launch(j *Job) {
	go func() {
		defer q.Finish(j)
		defer func() {
			if r := recover(); r != nil {
				j.Status = StatusFailed
				logger.Error("Job panicked", "job", j.Tag, "error", r, "stack", string(debug.Stack()))
			}
		}()
		q.run(j.ctx, j)
	}()
}

func (q *Queue) finish(j *Job) {
	q.mu.Lock()
	for i, a := range q.active {
		if a == j {
			q.active = append(q.active[:i], q.active[i+1:]...)
			break
		}
	}
	if j.Status == StatusActive {
		j.Status = StatusDone
	}

	var next *Job
	if len(q.pending) > 0 && len(q.active) < q.limit {
		next = q.pending[0]
		q.pending = q.pending[1:]
		q.activateLocked(next)
	}

	// Remaining parked jobs moved up a slot; refresh their displayed
	// positions. The notifier dedups, so storms of finishes stay cheap.
	type reposition struct {
		job  *Job
		text string
	}
	repositions := make([]reposition, 0, len(q.pending))
	for idx, pj := range q.pending {
		repositions = append(repositions, reposition{pj, q.positionTextLocked(idx)})
	}
	q.mu.Unlock()

	close(j.done)
	logger.InfoWithDuration("Job finished", j.EnqueuedAt, "job", j.Tag, "status", j.Status.String())

	if next != nil {
		// The promoted job no longer waits, so its parked-position edit
		// must not race the transition below.
		q.notifier.Cancel(next.ChatID, next.StatusMsgID)

		// A single transition does not need throttling.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := next.Ch.EditText(ctx, next.ChatID, next.StatusMsgID, next.Provider.Working()); err != nil {
			logger.Debug("Promotion edit failed", "job", next.Tag, "error", err)
		}
		cancel()

		logger.Info("Job promoted", "job", next.Tag, "provider", next.Provider.Name())
		q.launch(next)
	}

	for _, r := range repositions {
		q.notifier.Schedule(r.job.Ch, r.job.ChatID, r.job.StatusMsgID, r.text)
	}
}

// positionTextLocked renders the waiting line for the pending job at idx:
// every active job plus every earlier parked job is ahead of it.
func (q *Queue) positionTextLocked(idx int) string {
	ahead := make([]*Job, 0, len(q.active)+idx)
	ahead = append(ahead, q.active...)
	ahead = append(ahead, q.pending[:idx]...)

	if len(ahead) == 1 {
		return fmt.Sprintf("⏳ 1 job ahead: %s — %s", ahead[0].Requester, ahead[0].Provider.Name())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⏳ %d jobs ahead:", len(ahead))
	for _, a := range ahead {
		fmt.Fprintf(&b, "\n• %s — %s", a.Requester, a.Provider.Name())
	}
	return b.String()
}
