package queue

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fetchbot/internal/notify"
	"fetchbot/internal/provider"
)

// fakeChannel records the transport calls a job produces.
type fakeChannel struct {
	mu       sync.Mutex
	texts    map[int]string // msgID -> latest edit text
	history  map[int][]string
	deleted  []int
	videos   []sentMedia
	photos   []sentMedia
	videoErr error
}

type sentMedia struct {
	filename string
	caption  string
	payload  []byte
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		texts:   make(map[int]string),
		history: make(map[int][]string),
	}
}

func (f *fakeChannel) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	return 1, nil
}

func (f *fakeChannel) EditText(ctx context.Context, chatID int64, msgID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts[msgID] = text
	f.history[msgID] = append(f.history[msgID], text)
	return nil
}

func (f *fakeChannel) Delete(ctx context.Context, chatID int64, msgID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, msgID)
	return nil
}

func (f *fakeChannel) SendVideo(ctx context.Context, chatID int64, media io.Reader, filename, caption string) error {
	if f.videoErr != nil {
		return f.videoErr
	}
	payload, _ := io.ReadAll(media)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos = append(f.videos, sentMedia{filename: filename, caption: caption, payload: payload})
	return nil
}

func (f *fakeChannel) SendPhoto(ctx context.Context, chatID int64, media io.Reader, filename, caption string) error {
	payload, _ := io.ReadAll(media)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, sentMedia{filename: filename, caption: caption, payload: payload})
	return nil
}

func (f *fakeChannel) lastText(msgID int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[msgID]
}

func (f *fakeChannel) editHistory(msgID int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.history[msgID]))
	copy(out, f.history[msgID])
	return out
}

type fakeProvider struct {
	name  string
	fetch func(ctx context.Context, match []string) (*provider.MediaInfo, error)
}

func (p *fakeProvider) Name() string    { return p.name }
func (p *fakeProvider) Working() string { return "⏬ Fetching from " + p.name + "..." }

func (p *fakeProvider) Match(text string) []string {
	if strings.Contains(text, strings.ToLower(p.name)) {
		return []string{text}
	}
	return nil
}

func (p *fakeProvider) Fetch(ctx context.Context, match []string) (*provider.MediaInfo, error) {
	if p.fetch != nil {
		return p.fetch(ctx, match)
	}
	return nil, provider.ErrNotFound
}

func testJob(p provider.Provider, ch notify.Channel, chatID int64, msgID int, requester string) *Job {
	return NewJob(p, []string{"https://example.com/x"}, "https://example.com/x", ch, chatID, msgID, requester)
}

func awaitAll(t *testing.T, timeout time.Duration, jobs ...*Job) {
	t.Helper()
	deadline := time.After(timeout)
	for _, j := range jobs {
		select {
		case <-j.Done():
		case <-deadline:
			t.Fatalf("job %s did not finish in time", j.Tag)
		}
	}
}

func TestQueueLimitsConcurrency(t *testing.T) {
	var mu sync.Mutex
	current, peak := 0, 0

	run := func(ctx context.Context, j *Job) {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		current--
		mu.Unlock()
	}

	q := New(2, notify.New(time.Millisecond), run)
	p := &fakeProvider{name: "Fake"}
	ch := newFakeChannel()

	jobs := make([]*Job, 6)
	for i := range jobs {
		jobs[i] = testJob(p, ch, 1, 100+i, "user")
		q.Enqueue(context.Background(), jobs[i])
	}
	awaitAll(t, 3*time.Second, jobs...)

	assert.LessOrEqual(t, peak, 2, "more jobs ran at once than the limit allows")
	active, pending := q.Counts()
	assert.Zero(t, active)
	assert.Zero(t, pending)
}

func TestQueueRunsInEnqueueOrder(t *testing.T) {
	var mu sync.Mutex
	var order []int64

	run := func(ctx context.Context, j *Job) {
		mu.Lock()
		order = append(order, j.ID)
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}

	q := New(1, notify.New(time.Millisecond), run)
	p := &fakeProvider{name: "Fake"}
	ch := newFakeChannel()

	jobs := make([]*Job, 5)
	for i := range jobs {
		jobs[i] = testJob(p, ch, 1, 100+i, "user")
		q.Enqueue(context.Background(), jobs[i])
	}
	awaitAll(t, 3*time.Second, jobs...)

	require.Len(t, order, 5)
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i], order[i-1], "parked jobs must be promoted strictly FIFO")
	}
}

func TestQueueFinishIsIdempotent(t *testing.T) {
	gate := make(chan struct{})
	var bRuns int32
	var mu sync.Mutex

	run := func(ctx context.Context, j *Job) {
		if j.StatusMsgID == 1 {
			<-gate
			return
		}
		mu.Lock()
		bRuns++
		mu.Unlock()
	}

	q := New(1, notify.New(time.Millisecond), run)
	p := &fakeProvider{name: "Fake"}
	ch := newFakeChannel()

	a := testJob(p, ch, 1, 1, "alice")
	b := testJob(p, ch, 2, 2, "bob")
	q.Enqueue(context.Background(), a)
	q.Enqueue(context.Background(), b)

	// Releasing A's slot early promotes B exactly once; the duplicate call
	// and the deferred call after the gate opens must both be no-ops.
	q.Finish(a)
	q.Finish(a)
	close(gate)

	awaitAll(t, 3*time.Second, a, b)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(1), bRuns)
	active, pending := q.Counts()
	assert.Zero(t, active)
	assert.Zero(t, pending)
}

func TestQueueRecoversFromPanickingRun(t *testing.T) {
	run := func(ctx context.Context, j *Job) {
		panic("boom")
	}

	q := New(1, notify.New(time.Millisecond), run)
	p := &fakeProvider{name: "Fake"}
	ch := newFakeChannel()

	a := testJob(p, ch, 1, 1, "alice")
	b := testJob(p, ch, 1, 2, "bob")
	q.Enqueue(context.Background(), a)
	q.Enqueue(context.Background(), b)

	awaitAll(t, 3*time.Second, a, b)
	assert.Equal(t, StatusFailed, a.Status)

	active, pending := q.Counts()
	assert.Zero(t, active)
	assert.Zero(t, pending)
}

// Four requests against a two-slot queue: the parked jobs report their
// positions, and every finish moves the survivors up.
func TestQueuePositionLifecycle(t *testing.T) {
	releaseA := make(chan struct{})
	releaseB := make(chan struct{})
	releaseC := make(chan struct{})

	run := func(ctx context.Context, j *Job) {
		switch j.Requester {
		case "alice":
			<-releaseA
		case "bob":
			<-releaseB
		case "carol":
			<-releaseC
		}
	}

	notifier := notify.New(5 * time.Millisecond)
	q := New(2, notifier, run)

	ig := &fakeProvider{name: "Instagram"}
	rd := &fakeProvider{name: "Reddit"}

	chC := newFakeChannel()
	chD := newFakeChannel()

	a := testJob(ig, newFakeChannel(), 1, 11, "alice")
	b := testJob(rd, newFakeChannel(), 2, 22, "bob")
	c := testJob(ig, chC, 3, 33, "carol")
	d := testJob(rd, chD, 4, 44, "dave")

	q.Enqueue(context.Background(), a)
	q.Enqueue(context.Background(), b)
	q.Enqueue(context.Background(), c)

	assert.Eventually(t, func() bool {
		return strings.HasPrefix(chC.lastText(33), "⏳ 2 jobs ahead")
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, chC.lastText(33), "alice — Instagram")
	assert.Contains(t, chC.lastText(33), "bob — Reddit")

	q.Enqueue(context.Background(), d)
	assert.Eventually(t, func() bool {
		return strings.HasPrefix(chD.lastText(44), "⏳ 3 jobs ahead")
	}, time.Second, 5*time.Millisecond)

	// A finishes: C takes the slot and switches to its working line, D is
	// now behind B and C only.
	close(releaseA)
	assert.Eventually(t, func() bool {
		return chC.lastText(33) == c.Provider.Working()
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return strings.HasPrefix(chD.lastText(44), "⏳ 2 jobs ahead")
	}, time.Second, 5*time.Millisecond)

	// B finishes: D is promoted straight to active.
	close(releaseB)
	assert.Eventually(t, func() bool {
		return chD.lastText(44) == d.Provider.Working()
	}, time.Second, 5*time.Millisecond)

	close(releaseC)
	awaitAll(t, 3*time.Second, a, b, c, d)
}

// A job admitted without waiting goes from the queued placeholder straight to
// its provider's working line.
func TestQueueImmediateActivationShowsWorkingLine(t *testing.T) {
	release := make(chan struct{})
	run := func(ctx context.Context, j *Job) { <-release }

	q := New(1, notify.New(time.Millisecond), run)
	p := &fakeProvider{name: "Instagram"}
	ch := newFakeChannel()

	j := testJob(p, ch, 1, 7, "alice")
	q.Enqueue(context.Background(), j)

	assert.Equal(t, p.Working(), ch.lastText(7))

	close(release)
	awaitAll(t, time.Second, j)
}

func TestPositionText(t *testing.T) {
	ig := &fakeProvider{name: "Instagram"}
	rd := &fakeProvider{name: "Reddit"}

	q := &Queue{limit: 2}
	q.active = []*Job{
		{Requester: "alice", Provider: ig},
	}
	q.pending = []*Job{
		{Requester: "bob", Provider: rd},
		{Requester: "carol", Provider: ig},
	}

	assert.Equal(t, "⏳ 1 job ahead: alice — Instagram", q.positionTextLocked(0))

	multi := q.positionTextLocked(1)
	assert.True(t, strings.HasPrefix(multi, "⏳ 2 jobs ahead:"))
	assert.Contains(t, multi, "• alice — Instagram")
	assert.Contains(t, multi, "• bob — Reddit")
	assert.NotContains(t, multi, "carol")
}
