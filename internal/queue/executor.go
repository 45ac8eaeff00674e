package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fetchbot/internal/notify"
	"fetchbot/internal/provider"
	"fetchbot/internal/stats"
	"fetchbot/internal/stream"
	"fetchbot/pkg/logger"
)

// Executor drives one activated job end to end: provider fetch, stream
// resolution, delivery, status-message cleanup. Every failure path ends in an
// edited status line; the queue's launch wrapper handles slot release.
type Executor struct {
	notifier *notify.Notifier
	timeout  time.Duration
}

func NewExecutor(notifier *notify.Notifier, timeout time.Duration) *Executor {
	return &Executor{notifier: notifier, timeout: timeout}
}

func (e *Executor) Run(ctx context.Context, j *Job) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()

	info, err := j.Provider.Fetch(ctx, j.Match)
	if err != nil {
		logger.Warn("Fetch failed", "job", j.Tag, "provider", j.Provider.Name(), "error", err)
		e.fail(ctx, j, err)
		return
	}

	isVideo := info.HasVideo()
	e.edit(ctx, j, "⬇️ Downloading...")

	media, err := stream.Resolve(ctx, info)
	if err != nil {
		logger.Warn("Resolve failed", "job", j.Tag, "error", err)
		e.fail(ctx, j, err)
		return
	}
	defer media.Close()

	caption := buildCaption(info, j.URL)
	if isVideo {
		err = j.Ch.SendVideo(ctx, j.ChatID, media, deliveryFilename(info, j), caption)
	} else {
		err = j.Ch.SendPhoto(ctx, j.ChatID, media, deliveryFilename(info, j), caption)
	}
	if err != nil {
		logger.Error("Delivery failed", "job", j.Tag, "error", err)
		e.fail(ctx, j, fmt.Errorf("%w: delivery: %v", provider.ErrDownloadFailed, err))
		return
	}

	// The status message is about to go away; a stale throttled edit must
	// not race the deletion.
	e.notifier.Cancel(j.ChatID, j.StatusMsgID)
	if err := j.Ch.Delete(ctx, j.ChatID, j.StatusMsgID); err != nil {
		logger.Debug("Status delete failed", "job", j.Tag, "error", err)
	}

	stats.Get().Record(j.Provider.Name(), isVideo, true)
	logger.InfoWithDuration("Delivered", start, "job", j.Tag, "provider", j.Provider.Name())
}

func (e *Executor) fail(_ context.Context, j *Job, err error) {
	j.Status = StatusFailed
	e.notifier.Cancel(j.ChatID, j.StatusMsgID)

	// The job context may already be expired; the error line still has to
	// reach the user.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	e.edit(ctx, j, provider.UserMessage(err))
	stats.Get().Record(j.Provider.Name(), false, false)
}

// edit is a direct, best-effort status update outside the throttle: single
// transitions per job stay well under the edit ceiling.
func (e *Executor) edit(ctx context.Context, j *Job, text string) {
	if err := j.Ch.EditText(ctx, j.ChatID, j.StatusMsgID, text); err != nil {
		logger.Debug("Status edit failed", "job", j.Tag, "error", err)
	}
}

const maxCaptionLen = 800

func buildCaption(info *provider.MediaInfo, url string) string {
	var parts []string
	if info.Author != "" {
		parts = append(parts, "👤 "+info.Author)
	}
	if c := strings.TrimSpace(info.Caption); c != "" {
		if len(c) > maxCaptionLen {
			c = c[:maxCaptionLen-3] + "..."
		}
		parts = append(parts, c)
	}
	parts = append(parts, "🔗 "+url)
	return strings.Join(parts, "\n\n")
}

func deliveryFilename(info *provider.MediaInfo, j *Job) string {
	source := strings.ToLower(info.Source)
	if source == "" {
		source = "media"
	}
	if info.HasVideo() {
		return fmt.Sprintf("%s_%s.mp4", source, j.Tag)
	}
	return fmt.Sprintf("%s_%s.jpg", source, j.Tag)
}
