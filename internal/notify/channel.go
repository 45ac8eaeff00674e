// Package notify defines the narrow surface of the chat transport the
// pipeline talks to, and the rate limiter that keeps status edits under the
// transport's per-chat edit ceiling.
package notify

import (
	"context"
	"io"
)

// Channel is the outbound side of the chat transport. Edits and deletes are
// best-effort at every call site; their errors are logged, never propagated
// to whoever enqueued the job.
type Channel interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	EditText(ctx context.Context, chatID int64, msgID int, text string) error
	Delete(ctx context.Context, chatID int64, msgID int) error

	SendVideo(ctx context.Context, chatID int64, media io.Reader, filename, caption string) error
	SendPhoto(ctx context.Context, chatID int64, media io.Reader, filename, caption string) error
}
