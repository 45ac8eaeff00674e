package provider

import (
	"errors"
)

// Extraction failures collapse into four kinds. Everything shown to the user
// derives from these; providers wrap them with platform detail.
var (
	// ErrFetchFailed: upstream unreachable or its response unparseable.
	// Worth a manual retry.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrNotFound: upstream reachable but held no extractable media.
	ErrNotFound = errors.New("no media found")

	// ErrDownloadFailed: a resolved URL or muxed stream could not be read.
	ErrDownloadFailed = errors.New("download failed")

	// ErrSizeLimit: the media exceeds the deliverable size cap.
	ErrSizeLimit = errors.New("media too large")
)

// UserMessage maps an extraction error to the line shown in the status
// message. Unknown errors fall back to a generic failure text.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "❌ No media found at that link."
	case errors.Is(err, ErrSizeLimit):
		return "❌ That media is too large to deliver."
	case errors.Is(err, ErrDownloadFailed):
		return "❌ Download failed. The media may have expired."
	case errors.Is(err, ErrFetchFailed):
		return "❌ Could not reach the platform. Try again later."
	default:
		return "❌ Something went wrong."
	}
}
