package provider

import (
	"context"
	"io"
	"time"
)

// defaultFetchTimeout bounds a provider's metadata calls when no timeout is
// configured.
const defaultFetchTimeout = 30 * time.Second

// MediaInfo is the result of a successful extraction. At least one of
// VideoURL, ImageURL or Stream is set.
type MediaInfo struct {
	Source   string // platform name, for captions and stats
	VideoURL string // direct video URL, if the platform serves one file
	ImageURL string // direct image URL, for photo posts
	Author   string
	Caption  string

	// Stream is set instead of a URL when the provider had to multiplex
	// separate audio and video tracks itself. The consumer owns it.
	Stream io.ReadCloser
}

// HasVideo reports whether the result is delivered as a video.
func (m *MediaInfo) HasVideo() bool {
	return m.Stream != nil || m.VideoURL != ""
}

// Provider recognizes links of one platform and turns them into MediaInfo.
// Implementations are stateless: Match is a pure function of the text,
// Fetch only touches the network.
type Provider interface {
	Name() string

	// Working is the status line shown while a fetch is in flight.
	Working() string

	// Match scans free text for a supported link. It returns the capture
	// groups driving Fetch, or nil when the text contains no supported link.
	Match(text string) []string

	Fetch(ctx context.Context, match []string) (*MediaInfo, error)
}
