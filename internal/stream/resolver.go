// Package stream turns extracted MediaInfo into a readable byte stream ready
// for delivery.
package stream

import (
	"context"
	"fmt"
	"io"

	"fetchbot/internal/provider"
	"fetchbot/pkg/httputil"
)

// Resolve returns the deliverable stream for info. A pre-built stream (from a
// provider that muxed its own tracks) passes through untouched, with no
// network call. Otherwise an HTTP stream is opened against the video URL
// first, then the image URL.
func Resolve(ctx context.Context, info *provider.MediaInfo) (io.ReadCloser, error) {
	if info.Stream != nil {
		return info.Stream, nil
	}

	url := info.VideoURL
	if url == "" {
		url = info.ImageURL
	}
	if url == "" {
		return nil, fmt.Errorf("%w: no stream or URL to resolve", provider.ErrDownloadFailed)
	}

	body, _, _, err := httputil.Stream(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrDownloadFailed, err)
	}
	return body, nil
}
