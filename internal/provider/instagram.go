package provider

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"fetchbot/pkg/httputil"
	"fetchbot/pkg/logger"
)

const instagramOrigin = "https://www.instagram.com"

var instagramLinkRe = regexp.MustCompile(`https?://(?:www\.)?instagram\.com/(?:[A-Za-z0-9_.]+/)?(?:p|reel|reels|tv)/([A-Za-z0-9_-]+)`)

// InstagramProvider extracts media from public post/reel embed pages. The
// embed HTML carries a GraphQL payload as an escaped JSON string; how many
// times it is escaped depends on the rendering path, so extraction is tiered.
type InstagramProvider struct {
	fetchTimeout time.Duration
}

func NewInstagram(fetchTimeout time.Duration) *InstagramProvider {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &InstagramProvider{fetchTimeout: fetchTimeout}
}

func (p *InstagramProvider) Name() string {
	return "Instagram"
}

func (p *InstagramProvider) Working() string {
	return "📸 Fetching from Instagram..."
}

func (p *InstagramProvider) Match(text string) []string {
	return instagramLinkRe.FindStringSubmatch(text)
}

func (p *InstagramProvider) Fetch(ctx context.Context, match []string) (*MediaInfo, error) {
	if len(match) < 2 {
		return nil, fmt.Errorf("%w: no shortcode captured", ErrFetchFailed)
	}
	shortcode := match[1]

	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	embedURL := fmt.Sprintf("%s/p/%s/embed/captioned/", instagramOrigin, shortcode)
	page, err := httputil.Get(ctx, embedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: embed page: %v", ErrFetchFailed, err)
	}
	html := string(page)

	if media := extractGQLMedia(html); media != nil {
		info := &MediaInfo{
			Source:   p.Name(),
			VideoURL: normalizeMediaURL(media.VideoURL),
			ImageURL: normalizeMediaURL(media.DisplayURL),
			Author:   media.Owner.Username,
			Caption:  media.captionText(),
		}
		if info.VideoURL != "" || info.ImageURL != "" {
			return info, nil
		}
	}

	logger.Debug("Instagram JSON tiers failed, trying HTML fallbacks", "shortcode", shortcode)

	if info := extractFromMarkup(html); info != nil {
		info.Source = p.Name()
		return info, nil
	}

	return nil, fmt.Errorf("%w: post %s has no extractable media", ErrNotFound, shortcode)
}

// normalizeMediaURL cleans up a URL discovered inside escaped JSON or HTML:
// escaped slashes, unicode-escaped and entity-encoded ampersands,
// protocol-relative forms, and bare paths anchored to the platform origin.
func normalizeMediaURL(u string) string {
	if u == "" {
		return ""
	}
	u = strings.ReplaceAll(u, `\/`, "/")
	u = strings.ReplaceAll(u, `\u0026`, "&")
	u = strings.ReplaceAll(u, "&amp;", "&")
	switch {
	case strings.HasPrefix(u, "//"):
		u = "https:" + u
	case strings.HasPrefix(u, "/"):
		u = instagramOrigin + u
	}
	return u
}
