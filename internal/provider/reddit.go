package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fetchbot/internal/mux"
	"fetchbot/pkg/httputil"
	"fetchbot/pkg/logger"
)

var redditLinkRe = regexp.MustCompile(`https?://(?:www\.|old\.)?reddit\.com/r/[A-Za-z0-9_]+/comments/[a-z0-9]+[^\s]*`)

// RedditProvider handles reddit-hosted video and images. Reddit serves video
// DASH-style: the video rendition and the audio track are separate files, so
// posts with sound go through the muxer and come back as one stream.
type RedditProvider struct {
	muxer        *mux.Muxer
	maxHeight    int
	fetchTimeout time.Duration
}

func NewReddit(m *mux.Muxer, maxHeight int, fetchTimeout time.Duration) *RedditProvider {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &RedditProvider{muxer: m, maxHeight: maxHeight, fetchTimeout: fetchTimeout}
}

func (p *RedditProvider) Name() string {
	return "Reddit"
}

func (p *RedditProvider) Working() string {
	return "🎬 Fetching from Reddit..."
}

func (p *RedditProvider) Match(text string) []string {
	return redditLinkRe.FindStringSubmatch(text)
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	PostHint    string `json:"post_hint"`
	IsVideo     bool   `json:"is_video"`
	DestURL     string `json:"url_overridden_by_dest"`
	SecureMedia struct {
		RedditVideo *redditVideo `json:"reddit_video"`
	} `json:"secure_media"`
	Media struct {
		RedditVideo *redditVideo `json:"reddit_video"`
	} `json:"media"`
}

type redditVideo struct {
	FallbackURL string `json:"fallback_url"`
	Height      int    `json:"height"`
	HasAudio    bool   `json:"has_audio"`
}

func (p *RedditProvider) Fetch(ctx context.Context, match []string) (*MediaInfo, error) {
	if len(match) < 1 {
		return nil, fmt.Errorf("%w: no link captured", ErrFetchFailed)
	}
	jsonURL, err := redditJSONURL(match[0])
	if err != nil {
		return nil, fmt.Errorf("%w: bad link: %v", ErrFetchFailed, err)
	}

	// The timeout covers the metadata call only. Streams opened further down
	// must stay alive past Fetch, so they inherit the caller's context.
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	body, err := httputil.Get(fetchCtx, jsonURL, nil)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: post json: %v", ErrFetchFailed, err)
	}

	var listings []redditListing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("%w: decode post json: %v", ErrFetchFailed, err)
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, fmt.Errorf("%w: empty listing", ErrNotFound)
	}
	post := listings[0].Data.Children[0].Data

	video := post.SecureMedia.RedditVideo
	if video == nil {
		video = post.Media.RedditVideo
	}

	if video != nil && video.FallbackURL != "" {
		return p.fetchVideo(ctx, &post, video)
	}

	if isImageURL(post.DestURL) || post.PostHint == "image" {
		return &MediaInfo{
			Source:   p.Name(),
			ImageURL: post.DestURL,
			Author:   post.Author,
			Caption:  post.Title,
		}, nil
	}

	return nil, fmt.Errorf("%w: post carries no reddit-hosted media", ErrNotFound)
}

// redditJSONURL rebuilds a post link as its JSON endpoint. Share links carry
// tracking queries; appending ".json" to those would bury the suffix inside a
// query value, which makes reddit serve HTML instead.
func redditJSONURL(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/") + ".json"
	return u.String(), nil
}

func (p *RedditProvider) fetchVideo(ctx context.Context, post *redditPost, video *redditVideo) (*MediaInfo, error) {
	height := selectHeight(dashLadder(video.Height), p.maxHeight)
	if height == 0 {
		return nil, fmt.Errorf("%w: no rendition within %dp", ErrNotFound, p.maxHeight)
	}
	videoURL := rewriteDashHeight(video.FallbackURL, height)

	info := &MediaInfo{
		Source:  p.Name(),
		Author:  post.Author,
		Caption: post.Title,
	}

	// Without a separate audio track the rendition is already a complete
	// file, no muxing needed.
	if !video.HasAudio {
		info.VideoURL = videoURL
		return info, nil
	}

	videoStream, _, _, err := httputil.Stream(ctx, videoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: video track: %v", ErrDownloadFailed, err)
	}

	audioStream, err := p.openAudio(ctx, video.FallbackURL)
	if err != nil {
		// Audio advertised but gone upstream; deliver video-only rather
		// than failing the whole job.
		logger.Warn("Reddit audio track unavailable, sending silent video", "error", err)
		videoStream.Close()
		info.VideoURL = videoURL
		return info, nil
	}

	muxed, err := p.muxer.Mux(ctx, videoStream, audioStream)
	if err != nil {
		videoStream.Close()
		audioStream.Close()
		return nil, fmt.Errorf("%w: mux: %v", ErrDownloadFailed, err)
	}

	info.Stream = muxed
	return info, nil
}

// openAudio tries the known audio rendition names best first.
func (p *RedditProvider) openAudio(ctx context.Context, fallbackURL string) (io.ReadCloser, error) {
	var lastErr error
	for _, name := range []string{"DASH_AUDIO_128.mp4", "DASH_AUDIO_64.mp4", "DASH_audio.mp4"} {
		stream, _, _, err := httputil.Stream(ctx, rewriteDashName(fallbackURL, name), nil)
		if err == nil {
			return stream, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Rendition heights reddit actually produces.
var dashHeights = []int{1080, 720, 480, 360, 240, 220, 96}

// dashLadder returns the renditions available for a source of the given
// height, highest first.
func dashLadder(sourceHeight int) []int {
	if sourceHeight <= 0 {
		return dashHeights
	}
	var out []int
	for _, h := range dashHeights {
		if h <= sourceHeight {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		out = []int{sourceHeight}
	}
	return out
}

// selectHeight picks the highest rendition at or below the ceiling, or 0 when
// none qualifies. Renditions above the ceiling are never selected.
func selectHeight(available []int, ceiling int) int {
	best := 0
	for _, h := range available {
		if h <= ceiling && h > best {
			best = h
		}
	}
	return best
}

var dashNameRe = regexp.MustCompile(`DASH_\d+`)

func rewriteDashHeight(u string, height int) string {
	return dashNameRe.ReplaceAllString(u, "DASH_"+strconv.Itoa(height))
}

var dashFileRe = regexp.MustCompile(`DASH_[^/?]+`)

func rewriteDashName(u string, name string) string {
	return dashFileRe.ReplaceAllString(u, name)
}

func isImageURL(u string) bool {
	lower := strings.ToLower(u)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		if strings.HasSuffix(lower, ext) || strings.Contains(lower, ext+"?") {
			return true
		}
	}
	return false
}
