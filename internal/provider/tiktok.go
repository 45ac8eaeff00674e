package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"fetchbot/pkg/httputil"
)

const (
	tikTokAPIURL = "https://www.tikwm.com/api/"
	tikTokOrigin = "https://tikwm.com"
)

var tikTokLinkRe = regexp.MustCompile(`https?://(?:www\.|vt\.|vm\.)?tiktok\.com/[^\s]+`)

type TikTokProvider struct {
	maxSize      int64
	fetchTimeout time.Duration
}

func NewTikTok(maxSize int64, fetchTimeout time.Duration) *TikTokProvider {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &TikTokProvider{maxSize: maxSize, fetchTimeout: fetchTimeout}
}

func (p *TikTokProvider) Name() string {
	return "TikTok"
}

func (p *TikTokProvider) Working() string {
	return "🎵 Fetching from TikTok..."
}

func (p *TikTokProvider) Match(text string) []string {
	return tikTokLinkRe.FindStringSubmatch(text)
}

type tikWMResponse struct {
	Code int       `json:"code"`
	Msg  string    `json:"msg"`
	Data tikWMData `json:"data"`
}

type tikWMData struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Play   string   `json:"play"`
	Images []string `json:"images"`
	Size   int64    `json:"size"`
	Author struct {
		UniqueID string `json:"unique_id"`
	} `json:"author"`
}

func (p *TikTokProvider) Fetch(ctx context.Context, match []string) (*MediaInfo, error) {
	if len(match) < 1 {
		return nil, fmt.Errorf("%w: no link captured", ErrFetchFailed)
	}

	resp, err := p.fetchData(ctx, match[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	info := &MediaInfo{
		Source:  p.Name(),
		Author:  resp.Data.Author.UniqueID,
		Caption: resp.Data.Title,
	}

	// Slide posts have no video; deliver the first image.
	if len(resp.Data.Images) > 0 {
		info.ImageURL = absoluteTikTokURL(resp.Data.Images[0])
		return info, nil
	}

	if resp.Data.Play == "" {
		return nil, fmt.Errorf("%w: response carries neither video nor images", ErrNotFound)
	}
	if p.maxSize > 0 && resp.Data.Size > p.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrSizeLimit, resp.Data.Size)
	}

	info.VideoURL = absoluteTikTokURL(resp.Data.Play)
	return info, nil
}

func (p *TikTokProvider) fetchData(ctx context.Context, link string) (*tikWMResponse, error) {
	payload, err := json.Marshal(map[string]string{"url": link})
	if err != nil {
		return nil, fmt.Errorf("marshal failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tikTokAPIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.Client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result tikWMResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("API error: %s", result.Msg)
	}
	return &result, nil
}

func absoluteTikTokURL(u string) string {
	if u == "" || strings.HasPrefix(u, "http") {
		return u
	}
	return tikTokOrigin + u
}
