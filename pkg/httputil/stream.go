package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// BrowserHeaders is the realistic header set sent with every outbound media
// request. Several platforms serve different (or no) payloads to clients that
// do not look like a desktop browser.
var BrowserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// Stream opens a streaming GET against url and returns the body unread.
// The caller owns the returned ReadCloser.
func Stream(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("create request failed: %w", err)
	}

	for k, v := range BrowserHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := Client().Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, "", fmt.Errorf("http error: %s", resp.Status)
	}

	return resp.Body, resp.ContentLength, resp.Header.Get("Content-Type"), nil
}

// Get fetches url fully into memory, for small payloads like JSON APIs and
// embed pages.
func Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	body, _, _, err := Stream(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	return data, nil
}
