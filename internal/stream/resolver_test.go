package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fetchbot/internal/provider"
)

func TestResolvePassesPrebuiltStreamThrough(t *testing.T) {
	pre := io.NopCloser(strings.NewReader("muxed"))
	info := &provider.MediaInfo{
		Stream:   pre,
		VideoURL: "https://should-not-be-fetched.example/v.mp4",
	}

	got, err := Resolve(context.Background(), info)
	require.NoError(t, err)
	assert.Equal(t, io.ReadCloser(pre), got, "a provider-built stream must pass through untouched")

	body, err := io.ReadAll(got)
	require.NoError(t, err)
	assert.Equal(t, "muxed", string(body))
}

func TestResolvePrefersVideoURL(t *testing.T) {
	var hits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		w.Write([]byte("media-bytes"))
	}))
	defer srv.Close()

	info := &provider.MediaInfo{
		VideoURL: srv.URL + "/video",
		ImageURL: srv.URL + "/image",
	}

	got, err := Resolve(context.Background(), info)
	require.NoError(t, err)
	defer got.Close()

	body, err := io.ReadAll(got)
	require.NoError(t, err)
	assert.Equal(t, []byte("media-bytes"), body)
	assert.Equal(t, []string{"/video"}, hits)
}

func TestResolveFallsBackToImageURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	got, err := Resolve(context.Background(), &provider.MediaInfo{ImageURL: srv.URL + "/image"})
	require.NoError(t, err)
	defer got.Close()

	body, _ := io.ReadAll(got)
	assert.Equal(t, []byte("jpeg-bytes"), body)
}

func TestResolveWithNothingToResolve(t *testing.T) {
	_, err := Resolve(context.Background(), &provider.MediaInfo{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrDownloadFailed))
}

func TestResolveUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := Resolve(context.Background(), &provider.MediaInfo{VideoURL: srv.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrDownloadFailed))
}
