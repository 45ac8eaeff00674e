package httputil

import (
	"net/http"
	"sync"
	"time"
)

var (
	downloadClient *http.Client
	clientOnce     sync.Once
)

// Client returns the shared HTTP client used for provider calls and media
// downloads. Keep-alives stay enabled so bursty jobs reuse connections.
func Client() *http.Client {
	clientOnce.Do(func() {
		downloadClient = &http.Client{
			Timeout: 0, // streaming bodies outlive any sane total timeout
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   20,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
			},
		}
	})
	return downloadClient
}
