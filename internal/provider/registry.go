package provider

import (
	"sync"
)

// Providers are tried in registration order; the first whose Match succeeds
// handles the link exclusively. Order is therefore priority.
var (
	registry = make([]Provider, 0)
	mu       sync.RWMutex
)

func Register(p Provider) {
	mu.Lock()
	defer mu.Unlock()
	registry = append(registry, p)
}

// Detect returns the first provider matching the text along with its capture
// result, or nil when no provider recognizes the text.
func Detect(text string) (Provider, []string) {
	mu.RLock()
	defer mu.RUnlock()

	for _, p := range registry {
		if m := p.Match(text); m != nil {
			return p, m
		}
	}
	return nil, nil
}

// Reset drops all registered providers. Test helper.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = registry[:0]
}
