// Package stats keeps process-lifetime delivery counters and reads system
// metrics for the /stats command.
package stats

import (
	"sync"
	"time"
)

var (
	globalStats *BotStats
	once        sync.Once
)

type BotStats struct {
	mu        sync.RWMutex
	StartTime time.Time

	TotalJobs     int64
	SuccessJobs   int64
	FailedJobs    int64
	VideoJobs     int64
	ImageJobs     int64
	PlatformStats map[string]int64
}

func Get() *BotStats {
	once.Do(func() {
		globalStats = &BotStats{
			StartTime:     time.Now(),
			PlatformStats: make(map[string]int64),
		}
	})
	return globalStats
}

func (s *BotStats) Record(platform string, video bool, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TotalJobs++
	if success {
		s.SuccessJobs++
		if video {
			s.VideoJobs++
		} else {
			s.ImageJobs++
		}
	} else {
		s.FailedJobs++
	}
	if platform != "" {
		s.PlatformStats[platform]++
	}
}

type Snapshot struct {
	Uptime    time.Duration
	Total     int64
	Success   int64
	Failed    int64
	Videos    int64
	Images    int64
	Platforms map[string]int64
}

func (s *BotStats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	platforms := make(map[string]int64, len(s.PlatformStats))
	for k, v := range s.PlatformStats {
		platforms[k] = v
	}
	return Snapshot{
		Uptime:    time.Since(s.StartTime),
		Total:     s.TotalJobs,
		Success:   s.SuccessJobs,
		Failed:    s.FailedJobs,
		Videos:    s.VideoJobs,
		Images:    s.ImageJobs,
		Platforms: platforms,
	}
}
