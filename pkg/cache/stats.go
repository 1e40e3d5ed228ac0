package cache

import (
	"sync/atomic"
	"time"
)

// Statistics tracks cache performance counters.
type Statistics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64
	size      atomic.Int64
	maxSize   atomic.Int64
	startTime time.Time
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

func (s *Statistics) updateSize(size int64) {
	s.size.Store(size)
	for {
		peak := s.maxSize.Load()
		if size <= peak || s.maxSize.CompareAndSwap(peak, size) {
			return
		}
	}
}

func (s *Statistics) Hits() int64      { return s.hits.Load() }
func (s *Statistics) Misses() int64    { return s.misses.Load() }
func (s *Statistics) Sets() int64      { return s.sets.Load() }
func (s *Statistics) Deletes() int64   { return s.deletes.Load() }
func (s *Statistics) Evictions() int64 { return s.evictions.Load() }

// CurrentSize returns the number of entries after the last mutation.
func (s *Statistics) CurrentSize() int64 { return s.size.Load() }

// MaxSize returns the peak number of entries observed.
func (s *Statistics) MaxSize() int64 { return s.maxSize.Load() }

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s *Statistics) HitRatio() float64 {
	hits := s.Hits()
	total := hits + s.Misses()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Uptime returns how long the statistics have been collected.
func (s *Statistics) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Summary is a point-in-time copy of the counters.
type Summary struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Sets      int64   `json:"sets"`
	Deletes   int64   `json:"deletes"`
	Evictions int64   `json:"evictions"`
	Size      int64   `json:"size"`
	MaxSize   int64   `json:"max_size"`
	HitRatio  float64 `json:"hit_ratio"`
}

// Summary returns a snapshot of the current counters.
func (s *Statistics) Summary() Summary {
	return Summary{
		Hits:      s.Hits(),
		Misses:    s.Misses(),
		Sets:      s.Sets(),
		Deletes:   s.Deletes(),
		Evictions: s.Evictions(),
		Size:      s.CurrentSize(),
		MaxSize:   s.MaxSize(),
		HitRatio:  s.HitRatio(),
	}
}
