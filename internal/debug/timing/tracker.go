package timing

import (
	"context"
	"sort"
	"sync"
	"time"
)

type timingKey struct{}

type TimingInfo struct {
	Operation string
	StartTime time.Time
}

// Stat aggregates the recorded durations of one operation.
type Stat struct {
	Operation string
	Count     int
	Total     time.Duration
	Average   time.Duration
	Max       time.Duration
}

// Tracker records durations per operation name. It is safe for concurrent use.
type Tracker struct {
	timings map[string][]time.Duration
	mu      sync.RWMutex
	enabled bool
}

func NewTracker() *Tracker {
	return &Tracker{
		timings: make(map[string][]time.Duration),
		enabled: true,
	}
}

func (tt *Tracker) StartTiming(operation string) context.Context {
	if !tt.isEnabled() {
		return context.Background()
	}

	return context.WithValue(context.Background(), timingKey{}, TimingInfo{
		Operation: operation,
		StartTime: time.Now(),
	})
}

func (tt *Tracker) EndTiming(ctx context.Context) {
	timingInfo, ok := ctx.Value(timingKey{}).(TimingInfo)
	if !ok {
		return
	}

	tt.Record(timingInfo.Operation, time.Since(timingInfo.StartTime))
}

func (tt *Tracker) Record(operation string, duration time.Duration) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if !tt.enabled {
		return
	}
	tt.timings[operation] = append(tt.timings[operation], duration)
}

func (tt *Tracker) isEnabled() bool {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return tt.enabled
}

func (tt *Tracker) GetTimings(operation string) []time.Duration {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	timings := tt.timings[operation]
	if timings == nil {
		return nil
	}

	result := make([]time.Duration, len(timings))
	copy(result, timings)
	return result
}

func (tt *Tracker) GetAverageTime(operation string) time.Duration {
	timings := tt.GetTimings(operation)
	if len(timings) == 0 {
		return 0
	}

	var total time.Duration
	for _, duration := range timings {
		total += duration
	}

	return total / time.Duration(len(timings))
}

// Summary returns one Stat per operation, sorted by operation name.
func (tt *Tracker) Summary() []Stat {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	stats := make([]Stat, 0, len(tt.timings))
	for operation, timings := range tt.timings {
		stat := Stat{Operation: operation, Count: len(timings)}
		for _, d := range timings {
			stat.Total += d
			if d > stat.Max {
				stat.Max = d
			}
		}
		if stat.Count > 0 {
			stat.Average = stat.Total / time.Duration(stat.Count)
		}
		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Operation < stats[j].Operation
	})
	return stats
}

func (tt *Tracker) SetEnabled(enabled bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.enabled = enabled
}

func (tt *Tracker) Reset(operation string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if operation == "" {
		tt.timings = make(map[string][]time.Duration)
	} else {
		delete(tt.timings, operation)
	}
}
