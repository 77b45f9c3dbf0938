package signal

import (
	"sync"
	"time"

	"github.com/dkeye/chatsync/internal/domain"
)

// RoomRateLimiter is a sliding window of send attempts per room.
// A zero limit allows everything.
type RoomRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.RoomName][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRoomRateLimiter(limit int, interval time.Duration) *RoomRateLimiter {
	return &RoomRateLimiter{
		history:  make(map[domain.RoomName][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *RoomRateLimiter) Allow(room domain.RoomName) bool {
	if rl == nil || rl.limit <= 0 || rl.interval <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[room]
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[room] = fresh
		return false
	}
	rl.history[room] = append(fresh, now)
	return true
}
