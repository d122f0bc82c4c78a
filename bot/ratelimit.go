package bot

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

const rateLimitWindow = 1 * time.Minute

// rateLimiter tracks interaction timestamps per user over a sliding
// window.
type rateLimiter struct {
	limit      int
	timestamps *xsync.MapOf[string, []time.Time]

	now func() time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:      limit,
		timestamps: xsync.NewMapOf[string, []time.Time](),
		now:        time.Now,
	}
}

// Allow prunes timestamps older than the window and checks the user
// against the limit. Exempt users are recorded but never rejected.
func (r *rateLimiter) Allow(userId string, exempt bool) bool {
	allowed := true
	r.timestamps.Compute(userId, func(old []time.Time, _ bool) ([]time.Time, bool) {
		now := r.now()
		recent := old[:0]
		for _, ts := range old {
			if now.Sub(ts) < rateLimitWindow {
				recent = append(recent, ts)
			}
		}
		if !exempt && len(recent) >= r.limit {
			allowed = false
			return recent, len(recent) == 0
		}
		return append(recent, now), false
	})
	return allowed
}
