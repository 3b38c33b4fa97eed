package middleware

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/ileafrica/ilebot/core/logger"
	"github.com/ileafrica/ilebot/core/metrics"
	tghelpers "github.com/ileafrica/ilebot/core/telegram/helpers"
)

// RateLimitOptions configures the per-user token bucket.
type RateLimitOptions struct {
	// Interval is the refill period of one token.
	Interval time.Duration
	// Burst is the bucket size; values below 1 are treated as 1.
	Burst int
	// Exclude lists update kinds (see UpdateKind) that bypass the limiter.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// IdleTTL drops buckets of users not seen for this long. Zero means 10m.
	IdleTTL time.Duration
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// userLimiters keeps one token bucket per user.
type userLimiters struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	buckets   map[int64]*bucket
}

func newUserLimiters(opts RateLimitOptions) *userLimiters {
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	idle := opts.IdleTTL
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &userLimiters{
		every:   rate.Every(opts.Interval),
		burst:   burst,
		idle:    idle,
		buckets: make(map[int64]*bucket),
	}
}

func (l *userLimiters) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idle {
		for id, b := range l.buckets {
			if now.Sub(b.seen) > l.idle {
				delete(l.buckets, id)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[userID] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

func (l *userLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimitMiddleware drops updates from users who exceed their bucket.
// A zero Interval disables limiting.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	limiters := newUserLimiters(opts)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if limiters.allow(user.ID, time.Now()) {
				return next(c)
			}

			metrics.RecordRateLimited()
			logger.TG.LogAttrs(tghelpers.BuildContext(c), slog.LevelWarn, "rate limit",
				slog.String("event", "tg.rate_limit"),
				slog.String("kind", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
