// Package quota guards calls to the generative-text service.
//
// A Guard never blocks: callers ask whether a call is allowed right now and
// take their fallback path when it is not.
package quota

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the answer to a single CheckAllowed call.
// Remaining counts are -1 when the corresponding limit is disabled.
type Decision struct {
	Allowed            bool
	RemainingPerMinute int
	RemainingPerDay    int
}

// Checker is the interface the classifier and blueprint generator consume.
type Checker interface {
	CheckAllowed() Decision
}

// Guard enforces a per-minute and a per-day call budget.
// A zero limit disables that budget. Safe for concurrent use.
type Guard struct {
	mu        sync.Mutex
	perMinute *rate.Limiter
	perDay    *rate.Limiter
	now       func() time.Time
}

// NewGuard creates a guard allowing perMinute calls per minute and perDay
// calls per day. Each budget starts full.
func NewGuard(perMinute, perDay int) *Guard {
	g := &Guard{now: time.Now}
	if perMinute > 0 {
		g.perMinute = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	if perDay > 0 {
		g.perDay = rate.NewLimiter(rate.Every(24*time.Hour/time.Duration(perDay)), perDay)
	}
	return g
}

// CheckAllowed consumes one token from each budget if both have one.
// When either budget is empty nothing is consumed.
func (g *Guard) CheckAllowed() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	minute := remaining(g.perMinute, now)
	day := remaining(g.perDay, now)

	if minute == 0 || day == 0 {
		return Decision{Allowed: false, RemainingPerMinute: minute, RemainingPerDay: day}
	}

	if g.perMinute != nil {
		g.perMinute.AllowN(now, 1)
		minute--
	}
	if g.perDay != nil {
		g.perDay.AllowN(now, 1)
		day--
	}
	return Decision{Allowed: true, RemainingPerMinute: minute, RemainingPerDay: day}
}

func remaining(l *rate.Limiter, now time.Time) int {
	if l == nil {
		return -1
	}
	n := int(l.TokensAt(now))
	if n < 0 {
		return 0
	}
	return n
}

// Unlimited always allows.
type Unlimited struct{}

func (Unlimited) CheckAllowed() Decision {
	return Decision{Allowed: true, RemainingPerMinute: -1, RemainingPerDay: -1}
}

// Deny never allows. Useful for offline runs and tests.
type Deny struct{}

func (Deny) CheckAllowed() Decision {
	return Decision{}
}
