// Package ratelimit enforces a per client query budget.
package ratelimit

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/time/rate"

	"github.com/opelnic/dockerdns/config"
	"github.com/opelnic/dockerdns/middleware"
)

type limiter struct {
	rl       *rate.Limiter
	lastSeen time.Time
}

// RateLimit type
type RateLimit struct {
	mu sync.Mutex

	limiters map[uint64]*limiter
	rate     int
}

// New return ratelimit
func New(cfg *config.Config) *RateLimit {
	return &RateLimit{
		limiters: make(map[uint64]*limiter),
		rate:     cfg.ClientRateLimit,
	}
}

// Name return middleware name
func (r *RateLimit) Name() string { return name }

// ServeDNS implements the Handle interface.
func (r *RateLimit) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	if r.rate == 0 || ch.Writer.Internal() {
		ch.Next(ctx)
		return
	}

	if !r.allow(ch.Writer.RemoteIP()) {
		// no reply to the client, udp floods are not worth an answer
		ch.Cancel()
		return
	}

	ch.Next(ctx)
}

func (r *RateLimit) allow(ip net.IP) bool {
	if ip == nil {
		return true
	}

	key := xxhash.Sum64(ip)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	l, ok := r.limiters[key]
	if !ok {
		if len(r.limiters) >= maxClients {
			r.sweep(now)
		}

		l = &limiter{
			rl: rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.rate)), r.rate),
		}
		r.limiters[key] = l
	}
	l.lastSeen = now

	return l.rl.Allow()
}

// sweep drops entries idle longer than a minute, callers hold the lock.
func (r *RateLimit) sweep(now time.Time) {
	for key, l := range r.limiters {
		if now.Sub(l.lastSeen) > time.Minute {
			delete(r.limiters, key)
		}
	}
}

const (
	name       = "ratelimit"
	maxClients = 100000
)
