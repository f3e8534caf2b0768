package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Значения по умолчанию для ограничителя запросов.
const (
	DefaultRPS   = 5
	DefaultBurst = 10
)

// limiterIdleTTL - сколько ограничитель живет без запросов, прежде чем его
// удалят из пула. За это время ведро успевает наполниться заново.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool хранит по ограничителю на ключ (пользователя или адрес).
// Простаивающие ключи вычищаются не чаще раза в idleTTL.
type limiterPool struct {
	mu        sync.Mutex
	m         map[string]*limiterEntry
	rps       float64
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	return &limiterPool{
		m:       make(map[string]*limiterEntry),
		rps:     rps,
		burst:   burst,
		idleTTL: limiterIdleTTL,
		now:     time.Now,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.lastSweep.IsZero() {
		p.lastSweep = now
	}
	if now.Sub(p.lastSweep) >= p.idleTTL {
		p.sweep(now)
	}

	if e, ok := p.m[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = &limiterEntry{limiter: l, lastSeen: now}
	return l
}

// sweep удаляет ключи без запросов дольше idleTTL. Вызывается под p.mu.
func (p *limiterPool) sweep(now time.Time) {
	evicted := 0
	for key, e := range p.m {
		if now.Sub(e.lastSeen) >= p.idleTTL {
			delete(p.m, key)
			evicted++
		}
	}
	p.lastSweep = now
	if evicted > 0 {
		zap.S().Debugf("[RateLimit] Удалено простаивающих ограничителей: %d, осталось: %d", evicted, len(p.m))
	}
}

// RateLimiter ограничивает частоту запросов на пользователя. Ставится после
// Authenticator; для анонимных запросов ключом служит адрес клиента.
// rps <= 0 или burst <= 0 заменяются значениями по умолчанию.
func RateLimiter(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		rps = DefaultRPS
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	pool := newLimiterPool(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := GetUserIDFromContext(r.Context())
			if !ok {
				key = clientIP(r)
			}
			if !pool.get(key).Allow() {
				zap.S().Warnf("[RateLimit] Превышен лимит запросов для %s (%s %s)", key, r.Method, r.URL.Path)
				http.Error(w, "Слишком много запросов", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return "ip:" + host
}
