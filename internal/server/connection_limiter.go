package server

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// LimitReason describes why a stream connection was rejected.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

const limiterCleanupInterval = 5 * time.Minute

// ConnectionLimits guards the WebSocket upgrade with three checks: a global
// cap on concurrent streams, a per-IP cap, and a per-IP token bucket on new
// connection attempts.
type ConnectionLimits struct {
	globalCurrent atomic.Int64
	globalMax     int64

	perIPMax int
	rateCfg  rate.Limit
	burst    int

	mu        sync.Mutex
	perIP     map[string]int
	buckets   map[string]*bucketEntry
	cleanupAt time.Time
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewConnectionLimits(globalMax int64, perIPMax int, connectionsPerSecond float64, burst int) *ConnectionLimits {
	return &ConnectionLimits{
		globalMax: globalMax,
		perIPMax:  perIPMax,
		rateCfg:   rate.Limit(connectionsPerSecond),
		burst:     burst,
		perIP:     make(map[string]int),
		buckets:   make(map[string]*bucketEntry),
		cleanupAt: time.Now().Add(limiterCleanupInterval),
	}
}

// Acquire claims a connection slot for the IP. On rejection the returned
// reason names the limit that was hit and no slot is held.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	if !l.allowRate(ip) {
		return false, LimitReasonRate
	}

	if !l.acquireGlobal() {
		return false, LimitReasonGlobal
	}

	if !l.acquirePerIP(ip) {
		l.globalCurrent.Add(-1)
		return false, LimitReasonPerIP
	}

	return true, ""
}

// Release frees the slot claimed by a successful Acquire.
func (l *ConnectionLimits) Release(ip string) {
	l.mu.Lock()
	if count := l.perIP[ip]; count > 1 {
		l.perIP[ip] = count - 1
	} else if count == 1 {
		delete(l.perIP, ip)
	}
	l.mu.Unlock()

	l.globalCurrent.Add(-1)
}

// Current returns the number of held connection slots.
func (l *ConnectionLimits) Current() int64 {
	return l.globalCurrent.Load()
}

func (l *ConnectionLimits) acquireGlobal() bool {
	for {
		current := l.globalCurrent.Load()
		if current >= l.globalMax {
			return false
		}
		if l.globalCurrent.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (l *ConnectionLimits) acquirePerIP(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.perIP[ip] >= l.perIPMax {
		return false
	}
	l.perIP[ip]++
	return true
}

func (l *ConnectionLimits) allowRate(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.cleanupAt) {
		cutoff := now.Add(-2 * limiterCleanupInterval)
		for key, entry := range l.buckets {
			if entry.lastSeen.Before(cutoff) {
				delete(l.buckets, key)
			}
		}
		l.cleanupAt = now.Add(limiterCleanupInterval)
	}

	entry, exists := l.buckets[ip]
	if !exists {
		entry = &bucketEntry{limiter: rate.NewLimiter(l.rateCfg, l.burst)}
		l.buckets[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}
