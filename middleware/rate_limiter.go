package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/akivalo0017-dot/travelsite/utils"
)

// In-memory rate limiting with per-IP and per-user windows plus a login
// lockout tracker. The lockout prefers Redis when configured so multiple
// instances agree on the state.

type timestamps []int64 // unix nanos

func nowUnix() int64 { return time.Now().UnixNano() }

func getEnvDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if v := atoi(s); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return def
}

// IPRateLimiter implements per-IP fixed-window counters with optional
// trusted-proxy parsing of X-Forwarded-For.
type IPRateLimiter struct {
	maxReq      int
	window      time.Duration
	mu          sync.Mutex
	state       map[string]timestamps
	cleanupTick time.Duration
	trustedCIDR []string
}

func NewIPRateLimiter(maxReq int, window time.Duration) *IPRateLimiter {
	l := &IPRateLimiter{
		maxReq:      maxReq,
		window:      window,
		state:       make(map[string]timestamps),
		cleanupTick: getEnvDuration("RATE_CLEANUP_SECONDS", 60*time.Second),
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		l.trustedCIDR = strings.Split(v, ",")
	}
	go l.cleanupLoop()
	return l
}

// clientIPGeneric returns the client IP string. If trustedCIDR is provided,
// X-Forwarded-For / X-Real-IP headers are honored when remote addr is inside
// one of the trusted CIDRs or IPs.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, _ := net.SplitHostPort(r.RemoteAddr)
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
				if remoteIP != nil && ipnet.Contains(remoteIP) {
					trusted = true
					break
				}
			}
		} else if cidr == remoteHost {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	return remoteHost
}

func (l *IPRateLimiter) allow(key string) bool {
	now := nowUnix()
	cutoff := now - int64(l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	arr := l.state[key]
	var kept timestamps
	for _, ts := range arr {
		if ts >= cutoff {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.maxReq {
		l.state[key] = kept
		return false
	}
	l.state[key] = append(kept, now)
	return true
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIPGeneric(r, l.trustedCIDR)
		if !l.allow("ip:" + ip) {
			utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{Success: false, Message: "Too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *IPRateLimiter) cleanupLoop() {
	for range time.Tick(l.cleanupTick) {
		now := nowUnix()
		cutoff := now - int64(l.window)
		l.mu.Lock()
		for k, arr := range l.state {
			var kept timestamps
			for _, ts := range arr {
				if ts >= cutoff {
					kept = append(kept, ts)
				}
			}
			if len(kept) == 0 {
				delete(l.state, k)
			} else {
				l.state[k] = kept
			}
		}
		l.mu.Unlock()
	}
}

// UserRateLimiter applies separate read and write budgets per authenticated
// user within a fixed window. Unauthenticated requests fall back to the IP key.
type UserRateLimiter struct {
	maxRead  int
	maxWrite int
	window   time.Duration
	mu       sync.Mutex
	state    map[string]timestamps
}

func NewUserRateLimiter(maxReqRead, maxReqWrite, windowSec int) *UserRateLimiter {
	return &UserRateLimiter{
		maxRead:  maxReqRead,
		maxWrite: maxReqWrite,
		window:   time.Duration(windowSec) * time.Second,
		state:    make(map[string]timestamps),
	}
}

func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		max := l.maxRead
		kind := "r"
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			max = l.maxWrite
			kind = "w"
		}
		key := kind + ":ip:" + clientIPGeneric(r, nil)
		if uid, ok := utils.GetUserID(r); ok && uid != 0 {
			key = fmt.Sprintf("%s:u:%d", kind, uid)
		}

		now := nowUnix()
		cutoff := now - int64(l.window)
		l.mu.Lock()
		arr := l.state[key]
		var kept timestamps
		for _, ts := range arr {
			if ts >= cutoff {
				kept = append(kept, ts)
			}
		}
		over := len(kept) >= max
		if !over {
			kept = append(kept, now)
		}
		l.state[key] = kept
		l.mu.Unlock()

		if over {
			utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{Success: false, Message: "Too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Account lockout tracker for failed logins
var (
	loginMu   sync.Mutex
	failedMap = make(map[string]int)   // key = u:<id> -> failures
	lockMap   = make(map[string]int64) // key -> lockUntil unix nanos
)

func IsAccountLocked(userID uint) (bool, time.Duration) {
	// Prefer Redis-backed lock if available for cross-instance consistency.
	if utils.RedisClient != nil {
		lockKey := fmt.Sprintf("login:lock:u:%d", userID)
		ttl, err := utils.RedisClient.TTL(context.Background(), lockKey).Result()
		if err == nil && ttl > 0 {
			return true, ttl
		}
		return false, 0
	}
	loginMu.Lock()
	defer loginMu.Unlock()
	key := fmt.Sprintf("u:%d", userID)
	until := lockMap[key]
	if until == 0 {
		return false, 0
	}
	now := nowUnix()
	if until > now {
		return true, time.Duration(until - now)
	}
	delete(lockMap, key)
	failedMap[key] = 0
	return false, 0
}

func RecordFailedLogin(userID uint) {
	if utils.RedisClient != nil {
		ctx := context.Background()
		failKey := fmt.Sprintf("login:fail:u:%d", userID)
		lockKey := fmt.Sprintf("login:lock:u:%d", userID)
		failures, err := utils.RedisClient.Incr(ctx, failKey).Result()
		if err == nil {
			_, _ = utils.RedisClient.Expire(ctx, failKey, 30*time.Minute).Result()
			if d := lockoutDuration(int(failures)); d > 0 {
				_ = utils.RedisClient.Set(ctx, lockKey, "1", d).Err()
			}
			return
		}
		// Redis error: fall through to in-memory tracking.
	}
	loginMu.Lock()
	defer loginMu.Unlock()
	key := fmt.Sprintf("u:%d", userID)
	failedMap[key] = failedMap[key] + 1
	if d := lockoutDuration(failedMap[key]); d > 0 {
		lockMap[key] = nowUnix() + int64(d)
	}
}

// progressive lockout after repeated failures: 5 -> 1min, 7 -> 5min,
// 9 -> 15min, >=11 -> 30min
func lockoutDuration(failures int) time.Duration {
	switch {
	case failures < 5:
		return 0
	case failures < 7:
		return time.Minute
	case failures < 9:
		return 5 * time.Minute
	case failures < 11:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

func ResetFailedLogin(userID uint) {
	if utils.RedisClient != nil {
		failKey := fmt.Sprintf("login:fail:u:%d", userID)
		lockKey := fmt.Sprintf("login:lock:u:%d", userID)
		_, _ = utils.RedisClient.Del(context.Background(), failKey, lockKey).Result()
		return
	}
	loginMu.Lock()
	defer loginMu.Unlock()
	key := fmt.Sprintf("u:%d", userID)
	delete(lockMap, key)
	failedMap[key] = 0
}
