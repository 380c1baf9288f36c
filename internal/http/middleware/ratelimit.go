package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/config"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

const rateWindow = time.Minute

// RateLimiter throttles callers by client IP. The general budget covers every
// request; public form endpoints (contact, reviews, external tickets) also
// draw from a smaller budget kept separately per endpoint.
type RateLimiter struct {
	enabled bool
	logger  *zap.Logger
	exempt  exemptions

	general func(http.Handler) http.Handler
	public  func(http.Handler) http.Handler
}

// exemptions lists callers and paths that bypass throttling. IP entries may
// be single addresses or CIDR ranges; path entries ending in "/*" match a prefix.
type exemptions struct {
	prefixes     []netip.Prefix
	paths        map[string]struct{}
	pathPrefixes []string
}

func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		enabled: cfg.Enabled,
		logger:  logger,
		exempt:  parseExemptions(cfg, logger),
	}

	rl.general = httprate.Limit(cfg.RequestsPerMinute, rateWindow,
		httprate.WithKeyFuncs(rl.keyByClient),
		httprate.WithLimitHandler(rl.reject),
	)
	rl.public = httprate.Limit(cfg.PublicSubmitPerMinute, rateWindow,
		httprate.WithKeyFuncs(rl.keyByClient, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(rl.reject),
	)

	logger.Info("rate limiter configured",
		zap.Bool("enabled", cfg.Enabled),
		zap.Int("requests_per_minute", cfg.RequestsPerMinute),
		zap.Int("public_submit_per_minute", cfg.PublicSubmitPerMinute),
		zap.Int("exempt_networks", len(rl.exempt.prefixes)),
	)
	return rl
}

func parseExemptions(cfg *config.RateLimitConfig, logger *zap.Logger) exemptions {
	ex := exemptions{paths: make(map[string]struct{})}

	for _, entry := range cfg.WhitelistIPs {
		entry = strings.TrimSpace(entry)
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			ex.prefixes = append(ex.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			logger.Warn("ignoring invalid rate limit whitelist entry", zap.String("entry", entry))
			continue
		}
		ex.prefixes = append(ex.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	for _, p := range cfg.WhitelistPaths {
		if strings.HasSuffix(p, "/*") {
			ex.pathPrefixes = append(ex.pathPrefixes, strings.TrimSuffix(p, "*"))
		} else {
			ex.paths[p] = struct{}{}
		}
	}
	return ex
}

func (ex exemptions) covers(r *http.Request) bool {
	if _, ok := ex.paths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range ex.pathPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}

	addr, err := netip.ParseAddr(clientIP(r))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range ex.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// LimitByIP applies the general per-client budget
func (rl *RateLimiter) LimitByIP(next http.Handler) http.Handler {
	return rl.guard(rl.general, next)
}

// LimitPublicSubmit applies the per-endpoint budget for unauthenticated forms
func (rl *RateLimiter) LimitPublicSubmit(next http.Handler) http.Handler {
	return rl.guard(rl.public, next)
}

func (rl *RateLimiter) guard(limit func(http.Handler) http.Handler, next http.Handler) http.Handler {
	if !rl.enabled {
		return next
	}
	limited := limit(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt.covers(r) {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) keyByClient(r *http.Request) (string, error) {
	return "ip:" + clientIP(r), nil
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiter) reject(w http.ResponseWriter, r *http.Request) {
	rl.logger.Warn("rate limit exceeded",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("client_ip", clientIP(r)),
		zap.String("request_id", RequestID(r.Context())),
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(domain.NewAPIError(
		http.StatusTooManyRequests, domain.ErrorTypeRateLimited, "Too many requests. Please try again later."))
}
