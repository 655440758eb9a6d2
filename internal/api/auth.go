package api

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/eek-site/eek-sub001/internal/config"

	"golang.org/x/time/rate"
)

// PermissionPurge gates the purge endpoint. Other admin endpoints accept
// any configured key.
const PermissionPurge = "admin:purge"

// AdminAuth provides API-key auth and per-key rate limiting for admin
// endpoints. Keys without an explicit permission list hold every
// permission.
type AdminAuth struct {
	cfg      config.AdminConfig
	keys     map[string]config.AdminAPIKey
	limiters sync.Map // map[string]*rate.Limiter
}

func NewAdminAuth(cfg config.AdminConfig) *AdminAuth {
	m := make(map[string]config.AdminAPIKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		m[k.Key] = k
	}
	return &AdminAuth{cfg: cfg, keys: m}
}

// Require wraps a handler with key, permission and rate-limit checks.
func (a *AdminAuth) Require(permission string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := a.checkKey(r, permission)
		if err != nil {
			status := http.StatusForbidden
			if key == "" {
				status = http.StatusUnauthorized
			}
			writeError(w, status, err.Error())
			return
		}

		if err := a.checkRateLimit(r, key); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next(w, r)
	}
}

func (a *AdminAuth) checkKey(r *http.Request, permission string) (string, error) {
	header := strings.TrimSpace(strings.ToLower(a.cfg.HeaderAPIKey))
	if header == "" {
		header = "x-api-key"
	}

	apiKey := strings.TrimSpace(r.Header.Get(header))
	if apiKey == "" {
		return "", fmt.Errorf("missing api key")
	}

	client, ok := a.keys[apiKey]
	if !ok {
		return "", fmt.Errorf("invalid api key")
	}

	if permission == "" || len(client.Permissions) == 0 {
		return apiKey, nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == permission {
			return apiKey, nil
		}
	}
	return apiKey, fmt.Errorf("permission denied")
}

func (a *AdminAuth) checkRateLimit(r *http.Request, key string) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}
	if key == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			key = host
		} else {
			key = "unknown"
		}
	}
	if !a.getLimiter(key).Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *AdminAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
