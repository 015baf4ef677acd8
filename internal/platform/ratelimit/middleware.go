package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"referrals/pkg/platform/httputil"
	"referrals/pkg/platform/middleware/metadata"
	"referrals/pkg/requestcontext"
)

// Rule is a named budget of Limit requests per Window.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Limiter turns rules into HTTP middleware.
type Limiter struct {
	store    Store
	logger   *slog.Logger
	disabled bool
	rejected *prometheus.CounterVec
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithDisabled turns every rule into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(l *Limiter) {
		l.disabled = disabled
	}
}

// WithRegisterer counts rejections per rule on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(l *Limiter) {
		if reg == nil {
			return
		}
		l.rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "referrals_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"rule"})
		reg.MustRegister(l.rejected)
	}
}

// New builds a Limiter over store.
func New(store Store, logger *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{store: store, logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	if l.disabled {
		logger.Info("rate limiting disabled")
	}
	return l
}

// Middleware enforces rule per caller. Authenticated users are keyed by
// user id; everything else by client IP. Store failures let the request
// through.
func (l *Limiter) Middleware(rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.disabled || rule.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := callerKey(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := l.store.Allow(ctx, rule.Name+":"+key, rule.Limit, rule.Window)
			if err != nil {
				l.logger.ErrorContext(ctx, "rate limit check failed",
					"rule", rule.Name,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addHeaders(w, result)
			if !result.Allowed {
				if l.rejected != nil {
					l.rejected.WithLabelValues(rule.Name).Inc()
				}
				l.logger.WarnContext(ctx, "rate limit exceeded",
					"rule", rule.Name,
					"key", key,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request) string {
	ctx := r.Context()
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		return "user:" + userID.String()
	}
	if ip := metadata.GetClientIP(ctx); ip != "" {
		return "ip:" + ip
	}
	return ""
}

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

func addHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeExceeded(w http.ResponseWriter, result *Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &exceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
