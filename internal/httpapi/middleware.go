package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/auth"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

const (
	requestIDHeader = "X-Request-ID"
	slowRequest     = time.Second
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	identityKey
)

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		entry := h.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      status,
			"bytes":       ww.BytesWritten(),
			"duration_ms": elapsed.Milliseconds(),
			"request_id":  requestIDFrom(r.Context()),
			"remote":      r.RemoteAddr,
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Warn("request")
		case status >= http.StatusBadRequest:
			entry.Info("request")
		case elapsed > slowRequest:
			entry.Warn("slow request")
		default:
			entry.Debug("request")
		}
	})
}

func (h *handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.writeError(w, r, apperr.WrapKind("httpapi.recover", apperr.Internal, "", fmt.Errorf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the caller from the token header and stores the
// identity in the request context.
func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		who, err := h.svc.Auth.Resolve(r.Context(), h.token(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, who)))
	})
}

func (h *handler) token(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(h.tokenHeader)); t != "" {
		return t
	}
	if v := r.Header.Get("Authorization"); len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

func identityFrom(ctx context.Context) model.Identity {
	who, _ := ctx.Value(identityKey).(model.Identity)
	return who
}

// require rejects callers whose role does not grant perm.
func (h *handler) require(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.Require(identityFrom(r.Context()), perm); err != nil {
				h.writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit throttles a route per client address. Limiter failures let the
// request through.
func (h *handler) rateLimit(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := name + ":" + clientIP(r)
			d, err := h.svc.Limiter.Allow(r.Context(), key)
			if err != nil {
				h.log.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Round(time.Second).Seconds())))
				writeJSON(w, http.StatusTooManyRequests, envelope{Message: "Too many attempts, try again later", Error: "rate_limited"})
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
	return host
}
