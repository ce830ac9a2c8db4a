package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdamit/events-api/internal/auth"
	"github.com/pdamit/events-api/internal/logic"
	"github.com/pdamit/events-api/internal/models"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pda_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pda_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// Metrics records request counts and latency per chi route pattern.
func (h *Handler) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	return strings.TrimPrefix(header, "Bearer ")
}

// ParticipantAuth verifies a participant session token and loads the user.
func (h *Handler) ParticipantAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.errorResponse(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := h.tokens.Parse(token)
		if err != nil || claims.UserType != auth.UserTypeParticipant || claims.QR != "" {
			h.errorResponse(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			h.errorResponse(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		user, err := h.identity.UserByID(r.Context(), userID)
		if err != nil {
			if logic.KindOf(err) == logic.KindNotFound {
				h.errorResponse(w, http.StatusUnauthorized, "unknown user")
				return
			}
			h.respondError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminAuth verifies an admin session token and loads the acting admin.
func (h *Handler) AdminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.errorResponse(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := h.tokens.Parse(token)
		if err != nil || claims.UserType != auth.UserTypeAdmin {
			h.errorResponse(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		adminID, err := claims.UserID()
		if err != nil {
			h.errorResponse(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		admin, err := h.identity.AdminByID(r.Context(), adminID)
		if err != nil {
			if logic.KindOf(err) == logic.KindNotFound {
				h.errorResponse(w, http.StatusUnauthorized, "unknown admin")
				return
			}
			h.respondError(w, r, err)
			return
		}
		actor := logic.Actor{
			AdminID: admin.ID,
			Regno:   admin.Regno,
			Name:    admin.Name,
			IsSuper: admin.IsSuper,
		}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// EventCtx resolves the {slug} route param into the event for participant
// and public surfaces.
func (h *Handler) EventCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event, err := h.events.BySlug(r.Context(), urlParam(r, "slug"))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), eventKey, event)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminEventCtx resolves {slug} and enforces the actor's event policy.
func (h *Handler) AdminEventCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event, err := h.events.BySlug(r.Context(), urlParam(r, "slug"))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		actor := actorFrom(r)
		allowed, err := h.identity.PolicyAllows(r.Context(), actor, event.ID)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		if !allowed {
			h.jsonResponse(w, http.StatusForbidden, map[string]string{
				"error": "not an admin of this event",
				"kind":  string(logic.KindPolicyDenied),
			})
			return
		}
		ctx := context.WithValue(r.Context(), eventKey, event)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// audited wraps an admin mutation so a successful call appends one audit row
// with the given action tag.
func (h *Handler) audited(action string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		if rec.status >= 400 {
			return
		}

		actor := actorFrom(r)
		entry := &models.EventLog{
			EventSlug:  urlParam(r, "slug"),
			AdminID:    actor.AdminID,
			AdminRegno: actor.Regno,
			AdminName:  actor.Name,
			Action:     action,
			Method:     r.Method,
			Path:       r.URL.Path,
		}
		if event := eventFrom(r); event != nil {
			entry.EventSlug = event.Slug
			id := event.ID
			entry.EventID = &id
		}
		if q := r.URL.RawQuery; q != "" {
			entry.Meta = map[string]any{"query": q}
		}
		if err := h.auditLog.Append(r.Context(), entry); err != nil {
			h.logger.Errorw("audit append failed", "action", action, "error", err)
		}
	}
}
