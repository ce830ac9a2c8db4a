package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pdamit/events-api/internal/logic"
	"github.com/pdamit/events-api/internal/models"
)

type contextKey string

const (
	userKey   contextKey = "user"
	actorKey  contextKey = "actor"
	eventKey  contextKey = "event"
	entityKey contextKey = "entity"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]bool{
		"postgres": h.pg.Ping(ctx) == nil,
		"redis":    h.redis.Ping(ctx).Err() == nil,
	}

	allHealthy := true
	for _, ok := range checks {
		if !ok {
			allHealthy = false
			break
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, map[string]any{
		"ready":      allHealthy,
		"checks":     checks,
		"queueDepth": h.pool.QueueDepth(),
	})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// respondError maps service errors onto the wire: business failures carry
// their kind and message, infrastructure failures respond 500 with a generic
// message and a logged cause.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *logic.Error
	if errors.As(err, &appErr) && appErr.Kind != logic.KindInternal {
		h.jsonResponse(w, logic.HTTPStatus(appErr.Kind), map[string]string{
			"error": appErr.Message,
			"kind":  string(appErr.Kind),
		})
		return
	}
	h.logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	h.errorResponse(w, http.StatusInternalServerError, "internal server error")
}

// decode reads a JSON body into dst and runs struct validation.
func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodySize))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := h.validator.Struct(dst); err != nil {
		return err
	}
	return nil
}

func (h *Handler) badRequest(w http.ResponseWriter, err error) {
	h.errorResponse(w, http.StatusBadRequest, err.Error())
}

// pageHeaders writes the pagination trailer headers.
func pageHeaders(w http.ResponseWriter, total, page, pageSize int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	w.Header().Set("X-Page", strconv.Itoa(page))
	w.Header().Set("X-Page-Size", strconv.Itoa(pageSize))
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func queryBool(r *http.Request, key string) bool {
	switch r.URL.Query().Get(key) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func pathID(r *http.Request, param string) (int64, error) {
	raw := urlParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s %q", param, raw)
	}
	return id, nil
}

func userFrom(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

func actorFrom(r *http.Request) logic.Actor {
	a, _ := r.Context().Value(actorKey).(logic.Actor)
	return a
}

func eventFrom(r *http.Request) *models.Event {
	e, _ := r.Context().Value(eventKey).(*models.Event)
	return e
}
