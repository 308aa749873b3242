package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type messageID struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the JSON error envelope. Internal errors are
// logged with their cause and shown to the caller as a generic message.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)
	entry := h.log.WithFields(logrus.Fields{
		"request_id": requestIDFrom(r.Context()),
		"kind":       kind.String(),
		"status":     status,
	}).WithError(err)

	env := envelope{Message: apperr.Message(err)}
	switch kind {
	case apperr.Internal:
		entry.Error("request failed")
	case apperr.Unavailable:
		entry.Warn("request failed")
		env.Error = kind.String()
	default:
		entry.Debug("request rejected")
		env.Error = kind.String()
	}
	writeJSON(w, status, env)
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.E("httpapi.decode", apperr.Validation, "Request body is required")
		}
		return apperr.WrapKind("httpapi.decode", apperr.Validation, "Invalid request body", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.E("httpapi.pathID", apperr.Validation, "Invalid id")
	}
	return id, nil
}

// pageFrom reads page and limit. Missing or malformed values fall back to
// the defaults.
func pageFrom(r *http.Request) model.Page {
	q := r.URL.Query()
	n, _ := strconv.Atoi(q.Get("page"))
	l, _ := strconv.Atoi(q.Get("limit"))
	return model.Page{Number: n, Limit: l}.Normalize()
}
