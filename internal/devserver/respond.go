package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopdesk/shopdesk/internal/domain"
	"github.com/shopdesk/shopdesk/internal/log"
)

// envelope mirrors the platform's response body.
type envelope struct {
	Data    interface{}  `json:"data,omitempty"`
	Message string       `json:"message,omitempty"`
	Options *listOptions `json:"options,omitempty"`
}

type listOptions struct {
	Pagination domain.Pagination `json:"pagination"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := log.Ctx(r.Context())
		logger.Warn().Err(err).Msg("response write failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, envelope{Message: msg})
}

func writeList(w http.ResponseWriter, r *http.Request, items interface{}, pag domain.Pagination) {
	writeJSON(w, r, http.StatusOK, envelope{Data: items, Options: &listOptions{Pagination: pag}})
}

// pageParams reads page and limit, falling back to defaultLimit.
func pageParams(r *http.Request, defaultLimit int) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > 500 {
		limit = 500
	}
	return page, limit
}
