package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/randosoru/apiserver/internal/identity"
	"github.com/randosoru/apiserver/internal/oauth"
	"github.com/randosoru/apiserver/internal/services"
	"github.com/randosoru/apiserver/internal/store"
)

type contextKey string

const contextUserIDKey contextKey = "user_id"

const (
	defaultPage = 1
	maxLimit    = 100
)

var formIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RequireAuth enforces the bearer credential and injects the resolved
// internal user id into the request context.
func RequireAuth(tokens *identity.Tokens, codec *identity.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			subject, err := tokens.Parse(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			userID, err := codec.Decode(subject)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextUserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userIDFromContext(ctx context.Context) (int, error) {
	userID, ok := ctx.Value(contextUserIDKey).(int)
	if !ok || userID < 1 {
		return 0, errors.New("missing subject")
	}
	return userID, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps service-level failures to HTTP statuses.
// Ownership failures arrive as store.ErrNotFound and stay 404.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, identity.ErrUnknownID):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrFormLocked):
		writeError(w, http.StatusForbidden, "form locked")
	case errors.Is(err, services.ErrBanned):
		writeError(w, http.StatusForbidden, "you have been banned")
	case errors.Is(err, services.ErrPrivacyBlocked):
		writeError(w, http.StatusForbidden, "user privacy blocked")
	case errors.Is(err, services.ErrConflict):
		writeError(w, http.StatusConflict, "user exists")
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, oauth.ErrExchangeFailed):
		writeError(w, http.StatusBadRequest, "oauth handle failed")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func parseFormID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "formID")
	if !formIDPattern.MatchString(raw) {
		return "", errors.New("invalid form id")
	}
	return strings.ToLower(raw), nil
}

func parseIntParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, errors.New("invalid " + name)
	}
	return value, nil
}

// parseDateQuery accepts a day ("2006-01-02", interpreted as UTC
// midnight) or a full RFC3339 timestamp; either way the filter selects
// the 24 hours starting there.
func parseDateQuery(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	return nil, errors.New("invalid " + name)
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = maxLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}
