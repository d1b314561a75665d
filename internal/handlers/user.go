package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/randosoru/apiserver/internal/services"
)

// UserHandler exposes account, profile and guild reads, plus the
// caller's own record history.
type UserHandler struct {
	users   *services.UserService
	guilds  *services.GuildService
	records *services.RecordService
}

func NewUserHandler(users *services.UserService, guilds *services.GuildService, records *services.RecordService) *UserHandler {
	return &UserHandler{users: users, guilds: guilds, records: records}
}

// Router registers the account routes. The "me" routes need the bearer
// credential; reads of other users are public and rely on the privacy
// level instead.
func (h *UserHandler) Router(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Get("/users/me", h.GetMe)
		r.Get("/users/me/records", h.ListMyRecords)
		r.Get("/profile/users/me", h.GetMyProfile)
	})
	r.Get("/users/{userID}", h.GetUser)
	r.Get("/profile/users/{userID}", h.GetProfile)
	r.Get("/guilds/{guildID}", h.GetGuild)
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	brief, err := h.users.Brief(r.Context(), userID, true)
	if err != nil {
		writeServiceError(w, err, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, brief)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	targetID, err := h.users.DecodeExternalID(chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err, "failed to load user")
		return
	}
	brief, err := h.users.Brief(r.Context(), targetID, false)
	if err != nil {
		writeServiceError(w, err, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, brief)
}

func (h *UserHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := h.users.Profile(r.Context(), userID, true)
	if err != nil {
		writeServiceError(w, err, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	targetID, err := h.users.DecodeExternalID(chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err, "failed to load profile")
		return
	}
	profile, err := h.users.Profile(r.Context(), targetID, false)
	if err != nil {
		writeServiceError(w, err, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// RecordPage is the paginated record-history payload.
type RecordPage struct {
	Page    int `json:"page"`
	Limit   int `json:"limit"`
	Total   int `json:"total"`
	Records any `json:"records"`
}

func (h *UserHandler) ListMyRecords(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	formID := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("form_id")))
	if formID != "" && !formIDPattern.MatchString(formID) {
		writeError(w, http.StatusBadRequest, "invalid form_id")
		return
	}
	modifiedAt, err := parseDateQuery(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	createdAt, err := parseDateQuery(r, "created_at")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, total, err := h.records.ListUser(r.Context(), userID, formID, modifiedAt, createdAt, limit, offset)
	if err != nil {
		writeServiceError(w, err, "failed to list records")
		return
	}
	writeJSON(w, http.StatusOK, RecordPage{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Records: records,
	})
}

func (h *UserHandler) GetGuild(w http.ResponseWriter, r *http.Request) {
	guildID, err := parseIntParam(r, "guildID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	guild, err := h.guilds.Get(r.Context(), guildID)
	if err != nil {
		writeServiceError(w, err, "failed to load guild")
		return
	}
	writeJSON(w, http.StatusOK, guild)
}
