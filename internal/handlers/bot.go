package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/randosoru/apiserver/internal/services"
	"github.com/randosoru/apiserver/types"
)

const (
	minPlatformIDLength = 18
	maxPlatformIDLength = 40
	maxBotNameLength    = 40
	maxBotAvatarLength  = 140
)

// BotHandler is the facade trusted bots call on behalf of platform
// users. Callers authenticate with a shared secret in the X-Token
// header and name the acting user by platform + platform-native id.
type BotHandler struct {
	users   *services.UserService
	forms   *services.FormService
	records *services.RecordService

	tokens      []string
	tokenHashes []string
}

func NewBotHandler(users *services.UserService, forms *services.FormService, records *services.RecordService, tokens, tokenHashes []string) *BotHandler {
	return &BotHandler{
		users:       users,
		forms:       forms,
		records:     records,
		tokens:      tokens,
		tokenHashes: tokenHashes,
	}
}

// Router registers the bot routes behind the shared-secret check.
func (h *BotHandler) Router(r chi.Router) {
	r.Use(h.requireToken)
	r.Post("/register", h.Register)
	r.Post("/forms/create", h.CreateForm)
	r.Post("/forms/modify", h.ModifyForm)
	r.Post("/forms/{formID}/week/{week}/boss/{boss}", h.SubmitRecord)
}

// requireToken accepts the X-Token header against the configured
// plaintext tokens (constant-time) or bcrypt digests.
func (h *BotHandler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Token")
		if token == "" || !h.tokenAllowed(token) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *BotHandler) tokenAllowed(token string) bool {
	allowed := false
	for _, known := range h.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			allowed = true
		}
	}
	for _, hash := range h.tokenHashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil {
			allowed = true
		}
	}
	return allowed
}

func parsePlatformUser(r *http.Request) (platform int, externalID string, err error) {
	platform, err = strconv.Atoi(r.URL.Query().Get("platform"))
	if err != nil || platform < types.PlatformDiscord || platform > types.PlatformLine {
		return 0, "", errInvalidPlatform
	}
	externalID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	if len(externalID) < minPlatformIDLength || len(externalID) > maxPlatformIDLength {
		return 0, "", errInvalidPlatformID
	}
	return platform, externalID, nil
}

var (
	errInvalidPlatform   = &badRequestError{"invalid platform"}
	errInvalidPlatformID = &badRequestError{"invalid user_id"}
)

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

// resolveActor maps the platform identity in the query to the linked
// account. Unknown identities are 404; banned accounts are 403.
func (h *BotHandler) resolveActor(w http.ResponseWriter, r *http.Request) (types.OauthLink, types.User, bool) {
	platform, externalID, err := parsePlatformUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return types.OauthLink{}, types.User{}, false
	}
	link, user, err := h.users.ResolvePlatformUser(r.Context(), platform, externalID)
	if err != nil {
		writeServiceError(w, err, "failed to resolve user")
		return types.OauthLink{}, types.User{}, false
	}
	return link, user, true
}

// Register creates an account for a platform user that has no
// interactive login flow.
func (h *BotHandler) Register(w http.ResponseWriter, r *http.Request) {
	platform, externalID, err := parsePlatformUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" || len(name) > maxBotNameLength {
		writeError(w, http.StatusBadRequest, "invalid name")
		return
	}
	avatar := strings.TrimSpace(r.URL.Query().Get("avatar"))
	if len(avatar) > maxBotAvatarLength {
		writeError(w, http.StatusBadRequest, "invalid avatar")
		return
	}

	profile, err := h.users.RegisterBot(r.Context(), platform, externalID, name, avatar)
	if err != nil {
		writeServiceError(w, err, "failed to register user")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// CreateFormInput is the bot form-creation payload.
type CreateFormInput struct {
	Month       int    `json:"month"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *BotHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	link, user, ok := h.resolveActor(w, r)
	if !ok {
		return
	}

	var in CreateFormInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "missing form data")
		return
	}
	view, err := h.forms.Create(r.Context(), user.ID, in.Month, in.Title, in.Description)
	if err != nil {
		writeServiceError(w, err, "failed to create form")
		return
	}
	view.OwnerID = link.ExternalID
	writeJSON(w, http.StatusOK, view)
}

// ModifyFormInput is the bot form-modification payload: a form id plus
// the same patch the user-facing modify accepts.
type ModifyFormInput struct {
	ID string `json:"id"`
	services.FormPatch
}

func (h *BotHandler) ModifyForm(w http.ResponseWriter, r *http.Request) {
	link, user, ok := h.resolveActor(w, r)
	if !ok {
		return
	}

	var in ModifyFormInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "missing form data")
		return
	}
	if !formIDPattern.MatchString(in.ID) {
		writeError(w, http.StatusBadRequest, "invalid form id")
		return
	}

	view, err := h.forms.ModifyOwned(r.Context(), strings.ToLower(in.ID), user.ID, in.FormPatch)
	if err != nil {
		writeServiceError(w, err, "failed to modify form")
		return
	}
	view.OwnerID = link.ExternalID
	writeJSON(w, http.StatusOK, view)
}

func (h *BotHandler) SubmitRecord(w http.ResponseWriter, r *http.Request) {
	link, user, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	formID, err := parseFormID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	week, err := parseIntParam(r, "week")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	boss, err := parseIntParam(r, "boss")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var in services.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "missing record data")
		return
	}
	view, created, err := h.records.Submit(r.Context(), formID, week, boss, user.ID, in)
	if err != nil {
		writeServiceError(w, err, "failed to submit record")
		return
	}
	view.User.ID = link.ExternalID
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, view)
}
