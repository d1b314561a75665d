package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/randosoru/apiserver/internal/identity"
	"github.com/randosoru/apiserver/internal/oauth"
	"github.com/randosoru/apiserver/internal/services"
	"github.com/randosoru/apiserver/types"
)

// OauthHandler exposes the login endpoints. Each one trades a provider
// credential for a profile, upserts the account, and mints a bearer
// token whose subject is the external user id.
type OauthHandler struct {
	users   *services.UserService
	tokens  *identity.Tokens
	discord *oauth.DiscordClient
	line    *oauth.LineClient
}

func NewOauthHandler(users *services.UserService, tokens *identity.Tokens, discord *oauth.DiscordClient, line *oauth.LineClient) *OauthHandler {
	return &OauthHandler{
		users:   users,
		tokens:  tokens,
		discord: discord,
		line:    line,
	}
}

// Router registers the oauth routes.
func (h *OauthHandler) Router(r chi.Router) {
	r.Post("/discord", h.LoginDiscord)
	r.Post("/line", h.LoginLine)
	r.Post("/line_liff", h.LoginLineLiff)
}

// LoginResponse is the payload returned on successful login.
type LoginResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

func (h *OauthHandler) LoginDiscord(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}

	profile, err := h.discord.Exchange(r.Context(), code)
	if err != nil {
		writeServiceError(w, err, "oauth handle failed")
		return
	}
	h.login(w, r, types.PlatformDiscord, profile)
}

func (h *OauthHandler) LoginLine(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}

	profile, err := h.line.Exchange(r.Context(), code)
	if err != nil {
		writeServiceError(w, err, "oauth handle failed")
		return
	}
	h.login(w, r, types.PlatformLine, profile)
}

// LoginLineLiff accepts an access token the LIFF client already holds
// instead of an authorization code.
func (h *OauthHandler) LoginLineLiff(w http.ResponseWriter, r *http.Request) {
	accessToken := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if accessToken == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	profile, err := h.line.ProfileByToken(r.Context(), accessToken)
	if err != nil {
		writeServiceError(w, err, "oauth handle failed")
		return
	}
	h.login(w, r, types.PlatformLine, profile)
}

func (h *OauthHandler) login(w http.ResponseWriter, r *http.Request, platform int, profile oauth.Profile) {
	user, err := h.users.LoginWithOauth(r.Context(), platform, profile)
	if err != nil {
		writeServiceError(w, err, "login failed")
		return
	}

	externalID := h.users.EncodeID(user.ID)
	token, err := h.tokens.Issue(externalID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{ID: externalID, Token: token})
}
