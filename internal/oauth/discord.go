package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/randosoru/apiserver/config"
)

// DiscordClient handles the Discord authorization-code flow.
type DiscordClient struct {
	cfg    config.OauthProviderConfig
	client *http.Client
}

func NewDiscordClient(cfg config.OauthProviderConfig) *DiscordClient {
	return &DiscordClient{cfg: cfg, client: newHTTPClient()}
}

// Exchange trades an authorization code for the account profile.
func (c *DiscordClient) Exchange(ctx context.Context, code string) (Profile, error) {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.cfg.RedirectURL},
		"scope":         {"identify email connections"},
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := postForm(ctx, c.client, c.cfg.APIEndpoint+"/oauth2/token", form, &tokenResp); err != nil {
		return Profile{}, err
	}
	if tokenResp.AccessToken == "" {
		return Profile{}, fmt.Errorf("%w: discord rejected code", ErrExchangeFailed)
	}

	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	}
	if err := getBearer(ctx, c.client, c.cfg.APIEndpoint+"/users/@me", tokenResp.AccessToken, &me); err != nil {
		return Profile{}, err
	}
	if me.ID == "" {
		return Profile{}, fmt.Errorf("%w: discord profile missing id", ErrExchangeFailed)
	}

	return Profile{
		ExternalID: me.ID,
		Name:       me.Username,
		Avatar:     fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", me.ID, me.Avatar),
	}, nil
}
