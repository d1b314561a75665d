package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/randosoru/apiserver/config"
)

// LineClient handles the Line authorization-code flow and the LIFF
// access-token variant.
type LineClient struct {
	cfg    config.OauthProviderConfig
	client *http.Client
}

func NewLineClient(cfg config.OauthProviderConfig) *LineClient {
	return &LineClient{cfg: cfg, client: newHTTPClient()}
}

// Exchange trades an authorization code for the account profile.
func (c *LineClient) Exchange(ctx context.Context, code string) (Profile, error) {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.cfg.RedirectURL},
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := postForm(ctx, c.client, c.cfg.APIEndpoint+"/oauth/accessToken", form, &tokenResp); err != nil {
		return Profile{}, err
	}
	if tokenResp.AccessToken == "" {
		return Profile{}, fmt.Errorf("%w: line rejected code", ErrExchangeFailed)
	}

	return c.ProfileByToken(ctx, tokenResp.AccessToken)
}

// ProfileByToken fetches the profile for an access token issued
// elsewhere (the LIFF login hands the token straight to the client).
func (c *LineClient) ProfileByToken(ctx context.Context, accessToken string) (Profile, error) {
	var profile struct {
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
		PictureURL  string `json:"pictureUrl"`
	}
	if err := getBearer(ctx, c.client, c.cfg.APIEndpoint+"/v2/profile", accessToken, &profile); err != nil {
		return Profile{}, err
	}
	if profile.UserID == "" {
		return Profile{}, fmt.Errorf("%w: line profile missing id", ErrExchangeFailed)
	}

	return Profile{
		ExternalID: profile.UserID,
		Name:       profile.DisplayName,
		Avatar:     profile.PictureURL + ".png",
	}, nil
}
