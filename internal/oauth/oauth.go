// Package oauth talks to the third-party login providers. Each client
// exchanges an authorization code for an access token and fetches the
// account profile; failures are surfaced as ErrExchangeFailed and never
// retried, the caller restarts the login flow.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrExchangeFailed marks any upstream failure during code exchange or
// profile fetch.
var ErrExchangeFailed = errors.New("oauth exchange failed")

const requestTimeout = 10 * time.Second

// Profile is the provider-agnostic account info used for login upserts.
type Profile struct {
	// ExternalID is the platform-native account id.
	ExternalID string

	// Name is the display name on the platform.
	Name string

	// Avatar is a fetchable avatar image URL.
	Avatar string
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

func postForm(ctx context.Context, client *http.Client, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return doJSON(client, req, out)
}

func getBearer(ctx context.Context, client *http.Client, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return doJSON(client, req, out)
}

func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: invalid response", ErrExchangeFailed)
	}
	return nil
}
