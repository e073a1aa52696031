package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/stravadash/internal/config"
	"git.home.luguber.info/inful/stravadash/internal/logfields"
)

const (
	defaultAuthURL       = "https://www.strava.com/oauth/token"
	defaultActivitiesURL = "https://www.strava.com/api/v3/athlete/activities"

	activitiesPerPage = 100
	maxResponseBytes  = 10 * 1024 * 1024
)

// ErrMissingCredentials indicates one of the required environment variables is not set.
var ErrMissingCredentials = errors.New("missing Strava credentials")

// Credentials holds the OAuth refresh-token credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// CredentialsFromEnv reads credentials from the designated environment variables.
// All three are required; a missing one is fatal before any API call is made.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		ClientID:     os.Getenv(config.EnvClientID),
		ClientSecret: os.Getenv(config.EnvClientSecret),
		RefreshToken: os.Getenv(config.EnvRefreshToken),
	}
	for _, v := range []struct {
		name, value string
	}{
		{config.EnvClientID, creds.ClientID},
		{config.EnvClientSecret, creds.ClientSecret},
		{config.EnvRefreshToken, creds.RefreshToken},
	} {
		if v.value == "" {
			return Credentials{}, fmt.Errorf("%w: %s is not set", ErrMissingCredentials, v.name)
		}
	}
	return creds, nil
}

// Client talks to the Strava v3 API using refresh-token authentication.
type Client struct {
	httpClient    *http.Client
	authURL       string
	activitiesURL string
	creds         Credentials
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURLs overrides the token and activities endpoints (used in tests).
func WithBaseURLs(authURL, activitiesURL string) Option {
	return func(c *Client) {
		c.authURL = authURL
		c.activitiesURL = activitiesURL
	}
}

// NewClient creates a Strava API client.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		authURL:       defaultAuthURL,
		activitiesURL: defaultActivitiesURL,
		creds:         creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RefreshAccessToken exchanges the refresh token for a short-lived access token.
func (c *Client) RefreshAccessToken(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
		"refresh_token": {c.creds.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	slog.Debug("Requesting new access token", logfields.URL(c.authURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := readBounded(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("refresh token: HTTP %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokens.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}

	slog.Info("Access token refreshed successfully")
	return tokens.AccessToken, nil
}

// ListActivitiesAfter fetches all activities started after the given time,
// following pagination until an empty page is returned.
func (c *Client) ListActivitiesAfter(ctx context.Context, accessToken string, after time.Time) ([]Activity, error) {
	var activities []Activity

	slog.Debug("Fetching activities", slog.Int64("after", after.Unix()))

	for page := 1; ; page++ {
		pageActivities, err := c.fetchPage(ctx, accessToken, after, page)
		if err != nil {
			return nil, fmt.Errorf("fetch activities page %d: %w", page, err)
		}
		if len(pageActivities) == 0 {
			break
		}

		slog.Debug("Fetched activities page", slog.Int("page", page), logfields.Count(len(pageActivities)))
		activities = append(activities, pageActivities...)
	}

	slog.Info("Activities fetched", logfields.Count(len(activities)))
	return activities, nil
}

func (c *Client) fetchPage(ctx context.Context, accessToken string, after time.Time, page int) ([]Activity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.activitiesURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	q := req.URL.Query()
	q.Set("after", strconv.FormatInt(after.Unix(), 10))
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(activitiesPerPage))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := readBounded(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var activities []Activity
	if err := json.Unmarshal(body, &activities); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	return activities, nil
}

func readBounded(r io.Reader) ([]byte, error) {
	limited := io.LimitReader(r, maxResponseBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if len(data) > maxResponseBytes {
		return nil, errors.New("response too large")
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
