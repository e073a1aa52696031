package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stravadash/internal/config"
)

func testCreds() Credentials {
	return Credentials{ClientID: "123", ClientSecret: "secret", RefreshToken: "refresh"}
}

func TestRefreshAccessToken_SendsFormAndParsesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "123", r.PostForm.Get("client_id"))
		require.Equal(t, "secret", r.PostForm.Get("client_secret"))
		require.Equal(t, "refresh", r.PostForm.Get("refresh_token"))
		require.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))

		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "token-abc"})
	}))
	defer srv.Close()

	client := NewClient(testCreds(), WithBaseURLs(srv.URL, srv.URL))
	token, err := client.RefreshAccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "token-abc", token)
}

func TestRefreshAccessToken_HTTPErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad Request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(testCreds(), WithBaseURLs(srv.URL, srv.URL))
	_, err := client.RefreshAccessToken(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 400")
}

func TestRefreshAccessToken_MissingAccessTokenField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"expires_at": 12345})
	}))
	defer srv.Close()

	client := NewClient(testCreds(), WithBaseURLs(srv.URL, srv.URL))
	_, err := client.RefreshAccessToken(context.Background())
	require.Error(t, err)
}

func TestListActivitiesAfter_FollowsPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		require.Equal(t, "100", r.URL.Query().Get("per_page"))

		switch r.URL.Query().Get("page") {
		case "1":
			page := make([]Activity, activitiesPerPage)
			for i := range page {
				page[i] = Activity{ID: int64(i), Type: "Run", StartDateLocal: "2026-08-10T07:00:00Z"}
			}
			_ = json.NewEncoder(w).Encode(page)
		case "2":
			_ = json.NewEncoder(w).Encode([]Activity{
				{ID: 1000, Type: "Hike", StartDateLocal: "2026-08-11T07:00:00Z", TotalElevationGain: 42},
			})
		default:
			fmt.Fprint(w, "[]")
		}
	}))
	defer srv.Close()

	client := NewClient(testCreds(), WithBaseURLs(srv.URL, srv.URL))
	activities, err := client.ListActivitiesAfter(context.Background(), "token-abc", time.Now().AddDate(-1, 0, 0))
	require.NoError(t, err)
	require.Len(t, activities, activitiesPerPage+1)
	require.Equal(t, int64(1000), activities[activitiesPerPage].ID)
}

func TestListActivitiesAfter_PropagatesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Rate Limit Exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(testCreds(), WithBaseURLs(srv.URL, srv.URL))
	_, err := client.ListActivitiesAfter(context.Background(), "token-abc", time.Now())
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 429")
}

func TestCredentialsFromEnv_MissingVariableIsFatal(t *testing.T) {
	t.Setenv(config.EnvClientID, "123")
	t.Setenv(config.EnvClientSecret, "secret")
	t.Setenv(config.EnvRefreshToken, "")

	_, err := CredentialsFromEnv()
	require.ErrorIs(t, err, ErrMissingCredentials)
	require.Contains(t, err.Error(), config.EnvRefreshToken)
}

func TestCredentialsFromEnv_AllSet(t *testing.T) {
	t.Setenv(config.EnvClientID, "123")
	t.Setenv(config.EnvClientSecret, "secret")
	t.Setenv(config.EnvRefreshToken, "refresh")

	creds, err := CredentialsFromEnv()
	require.NoError(t, err)
	require.Equal(t, "123", creds.ClientID)
}
