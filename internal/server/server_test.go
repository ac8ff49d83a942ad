package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"letsblog/internal/config"
	"letsblog/internal/featureflags"
	"letsblog/internal/notifications"
	"letsblog/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*Server
	app *fiber.App
}

func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		Env:                "test",
		LogLevel:           "error",
		JWTSecret:          "test-secret-that-is-long-enough-for-hs256",
		AllowedOrigins:     "*",
		TracingExporter:    "stdout",
		TracingSampleRatio: 1,
	}
}

func newTestServer(t *testing.T, flags string) *testServer {
	t.Helper()
	hub := notifications.NewHub()
	publisher := notifications.NewSnapshotPublisher(hub, notifications.NewNotifier(nil))
	manager := featureflags.NewManager(flags)
	store := service.NewInMemoryContentStore(
		service.WithObserver(publisher),
		service.WithFeatureFlags(manager),
	)

	s, err := NewServer(testConfig(), Deps{
		Store:        store,
		FeatureFlags: manager,
		Hub:          hub,
		Publisher:    publisher,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &testServer{Server: s, app: s.App()}
}

// do sends a JSON request and decodes the JSON response into out when non-nil.
func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// signup registers username and returns the session token.
func (ts *testServer) signup(t *testing.T, username, password string) string {
	t.Helper()
	var resp sessionResponse
	status := ts.do(t, http.MethodPost, "/api/auth/signup", "", credentialsRequest{username, password}, &resp)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (ts *testServer) createPost(t *testing.T, token, title, content, category string) uint {
	t.Helper()
	var resp mutationResponse
	status := ts.do(t, http.MethodPost, "/api/posts", token, postRequest{title, content, category}, &resp)
	require.Equal(t, http.StatusCreated, status)
	require.NotZero(t, resp.ID)
	return resp.ID
}
