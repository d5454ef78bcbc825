package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mapveto/mapban-backend/internal/engine"
	"github.com/mapveto/mapban-backend/internal/hub"
)

func newTestServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	h := hub.NewHub(context.Background(), hub.Options{})
	srv := httptest.NewServer(SetupRoutes(h, zap.NewNop(), []string{"*"}))
	t.Cleanup(srv.Close)
	return srv, h
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateLobby(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/lobbies", "application/json", strings.NewReader(`{"format":"bo3"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Code, 6)
}

func TestCreateLobby_CollisionRetriesAreCapped(t *testing.T) {
	orig := generateCode
	defer func() { generateCode = orig }()
	generateCode = func() (string, error) { return "SAME01", nil }

	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/lobbies", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Every further attempt collides; the handler must give up instead
	// of spinning.
	resp, err = http.Post(srv.URL+"/lobbies", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAdminLobbiesSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/lobbies", "application/json", strings.NewReader(`{"format":"bo5"}`))
	require.NoError(t, err)
	var created struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/admin/lobbies")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lobbies []LobbyProjection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lobbies))
	require.Len(t, lobbies, 1)
	require.Equal(t, created.Code, lobbies[0].Code)
	require.Equal(t, engine.PhaseForming, lobbies[0].Phase)
	require.Len(t, lobbies[0].Remaining, 7)
	require.Empty(t, lobbies[0].Picked)
}

func TestGenerateCodeShapeAndUniqueness(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			require.Contains(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", string(c))
		}
		seen[code] = true
	}
	require.Greater(t, len(seen), 1)
}
