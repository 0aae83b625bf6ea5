package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"roomchat/internal/config"
	"roomchat/internal/httpserver"
	"roomchat/internal/security"
	"roomchat/internal/store/sqlite"
	"roomchat/internal/ws"
)

func newTestRouter(t *testing.T, debug bool) http.Handler {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	assert.NoError(t, sqlite.Migrate(db))

	cfg := &config.Config{
		CORSOrigins: []string{"http://localhost:3000"},
		UploadDir:   t.TempDir(),
		Debug:       debug,
	}
	return httpserver.NewRouter(cfg, httpserver.NewSQLiteRepositories(db), ws.NewHub(),
		security.NewTokenService("test-secret", time.Hour), security.NewPasswordHasher(4))
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	// Request logging is debug-gated; the router serves identically either way.
	for _, debug := range []bool{true, false} {
		h := newTestRouter(t, debug)

		rec := doJSON(t, h, http.MethodGet, "/", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, h, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	}
}

func TestAuthAndRoomRoutes(t *testing.T) {
	h := newTestRouter(t, false)

	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "password": "pw1",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokenResp))
	assert.NotEmpty(t, tokenResp.AccessToken)

	// Authenticated routes refuse anonymous callers.
	rec = doJSON(t, h, http.MethodGet, "/api/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/rooms", tokenResp.AccessToken, map[string]string{
		"id": "lobby", "name": "Lobby", "password": "secret",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/rooms", tokenResp.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var rooms []struct {
		ID          string `json:"id"`
		HasPassword bool   `json:"has_password"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	assert.Len(t, rooms, 1)
	assert.Equal(t, "lobby", rooms[0].ID)
	assert.True(t, rooms[0].HasPassword)

	rec = doJSON(t, h, http.MethodPost, "/api/rooms/lobby/authorize", tokenResp.AccessToken, map[string]string{
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/rooms/lobby/authorize", tokenResp.AccessToken, map[string]string{
		"password": "secret",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
