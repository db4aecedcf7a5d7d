package devapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/tasksync/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(Config{Secret: "test-secret", BcryptCost: bcrypt.MinCost})
}

func do(t *testing.T, s *Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func signUp(t *testing.T, s *Server, username string) models.CredentialPair {
	t.Helper()
	resp := do(t, s, http.MethodPost, "/api/auth/sign-up", "", models.Credentials{Username: username, Password: "password123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.CredentialPair](t, resp)
}

func draft(title string) models.TaskDraft {
	return models.TaskDraft{Title: title, Category: models.CategoryBug, Status: models.StatusTodo, Priority: models.PriorityHigh}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)
	pair := signUp(t, s, "alice")
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"duplicate sign-up", "/api/auth/sign-up", models.Credentials{Username: "alice", Password: "password123"}, http.StatusConflict},
		{"short password", "/api/auth/sign-up", models.Credentials{Username: "bob", Password: "short"}, http.StatusBadRequest},
		{"empty username", "/api/auth/sign-up", models.Credentials{Username: " ", Password: "password123"}, http.StatusBadRequest},
		{"wrong password", "/api/auth/login", models.Credentials{Username: "alice", Password: "nope-nope"}, http.StatusUnauthorized},
		{"unknown user", "/api/auth/login", models.Credentials{Username: "carol", Password: "password123"}, http.StatusUnauthorized},
		{"login", "/api/auth/login", models.Credentials{Username: "alice", Password: "password123"}, http.StatusOK},
		{"refresh without token", "/api/auth/refresh", map[string]string{}, http.StatusBadRequest},
		{"refresh with access token", "/api/auth/refresh", map[string]string{"refresh_token": pair.AccessToken}, http.StatusUnauthorized},
		{"refresh", "/api/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, s, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRequireAccess(t *testing.T) {
	s := newTestServer(t)
	pair := signUp(t, s, "alice")

	resp := do(t, s, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, s, http.MethodGet, "/api/tasks", pair.RefreshToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "refresh tokens do not grant access")

	resp = do(t, s, http.MethodGet, "/api/tasks", pair.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Task](t, resp))
}

func TestTokenEpochs(t *testing.T) {
	s := newTestServer(t)
	pair := signUp(t, s, "alice")

	s.ExpireAccessTokens()
	resp := do(t, s, http.MethodGet, "/api/tasks", pair.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "invalid or expired access token", body.Message)

	resp = do(t, s, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refreshed := decode[models.CredentialPair](t, resp)
	assert.Equal(t, pair.RefreshToken, refreshed.RefreshToken)

	resp = do(t, s, http.MethodGet, "/api/tasks", refreshed.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.RevokeRefreshTokens()
	resp = do(t, s, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExpiredToken(t *testing.T) {
	s := newTestServer(t)
	pair := signUp(t, s, "alice")

	later := time.Now().Add(2 * time.Hour)
	s.now = func() time.Time { return later }

	resp := do(t, s, http.MethodGet, "/api/tasks", pair.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := signUp(t, s, "alice").AccessToken

	resp := do(t, s, http.MethodPost, "/api/tasks", token, draft("first"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Task](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	resp = do(t, s, http.MethodGet, "/api/tasks/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decode[models.Task](t, resp).ID)

	edit := created
	edit.Title = "renamed"
	edit.CreatedAt = time.Time{}
	resp = do(t, s, http.MethodPatch, "/api/tasks/"+created.ID, token, edit)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[models.Task](t, resp)
	assert.Equal(t, "renamed", updated.Title)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt), "createdAt is owned by the server")
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	resp = do(t, s, http.MethodPost, "/api/tasks", token, draft(""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, s, http.MethodDelete, "/api/tasks/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, s, http.MethodDelete, "/api/tasks/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, s, http.MethodGet, "/api/tasks/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateManyAndDeleteAll(t *testing.T) {
	s := newTestServer(t)
	token := signUp(t, s, "alice").AccessToken
	other := signUp(t, s, "bob").AccessToken

	resp := do(t, s, http.MethodPost, "/api/tasks/create-many", token, []models.TaskDraft{draft("a"), draft("b")})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, s, http.MethodGet, "/api/tasks", token, nil)
	assert.Len(t, decode[[]models.Task](t, resp), 2)

	resp = do(t, s, http.MethodGet, "/api/tasks", other, nil)
	assert.Empty(t, decode[[]models.Task](t, resp), "tasks are per user")

	resp = do(t, s, http.MethodDelete, "/api/tasks", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, s, http.MethodGet, "/api/tasks", token, nil)
	assert.Empty(t, decode[[]models.Task](t, resp))
}

func TestRequestCount(t *testing.T) {
	s := newTestServer(t)
	before := s.RequestCount()
	do(t, s, http.MethodGet, "/health", "", nil)
	do(t, s, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, before+2, s.RequestCount())
}
