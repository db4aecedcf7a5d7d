package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tgienger/tasksync/internal/models"
)

// Config configures a Gateway
type Config struct {
	// BaseURL is prepended to every request path, e.g. http://localhost:3000/api
	BaseURL    string
	HTTPClient *http.Client
	// Store persists tokens across restarts. Nil keeps them in memory only.
	Store      TokenStore
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Logger     *slog.Logger
}

// Gateway is the only way the client talks to the task service. It attaches
// the access token to every request and recovers once from a rejected token
// by refreshing it.
type Gateway struct {
	baseURL    string
	client     *http.Client
	store      TokenStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        *slog.Logger
	now        func() time.Time

	mu      sync.RWMutex
	access  string
	refresh string
	// gen changes whenever the session is replaced or cleared
	gen uint64

	// persistMu serializes writes of the pair to memory and storage
	persistMu sync.Mutex
}

// New creates a gateway. Call LoadFromStorage to pick up a saved session.
func New(cfg Config) *Gateway {
	g := &Gateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		client:     cfg.HTTPClient,
		store:      cfg.Store,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		log:        cfg.Logger,
		now:        time.Now,
	}
	if g.client == nil {
		g.client = http.DefaultClient
	}
	if g.store == nil {
		g.store = NewMemoryTokenStore()
	}
	if g.accessTTL <= 0 {
		g.accessTTL = DefaultAccessTTL
	}
	if g.refreshTTL <= 0 {
		g.refreshTTL = DefaultRefreshTTL
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	g.log = g.log.With("component", "session")
	return g
}

// Response is a completed 2xx response
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(r.Body, v)
}

type retriedKey struct{}
type requestIDKey struct{}

func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func retried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// RequestID returns the id attached to the request carried by ctx
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// Login exchanges credentials for a new token pair and persists it
func (g *Gateway) Login(ctx context.Context, creds models.Credentials) (models.CredentialPair, error) {
	pair, err := g.exchange(ctx, "login", "/auth/login", creds)
	if err != nil {
		return models.CredentialPair{}, err
	}
	g.adopt(ctx, pair)
	g.log.Info("logged in", "username", creds.Username)
	return pair, nil
}

// Register creates an account. The returned pair is not adopted; log in to
// start a session.
func (g *Gateway) Register(ctx context.Context, creds models.Credentials) (models.CredentialPair, error) {
	pair, err := g.exchange(ctx, "register", "/auth/sign-up", creds)
	if err != nil {
		return models.CredentialPair{}, err
	}
	g.log.Info("registered", "username", creds.Username)
	return pair, nil
}

// Refresh trades the held refresh token for a new access token
func (g *Gateway) Refresh(ctx context.Context) (models.CredentialPair, error) {
	g.mu.RLock()
	refresh, gen := g.refresh, g.gen
	g.mu.RUnlock()
	if refresh == "" {
		return models.CredentialPair{}, ErrNoRefreshToken
	}

	pair, err := g.exchange(ctx, "refresh", "/auth/refresh", map[string]string{"refresh_token": refresh})
	if err != nil {
		return models.CredentialPair{}, err
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refresh
	}
	if !g.renew(ctx, pair, gen) {
		g.log.Debug("session changed during refresh, dropping new token")
		return models.CredentialPair{}, ErrSessionCleared
	}
	g.log.Debug("access token refreshed")
	return pair, nil
}

// LoadFromStorage reads saved tokens into memory. Missing entries leave the
// gateway unauthenticated; storage errors are logged, never returned.
func (g *Gateway) LoadFromStorage(ctx context.Context) {
	access, err := g.store.GetToken(ctx, AccessTokenKey)
	if err != nil {
		g.log.Warn("failed to load access token", "error", err)
	}
	refresh, err := g.store.GetToken(ctx, RefreshTokenKey)
	if err != nil {
		g.log.Warn("failed to load refresh token", "error", err)
	}

	g.mu.Lock()
	if access != "" {
		g.access = access
	}
	if refresh != "" {
		g.refresh = refresh
	}
	g.mu.Unlock()
}

// ClearTokens forgets the session in memory and in storage
func (g *Gateway) ClearTokens(ctx context.Context) {
	g.persistMu.Lock()
	defer g.persistMu.Unlock()
	g.clearLocked(ctx)
}

// clearIf clears the session only while it is still generation gen, so a
// failed refresh never wipes a newer login
func (g *Gateway) clearIf(ctx context.Context, gen uint64) {
	g.persistMu.Lock()
	defer g.persistMu.Unlock()
	g.mu.RLock()
	current := g.gen
	g.mu.RUnlock()
	if current != gen {
		return
	}
	g.clearLocked(ctx)
}

// clearLocked must be called with g.persistMu held
func (g *Gateway) clearLocked(ctx context.Context) {
	g.mu.Lock()
	g.access = ""
	g.refresh = ""
	g.gen++
	g.mu.Unlock()

	for _, name := range []string{AccessTokenKey, RefreshTokenKey} {
		if err := g.store.RemoveToken(ctx, name); err != nil {
			g.log.Warn("failed to remove token", "name", name, "error", err)
		}
	}
}

// Authenticated reports whether the gateway holds any credential
func (g *Gateway) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.access != "" || g.refresh != ""
}

// Tokens returns the credential pair currently held
func (g *Gateway) Tokens() models.CredentialPair {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return models.CredentialPair{AccessToken: g.access, RefreshToken: g.refresh}
}

// Request sends an authenticated request and returns the 2xx response. A 403
// triggers one refresh and one retry of this request. If the refresh fails the
// tokens are cleared and the refresh error is returned.
func (g *Gateway) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	if RequestID(ctx) == "" {
		ctx = context.WithValue(ctx, requestIDKey{}, uuid.NewString())
	}
	return g.request(ctx, method, path, payload)
}

func (g *Gateway) request(ctx context.Context, method, path string, payload []byte) (*Response, error) {
	g.mu.RLock()
	access, gen := g.access, g.gen
	g.mu.RUnlock()

	resp, err := g.send(ctx, method, path, payload, access)
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusForbidden && !retried(ctx) {
		ctx = withRetried(ctx)
		g.log.Debug("access token rejected, refreshing", "method", method, "path", path, "request_id", RequestID(ctx))
		if _, err := g.Refresh(ctx); err != nil {
			g.log.Warn("refresh failed, clearing session", "error", err, "request_id", RequestID(ctx))
			g.clearIf(ctx, gen)
			return nil, err
		}
		return g.request(ctx, method, path, payload)
	}

	if resp.Status >= http.StatusBadRequest {
		return nil, &TransportError{
			Method:  method,
			Path:    path,
			Status:  resp.Status,
			Message: errorMessage(resp.Body),
		}
	}
	return resp, nil
}

// exchange posts to an auth endpoint. It never carries the access token and
// never triggers a refresh.
func (g *Gateway) exchange(ctx context.Context, op, path string, body any) (models.CredentialPair, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return models.CredentialPair{}, err
	}
	ctx = context.WithValue(ctx, requestIDKey{}, uuid.NewString())

	resp, err := g.send(ctx, http.MethodPost, path, payload, "")
	if err != nil {
		return models.CredentialPair{}, err
	}
	switch {
	case resp.Status >= http.StatusInternalServerError:
		return models.CredentialPair{}, &TransportError{
			Method:  http.MethodPost,
			Path:    path,
			Status:  resp.Status,
			Message: errorMessage(resp.Body),
		}
	case resp.Status >= http.StatusBadRequest:
		return models.CredentialPair{}, &AuthError{Op: op, Status: resp.Status, Message: errorMessage(resp.Body)}
	}

	var pair models.CredentialPair
	if err := resp.Decode(&pair); err != nil {
		return models.CredentialPair{}, &TransportError{Method: http.MethodPost, Path: path, Status: resp.Status, Err: err}
	}
	if pair.AccessToken == "" {
		return models.CredentialPair{}, &AuthError{Op: op, Status: resp.Status, Message: "response carried no access token"}
	}
	return pair, nil
}

func (g *Gateway) send(ctx context.Context, method, path string, payload []byte, access string) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Status: res.StatusCode, Err: err}
	}
	return &Response{Status: res.StatusCode, Header: res.Header, Body: data}, nil
}

// adopt replaces the session with pair and persists both tokens.
// Persistence failures only cost the session on the next start, so they are
// logged.
func (g *Gateway) adopt(ctx context.Context, pair models.CredentialPair) {
	g.persistMu.Lock()
	defer g.persistMu.Unlock()

	g.mu.Lock()
	g.access = pair.AccessToken
	g.refresh = pair.RefreshToken
	g.gen++
	g.mu.Unlock()
	g.persist(ctx, pair)
}

// renew installs a refreshed pair unless the session was replaced or cleared
// since generation gen
func (g *Gateway) renew(ctx context.Context, pair models.CredentialPair, gen uint64) bool {
	g.persistMu.Lock()
	defer g.persistMu.Unlock()

	g.mu.Lock()
	if g.gen != gen {
		g.mu.Unlock()
		return false
	}
	g.access = pair.AccessToken
	g.refresh = pair.RefreshToken
	g.mu.Unlock()
	g.persist(ctx, pair)
	return true
}

func (g *Gateway) persist(ctx context.Context, pair models.CredentialPair) {
	now := g.now()
	if err := g.store.SetToken(ctx, AccessTokenKey, pair.AccessToken, tokenExpiry(pair.AccessToken, g.accessTTL, now)); err != nil {
		g.log.Warn("failed to persist access token", "error", err)
	}
	if err := g.store.SetToken(ctx, RefreshTokenKey, pair.RefreshToken, tokenExpiry(pair.RefreshToken, g.refreshTTL, now)); err != nil {
		g.log.Warn("failed to persist refresh token", "error", err)
	}
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return data, nil
}

// errorMessage pulls a readable message out of an error response body
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}
