package devapi

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tgienger/tasksync/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"

	userIDKey = "user_id"
)

var errInvalidToken = errors.New("invalid token")

type claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	Epoch     int    `json:"epoch"`
	jwt.RegisteredClaims
}

func (s *Server) issue(userID, tokenType string, epoch int, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:    userID,
		TokenType: tokenType,
		Epoch:     epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    "tasksync-devapi",
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(s.secret)
}

func (s *Server) issuePair(userID string) (models.CredentialPair, error) {
	s.mu.Lock()
	accessEpoch, refreshEpoch := s.accessEpoch, s.refreshEpoch
	s.mu.Unlock()

	access, err := s.issue(userID, tokenAccess, accessEpoch, s.accessTTL)
	if err != nil {
		return models.CredentialPair{}, err
	}
	refresh, err := s.issue(userID, tokenRefresh, refreshEpoch, s.refreshTTL)
	if err != nil {
		return models.CredentialPair{}, err
	}
	return models.CredentialPair{AccessToken: access, RefreshToken: refresh}, nil
}

// validate parses a token and checks its type and epoch
func (s *Server) validate(raw, tokenType string) (*claims, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || c.TokenType != tokenType {
		return nil, errInvalidToken
	}

	s.mu.Lock()
	epoch := s.accessEpoch
	if tokenType == tokenRefresh {
		epoch = s.refreshEpoch
	}
	s.mu.Unlock()
	if c.Epoch != epoch {
		return nil, errInvalidToken
	}
	return c, nil
}

// requireAccess rejects requests without a valid access token with 403, the
// status the client answers with a refresh.
func (s *Server) requireAccess(c *fiber.Ctx) error {
	raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || raw == "" {
		return reply(c, fiber.StatusForbidden, "forbidden", "access token is required")
	}
	cl, err := s.validate(raw, tokenAccess)
	if err != nil {
		return reply(c, fiber.StatusForbidden, "forbidden", "invalid or expired access token")
	}
	c.Locals(userIDKey, cl.UserID)
	return c.Next()
}

func (s *Server) signUp(c *fiber.Ctx) error {
	var req models.Credentials
	if err := c.BodyParser(&req); err != nil {
		return reply(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return reply(c, fiber.StatusBadRequest, "bad_request", "username is required")
	}
	if len(req.Password) < 8 {
		return reply(c, fiber.StatusBadRequest, "bad_request", "password must be at least 8 characters")
	}
	if len(req.Password) > 72 {
		return reply(c, fiber.StatusBadRequest, "bad_request", "password must be at most 72 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.users[req.Username]; exists {
		s.mu.Unlock()
		return reply(c, fiber.StatusConflict, "conflict", "username is already taken")
	}
	u := user{ID: uuid.NewString(), Username: req.Username, PasswordHash: string(hash)}
	s.users[u.Username] = u
	s.mu.Unlock()

	pair, err := s.issuePair(u.ID)
	if err != nil {
		return err
	}
	s.log.Info("user registered", "username", u.Username)
	return c.Status(fiber.StatusCreated).JSON(pair)
}

func (s *Server) login(c *fiber.Ctx) error {
	var req models.Credentials
	if err := c.BodyParser(&req); err != nil {
		return reply(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	s.mu.Lock()
	u, ok := s.users[strings.TrimSpace(req.Username)]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return reply(c, fiber.StatusUnauthorized, "unauthorized", "invalid username or password")
	}

	pair, err := s.issuePair(u.ID)
	if err != nil {
		return err
	}
	return c.JSON(pair)
}

func (s *Server) refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return reply(c, fiber.StatusBadRequest, "bad_request", "refresh_token is required")
	}
	cl, err := s.validate(req.RefreshToken, tokenRefresh)
	if err != nil {
		return reply(c, fiber.StatusUnauthorized, "unauthorized", "invalid or expired refresh token")
	}

	s.mu.Lock()
	epoch := s.accessEpoch
	s.mu.Unlock()
	access, err := s.issue(cl.UserID, tokenAccess, epoch, s.accessTTL)
	if err != nil {
		return err
	}
	return c.JSON(models.CredentialPair{AccessToken: access, RefreshToken: req.RefreshToken})
}
