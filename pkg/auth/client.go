package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tezga/tezga_sdk_go/internal/apix"
	"github.com/tezga/tezga_sdk_go/internal/httpx"
)

// ErrPasswordMismatch is a local validation failure; it never reaches the
// transport.
var ErrPasswordMismatch = errors.New("auth: passwords do not match")

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the authenticated identity returned by register/login.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// Client maps the auth endpoints. Neither call requires an existing session.
type Client struct {
	http   *httpx.Client
	tokens *TokenStore
}

// New constructs the auth client bound to the shared transport and token store.
func New(http *httpx.Client, tokens *TokenStore) *Client {
	return &Client{http: http, tokens: tokens}
}

// Register creates an account and installs the returned session token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, errors.New("auth: email and password are required")
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		return nil, ErrPasswordMismatch
	}
	return c.authenticate(ctx, "/auth/register", req)
}

// Login authenticates an existing account and installs the session token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, errors.New("auth: email and password are required")
	}
	return c.authenticate(ctx, "/auth/login", req)
}

func (c *Client) authenticate(ctx context.Context, path string, payload any) (*Session, error) {
	body, err := c.http.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}

	var session Session
	if err := apix.DecodeData(body, &session); err != nil {
		return nil, fmt.Errorf("auth: decode session: %w", err)
	}
	if c.tokens != nil && session.Token != "" {
		c.tokens.Set(session.Token)
	}
	return &session, nil
}
