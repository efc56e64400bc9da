package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"glasswing/internal/models"
)

// Session is an authenticated backend session. The access token is a JWT;
// its expiry drives the provider's refresh schedule.
type Session struct {
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"`
	ExpiresAt    int64           `json:"expires_at"`
	RefreshToken string          `json:"refresh_token"`
	User         models.Identity `json:"user"`
}

// Expired reports whether the session's access token has passed its expiry.
func (s *Session) Expired() bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() >= s.ExpiresAt
}

type credentialsBody struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

// SignUp creates an Identity with the given credentials. The data map seeds
// backend-side profile provisioning (username, full_name).
func (c *Client) SignUp(ctx context.Context, email, password string, data map[string]any) (*Session, error) {
	body, err := jsonBody(credentialsBody{Email: email, Password: password, Data: data})
	if err != nil {
		return nil, err
	}

	var session Session
	if err := c.doJSON(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/v1/signup",
		body:     body,
		resource: "auth",
	}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body, err := jsonBody(credentialsBody{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var session Session
	if err := c.doJSON(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/v1/token",
		query:    url.Values{"grant_type": {"password"}},
		body:     body,
		resource: "auth",
	}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RefreshSession exchanges a refresh token for a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	body, err := jsonBody(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}

	var session Session
	if err := c.doJSON(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/v1/token",
		query:    url.Values{"grant_type": {"refresh_token"}},
		body:     body,
		resource: "auth",
	}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignOut revokes the current session server-side. The caller is expected
// to clear local session state regardless of the result.
func (c *Client) SignOut(ctx context.Context) error {
	return c.doJSON(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/v1/logout",
		resource: "auth",
	}, nil)
}
