// Package identity talks to the external StellarSaaS identity service.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/stellarsaas/stellar/internal/session"
)

const (
	fallbackAuthMessage    = "Authentication failed"
	fallbackProfileMessage = "Failed to update profile"
	unreachableMessage     = "Unable to reach the authentication service"
	missingTokenMessage    = "No token received"
	missingUserMessage     = "No user data received"
)

var (
	// ErrMissingToken is returned when a successful auth response carries no token.
	ErrMissingToken = errors.New("identity: response carried no token")
	// ErrMissingUser is returned when a successful auth response carries no user.
	ErrMissingUser = errors.New("identity: response carried no user")
)

// APIError is a failed call. Status is zero when the service was not reached.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Credentials is the sign-in request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up request body.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate is the profile update request body.
type ProfileUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResult is a successful sign-in or sign-up.
type AuthResult struct {
	Token string
	User  session.User
}

type authResponse struct {
	Token   string          `json:"token"`
	User    json.RawMessage `json:"user"`
	Message string          `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Client issues single, unretried requests to the identity service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client. A nil httpClient uses a client with no
// timeout of its own; callers bound requests through their context.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// SignIn exchanges credentials for a token and user record.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// SignUp registers an account and returns its token and user record.
func (c *Client) SignUp(ctx context.Context, reg Registration) (AuthResult, error) {
	return c.authenticate(ctx, "/auth/signup", reg)
}

// UpdateProfile saves name and email for the user. The returned string is the
// optional server message.
func (c *Client) UpdateProfile(ctx context.Context, userID, token string, update ProfileUpdate) (string, error) {
	path := "/auth/profile/" + url.PathEscape(userID)
	status, body, err := c.do(ctx, http.MethodPut, path, token, update)
	if err != nil {
		return "", err
	}
	var decoded messageResponse
	_ = json.Unmarshal(body, &decoded)
	if status < 200 || status > 299 {
		return "", &APIError{Status: status, Message: messageOr(decoded.Message, fallbackProfileMessage)}
	}
	return decoded.Message, nil
}

func (c *Client) authenticate(ctx context.Context, path string, payload any) (AuthResult, error) {
	status, body, err := c.do(ctx, http.MethodPost, path, "", payload)
	if err != nil {
		return AuthResult{}, err
	}
	var decoded authResponse
	decodeErr := json.Unmarshal(body, &decoded)
	if status < 200 || status > 299 {
		return AuthResult{}, &APIError{Status: status, Message: messageOr(decoded.Message, fallbackAuthMessage)}
	}
	if decodeErr != nil || decoded.Token == "" {
		return AuthResult{}, &APIError{Status: status, Message: missingTokenMessage, Err: ErrMissingToken}
	}
	var user session.User
	if len(decoded.User) == 0 || json.Unmarshal(decoded.User, &user) != nil || user.ID == "" {
		return AuthResult{}, &APIError{Status: status, Message: missingUserMessage, Err: ErrMissingUser}
	}
	return AuthResult{Token: decoded.Token, User: user}, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("identity: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &APIError{Message: unreachableMessage, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, &APIError{Status: resp.StatusCode, Message: unreachableMessage, Err: err}
	}
	return resp.StatusCode, body, nil
}

func messageOr(message, fallback string) string {
	if strings.TrimSpace(message) == "" {
		return fallback
	}
	return message
}
