// Package auth is a client for the hosted authentication service. Token
// issuance and refresh are owned by the service, this package only shuttles
// credentials and reacts to the responses.
package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Event describes an auth state transition emitted by the client.
type Event string

const (
	SignedIn    Event = "SIGNED_IN"
	SignedOut   Event = "SIGNED_OUT"
	UserUpdated Event = "USER_UPDATED"
)

// ListenerFunc receives auth state transitions. The session is nil for
// SignedOut and may be nil for UserUpdated.
type ListenerFunc func(event Event, session *Session)

type Client struct {
	mu        sync.Mutex
	listeners []ListenerFunc

	client *http.Client
	url    string
	key    string
}

// NewClient returns a client for the auth service mounted under url.
func NewClient(url, key string) *Client {
	return &Client{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    strings.TrimSuffix(url, "/"),
		key:    key,
	}
}

// OnStateChange registers a listener for auth state transitions.
func (c *Client) OnStateChange(fn ListenerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, fn)
}

// SignUp registers a new account. When the service requires email
// confirmation no session is issued and ErrConfirmationRequired is returned
// alongside the created user.
func (c *Client) SignUp(email, password, name string) (*SignUpResult, error) {
	body := map[string]interface{}{
		"email":    strings.ToLower(strings.TrimSpace(email)),
		"password": password,
		"data":     Metadata{Name: strings.TrimSpace(name)},
	}

	// The signup response is either a full session or a bare user record,
	// depending on whether confirmation is required.
	var payload struct {
		Session
		ID       string   `json:"id"`
		Email    string   `json:"email"`
		Metadata Metadata `json:"user_metadata"`
	}

	err := c.do(http.MethodPost, "/auth/v1/signup", "", body, &payload)
	if err != nil {
		return nil, err
	}

	if payload.AccessToken != "" {
		session := payload.Session
		c.emit(SignedIn, &session)
		return &SignUpResult{User: session.User, Session: &session}, nil
	}

	user := &User{ID: payload.ID, Email: payload.Email, Metadata: payload.Metadata}
	return &SignUpResult{User: user}, ErrConfirmationRequired
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(email, password string) (*Session, error) {
	body := map[string]string{
		"email":    strings.ToLower(strings.TrimSpace(email)),
		"password": password,
	}

	session := &Session{}
	err := c.do(http.MethodPost, "/auth/v1/token?grant_type=password", "", body, session)
	if err != nil {
		return nil, err
	}

	c.emit(SignedIn, session)

	return session, nil
}

// SignOut revokes the session's refresh token. The signed-out transition is
// emitted even when revocation fails so local state never stays stale.
func (c *Client) SignOut(token string) error {
	err := c.do(http.MethodPost, "/auth/v1/logout", token, nil, nil)

	c.emit(SignedOut, nil)

	return err
}

// ResetPasswordForEmail asks the service to send a recovery email.
func (c *Client) ResetPasswordForEmail(email string) error {
	body := map[string]string{"email": strings.ToLower(strings.TrimSpace(email))}

	return c.do(http.MethodPost, "/auth/v1/recover", "", body, nil)
}

// VerifyOtp validates a recovery token and returns the session it unlocks.
func (c *Client) VerifyOtp(email, tokenHash string) (*Session, error) {
	body := map[string]string{
		"type":  "recovery",
		"email": strings.ToLower(strings.TrimSpace(email)),
		"token": tokenHash,
	}

	session := &Session{}
	err := c.do(http.MethodPost, "/auth/v1/verify", "", body, session)
	if err != nil {
		return nil, err
	}

	c.emit(SignedIn, session)

	return session, nil
}

// UpdatePassword sets a new password for the session's user.
func (c *Client) UpdatePassword(token, password string) (*User, error) {
	body := map[string]string{"password": strings.TrimSpace(password)}

	user := &User{}
	err := c.do(http.MethodPut, "/auth/v1/user", token, body, user)
	if err != nil {
		return nil, err
	}

	c.emit(UserUpdated, nil)

	return user, nil
}

// GetUser returns the identity a token belongs to.
func (c *Client) GetUser(token string) (*User, error) {
	user := &User{}
	err := c.do(http.MethodGet, "/auth/v1/user", token, nil, user)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (c *Client) emit(event Event, session *Session) {
	c.mu.Lock()
	listeners := make([]ListenerFunc, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(event, session)
	}
}

func (c *Client) do(method, path, token string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		err := json.NewEncoder(&buf).Encode(body)
		if err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, c.url+path, &buf)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.key)

	if token == "" {
		token = c.key
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		if isNetworkError(err) {
			return errors.WithMessage(ErrNetwork, err.Error())
		}

		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return parseError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func parseError(resp *http.Response) error {
	var payload struct {
		Message     string `json:"msg"`
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}

	_ = json.NewDecoder(resp.Body).Decode(&payload)

	msg := payload.Message
	if msg == "" {
		msg = payload.Description
	}
	if msg == "" {
		msg = payload.Error
	}

	if strings.Contains(msg, "Invalid login credentials") {
		return ErrInvalidCredentials
	}

	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
