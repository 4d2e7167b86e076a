// Package session owns the current identity and token lifecycle on the
// client. The token itself is opaque, refresh is handled by the hosted auth
// service.
package session

import (
	"database/sql"
	"encoding/json"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/framezsocial/framez/pkg/auth"
	"github.com/framezsocial/framez/pkg/users/types"
	"github.com/framezsocial/framez/pkg/validate"
)

// ErrNotAuthenticated is returned by stores when an operation needs a viewer
// and nobody is signed in.
var ErrNotAuthenticated = errors.New("not authenticated")

const sessionFile = "session.json"

// ProfileBackend is the slice of the users backend the session store needs.
type ProfileBackend interface {
	GetUser(id string) (*types.User, error)
	CreateUser(id, email, name string) (*types.User, error)
}

type Store struct {
	mu sync.Mutex

	auth     *auth.Client
	profiles ProfileBackend
	path     string

	user    *types.User
	session *auth.Session

	connectionError string
	initialized     bool

	// ProvisionDelay is how long to wait before re-reading a profile row the
	// backend provisions asynchronously after account creation.
	ProvisionDelay time.Duration
}

// NewStore returns a session store persisting its session under path. An
// empty path disables persistence.
func NewStore(client *auth.Client, profiles ProfileBackend, path string) *Store {
	return &Store{
		auth:           client,
		profiles:       profiles,
		path:           path,
		ProvisionDelay: time.Second,
	}
}

// Initialize restores a persisted session and subscribes to auth state
// changes. Idempotent, calling it twice does not subscribe twice. Failures
// are recorded as a connection error rather than returned so the caller can
// render a retry affordance.
func (s *Store) Initialize() {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.mu.Unlock()

	s.auth.OnStateChange(s.handleAuthChange)

	session := s.loadSession()
	if session == nil {
		return
	}

	user, err := s.auth.GetUser(session.AccessToken)
	if err != nil {
		if errors.Is(err, auth.ErrNetwork) {
			s.setError(userMessage(err))
			return
		}

		// Stale or revoked token, drop it.
		s.removeSession()
		return
	}

	profile, err := s.hydrateProfile(user)
	if err != nil {
		log.Printf("failed to hydrate profile: %v", err)
		s.setError(userMessage(err))
		return
	}

	s.mu.Lock()
	s.user = profile
	s.session = session
	s.connectionError = ""
	s.mu.Unlock()
}

// SignUp registers an account. Form checks run before any remote call. When
// the backend requires email confirmation no session is issued and the
// returned error tells the user to confirm.
func (s *Store) SignUp(email, password, name string) error {
	s.ClearError()

	for _, err := range []error{validate.Email(email), validate.Password(password), validate.Name(name)} {
		if err != nil {
			s.setError(err.Error())
			return err
		}
	}

	_, err := s.auth.SignUp(email, password, name)
	if err != nil {
		s.setError(userMessage(err))
		return err
	}

	// The signed-in transition emitted by the auth client has already
	// hydrated the profile, provisioning it if the backend had not yet.
	return nil
}

func (s *Store) SignIn(email, password string) error {
	s.ClearError()

	if err := validate.Email(email); err != nil {
		s.setError(err.Error())
		return err
	}

	_, err := s.auth.SignInWithPassword(email, password)
	if err != nil {
		s.setError(userMessage(err))
		return err
	}

	return nil
}

// SignOut clears local state unconditionally, even when revocation fails,
// so the UI never stays in an authenticated-looking state.
func (s *Store) SignOut() error {
	s.mu.Lock()
	token := ""
	if s.session != nil {
		token = s.session.AccessToken
	}
	s.mu.Unlock()

	err := s.auth.SignOut(token)
	if err != nil {
		log.Printf("sign out: %v", err)
	}

	return err
}

func (s *Store) ResetPassword(email string) error {
	err := s.auth.ResetPasswordForEmail(email)
	if err != nil {
		return errors.WithMessage(err, "failed to send reset link")
	}

	return nil
}

func (s *Store) VerifyOtp(email, tokenHash string) error {
	_, err := s.auth.VerifyOtp(email, tokenHash)
	if err != nil {
		return errors.WithMessage(err, "invalid or expired link")
	}

	return nil
}

func (s *Store) UpdatePassword(password string) error {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil {
		return ErrNotAuthenticated
	}

	if err := validate.Password(password); err != nil {
		return err
	}

	_, err := s.auth.UpdatePassword(session.AccessToken, password)
	return err
}

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connectionError = ""
}

// ConnectionError returns the last user-displayable failure, empty when healthy.
func (s *Store) ConnectionError() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connectionError
}

// CurrentUser returns the signed-in user's profile.
func (s *Store) CurrentUser() (*types.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil, false
	}

	user := *s.user
	return &user, true
}

// CurrentUserID returns the signed-in user's id.
func (s *Store) CurrentUserID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return "", false
	}

	return s.user.ID, true
}

// Session returns the current opaque session, nil when signed out.
func (s *Store) Session() *auth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session
}

func (s *Store) handleAuthChange(event auth.Event, session *auth.Session) {
	switch event {
	case auth.SignedIn:
		if session == nil || session.User == nil {
			return
		}

		s.mu.Lock()
		current := s.user
		s.mu.Unlock()

		// Signed-in for the already-current user only refreshes the token.
		if current != nil && current.ID == session.User.ID {
			s.mu.Lock()
			s.session = session
			s.mu.Unlock()
			s.saveSession(session)
			return
		}

		profile, err := s.hydrateProfile(session.User)
		if err != nil {
			log.Printf("failed to hydrate profile: %v", err)
			s.setError(userMessage(err))
			return
		}

		s.mu.Lock()
		s.user = profile
		s.session = session
		s.connectionError = ""
		s.mu.Unlock()

		s.saveSession(session)

	case auth.SignedOut:
		s.mu.Lock()
		s.user = nil
		s.session = nil
		s.connectionError = ""
		s.mu.Unlock()

		s.removeSession()

	case auth.UserUpdated:
		s.mu.Lock()
		current := s.user
		s.mu.Unlock()

		if current == nil {
			return
		}

		user, err := s.profiles.GetUser(current.ID)
		if err != nil {
			log.Printf("failed to refresh profile: %v", err)
			return
		}

		s.mu.Lock()
		s.user = user
		s.mu.Unlock()
	}
}

// hydrateProfile reads the profile row for an identity. The backend
// provisions the row asynchronously after sign up, so a missing row is
// retried once after ProvisionDelay and finally created by the client
// itself, matching what the provisioner would have written.
func (s *Store) hydrateProfile(identity *auth.User) (*types.User, error) {
	user, err := s.profiles.GetUser(identity.ID)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	time.Sleep(s.ProvisionDelay)

	user, err = s.profiles.GetUser(identity.ID)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	name := identity.Metadata.Name
	if name == "" {
		name = "User"
	}

	return s.profiles.CreateUser(identity.ID, identity.Email, name)
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connectionError = msg
}

func (s *Store) loadSession() *auth.Session {
	if s.path == "" {
		return nil
	}

	raw, err := ioutil.ReadFile(filepath.Join(s.path, sessionFile))
	if err != nil {
		return nil
	}

	session := &auth.Session{}
	if err := json.Unmarshal(raw, session); err != nil {
		return nil
	}

	if session.AccessToken == "" {
		return nil
	}

	return session
}

func (s *Store) saveSession(session *auth.Session) {
	if s.path == "" {
		return
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return
	}

	if err := os.MkdirAll(s.path, 0755); err != nil {
		return
	}

	if err := ioutil.WriteFile(filepath.Join(s.path, sessionFile), raw, 0600); err != nil {
		log.Printf("failed to persist session: %v", err)
	}
}

func (s *Store) removeSession() {
	if s.path == "" {
		return
	}

	_ = os.Remove(filepath.Join(s.path, sessionFile))
}

// userMessage rephrases backend failures into displayable text.
func userMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrNetwork):
		return "Network error: cannot connect to server. Please check your internet connection."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid email or password. Please try again."
	case errors.Is(err, auth.ErrConfirmationRequired):
		return "Please check your email to confirm your account before signing in."
	case err == nil:
		return ""
	}

	return err.Error()
}
