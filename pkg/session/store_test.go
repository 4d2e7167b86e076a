package session_test

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/framezsocial/framez/pkg/auth"
	"github.com/framezsocial/framez/pkg/session"
	"github.com/framezsocial/framez/pkg/users/types"
)

type fakeProfiles struct {
	users       map[string]*types.User
	misses      int
	getCalls    int
	createCalls int
}

func (f *fakeProfiles) GetUser(id string) (*types.User, error) {
	f.getCalls++

	if f.misses > 0 {
		f.misses--
		return nil, sql.ErrNoRows
	}

	user, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}

	return user, nil
}

func (f *fakeProfiles) CreateUser(id, email, name string) (*types.User, error) {
	f.createCalls++

	user := &types.User{ID: id, Email: email, Name: name}
	f.users[id] = user

	return user, nil
}

func authServer(t *testing.T, signInStatus int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/auth/v1/token":
			if signInStatus != http.StatusOK {
				w.WriteHeader(signInStatus)
				_, _ = w.Write([]byte(`{"error_description":"Invalid login credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"tok","refresh_token":"ref","user":{"id":"u1","email":"ann@example.com","user_metadata":{"name":"Ann"}}}`))
		case "/auth/v1/signup":
			_, _ = w.Write([]byte(`{"access_token":"tok","refresh_token":"ref","user":{"id":"u2","email":"bob@example.com","user_metadata":{"name":"Bob"}}}`))
		case "/auth/v1/user":
			_, _ = w.Write([]byte(`{"id":"u1","email":"ann@example.com","user_metadata":{"name":"Ann"}}`))
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
}

func newStore(t *testing.T, server *httptest.Server, profiles *fakeProfiles, path string) *session.Store {
	t.Helper()

	store := session.NewStore(auth.NewClient(server.URL, "anon"), profiles, path)
	store.ProvisionDelay = 0
	store.Initialize()

	return store
}

func TestStore_SignIn(t *testing.T) {
	server := authServer(t, http.StatusOK)
	defer server.Close()

	profiles := &fakeProfiles{users: map[string]*types.User{
		"u1": {ID: "u1", Email: "ann@example.com", Name: "Ann"},
	}}

	dir := t.TempDir()
	store := newStore(t, server, profiles, dir)

	err := store.SignIn("ann@example.com", "hunter22")
	if err != nil {
		t.Fatal(err)
	}

	user, ok := store.CurrentUser()
	if !ok || user.Name != "Ann" {
		t.Fatalf("expected hydrated profile, got %v", user)
	}

	if store.Session() == nil || store.Session().AccessToken != "tok" {
		t.Fatal("expected session")
	}

	if _, err := os.Stat(filepath.Join(dir, "session.json")); err != nil {
		t.Fatal("expected persisted session file")
	}

	if store.ConnectionError() != "" {
		t.Fatalf("unexpected error %q", store.ConnectionError())
	}
}

func TestStore_SignIn_InvalidCredentials(t *testing.T) {
	server := authServer(t, http.StatusBadRequest)
	defer server.Close()

	store := newStore(t, server, &fakeProfiles{users: map[string]*types.User{}}, "")

	err := store.SignIn("ann@example.com", "wrong")
	if !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	if store.ConnectionError() != "Invalid email or password. Please try again." {
		t.Fatalf("unexpected message %q", store.ConnectionError())
	}

	if _, ok := store.CurrentUser(); ok {
		t.Fatal("expected no user")
	}

	store.ClearError()
	if store.ConnectionError() != "" {
		t.Fatal("expected cleared error")
	}
}

func TestStore_SignUp_ProvisionsMissingProfile(t *testing.T) {
	server := authServer(t, http.StatusOK)
	defer server.Close()

	// The profile row does not exist yet, both reads miss and the store
	// provisions the row itself.
	profiles := &fakeProfiles{users: map[string]*types.User{}}

	store := newStore(t, server, profiles, "")

	err := store.SignUp("bob@example.com", "hunter22", "Bob")
	if err != nil {
		t.Fatal(err)
	}

	user, ok := store.CurrentUser()
	if !ok || user.ID != "u2" || user.Name != "Bob" {
		t.Fatalf("expected provisioned profile, got %v", user)
	}

	if profiles.createCalls != 1 {
		t.Fatalf("expected one create, got %d", profiles.createCalls)
	}

	if profiles.getCalls != 2 {
		t.Fatalf("expected bounded retry of two reads, got %d", profiles.getCalls)
	}
}

func TestStore_SignUp_RejectsBadFormInputLocally(t *testing.T) {
	server := authServer(t, http.StatusOK)
	defer server.Close()

	store := newStore(t, server, &fakeProfiles{users: map[string]*types.User{}}, "")

	var tests = []struct {
		email    string
		password string
		name     string
	}{
		{"not-an-email", "hunter22", "Bob"},
		{"bob@example.com", "short", "Bob"},
		{"bob@example.com", "hunter22", "B0b!"},
	}

	for _, tt := range tests {
		if err := store.SignUp(tt.email, tt.password, tt.name); err == nil {
			t.Fatalf("expected rejection for %+v", tt)
		}

		if store.ConnectionError() == "" {
			t.Fatal("expected displayable message")
		}
	}

	if _, ok := store.CurrentUser(); ok {
		t.Fatal("expected no user")
	}
}

func TestStore_SignOut_ClearsStateEvenOnRemoteFailure(t *testing.T) {
	server := authServer(t, http.StatusOK)
	defer server.Close()

	profiles := &fakeProfiles{users: map[string]*types.User{
		"u1": {ID: "u1", Name: "Ann"},
	}}

	dir := t.TempDir()
	store := newStore(t, server, profiles, dir)

	if err := store.SignIn("ann@example.com", "hunter22"); err != nil {
		t.Fatal(err)
	}

	err := store.SignOut()
	if err == nil {
		t.Fatal("expected remote error from logout")
	}

	if _, ok := store.CurrentUser(); ok {
		t.Fatal("expected user cleared")
	}

	if store.Session() != nil {
		t.Fatal("expected session cleared")
	}

	if _, err := os.Stat(filepath.Join(dir, "session.json")); !os.IsNotExist(err) {
		t.Fatal("expected session file removed")
	}
}

func TestStore_Initialize_RestoresPersistedSession(t *testing.T) {
	server := authServer(t, http.StatusOK)
	defer server.Close()

	dir := t.TempDir()

	raw, _ := json.Marshal(&auth.Session{AccessToken: "tok", User: &auth.User{ID: "u1"}})
	if err := ioutil.WriteFile(filepath.Join(dir, "session.json"), raw, 0600); err != nil {
		t.Fatal(err)
	}

	profiles := &fakeProfiles{users: map[string]*types.User{
		"u1": {ID: "u1", Name: "Ann"},
	}}

	store := newStore(t, server, profiles, dir)

	user, ok := store.CurrentUser()
	if !ok || user.Name != "Ann" {
		t.Fatalf("expected restored session, got %v", user)
	}
}

func TestStore_Initialize_ConnectionErrorIsNonFatal(t *testing.T) {
	server := authServer(t, http.StatusOK)
	server.Close()

	dir := t.TempDir()

	raw, _ := json.Marshal(&auth.Session{AccessToken: "tok", User: &auth.User{ID: "u1"}})
	if err := ioutil.WriteFile(filepath.Join(dir, "session.json"), raw, 0600); err != nil {
		t.Fatal(err)
	}

	store := session.NewStore(auth.NewClient(server.URL, "anon"), &fakeProfiles{users: map[string]*types.User{}}, dir)
	store.ProvisionDelay = 0
	store.Initialize()

	if store.ConnectionError() == "" {
		t.Fatal("expected recorded connection error")
	}

	if _, ok := store.CurrentUser(); ok {
		t.Fatal("expected no user")
	}
}
