package auth

// Metadata is the free-form user data attached at sign up.
type Metadata struct {
	Name string `json:"name,omitempty"`
}

// User represents an identity owned by the hosted auth service.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Metadata Metadata `json:"user_metadata"`
}

// Session is the token pair issued by the auth service. Refresh is handled
// remotely, the client treats the tokens as opaque.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// SignUpResult is returned by SignUp. Session is nil when the account still
// needs email confirmation before it can be used.
type SignUpResult struct {
	User    *User
	Session *Session
}
