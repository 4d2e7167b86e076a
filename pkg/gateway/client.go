package gateway

import (
	"github.com/framezsocial/framez/pkg/conf"
	"github.com/framezsocial/framez/pkg/followers"
	"github.com/framezsocial/framez/pkg/images"
	"github.com/framezsocial/framez/pkg/posts"
	"github.com/framezsocial/framez/pkg/session"
	"github.com/framezsocial/framez/pkg/stories"
	"github.com/framezsocial/framez/pkg/theme"
	"github.com/framezsocial/framez/pkg/users"
)

// Client is the fully wired store set the UI layer consumes. Stores are
// explicit dependencies handed to screens, not package-level singletons.
type Client struct {
	gateway *Gateway

	Session *session.Store
	Posts   *posts.Store
	Stories *stories.Store
	Users   *users.Store
	Theme   *theme.Store
}

// NewClient wires every store against one gateway. statePath is the local
// device directory for the session and theme preference.
func NewClient(config conf.ClientConf, statePath string) (*Client, error) {
	gw, err := New(config)
	if err != nil {
		return nil, err
	}

	uploader := images.NewUploader(gw.Storage, gw.Bucket)

	userBackend := users.NewUserBackend(gw.DB)
	followBackend := followers.NewFollowersBackend(gw.DB)

	sessionStore := session.NewStore(gw.Auth, userBackend, statePath)

	return &Client{
		gateway: gw,
		Session: sessionStore,
		Posts:   posts.NewStore(posts.NewBackend(gw.DB), uploader, sessionStore),
		Stories: stories.NewStore(stories.NewBackend(gw.DB), uploader, sessionStore),
		Users:   users.NewStore(userBackend, followBackend, uploader, sessionStore),
		Theme:   theme.NewStore(statePath),
	}, nil
}

// Initialize restores a persisted session and subscribes to auth changes.
func (c *Client) Initialize() {
	c.Session.Initialize()
}

func (c *Client) Close() error {
	return c.gateway.Close()
}
