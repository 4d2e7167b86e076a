package stories

import (
	"time"

	"github.com/framezsocial/framez/pkg/users/types"
)

// Story is an ephemeral image post. A story is live while now < ExpiresAt,
// expiry is a query-time filter rather than an eviction process.
type Story struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	User      *types.User `json:"user,omitempty"`
	ImageURL  string      `json:"image_url"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`

	// Seen is viewer-relative, derived from the view log.
	Seen bool `json:"seen"`
}
