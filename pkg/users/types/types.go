package types

import "time"

// User is a profile row as stored in the users table.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name"`
	Image     string    `json:"profile_image_url,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Website   string    `json:"website,omitempty"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Profile is a user enriched with aggregated counts and the viewer-relative
// follow flag. IsFollowing is only meaningful for the viewer the profile was
// fetched for and must never be cached across viewers.
type Profile struct {
	User

	FollowersCount int  `json:"followers_count"`
	FollowingCount int  `json:"following_count"`
	PostsCount     int  `json:"posts_count"`
	IsFollowing    bool `json:"is_following"`
}
