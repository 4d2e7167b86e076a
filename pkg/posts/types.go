package posts

import (
	"time"

	"github.com/framezsocial/framez/pkg/users/types"
)

// Author is the slim user snapshot attached to a comment.
type Author struct {
	Name  string `json:"name"`
	Image string `json:"profile_image_url,omitempty"`
}

// Comment on a post, append-only from the client's perspective.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	User      *Author   `json:"user,omitempty"`
}

// Post is a feed entry with its author snapshot and the viewer-relative
// derived fields. The counts always equal the relation cardinality at fetch
// time, optimistic patches stay anchored to the fetched value.
type Post struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	User      *types.User `json:"user,omitempty"`
	Content   string      `json:"content"`
	ImageURL  string      `json:"image_url,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`

	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	IsLiked       bool      `json:"is_liked"`
	IsSaved       bool      `json:"is_saved"`
	Comments      []Comment `json:"comments,omitempty"`
}
