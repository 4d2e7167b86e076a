package posts

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/framezsocial/framez/pkg/users/types"
)

type Backend struct {
	db *sql.DB
}

func NewBackend(db *sql.DB) *Backend {
	return &Backend{db: db}
}

// Every fetch derives the counts and viewer flags the same way, the viewer
// is always $1.
const postColumns = `posts.id, posts.user_id, posts.content, posts.image_url, posts.created_at, posts.updated_at,
	users.email, users.name, users.profile_image_url, users.bio,
	(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count,
	(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count,
	EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = $1) AS is_liked,
	EXISTS(SELECT 1 FROM saved_posts WHERE saved_posts.post_id = posts.id AND saved_posts.user_id = $1) AS is_saved`

// GetPosts returns the global feed for a viewer, newest first.
func (b *Backend) GetPosts(viewer string) ([]Post, error) {
	stmt, err := b.db.Prepare("SELECT " + postColumns + " FROM posts INNER JOIN users ON (posts.user_id = users.id) ORDER BY posts.created_at DESC;")
	if err != nil {
		return nil, err
	}

	return b.executePostQuery(stmt, viewer)
}

// GetPostsForUser returns a single author's feed for a viewer.
func (b *Backend) GetPostsForUser(user, viewer string) ([]Post, error) {
	stmt, err := b.db.Prepare("SELECT " + postColumns + " FROM posts INNER JOIN users ON (posts.user_id = users.id) WHERE posts.user_id = $2 ORDER BY posts.created_at DESC;")
	if err != nil {
		return nil, err
	}

	return b.executePostQuery(stmt, viewer, user)
}

// GetSavedPosts returns the posts the viewer has saved.
func (b *Backend) GetSavedPosts(viewer string) ([]Post, error) {
	stmt, err := b.db.Prepare("SELECT " + postColumns + " FROM saved_posts INNER JOIN posts ON (saved_posts.post_id = posts.id) INNER JOIN users ON (posts.user_id = users.id) WHERE saved_posts.user_id = $1 ORDER BY posts.created_at DESC;")
	if err != nil {
		return nil, err
	}

	return b.executePostQuery(stmt, viewer)
}

// CommentsForPosts returns the comments for a set of posts keyed by post id,
// oldest first, with author snapshots attached.
func (b *Backend) CommentsForPosts(ids []string) (map[string][]Comment, error) {
	stmt, err := b.db.Prepare("SELECT comments.id, comments.post_id, comments.user_id, comments.content, comments.created_at, users.name, users.profile_image_url FROM comments INNER JOIN users ON (comments.user_id = users.id) WHERE comments.post_id = ANY($1) ORDER BY comments.created_at;")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(pq.Array(ids))
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	result := make(map[string][]Comment)

	for rows.Next() {
		comment := Comment{User: &Author{}}

		var image sql.NullString

		err := rows.Scan(&comment.ID, &comment.PostID, &comment.UserID, &comment.Content, &comment.CreatedAt, &comment.User.Name, &image)
		if err != nil {
			return nil, err
		}

		comment.User.Image = image.String

		result[comment.PostID] = append(result[comment.PostID], comment)
	}

	return result, nil
}

func (b *Backend) AddPost(post *Post) error {
	stmt, err := b.db.Prepare("INSERT INTO posts (id, user_id, content, image_url, created_at) VALUES ($1, $2, $3, $4, $5);")
	if err != nil {
		return err
	}

	var image interface{}
	if post.ImageURL != "" {
		image = post.ImageURL
	}

	_, err = stmt.Exec(post.ID, post.UserID, post.Content, image, post.CreatedAt)
	return err
}

// UpdatePost touches content and updated_at only, scoped to the author.
func (b *Backend) UpdatePost(id, user, content string, updated time.Time) error {
	stmt, err := b.db.Prepare("UPDATE posts SET content = $1, updated_at = $2 WHERE id = $3 AND user_id = $4;")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(content, updated, id, user)
	return err
}

// DeletePost removes the dependent relations before the row itself, the
// hosted schema has no cascade.
func (b *Backend) DeletePost(id, user string) error {
	for _, query := range []string{
		"DELETE FROM likes WHERE post_id = $1;",
		"DELETE FROM comments WHERE post_id = $1;",
		"DELETE FROM saved_posts WHERE post_id = $1;",
	} {
		stmt, err := b.db.Prepare(query)
		if err != nil {
			return err
		}

		if _, err := stmt.Exec(id); err != nil {
			return err
		}
	}

	stmt, err := b.db.Prepare("DELETE FROM posts WHERE id = $1 AND user_id = $2;")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(id, user)
	return err
}

// AddLike inserts into the like relation. At most one like per viewer and
// post is a uniqueness constraint on the relation, duplicates surface as an
// error rather than being masked here.
func (b *Backend) AddLike(user, post string) error {
	stmt, err := b.db.Prepare("INSERT INTO likes (user_id, post_id) VALUES ($1, $2);")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(user, post)
	return err
}

func (b *Backend) RemoveLike(user, post string) error {
	stmt, err := b.db.Prepare("DELETE FROM likes WHERE user_id = $1 AND post_id = $2;")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(user, post)
	return err
}

func (b *Backend) AddSave(user, post string) error {
	stmt, err := b.db.Prepare("INSERT INTO saved_posts (user_id, post_id) VALUES ($1, $2);")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(user, post)
	return err
}

func (b *Backend) RemoveSave(user, post string) error {
	stmt, err := b.db.Prepare("DELETE FROM saved_posts WHERE user_id = $1 AND post_id = $2;")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(user, post)
	return err
}

func (b *Backend) AddComment(comment *Comment) error {
	stmt, err := b.db.Prepare("INSERT INTO comments (id, user_id, post_id, content, created_at) VALUES ($1, $2, $3, $4, $5);")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(comment.ID, comment.UserID, comment.PostID, comment.Content, comment.CreatedAt)
	return err
}

func (b *Backend) DeleteComment(id string) error {
	stmt, err := b.db.Prepare("DELETE FROM comments WHERE id = $1;")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(id)
	return err
}

func (b *Backend) executePostQuery(stmt *sql.Stmt, args ...interface{}) ([]Post, error) {
	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	result := make([]Post, 0)

	for rows.Next() {
		post := Post{User: &types.User{}}

		var image, email, userImage, bio sql.NullString
		var updated pq.NullTime

		err := rows.Scan(
			&post.ID, &post.UserID, &post.Content, &image, &post.CreatedAt, &updated,
			&email, &post.User.Name, &userImage, &bio,
			&post.LikesCount, &post.CommentsCount, &post.IsLiked, &post.IsSaved,
		)
		if err != nil {
			return nil, err
		}

		post.ImageURL = image.String
		post.User.ID = post.UserID
		post.User.Email = email.String
		post.User.Image = userImage.String
		post.User.Bio = bio.String

		if updated.Valid {
			t := updated.Time
			post.UpdatedAt = &t
		}

		result = append(result, post)
	}

	return result, nil
}
