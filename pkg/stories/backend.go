package stories

import (
	"database/sql"
	"time"

	"github.com/framezsocial/framez/pkg/users/types"
)

type Backend struct {
	db *sql.DB
}

func NewBackend(db *sql.DB) *Backend {
	return &Backend{db}
}

const storyColumns = `stories.id, stories.user_id, stories.image_url, stories.created_at, stories.expires_at,
	users.name, users.profile_image_url`

// ActiveStories returns all live stories with the viewer's seen state,
// newest first.
func (b *Backend) ActiveStories(viewer string, now time.Time) ([]Story, error) {
	stmt, err := b.db.Prepare("SELECT " + storyColumns + ", EXISTS(SELECT 1 FROM story_views WHERE story_views.story_id = stories.id AND story_views.user_id = $1) AS seen FROM stories INNER JOIN users ON (stories.user_id = users.id) WHERE stories.expires_at > $2 ORDER BY stories.created_at DESC;")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(viewer, now)
	if err != nil {
		return nil, err
	}

	return scanStories(rows, true)
}

// ActiveStoriesForUser returns a single author's live stories, newest first.
func (b *Backend) ActiveStoriesForUser(user string, now time.Time) ([]Story, error) {
	stmt, err := b.db.Prepare("SELECT " + storyColumns + " FROM stories INNER JOIN users ON (stories.user_id = users.id) WHERE stories.user_id = $1 AND stories.expires_at > $2 ORDER BY stories.created_at DESC;")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(user, now)
	if err != nil {
		return nil, err
	}

	return scanStories(rows, false)
}

func (b *Backend) AddStory(story *Story) error {
	stmt, err := b.db.Prepare("INSERT INTO stories (id, user_id, image_url, created_at, expires_at) VALUES ($1, $2, $3, $4, $5);")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(story.ID, story.UserID, story.ImageURL, story.CreatedAt, story.ExpiresAt)
	return err
}

func (b *Backend) DeleteStory(story, user string) error {
	stmt, err := b.db.Prepare("DELETE FROM stories WHERE id = $1 AND user_id = $2;")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(story, user)
	return err
}

// MarkSeen upserts into the view log keyed on (viewer, story). Replays hit
// the conflict clause and write nothing.
func (b *Backend) MarkSeen(user, story string) error {
	stmt, err := b.db.Prepare("INSERT INTO story_views (user_id, story_id) VALUES ($1, $2) ON CONFLICT (user_id, story_id) DO NOTHING;")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(user, story)
	return err
}

func scanStories(rows *sql.Rows, withSeen bool) ([]Story, error) {
	defer rows.Close()

	result := make([]Story, 0)

	for rows.Next() {
		story := Story{User: &types.User{}}

		var image sql.NullString

		dest := []interface{}{&story.ID, &story.UserID, &story.ImageURL, &story.CreatedAt, &story.ExpiresAt, &story.User.Name, &image}
		if withSeen {
			dest = append(dest, &story.Seen)
		}

		err := rows.Scan(dest...)
		if err != nil {
			return nil, err
		}

		story.User.ID = story.UserID
		story.User.Image = image.String

		result = append(result, story)
	}

	return result, nil
}
