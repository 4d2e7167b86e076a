package users

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/framezsocial/framez/pkg/users/types"
)

// ErrNoFields is returned by UpdateUser when the update contains nothing to set.
var ErrNoFields = errors.New("no fields to update")

// UserUpdate describes a partial profile update, nil fields are left untouched.
type UserUpdate struct {
	Name     *string
	Bio      *string
	Website  *string
	Location *string
	Image    *string
}

type UserBackend struct {
	db *sql.DB
}

func NewUserBackend(db *sql.DB) *UserBackend {
	return &UserBackend{
		db: db,
	}
}

// Counts are derived from the relations at query time, nothing is stored
// denormalized. The viewer is always $1.
const profileColumns = `users.id, users.email, users.name, users.profile_image_url, users.bio, users.website, users.location, users.created_at,
	(SELECT COUNT(*) FROM followers WHERE following_id = users.id) AS followers_count,
	(SELECT COUNT(*) FROM followers WHERE follower_id = users.id) AS following_count,
	(SELECT COUNT(*) FROM posts WHERE user_id = users.id) AS posts_count,
	EXISTS(SELECT 1 FROM followers WHERE follower_id = $1 AND following_id = users.id) AS is_following`

func (ub *UserBackend) GetUser(id string) (*types.User, error) {
	stmt, err := ub.db.Prepare("SELECT id, email, name, profile_image_url, bio, website, location, created_at FROM users WHERE id = $1;")
	if err != nil {
		return nil, err
	}

	return scanUser(stmt.QueryRow(id))
}

func (ub *UserBackend) CreateUser(id, email, name string) (*types.User, error) {
	stmt, err := ub.db.Prepare("INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4);")
	if err != nil {
		return nil, err
	}

	created := time.Now()

	_, err = stmt.Exec(id, email, name, created)
	if err != nil {
		return nil, err
	}

	return &types.User{ID: id, Email: email, Name: name, CreatedAt: created}, nil
}

func (ub *UserBackend) UpdateUser(id string, update UserUpdate) (*types.User, error) {
	fields := make([]string, 0)
	args := make([]interface{}, 0)

	add := func(column string, value *string) {
		if value == nil {
			return
		}

		args = append(args, *value)
		fields = append(fields, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("name", update.Name)
	add("bio", update.Bio)
	add("website", update.Website)
	add("location", update.Location)
	add("profile_image_url", update.Image)

	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE users SET %s WHERE id = $%d RETURNING id, email, name, profile_image_url, bio, website, location, created_at;",
		strings.Join(fields, ", "), len(args),
	)

	stmt, err := ub.db.Prepare(query)
	if err != nil {
		return nil, err
	}

	return scanUser(stmt.QueryRow(args...))
}

// ProfileByID returns a user with counts and the viewer's follow state.
func (ub *UserBackend) ProfileByID(id, viewer string) (*types.Profile, error) {
	stmt, err := ub.db.Prepare("SELECT " + profileColumns + " FROM users WHERE users.id = $2;")
	if err != nil {
		return nil, err
	}

	return scanProfile(stmt.QueryRow(viewer, id))
}

// SearchUsers matches names case-insensitively, excluding the viewer.
func (ub *UserBackend) SearchUsers(query, viewer string) ([]*types.Profile, error) {
	stmt, err := ub.db.Prepare("SELECT " + profileColumns + " FROM users WHERE users.name ILIKE '%' || $2 || '%' AND users.id <> $1 ORDER BY users.name;")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(viewer, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	result := make([]*types.Profile, 0)

	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}

		result = append(result, profile)
	}

	return result, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*types.User, error) {
	user := &types.User{}

	var image, bio, website, location sql.NullString

	err := row.Scan(&user.ID, &user.Email, &user.Name, &image, &bio, &website, &location, &user.CreatedAt)
	if err != nil {
		return nil, err
	}

	user.Image = image.String
	user.Bio = bio.String
	user.Website = website.String
	user.Location = location.String

	return user, nil
}

func scanProfile(row scanner) (*types.Profile, error) {
	profile := &types.Profile{}

	var image, bio, website, location sql.NullString

	err := row.Scan(
		&profile.ID, &profile.Email, &profile.Name, &image, &bio, &website, &location, &profile.CreatedAt,
		&profile.FollowersCount, &profile.FollowingCount, &profile.PostsCount, &profile.IsFollowing,
	)
	if err != nil {
		return nil, err
	}

	profile.Image = image.String
	profile.Bio = bio.String
	profile.Website = website.String
	profile.Location = location.String

	return profile, nil
}
