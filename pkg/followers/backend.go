package followers

import (
	"database/sql"

	"github.com/framezsocial/framez/pkg/users/types"
)

type FollowersBackend struct {
	db *sql.DB
}

func NewFollowersBackend(db *sql.DB) *FollowersBackend {
	return &FollowersBackend{
		db: db,
	}
}

// FollowUser records follower following user. At most one row per pair is
// enforced by a uniqueness constraint on the relation, a duplicate insert
// surfaces as an error.
func (fb *FollowersBackend) FollowUser(follower, user string) error {
	stmt, err := fb.db.Prepare("INSERT INTO followers (follower_id, following_id) VALUES ($1, $2);")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(follower, user)
	if err != nil {
		return err
	}

	return nil
}

// UnfollowUser is keyed on the pair, unfollowing someone not followed
// deletes nothing and is not an error.
func (fb *FollowersBackend) UnfollowUser(follower, user string) error {
	stmt, err := fb.db.Prepare("DELETE FROM followers WHERE follower_id = $1 AND following_id = $2;")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(follower, user)
	if err != nil {
		return err
	}

	return nil
}

// IsFollowing reports whether follower currently follows user.
func (fb *FollowersBackend) IsFollowing(follower, user string) (bool, error) {
	stmt, err := fb.db.Prepare("SELECT EXISTS(SELECT 1 FROM followers WHERE follower_id = $1 AND following_id = $2);")
	if err != nil {
		return false, err
	}

	var exists bool
	err = stmt.QueryRow(follower, user).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// GetAllUsersFollowing returns the users following id.
func (fb *FollowersBackend) GetAllUsersFollowing(id string) ([]*types.User, error) {
	stmt, err := fb.db.Prepare("SELECT users.id, users.name, users.profile_image_url, users.bio FROM users INNER JOIN followers ON (users.id = followers.follower_id) WHERE followers.following_id = $1 ORDER BY users.name;")
	if err != nil {
		return nil, err
	}

	return fb.executeUserQuery(stmt, id)
}

// GetAllUsersFollowedBy returns the users id follows.
func (fb *FollowersBackend) GetAllUsersFollowedBy(id string) ([]*types.User, error) {
	stmt, err := fb.db.Prepare("SELECT users.id, users.name, users.profile_image_url, users.bio FROM users INNER JOIN followers ON (users.id = followers.following_id) WHERE followers.follower_id = $1 ORDER BY users.name;")
	if err != nil {
		return nil, err
	}

	return fb.executeUserQuery(stmt, id)
}

func (fb *FollowersBackend) executeUserQuery(stmt *sql.Stmt, args ...interface{}) ([]*types.User, error) {
	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	result := make([]*types.User, 0)

	for rows.Next() {
		user := &types.User{}

		var image, bio sql.NullString

		err := rows.Scan(&user.ID, &user.Name, &image, &bio)
		if err != nil {
			return nil, err
		}

		user.Image = image.String
		user.Bio = bio.String

		result = append(result, user)
	}

	return result, nil
}
