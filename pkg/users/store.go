package users

import (
	"log"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/framezsocial/framez/pkg/session"
	"github.com/framezsocial/framez/pkg/users/types"
	"github.com/framezsocial/framez/pkg/validate"
)

// ProfileBackend is the remote surface the store reads profiles through.
type ProfileBackend interface {
	SearchUsers(query, viewer string) ([]*types.Profile, error)
	ProfileByID(id, viewer string) (*types.Profile, error)
	UpdateUser(id string, update UserUpdate) (*types.User, error)
}

// FollowBackend is the follow relation surface.
type FollowBackend interface {
	FollowUser(follower, user string) error
	UnfollowUser(follower, user string) error
	GetAllUsersFollowing(id string) ([]*types.User, error)
	GetAllUsersFollowedBy(id string) ([]*types.User, error)
}

// Viewer resolves the requesting user.
type Viewer interface {
	CurrentUser() (*types.User, bool)
}

// Uploader moves a local image into object storage.
type Uploader interface {
	Upload(path, user, prefix string) (string, error)
}

// Store holds search results and the currently displayed profile, patched
// optimistically on follow mutations.
type Store struct {
	mu sync.Mutex

	backend  ProfileBackend
	follows  FollowBackend
	uploader Uploader
	viewer   Viewer

	users          []*types.Profile
	currentProfile *types.Profile
	followers      []*types.User
	following      []*types.User
}

func NewStore(backend ProfileBackend, follows FollowBackend, uploader Uploader, viewer Viewer) *Store {
	return &Store{
		backend:  backend,
		follows:  follows,
		uploader: uploader,
		viewer:   viewer,
	}
}

// SearchUsers matches names case-insensitively. A blank query short-circuits
// to an empty result set without a remote call.
func (s *Store) SearchUsers(query string) ([]*types.Profile, error) {
	if strings.TrimSpace(query) == "" {
		s.mu.Lock()
		s.users = make([]*types.Profile, 0)
		s.mu.Unlock()

		return []*types.Profile{}, nil
	}

	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	result, err := s.backend.SearchUsers(query, viewer.ID)
	if err != nil {
		log.Printf("search users: %v", err)
		return nil, errors.WithMessage(err, "failed to search users")
	}

	s.mu.Lock()
	s.users = result
	s.mu.Unlock()

	return result, nil
}

func (s *Store) FetchUserProfile(id string) (*types.Profile, error) {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	profile, err := s.backend.ProfileByID(id, viewer.ID)
	if err != nil {
		log.Printf("fetch profile: %v", err)
		return nil, errors.WithMessage(err, "failed to fetch profile")
	}

	s.mu.Lock()
	s.currentProfile = profile
	s.mu.Unlock()

	return profile, nil
}

func (s *Store) FollowUser(id string) error {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return session.ErrNotAuthenticated
	}

	err := s.follows.FollowUser(viewer.ID, id)
	if err != nil {
		log.Printf("follow user: %v", err)
		return errors.WithMessage(err, "failed to follow user")
	}

	s.applyFollowChange(id, 1, true)

	return nil
}

// UnfollowUser is a no-op remotely when the user was not followed, the local
// counter is clamped at zero either way.
func (s *Store) UnfollowUser(id string) error {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return session.ErrNotAuthenticated
	}

	err := s.follows.UnfollowUser(viewer.ID, id)
	if err != nil {
		log.Printf("unfollow user: %v", err)
		return errors.WithMessage(err, "failed to unfollow user")
	}

	s.applyFollowChange(id, -1, false)

	return nil
}

// UpdateProfile applies a partial update and merges the result into the
// loaded profile when it is the viewer's own.
func (s *Store) UpdateProfile(update UserUpdate) (*types.User, error) {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	if update.Name != nil {
		if err := validate.Name(*update.Name); err != nil {
			return nil, err
		}
	}

	user, err := s.backend.UpdateUser(viewer.ID, update)
	if err != nil {
		log.Printf("update profile: %v", err)
		return nil, err
	}

	s.mu.Lock()
	if s.currentProfile != nil && s.currentProfile.ID == user.ID {
		counts := *s.currentProfile
		counts.User = *user
		s.currentProfile = &counts
	}
	s.mu.Unlock()

	return user, nil
}

func (s *Store) UploadProfileImage(path string) (string, error) {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return "", session.ErrNotAuthenticated
	}

	url, err := s.uploader.Upload(path, viewer.ID, "avatars")
	if err != nil {
		return "", errors.WithMessage(err, "failed to upload profile image")
	}

	_, err = s.backend.UpdateUser(viewer.ID, UserUpdate{Image: &url})
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.currentProfile != nil && s.currentProfile.ID == viewer.ID {
		s.currentProfile.Image = url
	}
	s.mu.Unlock()

	return url, nil
}

func (s *Store) FetchFollowers(id string) ([]*types.User, error) {
	result, err := s.follows.GetAllUsersFollowing(id)
	if err != nil {
		log.Printf("fetch followers: %v", err)
		return nil, errors.WithMessage(err, "failed to fetch followers")
	}

	s.mu.Lock()
	s.followers = result
	s.mu.Unlock()

	return result, nil
}

func (s *Store) FetchFollowing(id string) ([]*types.User, error) {
	result, err := s.follows.GetAllUsersFollowedBy(id)
	if err != nil {
		log.Printf("fetch following: %v", err)
		return nil, errors.WithMessage(err, "failed to fetch following")
	}

	s.mu.Lock()
	s.following = result
	s.mu.Unlock()

	return result, nil
}

func (s *Store) Users() []*types.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*types.Profile, len(s.users))
	copy(result, s.users)

	return result
}

func (s *Store) CurrentProfile() (*types.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentProfile == nil {
		return nil, false
	}

	profile := *s.currentProfile
	return &profile, true
}

func (s *Store) Followers() []*types.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*types.User, len(s.followers))
	copy(result, s.followers)

	return result
}

func (s *Store) Following() []*types.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*types.User, len(s.following))
	copy(result, s.following)

	return result
}

// applyFollowChange patches the loaded profile and any matching search result.
// Counters stay anchored to the pre-mutation value and never go below zero.
func (s *Store) applyFollowChange(id string, delta int, following bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentProfile != nil && s.currentProfile.ID == id {
		s.currentProfile.FollowersCount = clamp(s.currentProfile.FollowersCount + delta)
		s.currentProfile.IsFollowing = following
	}

	for _, user := range s.users {
		if user.ID != id {
			continue
		}

		user.FollowersCount = clamp(user.FollowersCount + delta)
		user.IsFollowing = following
	}
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}

	return n
}
