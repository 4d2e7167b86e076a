package stories

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/framezsocial/framez/pkg/session"
	"github.com/framezsocial/framez/pkg/users/types"
)

// storyTTL is how long a story stays live after posting.
const storyTTL = 24 * time.Hour

// StoryBackend is the remote surface the store drives.
type StoryBackend interface {
	ActiveStories(viewer string, now time.Time) ([]Story, error)
	ActiveStoriesForUser(user string, now time.Time) ([]Story, error)
	AddStory(story *Story) error
	DeleteStory(story, user string) error
	MarkSeen(user, story string) error
}

// Viewer resolves the requesting user.
type Viewer interface {
	CurrentUser() (*types.User, bool)
}

// Uploader moves a local image into object storage.
type Uploader interface {
	Upload(path, user, prefix string) (string, error)
}

type Store struct {
	mu sync.Mutex

	backend  StoryBackend
	uploader Uploader
	viewer   Viewer

	stories     []Story
	userStories []Story

	// now is swappable for tests.
	now func() time.Time
}

func NewStore(backend StoryBackend, uploader Uploader, viewer Viewer) *Store {
	return &Store{
		backend:  backend,
		uploader: uploader,
		viewer:   viewer,
		now:      time.Now,
	}
}

// FetchStories loads every live story with the viewer's seen state.
func (s *Store) FetchStories() ([]Story, error) {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	result, err := s.backend.ActiveStories(viewer.ID, s.now())
	if err != nil {
		log.Printf("fetch stories: %v", err)
		return nil, errors.WithMessage(err, "failed to fetch stories")
	}

	s.mu.Lock()
	s.stories = result
	s.mu.Unlock()

	return s.Stories(), nil
}

// FetchUserStories loads a single author's live stories.
func (s *Store) FetchUserStories(user string) ([]Story, error) {
	result, err := s.backend.ActiveStoriesForUser(user, s.now())
	if err != nil {
		log.Printf("fetch user stories: %v", err)
		return nil, errors.WithMessage(err, "failed to fetch user stories")
	}

	s.mu.Lock()
	s.userStories = result
	s.mu.Unlock()

	return s.UserStories(), nil
}

// CreateStory uploads the image and inserts a story live for the next 24
// hours, prepending it to both lists.
func (s *Store) CreateStory(imagePath string) (*Story, error) {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	url, err := s.uploader.Upload(imagePath, viewer.ID, "stories")
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create story")
	}

	snapshot := *viewer
	created := s.now()
	story := Story{
		ID:        uuid.New().String(),
		UserID:    viewer.ID,
		User:      &snapshot,
		ImageURL:  url,
		CreatedAt: created,
		ExpiresAt: created.Add(storyTTL),
	}

	err = s.backend.AddStory(&story)
	if err != nil {
		log.Printf("create story: %v", err)
		return nil, errors.WithMessage(err, "failed to create story")
	}

	s.mu.Lock()
	s.stories = append([]Story{story}, s.stories...)
	s.userStories = append([]Story{story}, s.userStories...)
	s.mu.Unlock()

	return &story, nil
}

func (s *Store) DeleteStory(id string) error {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return session.ErrNotAuthenticated
	}

	err := s.backend.DeleteStory(id, viewer.ID)
	if err != nil {
		log.Printf("delete story: %v", err)
		return errors.WithMessage(err, "failed to delete story")
	}

	s.mu.Lock()
	s.stories = removeStory(s.stories, id)
	s.userStories = removeStory(s.userStories, id)
	s.mu.Unlock()

	return nil
}

// MarkStorySeen upserts into the view log. Without a viewer it is a silent
// no-op, and a duplicate mark is swallowed, the story still flips to seen
// locally either way.
func (s *Store) MarkStorySeen(id string) error {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return nil
	}

	err := s.backend.MarkSeen(viewer.ID, id)
	if err != nil && !isUniqueViolation(err) {
		log.Printf("mark story seen: %v", err)
		return errors.WithMessage(err, "failed to mark story as seen")
	}

	s.mu.Lock()
	for i := range s.stories {
		if s.stories[i].ID == id {
			s.stories[i].Seen = true
		}
	}
	s.mu.Unlock()

	return nil
}

func (s *Store) Stories() []Story {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Story, len(s.stories))
	copy(result, s.stories)

	return result
}

func (s *Store) UserStories() []Story {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Story, len(s.userStories))
	copy(result, s.userStories)

	return result
}

func removeStory(list []Story, id string) []Story {
	result := make([]Story, 0, len(list))
	for _, story := range list {
		if story.ID != id {
			result = append(result, story)
		}
	}

	return result
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == "23505"
}
