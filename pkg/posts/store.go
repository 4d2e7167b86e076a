package posts

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/framezsocial/framez/pkg/session"
	"github.com/framezsocial/framez/pkg/users/types"
	"github.com/framezsocial/framez/pkg/validate"
)

// ErrEmptyPost is returned when a post has neither content nor an image.
var ErrEmptyPost = errors.New("a post needs content or an image")

// PostBackend is the remote surface the store drives.
type PostBackend interface {
	GetPosts(viewer string) ([]Post, error)
	GetPostsForUser(user, viewer string) ([]Post, error)
	GetSavedPosts(viewer string) ([]Post, error)
	CommentsForPosts(ids []string) (map[string][]Comment, error)
	AddPost(post *Post) error
	UpdatePost(id, user, content string, updated time.Time) error
	DeletePost(id, user string) error
	AddLike(user, post string) error
	RemoveLike(user, post string) error
	AddSave(user, post string) error
	RemoveSave(user, post string) error
	AddComment(comment *Comment) error
	DeleteComment(id string) error
}

// Viewer resolves the requesting user.
type Viewer interface {
	CurrentUser() (*types.User, bool)
}

// Uploader moves a local image into object storage.
type Uploader interface {
	Upload(path, user, prefix string) (string, error)
}

// Store holds the three feed lists. Mutations patch every list holding the
// post, only after the remote write succeeded, so a failure never leaves a
// partial optimistic commit behind.
type Store struct {
	mu sync.Mutex

	backend  PostBackend
	uploader Uploader
	viewer   Viewer

	posts      []Post
	userPosts  []Post
	savedPosts []Post
}

func NewStore(backend PostBackend, uploader Uploader, viewer Viewer) *Store {
	return &Store{
		backend:  backend,
		uploader: uploader,
		viewer:   viewer,
	}
}

// FetchPosts loads the global feed.
func (s *Store) FetchPosts() ([]Post, error) {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	result, err := s.backend.GetPosts(viewer.ID)
	if err != nil {
		log.Printf("fetch posts: %v", err)
		return nil, errors.WithMessage(err, "failed to fetch posts")
	}

	err = s.attachComments(result)
	if err != nil {
		log.Printf("fetch comments: %v", err)
		return nil, errors.WithMessage(err, "failed to fetch posts")
	}

	s.mu.Lock()
	s.posts = result
	s.mu.Unlock()

	return s.Posts(), nil
}

// FetchUserPosts loads a single author's feed with the same derivation as
// the global one.
func (s *Store) FetchUserPosts(user string) ([]Post, error) {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	result, err := s.backend.GetPostsForUser(user, viewer.ID)
	if err != nil {
		log.Printf("fetch user posts: %v", err)
		return nil, errors.WithMessage(err, "failed to fetch your posts")
	}

	err = s.attachComments(result)
	if err != nil {
		log.Printf("fetch comments: %v", err)
		return nil, errors.WithMessage(err, "failed to fetch your posts")
	}

	s.mu.Lock()
	s.userPosts = result
	s.mu.Unlock()

	return s.UserPosts(), nil
}

// FetchSavedPosts loads the viewer's saved feed. Every row is saved by
// construction.
func (s *Store) FetchSavedPosts() ([]Post, error) {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	result, err := s.backend.GetSavedPosts(viewer.ID)
	if err != nil {
		log.Printf("fetch saved posts: %v", err)
		return nil, errors.WithMessage(err, "failed to fetch saved posts")
	}

	err = s.attachComments(result)
	if err != nil {
		log.Printf("fetch comments: %v", err)
		return nil, errors.WithMessage(err, "failed to fetch saved posts")
	}

	for i := range result {
		result[i].IsSaved = true
	}

	s.mu.Lock()
	s.savedPosts = result
	s.mu.Unlock()

	return s.SavedPosts(), nil
}

// CreatePost uploads the image first when one is given, inserts the row and
// prepends the post to the global and own feeds with zero counts. No
// re-fetch is needed.
func (s *Store) CreatePost(content, imagePath string) (*Post, error) {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" && imagePath == "" {
		return nil, ErrEmptyPost
	}

	if trimmed != "" {
		if err := validate.PostContent(trimmed); err != nil {
			return nil, err
		}
	}

	imageURL := ""
	if imagePath != "" {
		url, err := s.uploader.Upload(imagePath, viewer.ID, "posts")
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create post")
		}

		imageURL = url
	}

	snapshot := *viewer
	post := Post{
		ID:        uuid.New().String(),
		UserID:    viewer.ID,
		User:      &snapshot,
		Content:   trimmed,
		ImageURL:  imageURL,
		CreatedAt: time.Now(),
		Comments:  make([]Comment, 0),
	}

	err := s.backend.AddPost(&post)
	if err != nil {
		log.Printf("create post: %v", err)
		return nil, errors.WithMessage(err, "failed to create post")
	}

	s.mu.Lock()
	s.posts = append([]Post{post}, s.posts...)
	s.userPosts = append([]Post{post}, s.userPosts...)
	s.mu.Unlock()

	return &post, nil
}

// UpdatePost rewrites the content, keeping the counts and flags already held
// in memory rather than resetting them from the write's return payload.
func (s *Store) UpdatePost(id, content string) error {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return session.ErrNotAuthenticated
	}

	trimmed := strings.TrimSpace(content)
	if err := validate.PostContent(trimmed); err != nil {
		return err
	}

	updated := time.Now()

	err := s.backend.UpdatePost(id, viewer.ID, trimmed, updated)
	if err != nil {
		log.Printf("update post: %v", err)
		return errors.WithMessage(err, "failed to update post")
	}

	s.mu.Lock()
	s.patchPost(id, func(post *Post) {
		post.Content = trimmed
		at := updated
		post.UpdatedAt = &at
	})
	s.mu.Unlock()

	return nil
}

// DeletePost removes the row with its dependent relations and drops the post
// from all three lists in one step.
func (s *Store) DeletePost(id string) error {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return session.ErrNotAuthenticated
	}

	err := s.backend.DeletePost(id, viewer.ID)
	if err != nil {
		log.Printf("delete post: %v", err)
		return errors.WithMessage(err, "failed to delete post")
	}

	s.mu.Lock()
	s.posts = removePost(s.posts, id)
	s.userPosts = removePost(s.userPosts, id)
	s.savedPosts = removePost(s.savedPosts, id)
	s.mu.Unlock()

	return nil
}

// LikePost records the viewer's like. A second like of the same post is a
// local no-op, and a duplicate rejected by the relation's uniqueness
// constraint only corrects the flag without touching the count.
func (s *Store) LikePost(id string) error {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return session.ErrNotAuthenticated
	}

	if s.flagged(id, func(p *Post) bool { return p.IsLiked }) {
		return nil
	}

	err := s.backend.AddLike(viewer.ID, id)
	if err != nil {
		if isUniqueViolation(err) {
			s.mu.Lock()
			s.patchPost(id, func(post *Post) { post.IsLiked = true })
			s.mu.Unlock()
			return nil
		}

		log.Printf("like post: %v", err)
		return errors.WithMessage(err, "failed to like post")
	}

	s.mu.Lock()
	s.patchPost(id, func(post *Post) {
		post.LikesCount++
		post.IsLiked = true
	})
	s.mu.Unlock()

	return nil
}

func (s *Store) UnlikePost(id string) error {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return session.ErrNotAuthenticated
	}

	err := s.backend.RemoveLike(viewer.ID, id)
	if err != nil {
		log.Printf("unlike post: %v", err)
		return errors.WithMessage(err, "failed to unlike post")
	}

	s.mu.Lock()
	s.patchPost(id, func(post *Post) {
		post.LikesCount = clamp(post.LikesCount - 1)
		post.IsLiked = false
	})
	s.mu.Unlock()

	return nil
}

// SavePost mirrors the like contract for the save relation.
func (s *Store) SavePost(id string) error {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return session.ErrNotAuthenticated
	}

	if s.flagged(id, func(p *Post) bool { return p.IsSaved }) {
		return nil
	}

	err := s.backend.AddSave(viewer.ID, id)
	if err != nil {
		if isUniqueViolation(err) {
			s.mu.Lock()
			s.patchPost(id, func(post *Post) { post.IsSaved = true })
			s.mu.Unlock()
			return nil
		}

		log.Printf("save post: %v", err)
		return errors.WithMessage(err, "failed to save post")
	}

	s.mu.Lock()
	s.patchPost(id, func(post *Post) { post.IsSaved = true })
	s.mu.Unlock()

	return nil
}

// UnsavePost clears the flag everywhere and drops the post from the saved
// list.
func (s *Store) UnsavePost(id string) error {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return session.ErrNotAuthenticated
	}

	err := s.backend.RemoveSave(viewer.ID, id)
	if err != nil {
		log.Printf("unsave post: %v", err)
		return errors.WithMessage(err, "failed to unsave post")
	}

	s.mu.Lock()
	s.patchPost(id, func(post *Post) { post.IsSaved = false })
	s.savedPosts = removePost(s.savedPosts, id)
	s.mu.Unlock()

	return nil
}

// AddComment appends to the post's comment list and bumps the count without
// a re-fetch.
func (s *Store) AddComment(postID, content string) (*Comment, error) {
	viewer, ok := s.viewer.CurrentUser()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, errors.New("a comment cannot be empty")
	}

	comment := Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		UserID:    viewer.ID,
		Content:   trimmed,
		CreatedAt: time.Now(),
		User:      &Author{Name: viewer.Name, Image: viewer.Image},
	}

	err := s.backend.AddComment(&comment)
	if err != nil {
		log.Printf("add comment: %v", err)
		return nil, errors.WithMessage(err, "failed to add comment")
	}

	s.mu.Lock()
	s.patchPost(postID, func(post *Post) {
		post.CommentsCount++
		post.Comments = append(post.Comments, comment)
	})
	s.mu.Unlock()

	return &comment, nil
}

func (s *Store) DeleteComment(id string) error {
	err := s.backend.DeleteComment(id)
	if err != nil {
		log.Printf("delete comment: %v", err)
		return errors.WithMessage(err, "failed to delete comment")
	}

	s.mu.Lock()
	s.forEachPost(func(post *Post) {
		for i, comment := range post.Comments {
			if comment.ID != id {
				continue
			}

			post.Comments = append(post.Comments[:i], post.Comments[i+1:]...)
			post.CommentsCount = clamp(post.CommentsCount - 1)
			break
		}
	})
	s.mu.Unlock()

	return nil
}

func (s *Store) Posts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Post, len(s.posts))
	copy(result, s.posts)

	return result
}

func (s *Store) UserPosts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Post, len(s.userPosts))
	copy(result, s.userPosts)

	return result
}

func (s *Store) SavedPosts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Post, len(s.savedPosts))
	copy(result, s.savedPosts)

	return result
}

func (s *Store) attachComments(posts []Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}

	comments, err := s.backend.CommentsForPosts(ids)
	if err != nil {
		return err
	}

	for i := range posts {
		posts[i].Comments = comments[posts[i].ID]
		if posts[i].Comments == nil {
			posts[i].Comments = make([]Comment, 0)
		}
	}

	return nil
}

// patchPost applies fn to the post in every list holding it. Caller holds
// the lock.
func (s *Store) patchPost(id string, fn func(*Post)) {
	s.forEachPost(func(post *Post) {
		if post.ID == id {
			fn(post)
		}
	})
}

func (s *Store) forEachPost(fn func(*Post)) {
	for _, list := range [][]Post{s.posts, s.userPosts, s.savedPosts} {
		for i := range list {
			fn(&list[i])
		}
	}
}

func (s *Store) flagged(id string, fn func(*Post) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := false
	s.patchPost(id, func(post *Post) {
		if fn(post) {
			result = true
		}
	})

	return result
}

func removePost(list []Post, id string) []Post {
	result := make([]Post, 0, len(list))
	for _, post := range list {
		if post.ID != id {
			result = append(result, post)
		}
	}

	return result
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}

	return n
}

// isUniqueViolation reports whether err is the relation's uniqueness
// constraint firing.
func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == "23505"
}
