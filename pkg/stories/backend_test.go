package stories_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/framezsocial/framez/pkg/stories"
)

func TestBackend_ActiveStories(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	backend := stories.NewBackend(db)

	now := time.Now()

	mock.ExpectPrepare("SELECT").
		ExpectQuery().
		WithArgs("viewer", now).
		WillReturnRows(mock.NewRows([]string{"id", "user_id", "image_url", "created_at", "expires_at", "name", "profile_image_url", "seen"}).
			AddRow("s1", "u1", "https://cdn/stories/a.png", now.Add(-time.Hour), now.Add(23*time.Hour), "Ann", nil, true).
			AddRow("s2", "u2", "https://cdn/stories/b.png", now.Add(-2*time.Hour), now.Add(22*time.Hour), "Ben", nil, false))

	result, err := backend.ActiveStories("viewer", now)
	if err != nil {
		t.Fatal(err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(result))
	}

	if !result[0].Seen || result[1].Seen {
		t.Fatalf("seen flags not matching: %+v", result)
	}

	if result[0].User == nil || result[0].User.Name != "Ann" || result[0].User.ID != "u1" {
		t.Fatalf("author snapshot not matching: %+v", result[0].User)
	}
}

func TestBackend_ActiveStoriesForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	backend := stories.NewBackend(db)

	now := time.Now()

	mock.ExpectPrepare("SELECT").
		ExpectQuery().
		WithArgs("u1", now).
		WillReturnRows(mock.NewRows([]string{"id", "user_id", "image_url", "created_at", "expires_at", "name", "profile_image_url"}).
			AddRow("s1", "u1", "https://cdn/stories/a.png", now.Add(-time.Hour), now.Add(23*time.Hour), "Ann", nil))

	result, err := backend.ActiveStoriesForUser("u1", now)
	if err != nil {
		t.Fatal(err)
	}

	if len(result) != 1 || result[0].ID != "s1" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestBackend_AddStory(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	backend := stories.NewBackend(db)

	created := time.Now()
	expires := created.Add(24 * time.Hour)

	mock.ExpectPrepare("INSERT INTO stories").
		ExpectExec().
		WithArgs("s1", "u1", "https://cdn/stories/a.png", created, expires).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = backend.AddStory(&stories.Story{
		ID:        "s1",
		UserID:    "u1",
		ImageURL:  "https://cdn/stories/a.png",
		CreatedAt: created,
		ExpiresAt: expires,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestBackend_DeleteStory(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	backend := stories.NewBackend(db)

	mock.ExpectPrepare("DELETE FROM stories").
		ExpectExec().
		WithArgs("s1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = backend.DeleteStory("s1", "u1")
	if err != nil {
		t.Fatal(err)
	}
}

func TestBackend_MarkSeen(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	backend := stories.NewBackend(db)

	mock.ExpectPrepare("INSERT INTO story_views").
		ExpectExec().
		WithArgs("viewer", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = backend.MarkSeen("viewer", "s1")
	if err != nil {
		t.Fatal(err)
	}
}
