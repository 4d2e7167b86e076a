package theme_test

import (
	"io/ioutil"
	"testing"

	"github.com/framezsocial/framez/pkg/theme"
)

func TestStore_DefaultsToDark(t *testing.T) {
	store := theme.NewStore(t.TempDir())

	if store.Current() != theme.Dark {
		t.Fatalf("expected dark default, got %s", store.Current())
	}
}

func TestStore_TogglePersists(t *testing.T) {
	dir := t.TempDir()

	store := theme.NewStore(dir)

	current, err := store.Toggle()
	if err != nil {
		t.Fatal(err)
	}

	if current != theme.Light {
		t.Fatalf("expected light, got %s", current)
	}

	reloaded := theme.NewStore(dir)
	if reloaded.Current() != theme.Light {
		t.Fatalf("preference not persisted, got %s", reloaded.Current())
	}
}

func TestStore_CorruptFileFallsBack(t *testing.T) {
	dir := t.TempDir()

	err := ioutil.WriteFile(dir+"/theme", []byte("purple"), 0644)
	if err != nil {
		t.Fatal(err)
	}

	store := theme.NewStore(dir)
	if store.Current() != theme.Dark {
		t.Fatalf("expected dark fallback, got %s", store.Current())
	}
}
