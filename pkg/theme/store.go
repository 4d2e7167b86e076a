// Package theme persists the light or dark preference to local device storage.
package theme

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

const fileName = "theme"

type Store struct {
	mu sync.Mutex

	path  string
	theme Theme
}

// NewStore returns a store rooted at path. A missing or corrupt preference
// file falls back to dark.
func NewStore(path string) *Store {
	s := &Store{path: filepath.Join(path, fileName), theme: Dark}

	raw, err := ioutil.ReadFile(s.path)
	if err == nil && Theme(strings.TrimSpace(string(raw))) == Light {
		s.theme = Light
	}

	return s
}

func (s *Store) Current() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.theme
}

func (s *Store) IsDark() bool {
	return s.Current() == Dark
}

// Toggle flips the preference and persists it.
func (s *Store) Toggle() (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.theme == Dark {
		s.theme = Light
	} else {
		s.theme = Dark
	}

	return s.theme, s.write()
}

// Set persists an explicit preference.
func (s *Store) Set(theme Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.theme = theme
	return s.write()
}

func (s *Store) write() error {
	err := os.MkdirAll(filepath.Dir(s.path), 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(s.path, []byte(s.theme), 0644)
}
