// Package prefs persists the few user preferences that outlive a session.
// Today that is only the light/dark theme.
package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/youruser/certgen/internal/util"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark:
		return t, nil
	}
	return "", fmt.Errorf("unknown theme %q (want light or dark)", s)
}

type Prefs struct {
	Theme Theme `toml:"theme" json:"theme"`
}

func Default() Prefs { return Prefs{Theme: ThemeLight} }

// Store reads and writes preferences as a TOML file.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

// Load returns the saved preferences, or defaults when none exist.
func (s *Store) Load() (Prefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Default()
	if _, err := toml.DecodeFile(s.path, &p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("read prefs: %w", err)
	}
	if _, err := ParseTheme(string(p.Theme)); err != nil {
		p.Theme = ThemeLight
	}
	return p, nil
}

func (s *Store) Save(p Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(p); err != nil {
		return err
	}
	return util.WriteFile(s.path, buf.Bytes())
}
