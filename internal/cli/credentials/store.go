// Package credentials persists the single opaque remote token a SafeDrive
// client authenticates with, alongside small local preferences (default
// output format, color). Unlike a server that juggles many named contexts,
// one SafeDrive account directory talks to exactly one remote store under
// exactly one token, so there is no context-switching surface here.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/safedrive/safedrive-engine/pkg/remote"
)

const (
	// FileName is the name of the credentials file within the account
	// directory.
	FileName = "credentials.json"
	// FilePermissions restricts the credentials file to its owner: it holds
	// a bearer token for the remote store.
	FilePermissions = 0600
	// DirPermissions for the account directory, if it doesn't already exist.
	DirPermissions = 0700
)

// ErrNotLoggedIn is returned by Token when no token has been saved yet.
var ErrNotLoggedIn = errors.New("not logged in - run 'safedrive init' first")

// Preferences holds small CLI display preferences, independent of the
// account's authentication state.
type Preferences struct {
	DefaultOutput string `json:"default_output,omitempty"` // table, json, yaml
	Color         string `json:"color,omitempty"`          // auto, always, never
}

type fileContents struct {
	Token       remote.Token `json:"token,omitempty"`
	Preferences Preferences  `json:"preferences,omitempty"`
}

// Store manages the on-disk credentials file under one account directory.
type Store struct {
	path string
	data fileContents
}

// NewStore opens (or initializes) the credentials file under accountDir
// (typically config.AccountConfig.Dir).
func NewStore(accountDir string) (*Store, error) {
	s := &Store{path: filepath.Join(accountDir, FileName)}
	if err := s.load(); err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, &s.data)
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), DirPermissions); err != nil {
		return fmt.Errorf("cannot create account directory: %w", err)
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, FilePermissions)
}

// Token returns the saved remote token, or ErrNotLoggedIn if none has been
// saved.
func (s *Store) Token() (remote.Token, error) {
	if s.data.Token == "" {
		return "", ErrNotLoggedIn
	}
	return s.data.Token, nil
}

// SetToken saves token, replacing whatever was saved before.
func (s *Store) SetToken(token remote.Token) error {
	s.data.Token = token
	return s.save()
}

// Clear removes the saved token (logout) without touching preferences.
func (s *Store) Clear() error {
	s.data.Token = ""
	return s.save()
}

// Preferences returns the saved display preferences.
func (s *Store) Preferences() Preferences {
	return s.data.Preferences
}

// SetPreferences saves prefs.
func (s *Store) SetPreferences(prefs Preferences) error {
	s.data.Preferences = prefs
	return s.save()
}

// Path returns the credentials file's on-disk path.
func (s *Store) Path() string {
	return s.path
}
