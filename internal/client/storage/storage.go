// Package storage keeps the terminal client's local state: the server it
// talks to and the scope cookie that plays the part of browser local
// storage.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
)

// DefaultFile is where the client state lives unless told otherwise.
const DefaultFile = "healthchat.json"

// LocalStorage is the client state persisted between runs.
type LocalStorage struct {
	// BaseURL is the server the scope belongs to.
	BaseURL string `json:"base_url"`
	// Scope is the value of the server's scope cookie.
	Scope string `json:"scope"`
	// Name is the display name from the last signup or login.
	Name string `json:"name,omitempty"`

	mu   sync.Mutex
	path string
}

// Open loads the state at path. A missing file yields empty state.
func Open(path string) (*LocalStorage, error) {
	if path == "" {
		path = DefaultFile
	}
	ls := &LocalStorage{path: path}
	if err := ls.Load(); err != nil {
		return nil, err
	}
	return ls, nil
}

// Load reads the state file.
func (ls *LocalStorage) Load() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	f, err := os.Open(ls.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ls.BaseURL, ls.Scope, ls.Name = "", "", ""
			return nil
		}
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(ls)
}

// Save writes the state file, readable by the owner only.
func (ls *LocalStorage) Save() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	f, err := os.OpenFile(ls.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(ls)
}

// ScopeFor returns the stored scope when it was issued by baseURL.
func (ls *LocalStorage) ScopeFor(baseURL string) string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.BaseURL != baseURL {
		return ""
	}
	return ls.Scope
}

// SetScope records the scope issued by baseURL and reports whether it
// changed.
func (ls *LocalStorage) SetScope(baseURL, scope string) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.BaseURL == baseURL && ls.Scope == scope {
		return false
	}
	if ls.BaseURL != baseURL {
		ls.Name = ""
	}
	ls.BaseURL, ls.Scope = baseURL, scope
	return true
}

// SetName records the display name.
func (ls *LocalStorage) SetName(name string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.Name = name
}

// DisplayName returns the stored display name.
func (ls *LocalStorage) DisplayName() string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.Name
}
