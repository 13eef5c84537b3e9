// profiles.go manages saved database profiles.
//
// Profiles are stored in ~/.mvrodados/profiles.json so the same binary
// can be pointed at the shop database, a staging copy, or a local
// sqlite file without retyping credentials.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Profile is a named, saveable database target.
type Profile struct {
	Name string `json:"name"`
	DB   Config `json:"db"`
}

// ProfileStore manages saved profiles on disk.
type ProfileStore struct {
	path     string
	Profiles []Profile `json:"profiles"`
}

// NewProfileStore loads the store from dir, or ~/.mvrodados when dir is empty.
func NewProfileStore(dir string) (*ProfileStore, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(homeDir, ".mvrodados")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	store := &ProfileStore{path: filepath.Join(dir, "profiles.json")}

	data, err := os.ReadFile(store.path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	return store, nil
}

// Save writes all profiles to disk.
func (s *ProfileStore) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Put adds or replaces a profile by name.
func (s *ProfileStore) Put(p Profile) {
	for i, existing := range s.Profiles {
		if existing.Name == p.Name {
			s.Profiles[i] = p
			return
		}
	}
	s.Profiles = append(s.Profiles, p)
	sort.Slice(s.Profiles, func(i, j int) bool { return s.Profiles[i].Name < s.Profiles[j].Name })
}

// Delete removes a profile by name and reports whether it existed.
func (s *ProfileStore) Delete(name string) bool {
	for i, p := range s.Profiles {
		if p.Name == name {
			s.Profiles = append(s.Profiles[:i], s.Profiles[i+1:]...)
			return true
		}
	}
	return false
}

// Get retrieves a profile by name.
func (s *ProfileStore) Get(name string) (Profile, bool) {
	for _, p := range s.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Apply replaces cfg.DB with the named profile's database settings.
// The password from the environment wins over an empty stored one.
func (s *ProfileStore) Apply(cfg *AppConfig, name string) error {
	p, ok := s.Get(name)
	if !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	password := cfg.DB.Password
	cfg.DB = p.DB
	if cfg.DB.Password == "" {
		cfg.DB.Password = password
	}
	return nil
}
