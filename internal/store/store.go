// Package store provides typed whole-collection access to the flat-JSON
// documents backing the Mindscape app.
//
// The store holds no cache between operations: every call re-reads persisted
// state. There is no locking either — concurrent admin sessions race and the
// last save wins. That is the documented contract for this single-admin
// tool; multiple concurrent administrators would need file locking or a
// transactional store instead.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/mindadmin/internal/models"
	"github.com/starford/mindadmin/internal/storage"
)

// Collection file names inside the data directory.
const (
	UsersFile    = "users.json"
	PostsFile    = "posts.json"
	RoomsFile    = "rooms.json"
	VitalsFile   = "vitals.json"
	SettingsFile = "settings.json"
)

// Files lists every collection file a full backup may include.
var Files = []string{UsersFile, PostsFile, RoomsFile, VitalsFile, SettingsFile}

// Store reads and writes whole collections through a storage.Provider.
type Store struct {
	files  storage.Provider
	logger *slog.Logger
}

// New creates a Store over the given provider.
func New(files storage.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{files: files, logger: logger}
}

// Users returns the user collection, or the empty default when the backing
// file is missing or corrupt.
func (s *Store) Users() []models.User {
	var users []models.User
	if data, ok := s.read(UsersFile); ok {
		if err := json.Unmarshal(data, &users); err != nil {
			s.warnCorrupt(UsersFile, err)
			return []models.User{}
		}
	}
	if users == nil {
		users = []models.User{}
	}
	return users
}

// SaveUsers replaces the user collection.
func (s *Store) SaveUsers(users []models.User) error {
	return s.save(UsersFile, users)
}

// Posts returns the post collection, or the empty default.
func (s *Store) Posts() []models.Post {
	var posts []models.Post
	if data, ok := s.read(PostsFile); ok {
		if err := json.Unmarshal(data, &posts); err != nil {
			s.warnCorrupt(PostsFile, err)
			return []models.Post{}
		}
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts
}

// SavePosts replaces the post collection.
func (s *Store) SavePosts(posts []models.Post) error {
	return s.save(PostsFile, posts)
}

// Rooms returns the room list from the read-only reference document.
func (s *Store) Rooms() []any {
	var doc models.Rooms
	if data, ok := s.read(RoomsFile); ok {
		if err := json.Unmarshal(data, &doc); err != nil {
			s.warnCorrupt(RoomsFile, err)
			return []any{}
		}
	}
	if doc.Rooms == nil {
		doc.Rooms = []any{}
	}
	return doc.Rooms
}

// Vitals returns the vitals collection, or the empty default.
func (s *Store) Vitals() models.Vitals {
	var vitals models.Vitals
	if data, ok := s.read(VitalsFile); ok {
		if err := json.Unmarshal(data, &vitals); err != nil {
			s.warnCorrupt(VitalsFile, err)
			return models.Vitals{}
		}
	}
	if vitals == nil {
		vitals = models.Vitals{}
	}
	return vitals
}

// SaveVitals replaces the vitals collection.
func (s *Store) SaveVitals(vitals models.Vitals) error {
	return s.save(VitalsFile, vitals)
}

// Settings returns the feature-flag document. Absent fields keep their
// documented defaults (posting enabled, maintenance off).
func (s *Store) Settings() models.Settings {
	settings := models.DefaultSettings()
	if data, ok := s.read(SettingsFile); ok {
		decoded := models.DefaultSettings()
		if err := json.Unmarshal(data, &decoded); err != nil {
			s.warnCorrupt(SettingsFile, err)
			return settings
		}
		settings = decoded
	}
	return settings
}

// SaveSettings persists both flags together as one document.
func (s *Store) SaveSettings(settings models.Settings) error {
	return s.save(SettingsFile, settings)
}

// Raw returns the current persisted bytes of a collection file.
func (s *Store) Raw(name string) ([]byte, error) {
	return s.files.Read(name)
}

// Exists reports whether a collection file currently exists on disk.
func (s *Store) Exists(name string) bool {
	return s.files.Exists(name)
}

// CommitAll writes several collections as one staged commit. Used by the
// cascade so an interruption leaves the store pre- or post-cascade only.
func (s *Store) CommitAll(files map[string][]byte) error {
	return s.files.WriteAll(files)
}

// Encode renders a collection the way save persists it, for staged commits.
func Encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	return data, nil
}

// read returns the file's bytes, with ok=false for a missing file. An
// unreadable file degrades to the default too, but is reported.
func (s *Store) read(name string) ([]byte, bool) {
	data, err := s.files.Read(name)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("store: unreadable collection, using default",
				slog.String("file", name),
				slog.String("error", err.Error()))
		}
		return nil, false
	}
	return data, true
}

func (s *Store) warnCorrupt(name string, err error) {
	s.logger.Warn("store: corrupt collection, using default",
		slog.String("file", name),
		slog.String("error", err.Error()))
}

// save marshals with two-space indent, matching the format the app writes.
func (s *Store) save(name string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("store: %s: %w", name, err)
	}
	return s.files.Write(name, data)
}
