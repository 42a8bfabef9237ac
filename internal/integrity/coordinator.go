// Package integrity enforces cascade and purge rules across collections.
package integrity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/mindadmin/internal/apperr"
	"github.com/starford/mindadmin/internal/models"
	"github.com/starford/mindadmin/internal/store"
)

// Coordinator applies multi-collection mutations through the record store.
type Coordinator struct {
	store      *store.Store
	adminEmail string
}

// New creates a Coordinator. adminEmail is the configured administrator
// address that purges must always retain.
func New(st *store.Store, adminEmail string) *Coordinator {
	return &Coordinator{store: st, adminEmail: adminEmail}
}

// CascadeResult reports what DeleteUser removed.
type CascadeResult struct {
	UserRemoved   bool `json:"user_removed"`
	PostsRemoved  int  `json:"posts_removed"`
	VitalsRemoved bool `json:"vitals_removed"`
}

// DeleteUser removes the user with the given email, every post authored by
// that email, and at most one vitals entry: keyed by email when present,
// else by the user's id field. The rewritten collections go to disk as one
// staged commit, so an interruption leaves the store pre- or post-cascade,
// never a mix. Calling it again is a no-op.
func (c *Coordinator) DeleteUser(email string) (CascadeResult, error) {
	var res CascadeResult

	users := c.store.Users()
	var target models.User
	keptUsers := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.Email() == email && target == nil {
			target = u
			res.UserRemoved = true
			continue
		}
		keptUsers = append(keptUsers, u)
	}

	posts := c.store.Posts()
	keptPosts := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if p.Author() == email {
			res.PostsRemoved++
			continue
		}
		keptPosts = append(keptPosts, p)
	}

	// Email key wins over id key; never both.
	vitals := c.store.Vitals()
	if _, ok := vitals[email]; ok {
		delete(vitals, email)
		res.VitalsRemoved = true
	} else if target != nil {
		if id := target.ID(); id != "" {
			if _, ok := vitals[id]; ok {
				delete(vitals, id)
				res.VitalsRemoved = true
			}
		}
	}

	files := make(map[string][]byte, 3)
	var err error
	if files[store.UsersFile], err = store.Encode(keptUsers); err != nil {
		return res, fmt.Errorf("integrity: cascade users: %w", err)
	}
	if files[store.PostsFile], err = store.Encode(keptPosts); err != nil {
		return res, fmt.Errorf("integrity: cascade posts: %w", err)
	}
	if res.VitalsRemoved {
		if files[store.VitalsFile], err = store.Encode(vitals); err != nil {
			return res, fmt.Errorf("integrity: cascade vitals: %w", err)
		}
	}
	if err := c.store.CommitAll(files); err != nil {
		return res, fmt.Errorf("integrity: cascade commit: %w", err)
	}
	return res, nil
}

// DeleteUserPosts removes all posts authored by email. The user document and
// vitals entry are untouched.
func (c *Coordinator) DeleteUserPosts(email string) (int, error) {
	posts := c.store.Posts()
	kept := make([]models.Post, 0, len(posts))
	removed := 0
	for _, p := range posts {
		if p.Author() == email {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	if err := c.store.SavePosts(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// DeletePost removes one post by its stable id. Posts written before the id
// migration get one at startup via EnsurePostIDs.
func (c *Coordinator) DeletePost(id string) error {
	posts := c.store.Posts()
	kept := make([]models.Post, 0, len(posts))
	found := false
	for _, p := range posts {
		if !found && p.ID() == id && id != "" {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return apperr.ErrNotFound
	}
	return c.store.SavePosts(kept)
}

// EnsurePostIDs assigns a generated id to every post lacking one and returns
// how many were stamped. Run at startup so DeletePost always has a key.
func (c *Coordinator) EnsurePostIDs() (int, error) {
	posts := c.store.Posts()
	stamped := 0
	for _, p := range posts {
		if p.ID() == "" {
			p["id"] = uuid.NewString()
			stamped++
		}
	}
	if stamped == 0 {
		return 0, nil
	}
	if err := c.store.SavePosts(posts); err != nil {
		return 0, err
	}
	return stamped, nil
}

// NormalizeVitalsKeys re-keys email-keyed vitals entries to the owner's id
// where one exists, migrating legacy records toward the single stable key
// scheme. Entries whose owner has no id, or whose id slot is already taken,
// are left alone. Returns how many entries moved.
func (c *Coordinator) NormalizeVitalsKeys() (int, error) {
	idByEmail := make(map[string]string)
	for _, u := range c.store.Users() {
		if email, id := u.Email(), u.ID(); email != "" && id != "" {
			idByEmail[email] = id
		}
	}

	vitals := c.store.Vitals()
	moved := 0
	for key, raw := range vitals {
		id, ok := idByEmail[key]
		if !ok || id == key {
			continue
		}
		if _, taken := vitals[id]; taken {
			continue
		}
		vitals[id] = raw
		delete(vitals, key)
		moved++
	}
	if moved == 0 {
		return 0, nil
	}
	if err := c.store.SaveVitals(vitals); err != nil {
		return 0, err
	}
	return moved, nil
}

// PurgeNonAdminUsers drops every user except the configured administrator
// address and users whose role is "admin". It deliberately does not cascade:
// the purged users' posts and vitals stay behind as visible orphans.
func (c *Coordinator) PurgeNonAdminUsers() (int, error) {
	users := c.store.Users()
	kept := make([]models.User, 0, len(users))
	removed := 0
	for _, u := range users {
		if u.Email() == c.adminEmail || u.Role() == "admin" {
			kept = append(kept, u)
			continue
		}
		removed++
	}
	if err := c.store.SaveUsers(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// PurgeAllPosts empties the post collection unconditionally.
func (c *Coordinator) PurgeAllPosts() (int, error) {
	removed := len(c.store.Posts())
	if err := c.store.SavePosts([]models.Post{}); err != nil {
		return 0, err
	}
	return removed, nil
}
