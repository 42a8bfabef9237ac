package store_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/mindadmin/internal/models"
	"github.com/starford/mindadmin/internal/store"
	"github.com/starford/mindadmin/internal/testutil"
)

func TestDefaultsOnMissingFiles(t *testing.T) {
	_, st := testutil.TestStore(t)

	if got := st.Users(); len(got) != 0 {
		t.Errorf("Users = %v, want empty", got)
	}
	if got := st.Posts(); len(got) != 0 {
		t.Errorf("Posts = %v, want empty", got)
	}
	if got := st.Rooms(); len(got) != 0 {
		t.Errorf("Rooms = %v, want empty", got)
	}
	if got := st.Vitals(); len(got) != 0 {
		t.Errorf("Vitals = %v, want empty", got)
	}
	flags := st.Settings()
	if !flags.PostingEnabled || flags.MaintenanceMode {
		t.Errorf("Settings = %+v, want posting enabled and maintenance off", flags)
	}
}

func TestDefaultsOnCorruptFiles(t *testing.T) {
	dataDir, st := testutil.TestStore(t)

	for _, name := range store.Files {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if got := st.Users(); len(got) != 0 {
		t.Errorf("Users = %v, want empty", got)
	}
	if got := st.Posts(); len(got) != 0 {
		t.Errorf("Posts = %v, want empty", got)
	}
	if got := st.Rooms(); len(got) != 0 {
		t.Errorf("Rooms = %v, want empty", got)
	}
	if got := st.Vitals(); len(got) != 0 {
		t.Errorf("Vitals = %v, want empty", got)
	}
	flags := st.Settings()
	if !flags.PostingEnabled || flags.MaintenanceMode {
		t.Errorf("Settings = %+v, want defaults", flags)
	}
}

func TestUsersRoundTrip(t *testing.T) {
	_, st := testutil.TestStore(t)

	users := []models.User{
		{"email": "a@x.com", "name": "Alice", "shoe_size": float64(38)},
		{"email": "b@x.com", "role": "admin"},
	}
	if err := st.SaveUsers(users); err != nil {
		t.Fatalf("SaveUsers: %v", err)
	}
	got := st.Users()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Email() != "a@x.com" || got[0].Name() != "Alice" {
		t.Errorf("user[0] = %v", got[0])
	}
	// Unknown fields survive the round trip.
	if got[0]["shoe_size"] != float64(38) {
		t.Errorf("shoe_size = %v, want 38", got[0]["shoe_size"])
	}
	if got[1].Role() != "admin" {
		t.Errorf("role = %q", got[1].Role())
	}
}

func TestPostsRoundTrip(t *testing.T) {
	_, st := testutil.TestStore(t)

	posts := []models.Post{
		{"author": "a@x.com", "content": "hi", "timestamp": "2024-01-01T00:00:00Z"},
		{"author": "b@x.com", "content": "no timestamp"},
	}
	if err := st.SavePosts(posts); err != nil {
		t.Fatalf("SavePosts: %v", err)
	}
	got := st.Posts()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Author() != "a@x.com" || got[0].Content() != "hi" {
		t.Errorf("post[0] = %v", got[0])
	}
	if _, ok := got[1].Time(); ok {
		t.Error("post without timestamp should not parse")
	}
}

func TestVitalsRoundTripKeepsUntouchedEntriesVerbatim(t *testing.T) {
	dataDir, st := testutil.TestStore(t)

	raw := `{
  "a@x.com": {"vitals": [{"timestamp": "2024-01-01T00:00:00Z", "heartRate": 72}], "device": "watch-3"},
  "u-42": {"vitals": []}
}`
	if err := os.WriteFile(filepath.Join(dataDir, store.VitalsFile), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	vitals := st.Vitals()
	delete(vitals, "u-42")
	if err := st.SaveVitals(vitals); err != nil {
		t.Fatalf("SaveVitals: %v", err)
	}

	got := st.Vitals()
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	// The sibling field next to "vitals" must survive a save that never
	// decoded the entry.
	var entry map[string]any
	if err := json.Unmarshal(got["a@x.com"], &entry); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if entry["device"] != "watch-3" {
		t.Errorf("device = %v, want watch-3", entry["device"])
	}
	samples := got.Samples("a@x.com")
	if len(samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(samples))
	}
	if hr, ok := samples[0].HeartRate(); !ok || hr != 72 {
		t.Errorf("heartRate = %v ok=%t, want 72", hr, ok)
	}
}

func TestSettingsRoundTripAndPartialDocument(t *testing.T) {
	dataDir, st := testutil.TestStore(t)

	if err := st.SaveSettings(models.Settings{PostingEnabled: false, MaintenanceMode: true}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	flags := st.Settings()
	if flags.PostingEnabled || !flags.MaintenanceMode {
		t.Errorf("Settings = %+v", flags)
	}

	// A document missing a field keeps that field's default.
	if err := os.WriteFile(filepath.Join(dataDir, store.SettingsFile), []byte(`{"maintenance_mode": true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	flags = st.Settings()
	if !flags.PostingEnabled {
		t.Error("absent posting_enabled should default to true")
	}
	if !flags.MaintenanceMode {
		t.Error("maintenance_mode should be true")
	}
}

func TestRoomsReadOnly(t *testing.T) {
	dataDir, st := testutil.TestStore(t)

	raw := `{"rooms": [{"name": "calm"}, {"name": "focus"}]}`
	if err := os.WriteFile(filepath.Join(dataDir, store.RoomsFile), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := len(st.Rooms()); got != 2 {
		t.Errorf("rooms = %d, want 2", got)
	}
}

func TestRawAndExists(t *testing.T) {
	_, st := testutil.TestStore(t)

	if st.Exists(store.PostsFile) {
		t.Error("posts.json should not exist yet")
	}
	if err := st.SavePosts([]models.Post{{"author": "a@x.com"}}); err != nil {
		t.Fatal(err)
	}
	if !st.Exists(store.PostsFile) {
		t.Error("posts.json should exist after save")
	}
	data, err := st.Raw(store.PostsFile)
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	var decoded []models.Post
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("raw bytes not valid JSON: %v", err)
	}
}
