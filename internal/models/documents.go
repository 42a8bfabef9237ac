// Package models defines the document types persisted by the Mindscape admin core.
//
// Collections are schema-less: the app proper writes them, this tool only
// inspects well-known fields. Documents are therefore plain maps with tolerant
// accessors, so unknown fields survive a load/save round trip.
package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// User is a profile document. The natural key is the email field.
type User map[string]any

// Email returns the user's email, or "" when the field is missing.
func (u User) Email() string { return stringField(u, "email") }

// ID returns the optional synthetic id field.
func (u User) ID() string { return stringField(u, "id") }

// Role returns the role field ("admin" marks administrators).
func (u User) Role() string { return stringField(u, "role") }

// Name returns the display name field.
func (u User) Name() string { return stringField(u, "name") }

// Redacted returns a copy without the password field. The admin surface
// never exposes stored credentials.
func (u User) Redacted() User {
	out := make(User, len(u))
	for k, v := range u {
		if k == "password" {
			continue
		}
		out[k] = v
	}
	return out
}

// Post is a feed entry document. Author references a User's email; nothing
// enforces that reference, so orphaned posts are a legal state.
type Post map[string]any

// ID returns the stable post id, assigned by the id migration when the app
// did not provide one.
func (p Post) ID() string { return stringField(p, "id") }

// Author returns the author email field.
func (p Post) Author() string { return stringField(p, "author") }

// Content returns the post body field.
func (p Post) Content() string { return stringField(p, "content") }

// Timestamp returns the raw timestamp field; it may be absent or malformed.
func (p Post) Timestamp() any { return p["timestamp"] }

// Time parses the post timestamp. ok is false when the field is missing or
// not parsable; such posts are excluded from time-based computations.
func (p Post) Time() (time.Time, bool) { return ParseTime(p["timestamp"]) }

// VitalSample is one biometric reading inside a vitals entry.
type VitalSample map[string]any

// Timestamp returns the raw timestamp field.
func (v VitalSample) Timestamp() any { return v["timestamp"] }

// Time parses the sample timestamp.
func (v VitalSample) Time() (time.Time, bool) { return ParseTime(v["timestamp"]) }

// HeartRate parses the heartRate field.
func (v VitalSample) HeartRate() (float64, bool) { return ParseHeartRate(v["heartRate"]) }

// RawHeartRate returns the heartRate field as stored.
func (v VitalSample) RawHeartRate() any { return v["heartRate"] }

// Vitals maps an owner key to an undecoded vitals entry. The owner key is
// either the user's email or their id; the scheme is mixed across legacy
// records, so lookups must try email first and fall back to id. Entries stay
// raw so a save never rewrites records that were not touched.
type Vitals map[string]json.RawMessage

type vitalsEntry struct {
	Vitals []VitalSample `json:"vitals"`
}

// Samples decodes the entry stored under key. A missing key or an entry that
// does not decode yields nil.
func (vs Vitals) Samples(key string) []VitalSample {
	raw, ok := vs[key]
	if !ok {
		return nil
	}
	var entry vitalsEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil
	}
	return entry.Vitals
}

// Settings is the feature-flag singleton. Both flags are always persisted
// together as one document.
type Settings struct {
	PostingEnabled  bool `json:"posting_enabled"`
	MaintenanceMode bool `json:"maintenance_mode"`
}

// DefaultSettings mirrors the documented defaults for a missing settings file.
func DefaultSettings() Settings {
	return Settings{PostingEnabled: true, MaintenanceMode: false}
}

// Rooms is the read-only chat room reference document; the admin core only
// consumes the room count.
type Rooms struct {
	Rooms []any `json:"rooms"`
}

// timeLayouts are tried in order. Layouts without a zone are read as UTC,
// matching how the app writes naive timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime interprets a document timestamp field. ok is false for missing,
// non-string, or unparsable values.
func ParseTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseHeartRate interprets a heartRate field. The app stores numbers, but
// legacy records also carry numeric strings.
func ParseHeartRate(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func stringField(doc map[string]any, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}
