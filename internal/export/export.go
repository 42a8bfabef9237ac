// Package export assembles per-user audit reports and full-system backup
// bundles from current store state.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/starford/mindadmin/internal/apperr"
	"github.com/starford/mindadmin/internal/models"
	"github.com/starford/mindadmin/internal/store"
)

// Builder reads collections through the store and renders export artifacts.
type Builder struct {
	store *store.Store
}

// New creates a Builder.
func New(st *store.Store) *Builder {
	return &Builder{store: st}
}

type reportRow struct {
	kind      string
	at        time.Time
	timestamp any
	content   string
	heartRate any
}

// UserReport renders the CSV audit report for one user: their posts and
// their vital samples (vitals resolved by email first, then by the user's
// id), sorted ascending by timestamp. Rows without a parsable timestamp are
// left out. An empty union returns apperr.ErrNoData so callers can say
// "nothing to export" instead of producing an empty file.
func (b *Builder) UserReport(email string) ([]byte, error) {
	var rows []reportRow

	for _, p := range b.store.Posts() {
		if p.Author() != email {
			continue
		}
		at, ok := p.Time()
		if !ok {
			continue
		}
		rows = append(rows, reportRow{
			kind:      "post",
			at:        at,
			timestamp: p.Timestamp(),
			content:   p.Content(),
		})
	}

	for _, sample := range b.userVitals(email) {
		at, ok := sample.Time()
		if !ok {
			continue
		}
		rows = append(rows, reportRow{
			kind:      "vital",
			at:        at,
			timestamp: sample.Timestamp(),
			heartRate: sample.RawHeartRate(),
		})
	}

	if len(rows) == 0 {
		return nil, apperr.ErrNoData
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"type", "timestamp", "content", "heartRate"})
	for _, r := range rows {
		_ = w.Write([]string{r.kind, cell(r.timestamp), r.content, cell(r.heartRate)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: render csv: %w", err)
	}
	return buf.Bytes(), nil
}

// userVitals resolves the vitals entry for email using the documented key
// fallback: the email itself first, then the user's id field. Neither
// matching means no data, not an error.
func (b *Builder) userVitals(email string) []models.VitalSample {
	vitals := b.store.Vitals()
	if _, ok := vitals[email]; ok {
		return vitals.Samples(email)
	}
	for _, u := range b.store.Users() {
		if u.Email() == email {
			if id := u.ID(); id != "" {
				return vitals.Samples(id)
			}
			break
		}
	}
	return nil
}

// Backup writes a deflate-compressed ZIP of the raw current bytes of every
// existing collection file to w, entries named by base filename. Collections
// with no backing file are omitted. Reads are sequential, not atomic across
// collections. Returns the entry names included.
func (b *Builder) Backup(w io.Writer) ([]string, error) {
	zw := zip.NewWriter(w)
	var included []string
	for _, name := range store.Files {
		if !b.store.Exists(name) {
			continue
		}
		data, err := b.store.Raw(name)
		if err != nil {
			// Deleted between the existence check and the read; treat it
			// like a missing collection.
			continue
		}
		entry, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("export: backup entry %s: %w", name, err)
		}
		if _, err := entry.Write(data); err != nil {
			return nil, fmt.Errorf("export: backup write %s: %w", name, err)
		}
		included = append(included, name)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("export: close backup: %w", err)
	}
	return included, nil
}

// cell renders a document field value for a CSV cell.
func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
