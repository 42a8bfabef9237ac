package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mindadmin/internal/aggregate"
	"github.com/starford/mindadmin/internal/apperr"
	"github.com/starford/mindadmin/internal/audit"
	"github.com/starford/mindadmin/internal/checksum"
	"github.com/starford/mindadmin/internal/export"
	"github.com/starford/mindadmin/internal/integrity"
	"github.com/starford/mindadmin/internal/models"
	"github.com/starford/mindadmin/internal/settings"
	"github.com/starford/mindadmin/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	store  *store.Store
	coord  *integrity.Coordinator
	stats  *aggregate.Aggregator
	export *export.Builder
	gate   *settings.Gate
	audit  *audit.Log
}

// NewHandler creates a new Handler.
func NewHandler(st *store.Store, coord *integrity.Coordinator, stats *aggregate.Aggregator, exp *export.Builder, gate *settings.Gate, auditLog *audit.Log) *Handler {
	return &Handler{store: st, coord: coord, stats: stats, export: exp, gate: gate, audit: auditLog}
}

// emailParam extracts the email path parameter, tolerating percent-encoding.
func emailParam(r *http.Request) string {
	raw := chi.URLParam(r, "email")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Overview handles GET /overview: the dashboard headline metrics.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	flags := h.gate.Get()
	writeJSON(w, http.StatusOK, OverviewResponse{
		TotalUsers:      len(h.store.Users()),
		TotalPosts:      len(h.store.Posts()),
		TotalRooms:      len(h.store.Rooms()),
		PostingEnabled:  flags.PostingEnabled,
		MaintenanceMode: flags.MaintenanceMode,
	})
}

// ListUsers handles GET /users. Passwords are never returned.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users := h.store.Users()
	redacted := make([]models.User, len(users))
	for i, u := range users {
		redacted[i] = u.Redacted()
	}
	writeJSON(w, http.StatusOK, UserListResponse{Users: redacted, Total: len(redacted)})
}

// DeleteUser handles DELETE /users/{email}: the full cascade. Repeating the
// call is a no-op, so a result with nothing removed is still 200.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	if email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("email is required"))
		return
	}
	res, err := h.coord.DeleteUser(email)
	if err != nil {
		slog.Error("delete user failed", slog.String("email", email), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.record("user.delete", email, fmt.Sprintf("posts_removed=%d vitals_removed=%t", res.PostsRemoved, res.VitalsRemoved))
	writeJSON(w, http.StatusOK, res)
}

// DeleteUserPosts handles DELETE /users/{email}/posts. The user document and
// vitals entry are untouched.
func (h *Handler) DeleteUserPosts(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	if email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("email is required"))
		return
	}
	removed, err := h.coord.DeleteUserPosts(email)
	if err != nil {
		slog.Error("delete user posts failed", slog.String("email", email), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.record("user.delete_posts", email, fmt.Sprintf("removed=%d", removed))
	writeJSON(w, http.StatusOK, RemovedResponse{Removed: removed})
}

// UserReport handles GET /users/{email}/report: the CSV audit report.
func (h *Handler) UserReport(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	if email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("email is required"))
		return
	}
	data, err := h.export.UserReport(email)
	if err != nil {
		if errors.Is(err, apperr.ErrNoData) {
			writeJSON(w, http.StatusNotFound, errorBody("no posts or vitals for this user"))
		} else {
			slog.Error("user report failed", slog.String("email", email), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	filename := fmt.Sprintf("%s_report_%s.csv", email, time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// PurgeNonAdminUsers handles DELETE /users: drops everyone except the
// configured admin address and admin-role users. No cascade.
func (h *Handler) PurgeNonAdminUsers(w http.ResponseWriter, r *http.Request) {
	removed, err := h.coord.PurgeNonAdminUsers()
	if err != nil {
		slog.Error("purge users failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.record("users.purge", "", fmt.Sprintf("removed=%d", removed))
	writeJSON(w, http.StatusOK, RemovedResponse{Removed: removed})
}

// ListPosts handles GET /posts.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts := h.store.Posts()
	writeJSON(w, http.StatusOK, PostListResponse{Posts: posts, Total: len(posts)})
}

// DeletePost handles DELETE /posts/{id}: removes one post by stable id.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if err := h.coord.DeletePost(id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete post failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.record("post.delete", id, "")
	w.WriteHeader(http.StatusNoContent)
}

// PurgeAllPosts handles DELETE /posts.
func (h *Handler) PurgeAllPosts(w http.ResponseWriter, r *http.Request) {
	removed, err := h.coord.PurgeAllPosts()
	if err != nil {
		slog.Error("purge posts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.record("posts.purge", "", fmt.Sprintf("removed=%d", removed))
	writeJSON(w, http.StatusOK, RemovedResponse{Removed: removed})
}

// PostsByDay handles GET /analytics/posts-by-day?window=30.
func (h *Handler) PostsByDay(w http.ResponseWriter, r *http.Request) {
	window := 30
	if raw := r.URL.Query().Get("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("window must be a positive number of days"))
			return
		}
		window = n
	}
	days := h.stats.PostsByDay(time.Now(), window)
	writeJSON(w, http.StatusOK, SeriesResponse{Window: window, Days: days})
}

// DailyActivity handles GET /analytics/daily-activity: activity events per
// day across posts and vitals, not unique users.
func (h *Handler) DailyActivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SeriesResponse{Days: h.stats.DailyActivity()})
}

// HeartRate handles GET /analytics/heart-rate.
func (h *Handler) HeartRate(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.stats.HeartRateSummary()
	if !ok {
		writeJSON(w, http.StatusOK, HeartRateResponse{NoData: true})
		return
	}
	writeJSON(w, http.StatusOK, HeartRateResponse{Summary: &summary})
}

// GetSettings handles GET /settings. The ETag is the checksum of the
// canonical settings document, usable as If-Match on the update.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	flags := h.gate.Get()
	w.Header().Set("ETag", `"`+settingsChecksum(flags)+`"`)
	writeJSON(w, http.StatusOK, flags)
}

// UpdateSettings handles PUT /settings. Both flags must be supplied; an
// If-Match header, when present, must match the current document's checksum.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.PostingEnabled == nil || req.MaintenanceMode == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("posting_enabled and maintenance_mode are both required"))
		return
	}

	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	if ifMatch != "" && ifMatch != settingsChecksum(h.gate.Get()) {
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		return
	}

	flags := models.Settings{
		PostingEnabled:  *req.PostingEnabled,
		MaintenanceMode: *req.MaintenanceMode,
	}
	if err := h.gate.Set(flags); err != nil {
		slog.Error("update settings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.record("settings.update", "", fmt.Sprintf("posting_enabled=%t maintenance_mode=%t", flags.PostingEnabled, flags.MaintenanceMode))
	w.Header().Set("ETag", `"`+settingsChecksum(flags)+`"`)
	writeJSON(w, http.StatusOK, flags)
}

// NormalizeVitals handles POST /maintenance/normalize-vitals: the one-shot
// migration of email-keyed vitals entries to the owner's id.
func (h *Handler) NormalizeVitals(w http.ResponseWriter, r *http.Request) {
	moved, err := h.coord.NormalizeVitalsKeys()
	if err != nil {
		slog.Error("normalize vitals failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.record("vitals.normalize", "", fmt.Sprintf("moved=%d", moved))
	writeJSON(w, http.StatusOK, MovedResponse{Moved: moved})
}

// Backup handles GET /backup: a point-in-time ZIP of every existing
// collection file.
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.export.Backup(&buf); err != nil {
		slog.Error("backup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	filename := fmt.Sprintf("mindscape_data_%s.zip", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Checksum", checksum.Sum(buf.Bytes()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Audit handles GET /audit?limit=50: recent admin actions, newest first.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.audit.Recent(limit)
	if err != nil {
		slog.Error("audit query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, AuditResponse{Events: events})
}

// record writes an audit event; a failed write is logged and swallowed so
// auditing never blocks the admin action.
func (h *Handler) record(action, subject, detail string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(action, subject, detail); err != nil {
		slog.Warn("audit record failed", slog.String("action", action), slog.String("error", err.Error()))
	}
}

func settingsChecksum(flags models.Settings) string {
	data, _ := json.Marshal(flags)
	return checksum.Sum(data)
}
