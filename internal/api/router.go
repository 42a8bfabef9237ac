package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mindadmin/internal/aggregate"
	"github.com/starford/mindadmin/internal/audit"
	"github.com/starford/mindadmin/internal/export"
	"github.com/starford/mindadmin/internal/integrity"
	"github.com/starford/mindadmin/internal/settings"
	"github.com/starford/mindadmin/internal/store"
)

// NewRouter creates a chi router with all admin API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(st *store.Store, coord *integrity.Coordinator, stats *aggregate.Aggregator, exp *export.Builder, gate *settings.Gate, auditLog *audit.Log, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(st, coord, stats, exp, gate, auditLog)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Overview.
	r.Get("/overview", h.Overview)

	// Users.
	r.Get("/users", h.ListUsers)
	r.Delete("/users", h.PurgeNonAdminUsers)
	r.Delete("/users/{email}", h.DeleteUser)
	r.Delete("/users/{email}/posts", h.DeleteUserPosts)
	r.Get("/users/{email}/report", h.UserReport)

	// Posts.
	r.Get("/posts", h.ListPosts)
	r.Delete("/posts", h.PurgeAllPosts)
	r.Delete("/posts/{id}", h.DeletePost)

	// Analytics.
	r.Get("/analytics/posts-by-day", h.PostsByDay)
	r.Get("/analytics/daily-activity", h.DailyActivity)
	r.Get("/analytics/heart-rate", h.HeartRate)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	// Maintenance and export.
	r.Post("/maintenance/normalize-vitals", h.NormalizeVitals)
	r.Get("/backup", h.Backup)
	r.Get("/audit", h.Audit)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
