package api

import (
	"github.com/starford/mindadmin/internal/aggregate"
	"github.com/starford/mindadmin/internal/audit"
	"github.com/starford/mindadmin/internal/integrity"
	"github.com/starford/mindadmin/internal/models"
)

// OverviewResponse mirrors the original dashboard's overview metrics.
type OverviewResponse struct {
	TotalUsers      int  `json:"total_users"`
	TotalPosts      int  `json:"total_posts"`
	TotalRooms      int  `json:"total_rooms"`
	PostingEnabled  bool `json:"posting_enabled"`
	MaintenanceMode bool `json:"maintenance_mode"`
}

// UserListResponse wraps the (password-redacted) user collection.
type UserListResponse struct {
	Users []models.User `json:"users"`
	Total int           `json:"total"`
}

// PostListResponse wraps the post collection.
type PostListResponse struct {
	Posts []models.Post `json:"posts"`
	Total int           `json:"total"`
}

// CascadeResponse is returned by the user cascade delete.
type CascadeResponse = integrity.CascadeResult

// RemovedResponse reports a bulk removal count.
type RemovedResponse struct {
	Removed int `json:"removed"`
}

// MovedResponse reports a migration count.
type MovedResponse struct {
	Moved int `json:"moved"`
}

// SeriesResponse wraps a daily series.
type SeriesResponse struct {
	Window int                  `json:"window,omitempty"`
	Days   []aggregate.DayCount `json:"days"`
}

// HeartRateResponse wraps the heart-rate summary. NoData is set (and the
// summary omitted) when no sample parses.
type HeartRateResponse struct {
	NoData  bool               `json:"no_data,omitempty"`
	Summary *aggregate.Summary `json:"summary,omitempty"`
}

// UpdateSettingsRequest requires both flags: the gate persists them together
// and never updates one without the other.
type UpdateSettingsRequest struct {
	PostingEnabled  *bool `json:"posting_enabled"`
	MaintenanceMode *bool `json:"maintenance_mode"`
}

// AuditResponse wraps recent audit events.
type AuditResponse struct {
	Events []audit.Event `json:"events"`
}
