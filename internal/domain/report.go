package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrVersionNotFound = errors.New("version not found")
)

// Report is the persisted live copy of a document.
type Report struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Tree        ContentTree `json:"tree"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	LastSavedAt *time.Time  `json:"lastSavedAt,omitempty"`
}

type ReportSummary struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastSavedAt *time.Time `json:"lastSavedAt,omitempty"`
}

// Version is a read-only snapshot of a report's tree. An empty Label marks
// a version written by a plain save.
type Version struct {
	ID        string      `json:"id"`
	ReportID  string      `json:"reportId"`
	Label     string      `json:"label,omitempty"`
	Tree      ContentTree `json:"tree"`
	CreatedAt time.Time   `json:"createdAt"`
}

type ReportStore interface {
	LoadReport(ctx context.Context, id string) (*Report, error)
	SaveReport(ctx context.Context, r *Report) error
	ListReports(ctx context.Context) ([]ReportSummary, error)
	DeleteReport(ctx context.Context, id string) error

	AppendVersion(ctx context.Context, v *Version) error
	// ListVersions returns versions oldest first.
	ListVersions(ctx context.Context, reportID string) ([]Version, error)
	GetVersion(ctx context.Context, versionID string) (*Version, error)
	// PruneVersions drops the oldest unlabeled versions beyond keep.
	PruneVersions(ctx context.Context, reportID string, keep int) error
}

// SettingsStore persists small key/value preferences.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}
