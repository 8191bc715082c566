package admin

import "time"

// StatusRow is the provider list line on the plugins listing view.
type StatusRow struct {
	Exists     bool      `json:"exists"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
	Message    string    `json:"message"`
	RefreshURL string    `json:"refresh_url"`
}

// StatusResponse is returned by GET /admin/api/v1/oembed/status.
type StatusResponse struct {
	ProvidersURL string    `json:"providers_url"`
	File         string    `json:"file,omitempty"`
	Size         int64     `json:"size,omitempty"`
	Row          StatusRow `json:"row"`
}

// RefreshResponse is returned by POST /admin/api/v1/oembed/refresh.
type RefreshResponse struct {
	Refreshed bool   `json:"refreshed"`
	Kind      string `json:"kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// OverviewResponse is returned by GET /admin/api/v1/overview.
type OverviewResponse struct {
	Uptime             string     `json:"uptime"`
	Version            string     `json:"version"`
	GoVersion          string     `json:"go_version"`
	ProvidersURL       string     `json:"providers_url"`
	ProvidersUpdatedAt *time.Time `json:"providers_updated_at,omitempty"`
}
