// Package admin provides HTTP handlers for the admin API.
package admin

import (
	"context"
	"fmt"
	"time"

	"oembedfixes/internal/storage"
)

// ProviderList is the admin view of the provider table builder.
// *oembed.Builder satisfies this interface.
type ProviderList interface {
	Refresh(ctx context.Context) error
	Status(ctx context.Context) (storage.FileInfo, bool, error)
	Invalidate(ctx context.Context) error
	URL() string
}

// AdminHandler serves admin API endpoints.
type AdminHandler struct {
	providers ProviderList
	gmtOffset time.Duration
	startTime time.Time
}

// NewAdminHandler creates a new AdminHandler. gmtOffsetHours shifts the
// timestamps shown on the status row.
func NewAdminHandler(providers ProviderList, gmtOffsetHours float64) *AdminHandler {
	return &AdminHandler{
		providers: providers,
		gmtOffset: time.Duration(gmtOffsetHours * float64(time.Hour)),
		startTime: time.Now(),
	}
}

// statusTimeLayout renders e.g. "March 4, 2025 at 9:07pm".
const statusTimeLayout = "January 2, 2006 at 3:04pm"

// StatusRow builds the provider list line shown on the plugins page.
func (h *AdminHandler) StatusRow(ctx context.Context) StatusRow {
	row := StatusRow{
		RefreshURL: PluginsPath + "?" + RefreshParam + "=1",
	}

	info, exists, err := h.providers.Status(ctx)
	switch {
	case err != nil:
		row.Message = "oEmbed provider list file could not be read."
	case !exists:
		row.Message = "oEmbed provider list file doesn't exist."
	default:
		row.Exists = true
		row.UpdatedAt = info.ModTime.UTC()
		local := info.ModTime.UTC().Add(h.gmtOffset)
		row.Message = fmt.Sprintf("oEmbed provider list file last updated on %s.", local.Format(statusTimeLayout))
	}
	return row
}
