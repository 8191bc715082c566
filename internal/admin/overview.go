package admin

import (
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"

	"oembedfixes/internal/version"
)

// Overview handles GET /admin/api/v1/overview.
func (h *AdminHandler) Overview(c echo.Context) error {
	resp := OverviewResponse{
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Version:      version.Version,
		GoVersion:    runtime.Version(),
		ProvidersURL: h.providers.URL(),
	}

	// Overview stays available when the providers file cannot be inspected.
	if info, exists, err := h.providers.Status(c.Request().Context()); err == nil && exists {
		updated := info.ModTime.UTC()
		resp.ProvidersUpdatedAt = &updated
	}
	return c.JSON(http.StatusOK, resp)
}
