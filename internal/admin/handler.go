package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"oembedfixes/internal/core"
	"oembedfixes/internal/oembed"
)

const (
	// PluginsPath is the admin listing view that hosts the status row.
	PluginsPath = "/admin/plugins"

	// RefreshParam forces a provider list refresh when truthy on any admin GET.
	RefreshParam = "update_oembed_providers"

	// refreshRedirect is where the browser lands after a forced refresh.
	refreshRedirect = PluginsPath + "#oembed-fixes"
)

// handleError converts errors to appropriate HTTP responses.
func handleError(c echo.Context, err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return c.JSON(apiErr.HTTPStatusCode(), apiErr.ToJSON())
	}

	return c.JSON(http.StatusInternalServerError, core.NewInternalError("an unexpected error occurred", err).ToJSON())
}

// truthy mirrors the usual query-string conventions: empty, "0" and "false" are off.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "off", "no":
		return false
	}
	return true
}

// RefreshTrigger is middleware for admin GET routes: when RefreshParam is
// truthy it refreshes the provider list and answers with a temporary redirect
// to the plugins listing. The refresh outcome never changes the response.
func (h *AdminHandler) RefreshTrigger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet || !truthy(c.QueryParam(RefreshParam)) {
				return next(c)
			}

			if err := h.providers.Refresh(c.Request().Context()); err != nil {
				slog.Info("manual provider list refresh did not update the file", "error", err)
			}
			return c.Redirect(http.StatusTemporaryRedirect, refreshRedirect)
		}
	}
}

// OEmbedStatus handles GET /admin/api/v1/oembed/status
func (h *AdminHandler) OEmbedStatus(c echo.Context) error {
	ctx := c.Request().Context()

	resp := StatusResponse{
		ProvidersURL: h.providers.URL(),
		Row:          h.StatusRow(ctx),
	}
	info, exists, err := h.providers.Status(ctx)
	if err != nil {
		return handleError(c, core.NewInternalError("providers file could not be read", err))
	}
	if exists {
		resp.File = info.Path
		resp.Size = info.Size
	}
	return c.JSON(http.StatusOK, resp)
}

// OEmbedRefresh handles POST /admin/api/v1/oembed/refresh
func (h *AdminHandler) OEmbedRefresh(c echo.Context) error {
	err := h.providers.Refresh(c.Request().Context())
	if err == nil {
		return c.JSON(http.StatusOK, RefreshResponse{Refreshed: true})
	}

	resp := RefreshResponse{Error: err.Error()}
	var refreshErr *oembed.RefreshError
	if errors.As(err, &refreshErr) {
		resp.Kind = string(refreshErr.Kind)
	}
	return c.JSON(http.StatusOK, resp)
}

// OEmbedFlush handles POST /admin/api/v1/oembed/flush
func (h *AdminHandler) OEmbedFlush(c echo.Context) error {
	if err := h.providers.Invalidate(c.Request().Context()); err != nil {
		return handleError(c, core.NewInternalError("failed to flush scheme table cache", err))
	}
	return c.NoContent(http.StatusNoContent)
}
