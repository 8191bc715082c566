// Package server provides HTTP handlers and server setup for the oEmbed fixes service.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"oembedfixes/internal/core"
	"oembedfixes/internal/observability"
	"oembedfixes/internal/rewrite"
)

// TableSource serves scheme tables. *oembed.Builder satisfies this interface.
type TableSource interface {
	// Providers returns the table for the configured allow-list.
	Providers(ctx context.Context, defaults core.SchemeTable) core.SchemeTable
	// Table returns the table for an explicit allow-list.
	Table(ctx context.Context, allowed []string, defaults core.SchemeTable) core.SchemeTable
}

// Handler holds the HTTP handlers
type Handler struct {
	tables   TableSource
	defaults core.SchemeTable
}

// NewHandler creates a new handler. defaults is returned by the providers
// endpoint whenever no provider list is available.
func NewHandler(tables TableSource, defaults core.SchemeTable) *Handler {
	if defaults == nil {
		defaults = core.SchemeTable{}
	}
	return &Handler{
		tables:   tables,
		defaults: defaults,
	}
}

// RewriteRequest is the JSON form of POST /v1/oembed/rewrite.
type RewriteRequest struct {
	HTML string `json:"html"`
	URL  string `json:"url,omitempty"`
}

// RewriteResponse mirrors RewriteRequest with the rewritten markup.
type RewriteResponse struct {
	HTML string `json:"html"`
	URL  string `json:"url,omitempty"`
}

// Rewrite handles POST /v1/oembed/rewrite. JSON bodies are answered with JSON,
// anything else is treated as raw embed HTML.
func (h *Handler) Rewrite(c echo.Context) error {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var req RewriteRequest
		if err := c.Bind(&req); err != nil {
			return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
		}
		observability.EmbedRewrites.Inc()
		return c.JSON(http.StatusOK, RewriteResponse{
			HTML: rewrite.Rewrite(req.HTML),
			URL:  req.URL,
		})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return handleError(c, core.NewInvalidRequestError("failed to read request body", err))
	}
	observability.EmbedRewrites.Inc()
	return c.Blob(http.StatusOK, echo.MIMETextHTMLCharsetUTF8, []byte(rewrite.Rewrite(string(body))))
}

// Providers handles GET /v1/oembed/providers
//
// Without an allow parameter the configured allow-list applies. An explicit
// but empty allow parameter means every provider.
func (h *Handler) Providers(c echo.Context) error {
	ctx := c.Request().Context()

	if !c.QueryParams().Has("allow") {
		return c.JSON(http.StatusOK, h.tables.Providers(ctx, h.defaults))
	}

	var allowed []string
	for _, name := range strings.Split(c.QueryParam("allow"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			allowed = append(allowed, name)
		}
	}
	return c.JSON(http.StatusOK, h.tables.Table(ctx, allowed, h.defaults))
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError converts API errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return c.JSON(apiErr.HTTPStatusCode(), apiErr.ToJSON())
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, core.NewInternalError("an unexpected error occurred", err).ToJSON())
}
