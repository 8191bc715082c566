// Package dashboard provides the embedded admin plugins listing view.
package dashboard

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"

	"oembedfixes/internal/admin"
	"oembedfixes/internal/version"
)

//go:embed templates/*.html static/css/*.css
var content embed.FS

// StatusSource supplies the provider list status row.
// *admin.AdminHandler satisfies this interface.
type StatusSource interface {
	StatusRow(ctx context.Context) admin.StatusRow
}

// Handler serves the admin plugins page.
type Handler struct {
	status      StatusSource
	pluginsTmpl *template.Template
	staticFS    http.Handler
}

type pluginsPage struct {
	Version string
	Row     admin.StatusRow
}

// New creates a new dashboard handler with parsed templates and static file server.
func New(status StatusSource) (*Handler, error) {
	tmpl, err := template.ParseFS(content, "templates/layout.html", "templates/plugins.html")
	if err != nil {
		return nil, err
	}

	staticSub, err := fs.Sub(content, "static")
	if err != nil {
		return nil, err
	}

	return &Handler{
		status:      status,
		pluginsTmpl: tmpl,
		staticFS:    http.StripPrefix("/admin/static/", http.FileServer(http.FS(staticSub))),
	}, nil
}

// Plugins serves GET /admin/plugins: it renders the plugin listing with the provider list row.
func (h *Handler) Plugins(c echo.Context) error {
	page := pluginsPage{
		Version: version.Version,
		Row:     h.status.StatusRow(c.Request().Context()),
	}

	var buf bytes.Buffer
	if err := h.pluginsTmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return err
	}
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(c.Response().Writer)
	return err
}

// Static serves GET /admin/static/*, the embedded CSS assets.
func (h *Handler) Static(c echo.Context) error {
	h.staticFS.ServeHTTP(c.Response().Writer, c.Request())
	return nil
}
