package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oembedfixes/internal/oembed"
	"oembedfixes/internal/storage"
)

// mockProviders implements ProviderList for testing.
type mockProviders struct {
	refreshErr    error
	refreshes     int
	info          storage.FileInfo
	exists        bool
	statusErr     error
	invalidateErr error
	invalidated   int
}

func (m *mockProviders) Refresh(context.Context) error {
	m.refreshes++
	return m.refreshErr
}

func (m *mockProviders) Status(context.Context) (storage.FileInfo, bool, error) {
	return m.info, m.exists, m.statusErr
}

func (m *mockProviders) Invalidate(context.Context) error {
	m.invalidated++
	return m.invalidateErr
}

func (m *mockProviders) URL() string { return "https://oembed.com/providers.json" }

func newHandlerContext(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "listing")
}

// --- RefreshTrigger middleware tests ---

func TestRefreshTrigger_RefreshesAndRedirects(t *testing.T) {
	providers := &mockProviders{}
	h := NewAdminHandler(providers, 0)
	c, rec := newHandlerContext(http.MethodGet, "/admin/plugins?update_oembed_providers=1")

	require.NoError(t, h.RefreshTrigger()(okHandler)(c))

	assert.Equal(t, 1, providers.refreshes)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/admin/plugins#oembed-fixes", rec.Header().Get("Location"))
}

func TestRefreshTrigger_RedirectsEvenWhenRefreshFails(t *testing.T) {
	providers := &mockProviders{refreshErr: &oembed.RefreshError{Kind: oembed.KindTransport, Err: errors.New("offline")}}
	h := NewAdminHandler(providers, 0)
	c, rec := newHandlerContext(http.MethodGet, "/admin/api/v1/overview?update_oembed_providers=yes")

	require.NoError(t, h.RefreshTrigger()(okHandler)(c))

	assert.Equal(t, 1, providers.refreshes)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
}

func TestRefreshTrigger_PassesThrough(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"no param", http.MethodGet, "/admin/plugins"},
		{"empty", http.MethodGet, "/admin/plugins?update_oembed_providers="},
		{"zero", http.MethodGet, "/admin/plugins?update_oembed_providers=0"},
		{"false", http.MethodGet, "/admin/plugins?update_oembed_providers=false"},
		{"post", http.MethodPost, "/admin/plugins?update_oembed_providers=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers := &mockProviders{}
			h := NewAdminHandler(providers, 0)
			c, rec := newHandlerContext(tt.method, tt.path)

			require.NoError(t, h.RefreshTrigger()(okHandler)(c))

			assert.Equal(t, 0, providers.refreshes)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "listing", rec.Body.String())
		})
	}
}

// --- StatusRow tests ---

func TestStatusRow_MissingFile(t *testing.T) {
	h := NewAdminHandler(&mockProviders{}, 0)

	row := h.StatusRow(context.Background())
	assert.False(t, row.Exists)
	assert.Equal(t, "oEmbed provider list file doesn't exist.", row.Message)
	assert.Equal(t, "/admin/plugins?update_oembed_providers=1", row.RefreshURL)
}

func TestStatusRow_WithGMTOffset(t *testing.T) {
	modTime := time.Date(2025, 3, 4, 23, 7, 0, 0, time.UTC)
	h := NewAdminHandler(&mockProviders{exists: true, info: storage.FileInfo{ModTime: modTime}}, -2)

	row := h.StatusRow(context.Background())
	assert.True(t, row.Exists)
	assert.Equal(t, modTime, row.UpdatedAt)
	assert.Equal(t, "oEmbed provider list file last updated on March 4, 2025 at 9:07pm.", row.Message)
}

func TestStatusRow_HalfHourOffset(t *testing.T) {
	modTime := time.Date(2025, 12, 31, 23, 45, 0, 0, time.UTC)
	h := NewAdminHandler(&mockProviders{exists: true, info: storage.FileInfo{ModTime: modTime}}, 5.5)

	row := h.StatusRow(context.Background())
	assert.Equal(t, "oEmbed provider list file last updated on January 1, 2026 at 5:15am.", row.Message)
}

func TestStatusRow_StatError(t *testing.T) {
	h := NewAdminHandler(&mockProviders{statusErr: errors.New("permission denied")}, 0)

	row := h.StatusRow(context.Background())
	assert.False(t, row.Exists)
	assert.Equal(t, "oEmbed provider list file could not be read.", row.Message)
}

// --- JSON endpoint tests ---

func TestOEmbedStatus(t *testing.T) {
	modTime := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	h := NewAdminHandler(&mockProviders{exists: true, info: storage.FileInfo{Path: "temp/providers.json", Size: 42, ModTime: modTime}}, 0)
	c, rec := newHandlerContext(http.MethodGet, "/admin/api/v1/oembed/status")

	require.NoError(t, h.OEmbedStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://oembed.com/providers.json", resp.ProvidersURL)
	assert.Equal(t, "temp/providers.json", resp.File)
	assert.Equal(t, int64(42), resp.Size)
	assert.True(t, resp.Row.Exists)
}

func TestOEmbedStatus_Error(t *testing.T) {
	h := NewAdminHandler(&mockProviders{statusErr: errors.New("io")}, 0)
	c, rec := newHandlerContext(http.MethodGet, "/admin/api/v1/oembed/status")

	require.NoError(t, h.OEmbedStatus(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}

func TestOEmbedRefresh(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := NewAdminHandler(&mockProviders{}, 0)
		c, rec := newHandlerContext(http.MethodPost, "/admin/api/v1/oembed/refresh")

		require.NoError(t, h.OEmbedRefresh(c))

		var resp RefreshResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Refreshed)
		assert.Empty(t, resp.Kind)
	})

	t.Run("payload failure", func(t *testing.T) {
		h := NewAdminHandler(&mockProviders{refreshErr: &oembed.RefreshError{Kind: oembed.KindPayload, Err: errors.New("empty")}}, 0)
		c, rec := newHandlerContext(http.MethodPost, "/admin/api/v1/oembed/refresh")

		require.NoError(t, h.OEmbedRefresh(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp RefreshResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Refreshed)
		assert.Equal(t, "payload", resp.Kind)
		assert.Contains(t, resp.Error, "empty")
	})
}

func TestOEmbedFlush(t *testing.T) {
	providers := &mockProviders{}
	h := NewAdminHandler(providers, 0)
	c, rec := newHandlerContext(http.MethodPost, "/admin/api/v1/oembed/flush")

	require.NoError(t, h.OEmbedFlush(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, providers.invalidated)

	providers.invalidateErr = errors.New("redis down")
	c, rec = newHandlerContext(http.MethodPost, "/admin/api/v1/oembed/flush")
	require.NoError(t, h.OEmbedFlush(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOverview(t *testing.T) {
	h := NewAdminHandler(&mockProviders{}, 0)
	c, rec := newHandlerContext(http.MethodGet, "/admin/api/v1/overview")

	require.NoError(t, h.Overview(c))

	var resp OverviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Version)
	assert.NotEmpty(t, resp.GoVersion)
	assert.Equal(t, "https://oembed.com/providers.json", resp.ProvidersURL)
	assert.Nil(t, resp.ProvidersUpdatedAt)
}

func TestOverview_WithProvidersFile(t *testing.T) {
	modTime := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	h := NewAdminHandler(&mockProviders{exists: true, info: storage.FileInfo{ModTime: modTime}}, 0)
	c, rec := newHandlerContext(http.MethodGet, "/admin/api/v1/overview")

	require.NoError(t, h.Overview(c))

	var resp OverviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.ProvidersUpdatedAt)
	assert.True(t, modTime.Equal(*resp.ProvidersUpdatedAt))
}
