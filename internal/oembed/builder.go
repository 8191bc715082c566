package oembed

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"oembedfixes/internal/cache"
	"oembedfixes/internal/core"
	"oembedfixes/internal/observability"
	"oembedfixes/internal/storage"
)

// CacheKey is the cache entry holding every built table, keyed by fingerprint.
const CacheKey = "oembed_providers"

// AllowListProvider supplies the provider names a caller may embed from.
// An empty list means no restriction.
type AllowListProvider interface {
	AllowedProviders(ctx context.Context) []string
}

// StaticAllowList is an AllowListProvider backed by a fixed list.
type StaticAllowList []string

// AllowedProviders returns the list itself.
func (l StaticAllowList) AllowedProviders(context.Context) []string {
	return l
}

// Config holds the Builder's collaborators.
type Config struct {
	// URL is the provider list location (default: DefaultProvidersURL)
	URL string

	// Client performs the download (default: http.DefaultClient)
	Client *http.Client

	// File persists the raw provider list (required)
	File storage.ProvidersFile

	// Cache holds built tables (required)
	Cache cache.Store

	// TTL is how long built tables stay cached (default: cache.DefaultTTL)
	TTL time.Duration

	// AllowList restricts the providers used by Providers (default: none)
	AllowList AllowListProvider
}

// Builder refreshes the providers file and serves scheme tables built from it.
// It never fails the embed pipeline: every error path degrades to the data it
// already has.
type Builder struct {
	url       string
	client    *http.Client
	file      storage.ProvidersFile
	cache     cache.Store
	ttl       time.Duration
	allowList AllowListProvider
}

// NewBuilder creates a Builder from cfg.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.File == nil {
		return nil, errors.New("oembed: providers file is required")
	}
	if cfg.Cache == nil {
		return nil, errors.New("oembed: cache store is required")
	}

	b := &Builder{
		url:       cfg.URL,
		client:    cfg.Client,
		file:      cfg.File,
		cache:     cfg.Cache,
		ttl:       cfg.TTL,
		allowList: cfg.AllowList,
	}
	if b.url == "" {
		b.url = DefaultProvidersURL
	}
	if b.client == nil {
		b.client = http.DefaultClient
	}
	if b.ttl <= 0 {
		b.ttl = cache.DefaultTTL
	}
	if b.allowList == nil {
		b.allowList = StaticAllowList(nil)
	}
	return b, nil
}

// Refresh downloads the provider list and replaces the providers file with the
// response body verbatim. On transport or payload failure nothing is changed.
// Cached tables are dropped before the file is written.
func (b *Builder) Refresh(ctx context.Context) error {
	err := b.refresh(ctx)
	observability.ProviderRefreshes.WithLabelValues(metricLabel(err)).Inc()
	if err != nil {
		slog.Warn("oembed provider refresh failed", "kind", err.Kind, "url", b.url, "error", err.Err)
		return err
	}
	return nil
}

func (b *Builder) refresh(ctx context.Context) *RefreshError {
	providers, raw, err := Fetch(ctx, b.client, b.url)
	if err != nil {
		var refreshErr *RefreshError
		if errors.As(err, &refreshErr) {
			return refreshErr
		}
		return transportError(err)
	}

	if err := b.cache.Delete(ctx, CacheKey); err != nil {
		return storageError(err)
	}
	if err := b.file.Write(ctx, raw); err != nil {
		return storageError(err)
	}

	slog.Info("oembed provider list refreshed", "providers", len(providers), "bytes", len(raw))
	return nil
}

// Providers returns the scheme table for the configured allow-list.
func (b *Builder) Providers(ctx context.Context, defaults core.SchemeTable) core.SchemeTable {
	return b.Table(ctx, b.allowList.AllowedProviders(ctx), defaults)
}

// Table returns the scheme table built for allowed. A cached table is returned
// as-is. When the providers file is missing or unusable, defaults is returned
// unchanged.
func (b *Builder) Table(ctx context.Context, allowed []string, defaults core.SchemeTable) core.SchemeTable {
	key := Fingerprint(allowed)

	tables, _, err := b.cache.Get(ctx, CacheKey)
	if err != nil {
		slog.Warn("oembed table cache read failed", "error", err)
		tables = nil
	}
	if table, ok := tables[key]; ok {
		observability.SchemeTableLookups.WithLabelValues(observability.LookupHit).Inc()
		return table
	}

	raw, err := b.file.Read(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotExist) {
			slog.Warn("oembed providers file unreadable", "error", err)
		}
		observability.SchemeTableLookups.WithLabelValues(observability.LookupFallback).Inc()
		return defaults
	}

	providers, err := Parse(raw)
	if err != nil {
		slog.Warn("oembed providers file unusable", "error", err)
		observability.SchemeTableLookups.WithLabelValues(observability.LookupFallback).Inc()
		return defaults
	}

	table := BuildTable(providers, allowed)

	// Copy so tables already handed out are never mutated.
	next := maps.Clone(tables)
	if next == nil {
		next = make(cache.Tables, 1)
	}
	next[key] = table
	if err := b.cache.Set(ctx, CacheKey, next, b.ttl); err != nil {
		slog.Warn("oembed table cache write failed", "error", err)
	}

	observability.SchemeTableLookups.WithLabelValues(observability.LookupBuilt).Inc()
	slog.Debug("oembed scheme table built", "fingerprint", key, "schemes", len(table), "allowed", len(allowed))
	return table
}

// Invalidate drops every cached table.
func (b *Builder) Invalidate(ctx context.Context) error {
	return b.cache.Delete(ctx, CacheKey)
}

// Status reports the providers file's metadata. The boolean is false when no
// file has been written yet.
func (b *Builder) Status(ctx context.Context) (storage.FileInfo, bool, error) {
	info, err := b.file.Stat(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return storage.FileInfo{}, false, nil
		}
		return storage.FileInfo{}, false, err
	}
	return info, true, nil
}

// EnsureStorage prepares the providers file location.
func (b *Builder) EnsureStorage(ctx context.Context) error {
	return b.file.EnsureDir(ctx)
}

// URL returns the provider list location.
func (b *Builder) URL() string {
	return b.url
}
