// Package oembed builds the oEmbed scheme table from the upstream provider list.
package oembed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"oembedfixes/internal/core"
)

// DefaultProvidersURL is the canonical oEmbed provider list.
const DefaultProvidersURL = "https://oembed.com/providers.json"

const maxBodySize = 10 * 1024 * 1024 // 10 MB

// errEmptyPayload marks a provider list that decoded to nothing.
var errEmptyPayload = errors.New("provider list is empty")

// Fetch downloads and parses the provider list from the given URL.
// Returns the parsed providers and the raw JSON bytes (for persisting verbatim).
// Transport problems and payload problems are reported as *RefreshError with
// the matching Kind.
func Fetch(ctx context.Context, client *http.Client, url string) ([]core.Provider, []byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, transportError(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, transportError(fmt.Errorf("fetching provider list: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, transportError(fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url))
	}

	limited := io.LimitReader(resp.Body, maxBodySize+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, nil, transportError(fmt.Errorf("reading response body: %w", err))
	}
	if len(raw) > maxBodySize {
		return nil, nil, payloadError(fmt.Errorf("response body too large (exceeds %d bytes)", maxBodySize))
	}

	providers, err := Parse(raw)
	if err != nil {
		return nil, nil, payloadError(err)
	}

	return providers, raw, nil
}

// Parse deserializes raw JSON bytes into provider records.
// A body that is empty in the loose sense (null, [], {}, "", "0", 0, false)
// is rejected, as is anything that is not a JSON array. Malformed records
// and endpoints are skipped so their siblings still load; fields other than
// provider_name, endpoints, url and schemes are ignored.
func Parse(raw []byte) ([]core.Provider, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errEmptyPayload
	}
	if !gjson.ValidBytes(trimmed) {
		return nil, errors.New("parsing provider list JSON: invalid JSON")
	}

	root := gjson.ParseBytes(trimmed)
	if isEmptyJSON(root) {
		return nil, errEmptyPayload
	}
	if !root.IsArray() {
		return nil, fmt.Errorf("parsing provider list JSON: expected an array, got %s", root.Type)
	}

	providers := make([]core.Provider, 0)
	root.ForEach(func(_, record gjson.Result) bool {
		if provider, ok := parseProvider(record); ok {
			providers = append(providers, provider)
		}
		return true
	})
	return providers, nil
}

func parseProvider(record gjson.Result) (core.Provider, bool) {
	if !record.IsObject() {
		return core.Provider{}, false
	}
	name := record.Get("provider_name")
	if name.Type != gjson.String {
		return core.Provider{}, false
	}

	provider := core.Provider{Name: name.Str}
	endpoints := record.Get("endpoints")
	if !endpoints.IsArray() {
		return provider, true
	}
	endpoints.ForEach(func(_, raw gjson.Result) bool {
		if endpoint, ok := parseEndpoint(raw); ok {
			provider.Endpoints = append(provider.Endpoints, endpoint)
		}
		return true
	})
	return provider, true
}

// parseEndpoint rejects an endpoint whose url is not a string or whose
// schemes, when present, is not an array of strings.
func parseEndpoint(raw gjson.Result) (core.Endpoint, bool) {
	if !raw.IsObject() {
		return core.Endpoint{}, false
	}
	url := raw.Get("url")
	if url.Type != gjson.String {
		return core.Endpoint{}, false
	}

	endpoint := core.Endpoint{URL: url.Str}
	schemes := raw.Get("schemes")
	if !schemes.Exists() || schemes.Type == gjson.Null {
		return endpoint, true
	}
	if !schemes.IsArray() {
		return core.Endpoint{}, false
	}
	valid := true
	schemes.ForEach(func(_, scheme gjson.Result) bool {
		if scheme.Type != gjson.String {
			valid = false
			return false
		}
		endpoint.Schemes = append(endpoint.Schemes, scheme.Str)
		return true
	})
	if !valid {
		return core.Endpoint{}, false
	}
	return endpoint, true
}

func isEmptyJSON(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.Number:
		return v.Num == 0
	case gjson.String:
		return v.Str == "" || v.Str == "0"
	case gjson.JSON:
		empty := true
		v.ForEach(func(_, _ gjson.Result) bool {
			empty = false
			return false
		})
		return empty
	}
	return false
}
