package oembed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProviders = `[
	{
		"provider_name": "YouTube",
		"provider_url": "https://www.youtube.com/",
		"endpoints": [{
			"schemes": ["https://*.youtube.com/watch*", "https://youtu.be/*"],
			"url": "https://www.youtube.com/oembed",
			"discovery": true
		}]
	},
	{
		"provider_name": "Vimeo",
		"endpoints": [{
			"schemes": ["https://vimeo.com/*"],
			"url": "https://vimeo.com/api/oembed.json"
		}]
	}
]`

func assertKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	var refreshErr *RefreshError
	require.True(t, errors.As(err, &refreshErr), "expected *RefreshError, got %T: %v", err, err)
	assert.Equal(t, kind, refreshErr.Kind)
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Error("expected Accept: application/json header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleProviders))
	}))
	defer server.Close()

	providers, raw, err := Fetch(context.Background(), server.Client(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, sampleProviders, string(raw))
	require.Len(t, providers, 2)
	assert.Equal(t, "YouTube", providers[0].Name)
	assert.Equal(t, "https://www.youtube.com/oembed", providers[0].Endpoints[0].URL)
}

func TestFetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, _, err := Fetch(context.Background(), server.Client(), server.URL)
	assertKind(t, err, KindTransport)
}

func TestFetch_NonOKSuccessCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	_, _, err := Fetch(context.Background(), server.Client(), server.URL)
	assertKind(t, err, KindTransport)
}

func TestFetch_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, _, err := Fetch(context.Background(), nil, url)
	assertKind(t, err, KindTransport)
}

func TestFetch_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, _, err := Fetch(context.Background(), server.Client(), server.URL)
	assertKind(t, err, KindPayload)
}

func TestFetch_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	_, _, err := Fetch(context.Background(), server.Client(), server.URL)
	assertKind(t, err, KindPayload)
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(sampleProviders))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := Fetch(ctx, server.Client(), server.URL)
	assertKind(t, err, KindTransport)
}

func TestFetch_OversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"provider_name":"`))
		_, _ = w.Write([]byte(strings.Repeat("x", 10*1024*1024)))
		_, _ = w.Write([]byte(`"}]`))
	}))
	defer server.Close()

	_, _, err := Fetch(context.Background(), server.Client(), server.URL)
	assertKind(t, err, KindPayload)
	assert.Contains(t, err.Error(), "too large")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		wantLen int
	}{
		{name: "valid list", input: sampleProviders, wantLen: 2},
		{name: "blank", input: "  ", wantErr: true},
		{name: "null", input: "null", wantErr: true},
		{name: "empty array", input: "[]", wantErr: true},
		{name: "empty object", input: "{}", wantErr: true},
		{name: "empty string", input: `""`, wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "false", input: "false", wantErr: true},
		{name: "non-empty object", input: `{"provider_name":"x"}`, wantErr: true},
		{name: "garbage", input: "<html>", wantErr: true},
		{name: "array of non-records", input: `[1, "x", null]`, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := Parse([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, providers, tt.wantLen)
		})
	}
}

const goodVimeo = `{"provider_name":"Vimeo","endpoints":[{"url":"https://vimeo.com/api/oembed.json","schemes":["https://vimeo.com/*"]}]}`

func TestParse_SkipsMalformedEntries(t *testing.T) {
	tests := []struct {
		name          string
		bad           string
		wantProviders []string
		badEndpoints  int
	}{
		{
			name:          "schemes is a string",
			bad:           `{"provider_name":"Bad","endpoints":[{"url":"https://bad.test/oembed","schemes":"https://bad.test/*"}]}`,
			wantProviders: []string{"Bad", "Vimeo"},
		},
		{
			name:          "non-string scheme element",
			bad:           `{"provider_name":"Bad","endpoints":[{"url":"https://bad.test/oembed","schemes":["https://bad.test/*", 7]}]}`,
			wantProviders: []string{"Bad", "Vimeo"},
		},
		{
			name:          "discovery is a string",
			bad:           `{"provider_name":"Bad","endpoints":[{"url":"https://bad.test/oembed","schemes":["https://bad.test/*"],"discovery":"true"}]}`,
			wantProviders: []string{"Bad", "Vimeo"},
			badEndpoints:  1,
		},
		{
			name:          "numeric url",
			bad:           `{"provider_name":"Bad","endpoints":[{"url":42,"schemes":["https://bad.test/*"]}]}`,
			wantProviders: []string{"Bad", "Vimeo"},
		},
		{
			name:          "endpoints is an object",
			bad:           `{"provider_name":"Bad","endpoints":{"url":"https://bad.test/oembed"}}`,
			wantProviders: []string{"Bad", "Vimeo"},
		},
		{
			name:          "record is not an object",
			bad:           `"Bad"`,
			wantProviders: []string{"Vimeo"},
		},
		{
			name:          "numeric provider name",
			bad:           `{"provider_name":5,"endpoints":[{"url":"https://bad.test/oembed","schemes":["https://bad.test/*"]}]}`,
			wantProviders: []string{"Vimeo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := Parse([]byte("[" + tt.bad + "," + goodVimeo + "]"))
			require.NoError(t, err)

			names := make([]string, 0, len(providers))
			for _, p := range providers {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.wantProviders, names)

			vimeo := providers[len(providers)-1]
			require.Len(t, vimeo.Endpoints, 1)
			assert.Equal(t, "https://vimeo.com/api/oembed.json", vimeo.Endpoints[0].URL)
			assert.Equal(t, []string{"https://vimeo.com/*"}, vimeo.Endpoints[0].Schemes)

			if len(providers) == 2 {
				assert.Len(t, providers[0].Endpoints, tt.badEndpoints)
			}
		})
	}
}

func TestParse_KeepsGoodEndpointBesideBadOne(t *testing.T) {
	raw := `[{"provider_name":"Mixed","endpoints":[
		{"url":"https://mixed.test/bad","schemes":"https://mixed.test/bad/*"},
		{"url":"https://mixed.test/oembed","schemes":["https://mixed.test/*"]},
		{"url":"https://mixed.test/bare"}
	]}]`

	providers, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, providers, 1)
	require.Len(t, providers[0].Endpoints, 2)
	assert.Equal(t, "https://mixed.test/oembed", providers[0].Endpoints[0].URL)
	assert.Equal(t, []string{"https://mixed.test/*"}, providers[0].Endpoints[0].Schemes)
	assert.Equal(t, "https://mixed.test/bare", providers[0].Endpoints[1].URL)
	assert.Empty(t, providers[0].Endpoints[1].Schemes)
}

func TestFetch_MalformedEntryKeepsSiblings(t *testing.T) {
	body := `[{"provider_name":"Bad","endpoints":[{"url":"https://bad.test/oembed","discovery":"true","formats":"json"}]},` + goodVimeo + `]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	providers, raw, err := Fetch(context.Background(), server.Client(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, body, string(raw))
	require.Len(t, providers, 2)
	assert.Equal(t, "Vimeo", providers[1].Name)
}
