// Package core provides the shared types for the oEmbed fixes service.
package core

import (
	"encoding/json"
	"fmt"
)

// Provider is one entry of the upstream oEmbed provider list.
type Provider struct {
	Name      string     `json:"provider_name"`
	Endpoints []Endpoint `json:"endpoints"`
}

// Endpoint is an oEmbed API endpoint and the URL patterns it serves.
type Endpoint struct {
	URL     string   `json:"url"`
	Schemes []string `json:"schemes,omitempty"`
}

// SchemeEntry is the value side of a SchemeTable. It serializes as the
// two-element array ["<endpoint url>", <discovery>] that embed resolvers expect.
type SchemeEntry struct {
	EndpointURL string
	Discover    bool
}

// MarshalJSON encodes the entry as a [url, discover] pair.
func (e SchemeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.EndpointURL, e.Discover})
}

// UnmarshalJSON decodes a [url, discover] pair.
func (e *SchemeEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("scheme entry: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("scheme entry: expected 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.EndpointURL); err != nil {
		return fmt.Errorf("scheme entry url: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Discover); err != nil {
		return fmt.Errorf("scheme entry discovery flag: %w", err)
	}
	return nil
}

// SchemeTable maps URL match patterns to the endpoint that embeds them.
// Keys are literal, case-preserved patterns and may contain '*' wildcards.
type SchemeTable map[string]SchemeEntry
