// Package rewrite patches oEmbed HTML for privacy, sandboxing and stacking.
//
// The rewriter works on raw substrings rather than a parsed DOM: only src
// attribute values and iframe opening tags are touched, attribute quoting and
// order are preserved, and malformed markup is left as it is. Rewrite is
// idempotent, so markup that already went through it comes back unchanged.
package rewrite

import "strings"

// Attribute values injected into every iframe.
const (
	SandboxPolicy  = "allow-scripts allow-presentation allow-same-origin allow-popups allow-popups-to-escape-sandbox"
	ReferrerPolicy = "origin-when-cross-origin"
	AllowPolicy    = "autoplay;encrypted-media"
)

const (
	youtubeEmbed  = "//www.youtube.com/embed"
	nocookieEmbed = "//www.youtube-nocookie.com/embed"
	youtubeQuery  = "rel=0&modestbranding=1&iv_load_policy=3&playsinline=1"
	legacyMarker  = "feature=oembed"

	flashEmbed    = "</param><embed"
	flashEmbedFix = `</param><param name="wmode" value="opaque"></param><embed wmode="opaque" `
)

var iframeAttrs = ` sandbox="` + SandboxPolicy + `" referrerpolicy="` + ReferrerPolicy + `" allow="` + AllowPolicy + `"`

type param struct {
	key   string
	value string
}

var (
	embedParams = []param{
		{"wmode", "opaque"},
		{"dnt", "1"},
	}
	youtubeParams = []param{
		{"rel", "0"},
		{"modestbranding", "1"},
		{"iv_load_policy", "3"},
		{"playsinline", "1"},
	}
)

// Rewrite applies every embed fix to html.
func Rewrite(html string) string {
	html = rewriteSources(html)
	html = patchLegacyOEmbed(html)
	html = patchFlashEmbed(html)
	return sandboxIframes(html)
}

// rewriteSources rewrites each quoted src attribute value, left to right.
func rewriteSources(html string) string {
	var b strings.Builder
	cursor := 0
	for {
		valueStart, quote, ok := nextSrc(html, cursor)
		if !ok {
			break
		}
		end := strings.IndexByte(html[valueStart:], quote)
		if end < 0 {
			break // unterminated value
		}
		end += valueStart

		b.WriteString(html[cursor:valueStart])
		b.WriteString(rewriteURL(html[valueStart:end]))
		cursor = end
	}
	if cursor == 0 {
		return html
	}
	b.WriteString(html[cursor:])
	return b.String()
}

// nextSrc finds the next src attribute at or after from and returns the index
// of its first value byte and the quote character around it.
func nextSrc(html string, from int) (int, byte, bool) {
	for {
		i := indexFold(html, "src", from)
		if i < 0 {
			return 0, 0, false
		}
		from = i + 3
		if i == 0 || !isSpace(html[i-1]) {
			continue
		}
		j := skipSpace(html, i+3)
		if j >= len(html) || html[j] != '=' {
			continue
		}
		j = skipSpace(html, j+1)
		if j >= len(html) || (html[j] != '"' && html[j] != '\'') {
			continue
		}
		return j + 1, html[j], true
	}
}

// rewriteURL appends the embed parameters and swaps YouTube to its
// no-cookie domain.
func rewriteURL(u string) string {
	if strings.TrimSpace(u) == "" {
		return u
	}

	base, fragment := u, ""
	if i := strings.IndexByte(u, '#'); i >= 0 {
		base, fragment = u[:i], u[i:]
	}

	youtube := false
	if i := hostIndex(base); i >= 0 {
		switch {
		case strings.HasPrefix(base[i:], youtubeEmbed):
			base = base[:i] + nocookieEmbed + base[i+len(youtubeEmbed):]
			youtube = true
		case strings.HasPrefix(base[i:], nocookieEmbed):
			youtube = true
		}
	}

	for _, p := range embedParams {
		base = addParam(base, p)
	}
	if youtube {
		for _, p := range youtubeParams {
			base = addParam(base, p)
		}
	}
	return base + fragment
}

// hostIndex returns the index of the "//" that starts the authority of u,
// or -1 when u has none.
func hostIndex(u string) int {
	i := strings.Index(u, "//")
	if i < 0 {
		return -1
	}
	if i == 0 || u[i-1] == ':' {
		return i
	}
	return -1
}

// addParam appends key=value to the query of u unless key is already present.
func addParam(u string, p param) string {
	if hasParam(u, p.key) {
		return u
	}
	switch {
	case !strings.Contains(u, "?"):
		return u + "?" + p.key + "=" + p.value
	case strings.HasSuffix(u, "?"), strings.HasSuffix(u, "&"):
		return u + p.key + "=" + p.value
	default:
		return u + "&" + p.key + "=" + p.value
	}
}

func hasParam(u, key string) bool {
	q := strings.IndexByte(u, '?')
	if q < 0 {
		return false
	}
	for _, part := range strings.Split(u[q+1:], "&") {
		part = strings.TrimPrefix(part, "amp;")
		name, _, _ := strings.Cut(part, "=")
		if name == key {
			return true
		}
	}
	return false
}

// patchLegacyOEmbed adds the YouTube player parameters after every
// feature=oembed marker in markup that mentions youtube. Query strings that
// already carry them are skipped.
func patchLegacyOEmbed(html string) string {
	if !strings.Contains(html, legacyMarker) || !strings.Contains(html, "youtube") {
		return html
	}

	var b strings.Builder
	cursor := 0
	for {
		i := strings.Index(html[cursor:], legacyMarker)
		if i < 0 {
			break
		}
		i += cursor
		end := i + len(legacyMarker)

		b.WriteString(html[cursor:end])
		if !strings.Contains(urlAround(html, i), "modestbranding=") {
			b.WriteString("&" + youtubeQuery)
		}
		cursor = end
	}
	b.WriteString(html[cursor:])
	return b.String()
}

// urlAround returns the run of URL characters surrounding position i.
func urlAround(html string, i int) string {
	const delims = "\"'<> \t\n\r\f#"
	start := strings.LastIndexAny(html[:i], delims) + 1
	end := strings.IndexAny(html[i:], delims)
	if end < 0 {
		return html[start:]
	}
	return html[start : i+end]
}

// patchFlashEmbed forces opaque window mode on legacy <object>/<embed> players.
func patchFlashEmbed(html string) string {
	if !strings.Contains(html, "<embed src=") || strings.Contains(html, flashEmbedFix) {
		return html
	}
	return strings.ReplaceAll(html, flashEmbed, flashEmbedFix)
}

// sandboxIframes injects the sandbox, referrer and permission attributes right
// after every <iframe token, in any letter case.
func sandboxIframes(html string) string {
	var b strings.Builder
	cursor := 0
	changed := false
	for {
		i := indexFold(html, "<iframe", cursor)
		if i < 0 {
			break
		}
		end := i + len("<iframe")
		b.WriteString(html[cursor:end])
		cursor = end

		if end < len(html) && !isSpace(html[end]) && html[end] != '>' && html[end] != '/' {
			continue // some other tag, e.g. <iframely>
		}
		if strings.HasPrefix(html[end:], iframeAttrs) {
			continue
		}
		b.WriteString(iframeAttrs)
		changed = true
	}
	if !changed {
		return html
	}
	b.WriteString(html[cursor:])
	return b.String()
}

// indexFold is an ASCII case-insensitive strings.Index starting at from.
func indexFold(s, substr string, from int) int {
	n := len(substr)
	for i := from; i+n <= len(s); i++ {
		match := true
		for j := 0; j < n; j++ {
			if lower(s[i+j]) != substr[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}
