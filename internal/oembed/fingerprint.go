package oembed

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a stable cache key for an allow-list. Order matters:
// the same names in a different order produce a different key. Nil and empty
// lists share a key.
func Fingerprint(allowed []string) string {
	h := xxhash.New()
	_, _ = h.WriteString(strconv.Itoa(len(allowed)))
	for _, name := range allowed {
		// length prefix keeps ["ab","c"] and ["a","bc"] apart
		_, _ = h.WriteString(":" + strconv.Itoa(len(name)) + ":" + name)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
