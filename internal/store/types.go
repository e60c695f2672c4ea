package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/MeKo-Tech/hueswap/internal/recolor"
)

// Metadata describes a cache database.
type Metadata struct {
	Name        string // Human-readable cache identifier
	Format      string // Stored image format (png)
	Description string
	Version     string
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Format != "" {
		result["format"] = m.Format
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Version != "" {
		result["version"] = m.Version
	}

	return result
}

// Key derives the cache key for a source image and an ordered rule list.
// Rules are normalized first, so 360:120 and 0:120:20 share a key.
// variant distinguishes output settings such as a downscale size.
func Key(source []byte, rules []recolor.Rule, variant string) string {
	specs := make([]string, len(rules))
	for i, r := range rules {
		specs[i] = r.Normalize().String()
	}

	h := sha256.New()
	h.Write(source)
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(specs, ";")))
	h.Write([]byte{0})
	h.Write([]byte(variant))

	return hex.EncodeToString(h.Sum(nil))
}
