// Package compat holds the pure language-compatibility rules. Nothing in
// here touches a store or a clock.
package compat

import (
	"strings"

	"github.com/readmylips/core/internal/db"
)

// Compatible reports whether candidate satisfies viewer's language need:
// the candidate teaches at least one language the viewer wants to learn.
// The check is intentionally one-directional; reciprocity is settled by
// the mutual swipe, not by the feed.
func Compatible(viewer, candidate *db.Profile) bool {
	if viewer == nil || candidate == nil {
		return false
	}
	for _, want := range viewer.Learns {
		for _, teach := range candidate.Teaches {
			if strings.EqualFold(want, teach) {
				return true
			}
		}
	}
	return false
}

// Catalog is the injected set of languages the deployment supports.
type Catalog struct {
	names []string
	index map[string]string
}

// NewCatalog builds a catalog from a configured language list. Lookups
// are case-insensitive; Canonical returns the configured spelling.
func NewCatalog(languages []string) *Catalog {
	c := &Catalog{index: make(map[string]string, len(languages))}
	for _, lang := range languages {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}
		key := strings.ToLower(lang)
		if _, dup := c.index[key]; dup {
			continue
		}
		c.index[key] = lang
		c.names = append(c.names, lang)
	}
	return c
}

// Names returns the catalog's languages in configured order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Contains reports whether the catalog knows the language.
func (c *Catalog) Contains(lang string) bool {
	_, ok := c.index[strings.ToLower(strings.TrimSpace(lang))]
	return ok
}

// Canonical maps any casing of a known language to its configured
// spelling. Unknown languages come back unchanged with ok=false.
func (c *Catalog) Canonical(lang string) (string, bool) {
	v, ok := c.index[strings.ToLower(strings.TrimSpace(lang))]
	if !ok {
		return lang, false
	}
	return v, true
}
