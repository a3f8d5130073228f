// Package identity turns raw gallery identifiers into human-readable
// display names and provides name search over a loaded gallery.
package identity

import (
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// classYearSuffix matches a trailing class-year marker like " '26" or "26".
var classYearSuffix = regexp.MustCompile(`\s*'?\d{2}$`)

// DecodeName extracts a person's display name from a gallery identifier.
// Identifiers look like "<GROUP>_<original file name>", e.g.
// "BUTLER_Jane Doe '26.jpg" decodes to "Jane Doe". The function is pure and
// idempotent; steps that find nothing to strip leave the string unchanged.
func DecodeName(identifier string) string {
	// Drop the group prefix up to and including the first underscore.
	if _, rest, ok := strings.Cut(identifier, "_"); ok {
		identifier = rest
	}
	name := strings.TrimSuffix(identifier, filepath.Ext(identifier))
	name = classYearSuffix.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// removeDiacritics removes diacritical marks from a string (e.g., "Núñez" -> "Nunez").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// foldName normalizes a name for search (lowercase, no diacritics, spaces for dashes).
func foldName(name string) string {
	name = removeDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

// Directory is an immutable, searchable list of display names decoded from
// gallery identifiers. Safe for concurrent use.
type Directory struct {
	names  []string
	folded []string
}

// NewDirectory decodes the given identifiers into display names,
// deduplicates and sorts them.
func NewDirectory(identifiers []string) *Directory {
	seen := make(map[string]struct{}, len(identifiers))
	names := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		name := DecodeName(id)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)

	folded := make([]string, len(names))
	for i, n := range names {
		folded[i] = foldName(n)
	}
	return &Directory{names: names, folded: folded}
}

// Names returns all display names in sorted order.
func (d *Directory) Names() []string {
	return slices.Clone(d.names)
}

// Len returns the number of names in the directory.
func (d *Directory) Len() int {
	return len(d.names)
}

// Search returns names containing the query as a substring, ignoring case
// and diacritics. An empty query matches every name. A limit <= 0 means no
// limit.
func (d *Directory) Search(query string, limit int) []string {
	q := foldName(query)
	matches := make([]string, 0)
	for i, f := range d.folded {
		if !strings.Contains(f, q) {
			continue
		}
		matches = append(matches, d.names[i])
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches
}
