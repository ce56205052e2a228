package contacts

import (
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
)

// Directory is an in-memory name to phone-number table. Lookup tries the
// exact key, then the lowercase key, then (when enabled) a phonetic match.
type Directory struct {
	mu        sync.RWMutex
	exact     map[string]string
	lower     map[string]string
	fuzzy     bool
	threshold float64
}

// Option configures a Directory.
type Option func(*Directory)

// WithFuzzyMatching enables a Double Metaphone + Jaro-Winkler fallback for
// names the speech engine spelled differently from the contact file.
func WithFuzzyMatching(threshold float64) Option {
	return func(d *Directory) {
		d.fuzzy = true
		d.threshold = threshold
	}
}

// NewDirectory creates a directory holding entries.
func NewDirectory(entries map[string]string, opts ...Option) *Directory {
	d := &Directory{
		exact:     make(map[string]string, len(entries)),
		lower:     make(map[string]string, len(entries)),
		threshold: 0.9,
	}
	for _, opt := range opts {
		opt(d)
	}
	for name, number := range entries {
		d.add(name, number)
	}
	return d
}

// Add inserts or replaces a contact.
func (d *Directory) Add(name, number string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.add(name, number)
}

func (d *Directory) add(name, number string) {
	d.exact[name] = number
	d.lower[strings.ToLower(name)] = number
}

// Len returns the number of distinct keys.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.exact)
}

// Lookup resolves name to a phone number.
func (d *Directory) Lookup(name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if number, ok := d.exact[name]; ok {
		return number, true
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if number, ok := d.lower[key]; ok {
		return number, true
	}
	if d.fuzzy && key != "" {
		return d.fuzzyLookup(key)
	}
	return "", false
}

func (d *Directory) fuzzyLookup(key string) (string, bool) {
	codes := metaphoneCodes(key)

	var bestNumber string
	bestScore := 0.0
	for name, number := range d.lower {
		if !overlaps(codes, metaphoneCodes(name)) {
			continue
		}
		score := matchr.JaroWinkler(key, name, false)
		if score >= d.threshold && score > bestScore {
			bestNumber, bestScore = number, score
		}
	}
	return bestNumber, bestNumber != ""
}

func metaphoneCodes(s string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, alt := matchr.DoubleMetaphone(strings.ReplaceAll(s, " ", ""))
	if p != "" {
		codes[p] = struct{}{}
	}
	if alt != "" {
		codes[alt] = struct{}{}
	}
	return codes
}

func overlaps(a, b map[string]struct{}) bool {
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
