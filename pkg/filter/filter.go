// Package filter implements the bad-word filter for broadcast text.
//
// The word list is loaded once at server start from a line-delimited source.
// Matching is per whitespace-separated token, case-insensitive, against the
// message body only.
package filter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Filter reports whether text contains a disallowed token. The zero-size
// filter (no words loaded) never matches; a missing word list simply
// disables filtering.
type Filter struct {
	words map[string]struct{}
}

// New builds a filter from an explicit word list.
func New(words []string) *Filter {
	f := &Filter{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			f.words[w] = struct{}{}
		}
	}
	return f
}

// Load reads one disallowed word per line.
func Load(r io.Reader) (*Filter, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		words = append(words, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("filter: load: %w", err)
	}
	return New(words), nil
}

// LoadFile loads the word list from a file path.
func LoadFile(path string) (*Filter, error) {
	f, err := os.Open(path) //nolint:gosec // path from server config
	if err != nil {
		return nil, fmt.Errorf("filter: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Contains reports whether any whitespace-separated token of text matches a
// disallowed word, ignoring case.
func (f *Filter) Contains(text string) bool {
	if f == nil || len(f.words) == 0 {
		return false
	}
	for _, tok := range strings.Fields(text) {
		if _, ok := f.words[strings.ToLower(tok)]; ok {
			return true
		}
	}
	return false
}

// Len returns the number of loaded words.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.words)
}
