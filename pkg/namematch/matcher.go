// Package namematch matches names against a set of glob patterns. It backs
// the tool allow-list: a tool is exposed only when its name matches one of
// the configured patterns.
package namematch

import (
	"strings"

	"github.com/gobwas/glob"
)

type Matcher struct {
	patterns []glob.Glob
}

// New compiles the given patterns. An empty pattern list matches nothing.
func New(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, pattern := range patterns {
		g, err := glob.Compile(strings.TrimSpace(pattern))
		if err != nil {
			return nil, err
		}
		m.patterns = append(m.patterns, g)
	}
	return m, nil
}

func (m *Matcher) Matches(name string) bool {
	for _, g := range m.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Filter returns the subset of names that match, preserving order.
func (m *Matcher) Filter(names []string) []string {
	var out []string
	for _, name := range names {
		if m.Matches(name) {
			out = append(out, name)
		}
	}
	return out
}
