package watch

import "strings"

// Classifier decides whether a reported filesystem path is relevant or must
// be ignored. A path is ignored iff any configured pattern is a substring of
// its string form. Substring matching (not glob) is deliberate: a short
// fragment like ".git" blocks every path inside that directory.
type Classifier struct {
	patterns []string
}

// NewClassifier creates a classifier for the given ignore-pattern set
func NewClassifier(patterns []string) *Classifier {
	return &Classifier{patterns: patterns}
}

// Ignore reports whether the path matches any configured ignore pattern
func (c *Classifier) Ignore(path string) bool {
	for _, p := range c.patterns {
		if p == "" {
			continue
		}
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}
