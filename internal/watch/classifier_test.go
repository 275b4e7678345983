package watch

import "testing"

func TestClassifierIgnore(t *testing.T) {
	c := NewClassifier([]string{".git", "node_modules"})

	for _, tc := range []struct {
		name string
		path string
		want bool
	}{
		{name: "vcs internals", path: "/repo/.git/objects/ab/cdef", want: true},
		{name: "dependency dir", path: "/repo/node_modules/x.js", want: true},
		{name: "regular source file", path: "/repo/internal/main.go", want: false},
		{name: "top-level file", path: "/repo/README.md", want: false},
		{name: "substring over-match is intentional", path: "/repo/my.gitignore", want: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Ignore(tc.path); got != tc.want {
				t.Errorf("Ignore(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestClassifierEmptyPatternSet(t *testing.T) {
	c := NewClassifier(nil)
	if c.Ignore("/repo/.git/HEAD") {
		t.Error("empty pattern set should ignore nothing")
	}
}

func TestClassifierSkipsEmptyPattern(t *testing.T) {
	// An empty pattern is a substring of everything; it must not match.
	c := NewClassifier([]string{""})
	if c.Ignore("/repo/main.go") {
		t.Error("empty pattern must not match any path")
	}
}
