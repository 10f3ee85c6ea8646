package gallery

import (
	"fmt"
	"regexp"
	"strings"
)

// compilePatterns converts glob-style patterns to case-insensitive regular
// expressions. "*" matches any run of characters, "?" matches a single
// character; everything else is literal.
func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(globToRegexp(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func globToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("(?i)^")

	literal := strings.Builder{}
	flush := func() {
		b.WriteString(regexp.QuoteMeta(literal.String()))
		literal.Reset()
	}

	for _, r := range pattern {
		switch r {
		case '*':
			flush()
			b.WriteString(".*")
		case '?':
			flush()
			b.WriteString(".")
		default:
			literal.WriteRune(r)
		}
	}
	flush()
	b.WriteString("$")
	return b.String()
}

// matchesAny reports whether name matches at least one compiled pattern.
// An empty pattern list matches everything.
func matchesAny(name string, patterns []*regexp.Regexp) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, re := range patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
