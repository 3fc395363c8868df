package filters

import (
	"regexp"
	"strings"
)

// separatorRegex is what '^' expands to: any byte that cannot be part of a
// URL token, or the end of the URL.
const separatorRegex = `(?:[^\w\d_.%-]|$)`

var (
	// Characters to escape in patterns (except * and ^)
	rePlainChars = regexp.MustCompile(`[|.$+?{}()[\]\\]`)

	// matchAll is used by filters which are not regular expressions.
	matchAll = regexp.MustCompile(``)
)

// compileRegex turns a filter pattern into a regular expression.  Full
// regular expressions ("/.../") are compiled case-insensitively, other
// patterns get '*' and '^' expanded and anchors applied.
func compileRegex(pattern string, leftAnchor, rightAnchor, fullRegex bool) (re *regexp.Regexp, err error) {
	if fullRegex {
		return regexp.Compile("(?i)" + pattern[1:len(pattern)-1])
	}

	s := rePlainChars.ReplaceAllString(pattern, `\$0`)
	s = strings.ReplaceAll(s, "*", ".*")
	s = strings.ReplaceAll(s, "^", separatorRegex)

	if rightAnchor {
		s += "$"
	}

	if leftAnchor {
		s = "^" + s
	}

	return regexp.Compile(s)
}

// isRegexPattern reports whether pattern needs a regular expression to be
// matched, i.e. contains a wildcard or a separator.
func isRegexPattern(pattern string) (ok bool) {
	return strings.ContainsAny(pattern, "^*")
}
