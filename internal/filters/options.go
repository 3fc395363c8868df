package filters

import (
	"regexp"
	"strings"
)

// filterOption is a single "name[=value]" pair of a filter's options.
type filterOption struct {
	name  string
	value string
}

// lastIndexOfUnescaped returns the index of the last c in s not preceded by
// a backslash, or -1.
func lastIndexOfUnescaped(s string, c byte) (i int) {
	for i = strings.LastIndexByte(s, c); i > 0; i = strings.LastIndexByte(s[:i], c) {
		if s[i-1] != '\\' {
			return i
		}
	}

	return i
}

// optionName scans an option name starting at pos up to '=' or ','.
func optionName(line string, pos, end int) (next int, name string) {
	start := pos
	for ; pos < end; pos++ {
		if c := line[pos]; c == '=' || c == ',' {
			break
		}
	}

	return pos, line[start:pos]
}

// optionValue scans an option value starting at pos up to an unescaped
// ','.  Backslashes are removed and the byte after them kept as is.
func optionValue(line string, pos, end int) (next int, value string) {
	b := &strings.Builder{}
	start := pos
	for ; pos < end; pos++ {
		c := line[pos]
		if c == '\\' {
			b.WriteString(line[start:pos])
			pos++
			start = pos
		} else if c == ',' {
			break
		}
	}

	if start < pos {
		b.WriteString(line[start:min(pos, end)])
	}

	return pos, b.String()
}

// parseOptions splits line[pos:end] into options.
func parseOptions(line string, pos, end int) (opts []filterOption) {
	for ; pos < end; pos++ {
		var name, value string
		pos, name = optionName(line, pos, end)
		if pos < end && line[pos] == '=' {
			pos++
		}

		if name == "replace" {
			next, _, ok := replaceValue(line, pos, end)
			if ok {
				value = line[pos:next]
			}
			pos = next
		} else {
			pos, value = optionValue(line, pos, end)
		}

		opts = append(opts, filterOption{name: name, value: value})
	}

	return opts
}

// regexpEscapes are the bytes that keep their backslash inside a $replace
// pattern.
const regexpEscapes = "fnrtv0^$\\.*+?()[]{}|/dDwsSWbB"

func isHex(c byte) (ok bool) {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// regexpEscape reports whether the backslash at line[pos] starts an escape
// sequence that must be kept, and the index of its last byte.
func regexpEscape(line string, pos int) (last int, keep bool) {
	at := func(i int) byte {
		if i < len(line) {
			return line[i]
		}

		return 0
	}

	c := at(pos + 1)
	switch {
	case c == ',' || (c != 0 && strings.IndexByte(regexpEscapes, c) != -1):
		return pos + 1, true
	case c == 'c' && isAlpha(at(pos+2)):
		return pos + 2, true
	case c == 'x' && isHex(at(pos+2)) && isHex(at(pos+3)):
		return pos + 3, true
	case c == 'u' && at(pos+2) == '{':
		closing := strings.IndexByte(line[min(pos+3, len(line)):], '}')
		if closing >= 1 && closing <= 6 {
			return pos + 3 + closing, true
		}
	case c == 'u' && isHex(at(pos+2)) && isHex(at(pos+3)) && isHex(at(pos+4)) && isHex(at(pos+5)):
		return pos + 5, true
	}

	return pos + 1, false
}

func isAlpha(c byte) (ok bool) {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// replaceEscape is like regexpEscape but unescapes ',' and '/', which must be
// escaped inside $replace values.
func replaceEscape(line string, pos int) (last int, keep bool) {
	if pos+1 < len(line) && (line[pos+1] == ',' || line[pos+1] == '/') {
		return pos + 1, false
	}

	return regexpEscape(line, pos)
}

// replaceValue scans a "/pattern/replacement/flags" value starting at pos.
// It returns the index after the value, the three parts, and false if the
// value does not start with a slash.
func replaceValue(line string, pos, end int) (next int, parts [3]string, ok bool) {
	if pos >= end || line[pos] != '/' {
		return end, parts, false
	}
	pos++

	start := pos
	slashes := 0
	for ; pos < end; pos++ {
		c := line[pos]
		if c == '\\' {
			parts[slashes] += line[start:pos]
			last, keep := replaceEscape(line, pos)
			if !keep {
				pos++
			}
			start = pos
			pos = last
		} else if c == '/' {
			parts[slashes] += line[start:pos]
			start = pos + 1
			slashes++
			if slashes == 2 {
				break
			}
		}
	}

	if comma := strings.IndexByte(line[min(pos, end):end], ','); comma != -1 {
		end = pos + comma
	}

	if start < end {
		parts[2] = line[start:end]
	}

	return end, parts, true
}

// ReplaceModifier is a compiled $replace option.
type ReplaceModifier struct {
	Regex       *regexp.Regexp
	Replacement string

	// Global is true when every occurrence must be replaced rather than the
	// first one only.
	Global bool
}

// Apply returns s with the modifier applied.
func (m *ReplaceModifier) Apply(s string) (res string) {
	if m.Global {
		return m.Regex.ReplaceAllString(s, m.Replacement)
	}

	loc := m.Regex.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}

	dst := m.Regex.ExpandString(nil, m.Replacement, s, loc)

	return s[:loc[0]] + string(dst) + s[loc[1]:]
}

// parseReplaceModifier compiles a $replace value.  It returns nil if the
// value is malformed, the pattern does not compile or a flag is unknown.
func parseReplaceModifier(value string) (m *ReplaceModifier) {
	_, parts, ok := replaceValue(value, 0, len(value))
	if !ok {
		return nil
	}

	m = &ReplaceModifier{Replacement: jsReplacementToGo(parts[1])}
	flags := ""
	for _, f := range parts[2] {
		switch f {
		case 'g':
			m.Global = true
		case 'i', 'm', 's':
			flags += string(f)
		case 'u', 'y', 'd':
		default:
			return nil
		}
	}

	pattern := parts[0]
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	m.Regex = re

	return m
}

// jsReplacementToGo converts "$1" and "$&" references to the syntax of
// regexp.Expand.
func jsReplacementToGo(s string) (res string) {
	if !strings.Contains(s, "$") {
		return s
	}

	b := &strings.Builder{}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' || i+1 >= len(s) {
			b.WriteByte(c)

			continue
		}

		switch next := s[i+1]; {
		case next == '$':
			b.WriteString("$$")
			i++
		case next == '&':
			b.WriteString("${0}")
			i++
		case next >= '0' && next <= '9':
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			b.WriteString("${" + s[i+1:j] + "}")
			i = j - 1
		default:
			b.WriteString("$$")
		}
	}

	return b.String()
}
