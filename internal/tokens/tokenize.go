package tokens

// isAllowedByte reports whether c can be part of a token.
func isAllowedByte(c byte) (ok bool) {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '%' ||
		c >= 0x80
}

func isAlpha(c byte) (ok bool) {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// tokenizer splits s into runs of allowed bytes and calls keep for each run
// of at least two bytes.  keep receives the run boundaries and whether the
// run reaches the end of s.
func tokenize(dst []uint32, s string, keep func(start, end int, last bool) bool) (res []uint32) {
	inside := false
	start := 0
	h := HashSeed
	for i := range len(s) {
		c := s[i]
		if isAllowedByte(c) {
			if !inside {
				h = HashSeed
				inside = true
				start = i
			}
			h = h*HashMult ^ uint32(c)

			continue
		}

		if inside {
			inside = false
			if i-start > 1 && keep(start, i, false) {
				dst = append(dst, h)
			}
		}
	}

	if inside && len(s)-start > 1 && keep(start, len(s), true) {
		dst = append(dst, h)
	}

	return dst
}

// AppendNoSkip appends the hashes of all tokens of s to dst.  It is used for
// URLs, where every token is known to be complete.
func AppendNoSkip(dst []uint32, s string) (res []uint32) {
	return tokenize(dst, s, func(_, _ int, _ bool) bool { return true })
}

// Append appends the hashes of the tokens of pattern to dst.  skipFirst drops
// a token starting at the very beginning of pattern and skipLast drops the
// one ending it, since those may be partial words in the matched URL.
func Append(dst []uint32, pattern string, skipFirst, skipLast bool) (res []uint32) {
	return tokenize(dst, pattern, func(start, _ int, last bool) bool {
		if skipFirst && start == 0 {
			return false
		}

		return !last || !skipLast
	})
}

// AppendWithWildcards is like Append but also drops tokens touching a '*'.
func AppendWithWildcards(dst []uint32, pattern string, skipFirst, skipLast bool) (res []uint32) {
	return tokenize(dst, pattern, func(start, end int, last bool) bool {
		if skipFirst && start == 0 {
			return false
		} else if start > 0 && pattern[start-1] == '*' {
			return false
		} else if last {
			return !skipLast
		}

		return pattern[end] != '*'
	})
}

// isRegexSpecial reports whether c starts a construct after which literal
// tokens can no longer be extracted.
func isRegexSpecial(c byte) (ok bool) {
	switch c {
	case '(', ')', '*', '+', '?', '[', ']', '{', '}':
		return true
	default:
		return false
	}
}

// AppendRegex appends the tokens that every match of the regular expression
// /body/ must contain.  Only the literal prefix and suffix are considered and
// nothing is extracted when body contains an alternation.
func AppendRegex(dst []uint32, body string) (res []uint32) {
	begin := 0
	for ; begin < len(body); begin++ {
		c := body[begin]
		if c == '|' {
			return dst
		}

		if isRegexSpecial(c) ||
			(c == '.' && (begin == 0 || body[begin-1] != '\\')) ||
			(c == '\\' && begin+1 < len(body) && isAlpha(body[begin+1])) {
			break
		}
	}

	end := len(body) - 1
	for ; end >= begin; end-- {
		c := body[end]
		if c == '|' {
			return dst
		}

		if isRegexSpecial(c) ||
			(c == '.' && (end == 0 || body[end-1] != '\\')) ||
			(end > 0 && body[end-1] == '\\' && isAlpha(c)) {
			break
		}
	}

	startAnchored := len(body) > 0 && body[0] == '^'
	endAnchored := len(body) > 0 && body[len(body)-1] == '$'
	if end < begin {
		return Append(dst, body, !startAnchored, !endAnchored)
	}

	if begin > 0 {
		dst = Append(dst, body[:begin], !startAnchored, true)
	}

	if end < len(body)-1 {
		dst = Append(dst, body[end+1:], true, !endAnchored)
	}

	return dst
}
