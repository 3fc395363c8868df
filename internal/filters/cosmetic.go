package filters

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/bnema/adblock-engine/internal/request"
	"github.com/bnema/adblock-engine/internal/tokens"
)

// DefaultHidingStyle is the style applied to selectors without :style(...).
const DefaultHidingStyle = "display: none !important;"

// CosmeticMask is the set of boolean facets of a cosmetic filter.
type CosmeticMask uint16

// CosmeticMask bits.  The layout is part of the serialization format.
const (
	CosmeticUnhide CosmeticMask = 1 << iota
	CosmeticScriptInject
	CosmeticUnicode
	CosmeticClassSelector
	CosmeticIDSelector
	CosmeticHrefSelector
	CosmeticRemove
	CosmeticExtended
	CosmeticPureHas
	CosmeticHTMLFiltering
)

// Has reports whether all bits of m2 are set in m.
func (m CosmeticMask) Has(m2 CosmeticMask) (ok bool) { return m&m2 == m2 }

// CosmeticFilter is a parsed cosmetic filter: an element hiding rule, its
// exception, a script injection or an HTML filtering rule.  It is immutable
// once built and safe for concurrent use.
type CosmeticFilter struct {
	Domains *Domains

	// Selector is the CSS selector, the scriptlet call without "+js(" and
	// ")" or the HTML filtering rule starting with '^'.
	Selector string

	// Style is the custom style from :style(...), if any.
	Style string

	// RawLine is the original line.  It is only kept in debug mode.
	RawLine string

	Mask CosmeticMask
	id   uint32
}

// newCosmeticFilter returns a filter with its id computed.
func newCosmeticFilter(f *CosmeticFilter) (res *CosmeticFilter) {
	h := tokens.HashSeed*tokens.HashMult ^ uint32(f.Mask)
	for i := range len(f.Selector) {
		h = h*tokens.HashMult ^ uint32(f.Selector[i])
	}

	if f.Domains != nil {
		h = f.Domains.UpdateID(h)
	}

	for i := range len(f.Style) {
		h = h*tokens.HashMult ^ uint32(f.Style[i])
	}

	f.id = h

	return f
}

// Suffixes of cosmetic filters handled apart from the selector.
const (
	removeSuffix = ":remove()"
	stylePrefix  = ":style("
	scriptPrefix = "+js("
)

// ParseCosmetic parses a cosmetic filter line such as "example.com##.ad" or
// "~example.org#@#+js(noeval)".  It returns nil if the line is not a valid
// or supported cosmetic filter.
func ParseCosmetic(line string, debug bool) (f *CosmeticFilter) {
	sharp := strings.IndexByte(line, '#')
	if sharp == -1 || sharp+1 >= len(line) {
		return nil
	}

	f = &CosmeticFilter{}
	if debug {
		f.RawLine = line
	}

	suffixStart := sharp + 2
	if line[sharp+1] == '@' {
		f.Mask |= CosmeticUnhide
		suffixStart++
	} else if line[sharp+1] != '#' {
		return nil
	}

	if suffixStart > len(line) || line[suffixStart-1] != '#' {
		return nil
	}

	if sharp > 0 {
		f.Domains = ParseDomains(strings.Split(line[:sharp], ","), debug)
	}

	if strings.HasSuffix(line, removeSuffix) && len(line)-len(removeSuffix) > suffixStart {
		f.Mask |= CosmeticRemove | CosmeticExtended
		line = line[:len(line)-len(removeSuffix)]
	} else if len(line)-suffixStart >= 8 && strings.HasSuffix(line, ")") {
		if i := strings.Index(line[suffixStart:], stylePrefix); i != -1 {
			i += suffixStart
			f.Style = line[i+len(stylePrefix) : len(line)-1]
			line = line[:i]
		}
	}

	if !f.parseSelector(line[suffixStart:]) {
		return nil
	}

	if f.Domains == nil && f.IsExtended() && !f.IsUnhide() {
		return nil
	}

	if hasUnicode(f.Selector) {
		f.Mask |= CosmeticUnicode
	}

	f.classify()

	return newCosmeticFilter(f)
}

// parseSelector sets the selector of f from the part of the line after the
// separator.
func (f *CosmeticFilter) parseSelector(sel string) (ok bool) {
	switch {
	case strings.HasPrefix(sel, "^"):
		if !strings.HasPrefix(sel, "^script:has-text(") || !strings.HasSuffix(sel, ")") {
			return false
		}

		if _, ok = ExtractHTMLSelectorFromRule(sel); !ok {
			return false
		}

		f.Mask |= CosmeticHTMLFiltering
		f.Selector = sel
	case strings.HasPrefix(sel, scriptPrefix) && strings.HasSuffix(sel, ")"):
		// Generic script injections are only allowed as exceptions.
		if !f.IsUnhide() && (f.Domains == nil || !f.Domains.HasPositive()) {
			return false
		}

		f.Mask |= CosmeticScriptInject
		f.Selector = sel[len(scriptPrefix) : len(sel)-1]
	default:
		switch classifySelector(sel) {
		case selectorInvalid:
			return false
		case selectorPureHas:
			f.Mask |= CosmeticExtended | CosmeticPureHas
		case selectorExtended:
			f.Mask |= CosmeticExtended
		}

		f.Selector = sel
	}

	return true
}

// classify sets the DOM-hint bits of simple class, id and href selectors.
func (f *CosmeticFilter) classify() {
	if f.Mask&(CosmeticScriptInject|CosmeticRemove|CosmeticExtended|CosmeticHTMLFiltering) != 0 {
		return
	}

	sel := f.Selector
	switch {
	case strings.HasPrefix(sel, ".") && isSimpleSelector(sel):
		f.Mask |= CosmeticClassSelector
	case strings.HasPrefix(sel, "#") && isSimpleSelector(sel):
		f.Mask |= CosmeticIDSelector
	case strings.HasPrefix(sel, "a[href") && isSimpleHrefSelector(sel, 2):
		f.Mask |= CosmeticHrefSelector
	case strings.HasPrefix(sel, "[href") && isSimpleHrefSelector(sel, 1):
		f.Mask |= CosmeticHrefSelector
	}
}

// isSelectorNameByte reports whether c can be part of a class name or id.
func isSelectorNameByte(c byte) (ok bool) {
	return c == '-' || c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}

// isSimpleSelector reports whether sel starts with a single class name or id
// which every matching element must carry.
func isSimpleSelector(sel string) (ok bool) {
	for i := 1; i < len(sel); i++ {
		c := sel[i]
		if isSelectorNameByte(c) {
			continue
		}

		if i == 1 || i == len(sel)-1 {
			return false
		}

		switch c {
		case '[', '.', ':':
			return true
		case ' ':
			return strings.IndexByte(">+~.#", sel[i+1]) != -1
		default:
			return false
		}
	}

	return len(sel) > 1
}

// isSimpleHrefSelector reports whether sel[start:] is exactly an href
// attribute test such as `href^="https://ads."]`.
func isSimpleHrefSelector(sel string, start int) (ok bool) {
	rest := sel[start:]
	if !strings.HasPrefix(rest, "href") {
		return false
	}

	rest = rest[len("href"):]
	if strings.HasPrefix(rest, "^") || strings.HasPrefix(rest, "*") {
		rest = rest[1:]
	}

	if !strings.HasPrefix(rest, `="`) || !strings.HasSuffix(rest, `"]`) || len(rest) < 4 {
		return false
	}

	return !strings.ContainsAny(rest[2:len(rest)-2], `"]`)
}

// selectorType is the outcome of classifySelector.
type selectorType uint8

const (
	selectorNormal selectorType = iota
	selectorExtended
	selectorPureHas
	selectorInvalid
)

var (
	// reExtendedPseudo matches procedural pseudo-classes browsers cannot
	// evaluate.
	reExtendedPseudo = regexp.MustCompile(
		`:(?:-abp-[a-z-]+|has-text|xpath|matches-(?:css|css-before|css-after|attr|path|media|prop)|` +
			`min-text-length|upward|if|if-not|nth-ancestor|watch-attr|others|contains)\(`,
	)

	reHasPseudo = regexp.MustCompile(`:has\(`)
)

// classifySelector checks that sel is balanced and reports whether it uses
// extended pseudo-classes.
func classifySelector(sel string) (typ selectorType) {
	if sel == "" || !isBalanced(sel) {
		return selectorInvalid
	}

	extended := reExtendedPseudo.MatchString(sel)
	has := reHasPseudo.MatchString(sel)
	switch {
	case extended:
		return selectorExtended
	case has:
		return selectorPureHas
	default:
		return selectorNormal
	}
}

// isBalanced reports whether the parentheses, brackets and quotes of sel are
// balanced and it holds no declaration block.
func isBalanced(sel string) (ok bool) {
	var stack []byte
	var quote byte
	escaped := false
	for i := range len(sel) {
		c := sel[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			stack = append(stack, c)
		case c == ')' || c == ']':
			if len(stack) == 0 {
				return false
			}

			open := stack[len(stack)-1]
			if (c == ')') != (open == '(') {
				return false
			}
			stack = stack[:len(stack)-1]
		case c == '{' || c == '}':
			return false
		}
	}

	return len(stack) == 0 && quote == 0
}

// ID returns the content hash identifying f.
func (f *CosmeticFilter) ID() (id uint32) { return f.id }

// IsUnhide reports whether f is an exception ("#@#").
func (f *CosmeticFilter) IsUnhide() (ok bool) { return f.Mask.Has(CosmeticUnhide) }

// IsScriptInject reports whether f injects a scriptlet.
func (f *CosmeticFilter) IsScriptInject() (ok bool) { return f.Mask.Has(CosmeticScriptInject) }

// IsUnicode reports whether the selector of f holds non-ASCII bytes.
func (f *CosmeticFilter) IsUnicode() (ok bool) { return f.Mask.Has(CosmeticUnicode) }

// IsClassSelector reports whether f starts with a simple class selector.
func (f *CosmeticFilter) IsClassSelector() (ok bool) { return f.Mask.Has(CosmeticClassSelector) }

// IsIDSelector reports whether f starts with a simple id selector.
func (f *CosmeticFilter) IsIDSelector() (ok bool) { return f.Mask.Has(CosmeticIDSelector) }

// IsHrefSelector reports whether f is a simple href attribute selector.
func (f *CosmeticFilter) IsHrefSelector() (ok bool) { return f.Mask.Has(CosmeticHrefSelector) }

// IsRemove reports whether f removes elements instead of hiding them.
func (f *CosmeticFilter) IsRemove() (ok bool) { return f.Mask.Has(CosmeticRemove) }

// IsExtended reports whether f needs procedural evaluation.
func (f *CosmeticFilter) IsExtended() (ok bool) { return f.Mask.Has(CosmeticExtended) }

// IsPureHasSelector reports whether the only extended construct of f is
// :has(...).
func (f *CosmeticFilter) IsPureHasSelector() (ok bool) { return f.Mask.Has(CosmeticPureHas) }

// IsHTMLFiltering reports whether f filters the HTML of responses.
func (f *CosmeticFilter) IsHTMLFiltering() (ok bool) { return f.Mask.Has(CosmeticHTMLFiltering) }

// HasHostnameConstraint reports whether f has any domain constraint.
func (f *CosmeticFilter) HasHostnameConstraint() (ok bool) { return f.Domains != nil }

// IsGenericHide reports whether f applies to every site not excluded by a
// negated constraint.
func (f *CosmeticFilter) IsGenericHide() (ok bool) {
	return f.Domains == nil || !f.Domains.HasPositive()
}

// HasCustomStyle reports whether f has a :style(...) declaration.
func (f *CosmeticFilter) HasCustomStyle() (ok bool) { return f.Style != "" }

// GetStyle returns the custom style of f or hidingStyle.
func (f *CosmeticFilter) GetStyle(hidingStyle string) (style string) {
	if f.Style != "" {
		return f.Style
	}

	return hidingStyle
}

// StyleAttributeHash returns the name of the attribute marking elements
// styled by an extended filter.
func (f *CosmeticFilter) StyleAttributeHash() (attr string) {
	return "s" + strconv.FormatUint(uint64(tokens.FastHash(f.GetStyle(DefaultHidingStyle))), 10)
}

// Match reports whether f applies to a page on hostname, whose registrable
// domain is domain.
func (f *CosmeticFilter) Match(hostname, domain string) (ok bool) {
	if f.Domains == nil {
		return true
	}

	if hostname == "" {
		return !f.Domains.HasPositive()
	}

	return f.Domains.Match(request.HostnameHashes(hostname, domain), request.EntityHashes(hostname, domain))
}

// Tokens returns the index keys of f: its positive hostnames and entities,
// else the class, id or href tokens of generic hiding rules.
func (f *CosmeticFilter) Tokens() (alternatives [][]uint32) {
	if f.Domains != nil {
		for _, h := range f.Domains.Hostnames {
			alternatives = append(alternatives, []uint32{h})
		}

		for _, h := range f.Domains.Entities {
			alternatives = append(alternatives, []uint32{h})
		}
	}

	if len(alternatives) > 0 || f.IsUnhide() {
		return alternatives
	}

	switch {
	case f.IsClassSelector(), f.IsIDSelector():
		end := 1
		for end < len(f.Selector) && strings.IndexByte(" .:[>+~", f.Selector[end]) == -1 {
			end++
		}

		return [][]uint32{{tokens.FastHashBetween(f.Selector, 1, end)}}
	case f.IsHrefSelector():
		return f.hrefTokens()
	default:
		return nil
	}
}

// hrefTokens returns the tokens of the attribute value of an href selector.
func (f *CosmeticFilter) hrefTokens() (alternatives [][]uint32) {
	sel := f.Selector
	i := strings.Index(sel, "href")
	if i == -1 {
		return nil
	}

	i += len("href")
	skipFirst, skipLast := false, true
	switch sel[i] {
	case '*':
		skipFirst = true
		i++
	case '^':
		i++
	default:
		skipLast = false
	}

	i += len(`="`)
	end := strings.IndexByte(sel[i:], '"')
	if end == -1 {
		return nil
	}

	return [][]uint32{tokens.Append(nil, sel[i:i+end], skipFirst, skipLast)}
}

// Scriptlet returns the name and arguments of a script injection.
func (f *CosmeticFilter) Scriptlet() (name string, args []string, ok bool) {
	if !f.IsScriptInject() || f.Selector == "" {
		return "", nil, false
	}

	parts := splitScriptletArgs(f.Selector)
	for _, p := range parts[1:] {
		args = append(args, unescapeScriptletArg(unquote(p)))
	}

	return parts[0], args, true
}

// splitScriptletArgs splits a scriptlet call on commas outside of quotes,
// object literals and regular expressions.
func splitScriptletArgs(s string) (parts []string) {
	var (
		inDouble, inSingle, inRegexp, inArg, backslash bool
		nesting                                        int
	)

	last := -1
	for i := range len(s) {
		c := s[i]
		if !backslash {
			switch {
			case inDouble:
				inDouble = c != '"'
			case inSingle:
				inSingle = c != '\''
			case nesting != 0:
				switch c {
				case '{':
					nesting++
				case '}':
					nesting--
				case '"':
					inDouble = true
				case '\'':
					inSingle = true
				}
			case inRegexp:
				inRegexp = c != '/'
			default:
				if !inArg {
					rest := s[i+1:]
					switch {
					case c == ' ':
					case c == '"' && strings.IndexByte(rest, '"') != -1:
						inDouble = true
					case c == '\'' && strings.IndexByte(rest, '\'') != -1:
						inSingle = true
					case c == '{' && strings.IndexByte(rest, '}') != -1:
						nesting++
					case c == '/' && strings.IndexByte(rest, '/') != -1:
						inRegexp = true
					default:
						inArg = true
					}
				}

				if c == ',' {
					parts = append(parts, strings.TrimSpace(s[last+1:i]))
					last = i
					inArg = false
				}
			}
		}
		backslash = c == '\\'
	}

	return append(parts, strings.TrimSpace(s[last+1:]))
}

// unquote strips matching single or double quotes around s.
func unquote(s string) (res string) {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}

	return s
}

var scriptletArgReplacer = strings.NewReplacer(`\u002C`, ",", `\u005C`, `\`, `\,`, ",")

func unescapeScriptletArg(s string) (res string) { return scriptletArgReplacer.Replace(s) }

// ScriptletSource resolves scriptlet names to their assembled code.
type ScriptletSource interface {
	GetScriptlet(name string) (script string, ok bool)
}

// Script returns the code f injects, with its arguments substituted into the
// scriptlet template of src.
func (f *CosmeticFilter) Script(src ScriptletSource) (script string, ok bool) {
	name, args, ok := f.Scriptlet()
	if !ok {
		return "", false
	}

	script, ok = src.GetScriptlet(name)
	if !ok {
		return "", false
	}

	for i, arg := range args {
		script = strings.ReplaceAll(script, "{{"+strconv.Itoa(i+1)+"}}", url.PathEscape(arg))
	}

	return script, true
}

// NormalizedSelector returns the key unhide filters are matched by: the
// selector, with the scriptlet name replaced by canonical for injections.
func (f *CosmeticFilter) NormalizedSelector(canonical func(name string) string) (sel string) {
	if !f.IsScriptInject() {
		return f.Selector
	}

	name, _, ok := f.Scriptlet()
	if !ok || canonical == nil {
		return f.Selector
	}

	canon := canonical(name)
	i := strings.Index(f.Selector, name)
	if canon == name || i == -1 {
		return f.Selector
	}

	return f.Selector[:i] + canon + f.Selector[i+len(name):]
}

// HTMLSelector returns the HTML filtering selector of f.
func (f *CosmeticFilter) HTMLSelector() (sel HTMLSelector, ok bool) {
	if !f.IsHTMLFiltering() {
		return HTMLSelector{}, false
	}

	return ExtractHTMLSelectorFromRule(f.Selector)
}
