package filters

import "strings"

// HTMLSelectorKind is the kind of an HTML filtering selector.
type HTMLSelectorKind uint8

const (
	// HTMLSelectorScript removes inline scripts containing any of Texts.
	HTMLSelectorScript HTMLSelectorKind = iota + 1

	// HTMLSelectorReplace applies Replace to the response body.
	HTMLSelectorReplace
)

// String implements the fmt.Stringer interface for HTMLSelectorKind.
func (k HTMLSelectorKind) String() (s string) {
	switch k {
	case HTMLSelectorScript:
		return "script"
	case HTMLSelectorReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// HTMLSelector is an instruction to rewrite an HTML response.
type HTMLSelector struct {
	Replace *ReplaceModifier
	Texts   []string
	Kind    HTMLSelectorKind
}

const (
	htmlScriptPrefix = "^script"
	htmlHasText      = ":has-text("
)

// ExtractHTMLSelectorFromRule parses a rule such as
// "^script:has-text(foo):has-text(bar)" into a script selector with the
// texts "foo" and "bar".
func ExtractHTMLSelectorFromRule(rule string) (sel HTMLSelector, ok bool) {
	if !strings.HasPrefix(rule, htmlScriptPrefix) {
		return HTMLSelector{}, false
	}

	sel.Kind = HTMLSelectorScript
	i := len(htmlScriptPrefix)
	for strings.HasPrefix(rule[i:], htmlHasText) {
		i += len(htmlHasText)
		start := i
		depth := 1
		var prev byte
		for ; i < len(rule) && depth != 0; i++ {
			c := rule[i]
			if prev != '\\' {
				switch c {
				case '(':
					depth++
				case ')':
					depth--
				}
			}
			prev = c
		}

		if depth != 0 {
			return HTMLSelector{}, false
		}

		sel.Texts = append(sel.Texts, rule[start:i-1])
	}

	if i != len(rule) {
		return HTMLSelector{}, false
	}

	return sel, true
}
