package parser

import (
	"strings"

	"github.com/bnema/adblock-engine/internal/models"
)

// DetectFilterType guesses whether line is a network filter, a cosmetic
// filter or something unsupported, before the line is actually parsed.  In
// extended mode empty lines, comments and AdGuard-only syntax get their own
// kinds instead of models.FilterTypeNotSupported.
func DetectFilterType(line string, extended bool) models.FilterType {
	notSupported := func(t models.FilterType) models.FilterType {
		if extended {
			return t
		}

		return models.FilterTypeNotSupported
	}

	if len(line) <= 1 {
		return notSupported(models.FilterTypeNotSupportedEmpty)
	}

	first, second := line[0], line[1]
	if first == '!' || (first == '#' && second <= ' ') || strings.HasPrefix(line, "[Adblock") {
		return notSupported(models.FilterTypeNotSupportedComment)
	}

	if isNetworkStart(first, second) || line[len(line)-1] == '|' {
		return models.FilterTypeNetwork
	}

	// "$$" and "$@$" are AdGuard HTML filtering rules.
	if i := strings.IndexByte(line, '$'); i != -1 && i != len(line)-1 {
		rest := line[i+1:]
		if rest[0] == '$' || strings.HasPrefix(rest, "@$") {
			return notSupported(models.FilterTypeNotSupportedAdGuard)
		}
	}

	if i := strings.IndexByte(line, '#'); i != -1 && i != len(line)-1 {
		rest := line[i+1:]
		switch {
		case rest[0] == '#', strings.HasPrefix(rest, "@#"):
			return models.FilterTypeCosmetic
		case hasAnyPrefix(rest, "@$#", "@%#", "@?#", "%#", "$#", "$?#", "?#"):
			return notSupported(models.FilterTypeNotSupportedAdGuard)
		}
	}

	return models.FilterTypeNetwork
}

// isNetworkStart returns true if a line starting with first and second can
// only be a network filter.
func isNetworkStart(first, second byte) bool {
	switch first {
	case '$':
		return second != '$' && second != '@'
	case '&', '*', '-', '.', '/', ':', '=', '?', '@', '_', '|':
		return true
	default:
		return false
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}
