package models

// FilterType is the kind of a filter list line as detected before parsing
type FilterType int

const (
	FilterTypeNotSupported FilterType = iota
	FilterTypeNetwork
	FilterTypeCosmetic
)

// Extended kinds of unsupported lines, only reported in extended detection
// mode.
const (
	FilterTypeNotSupportedEmpty FilterType = iota + 100
	FilterTypeNotSupportedComment
	FilterTypeNotSupportedAdGuard
)

// String implements the fmt.Stringer interface for FilterType.
func (t FilterType) String() string {
	switch t {
	case FilterTypeNetwork:
		return "network"
	case FilterTypeCosmetic:
		return "cosmetic"
	case FilterTypeNotSupportedEmpty:
		return "empty"
	case FilterTypeNotSupportedComment:
		return "comment"
	case FilterTypeNotSupportedAdGuard:
		return "adguard"
	default:
		return "not-supported"
	}
}

// IsSupported returns true for network and cosmetic lines.
func (t FilterType) IsSupported() bool {
	return t == FilterTypeNetwork || t == FilterTypeCosmetic
}
