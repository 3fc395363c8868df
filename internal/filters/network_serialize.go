package filters

import (
	"strings"

	"github.com/bnema/adblock-engine/internal/compression"
	"github.com/bnema/adblock-engine/internal/dataview"
)

// Optional parts of a serialized network filter.
const (
	networkHasFilter byte = 1 << iota
	networkHasHostname
	networkHasDomains
	networkHasRawLine
	networkHasDenyallow
	networkHasOptionValue
)

// optionValueCategory returns the codebook used for the option value.
func (f *NetworkFilter) optionValueCategory() (cat dataview.Category, compressed bool) {
	switch {
	case f.IsCSP():
		return dataview.NetworkCSP, true
	case f.IsRedirect():
		return dataview.NetworkRedirect, true
	default:
		return 0, false
	}
}

// Serialize writes f to v: the mask, a byte flagging the optional parts
// present, then those parts.
func (f *NetworkFilter) Serialize(v *dataview.View) {
	v.PushUint32(uint32(f.Mask))
	index := v.Pos()
	v.PushByte(0)

	var parts byte
	if f.Filter != "" {
		parts |= networkHasFilter
		if f.IsUnicode() {
			v.PushUTF8(f.Filter)
		} else {
			v.PushString(dataview.NetworkFilter, f.Filter)
		}
	}

	if f.Hostname != "" {
		parts |= networkHasHostname
		v.PushString(dataview.NetworkHostname, f.Hostname)
	}

	if f.Domains != nil {
		parts |= networkHasDomains
		f.Domains.Serialize(v)
	}

	if f.RawLine != "" {
		parts |= networkHasRawLine
		v.PushString(dataview.RawNetwork, f.RawLine)
	}

	if f.Denyallow != nil {
		parts |= networkHasDenyallow
		f.Denyallow.Serialize(v)
	}

	if f.OptionValue != "" {
		parts |= networkHasOptionValue
		if cat, ok := f.optionValueCategory(); ok {
			v.PushString(cat, f.OptionValue)
		} else {
			v.PushUTF8(f.OptionValue)
		}
	}

	v.SetByte(index, parts)
}

// SerializedSize returns the number of bytes Serialize writes with
// compression c, which may be nil.
func (f *NetworkFilter) SerializedSize(c *compression.Compression) (n int) {
	n = 4 + 1
	if f.Filter != "" {
		if f.IsUnicode() {
			n += dataview.SizeOfUTF8(f.Filter)
		} else {
			n += dataview.SizeOfString(dataview.NetworkFilter, f.Filter, c)
		}
	}

	if f.Hostname != "" {
		n += dataview.SizeOfString(dataview.NetworkHostname, f.Hostname, c)
	}

	if f.Domains != nil {
		n += f.Domains.SerializedSize()
	}

	if f.RawLine != "" {
		n += dataview.SizeOfString(dataview.RawNetwork, f.RawLine, c)
	}

	if f.Denyallow != nil {
		n += f.Denyallow.SerializedSize()
	}

	if f.OptionValue != "" {
		if cat, ok := f.optionValueCategory(); ok {
			n += dataview.SizeOfString(cat, f.OptionValue, c)
		} else {
			n += dataview.SizeOfUTF8(f.OptionValue)
		}
	}

	return n
}

// DeserializeNetwork reads a filter written by Serialize.
func DeserializeNetwork(v *dataview.View) (f *NetworkFilter) {
	f = &NetworkFilter{Mask: NetworkMask(v.GetUint32())}
	parts := v.GetByte()

	if parts&networkHasFilter != 0 {
		if f.IsUnicode() {
			f.Filter = v.GetUTF8()
		} else {
			f.Filter = v.GetString(dataview.NetworkFilter)
		}
	}

	if parts&networkHasHostname != 0 {
		f.Hostname = v.GetString(dataview.NetworkHostname)
	}

	if parts&networkHasDomains != 0 {
		f.Domains = DeserializeDomains(v)
	}

	if parts&networkHasRawLine != 0 {
		f.RawLine = v.GetString(dataview.RawNetwork)
	}

	if parts&networkHasDenyallow != 0 {
		f.Denyallow = DeserializeDomains(v)
	}

	if parts&networkHasOptionValue != 0 {
		if cat, ok := f.optionValueCategory(); ok {
			f.OptionValue = v.GetString(cat)
		} else {
			f.OptionValue = v.GetUTF8()
		}
	}

	return newNetworkFilter(f)
}

// String returns f in filter list syntax.  Without debug information the
// domain lists print as "<hashed>".
func (f *NetworkFilter) String() (s string) {
	if f.RawLine != "" {
		return f.RawLine
	}

	b := &strings.Builder{}
	if f.IsException() {
		b.WriteString("@@")
	}

	switch {
	case f.IsHostnameAnchor():
		b.WriteString("||")
	case f.FromHTTP() != f.FromHTTPS():
		if f.FromHTTP() {
			b.WriteString("|http://")
		} else {
			b.WriteString("|https://")
		}
	case f.IsLeftAnchor():
		b.WriteString("|")
	}

	if f.Hostname != "" {
		b.WriteString(f.Hostname)
		b.WriteString("^")
	}

	b.WriteString(f.Filter)

	if f.IsRightAnchor() && !strings.HasSuffix(b.String(), "^") {
		b.WriteString("|")
	}

	if opts := f.optionStrings(); len(opts) > 0 {
		b.WriteString("$")
		b.WriteString(strings.Join(opts, ","))
	}

	return b.String()
}

// optionStrings returns the options of f in a canonical order.
func (f *NetworkFilter) optionStrings() (opts []string) {
	if !f.FromAny() {
		positive := bitCount(f.CptMask())
		if bitCount(FromAny)-positive < positive {
			for _, opt := range cptOptions {
				if !f.Mask.Has(opt.bit) {
					opts = append(opts, "~"+opt.name)
				}
			}
		} else {
			for _, opt := range cptOptions {
				if f.Mask.Has(opt.bit) {
					opts = append(opts, opt.name)
				}
			}
		}
	}

	if f.IsImportant() {
		opts = append(opts, "important")
	}

	switch {
	case f.IsRedirectRule():
		opts = append(opts, "redirect-rule="+f.OptionValue)
	case f.IsRedirect():
		opts = append(opts, "redirect="+f.OptionValue)
	}

	if f.IsCSP() {
		opts = append(opts, "csp="+f.OptionValue)
	}

	if f.IsReplace() {
		opts = append(opts, "replace="+f.OptionValue)
	}

	switch {
	case f.IsElemHide():
		opts = append(opts, "elemhide")
	case f.IsSpecificHide():
		opts = append(opts, "specifichide")
	case f.IsGenericHide():
		opts = append(opts, "generichide")
	}

	if f.FirstParty() != f.ThirdParty() {
		if f.FirstParty() {
			opts = append(opts, "1p")
		} else {
			opts = append(opts, "3p")
		}
	}

	if f.Domains != nil {
		opts = append(opts, "domain="+strings.ReplaceAll(f.Domains.String(), ",", "|"))
	}

	if f.Denyallow != nil {
		opts = append(opts, "denyallow="+strings.ReplaceAll(f.Denyallow.String(), ",", "|"))
	}

	if f.IsBadFilter() {
		opts = append(opts, "badfilter")
	}

	return opts
}
