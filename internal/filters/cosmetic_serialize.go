package filters

import (
	"strings"

	"github.com/bnema/adblock-engine/internal/compression"
	"github.com/bnema/adblock-engine/internal/dataview"
)

// Optional parts of a serialized cosmetic filter.
const (
	cosmeticHasDomains byte = 1 << iota
	cosmeticHasRawLine
	cosmeticHasStyle
)

// Serialize writes f to v: the mask, the selector, a byte flagging the
// optional parts present, then those parts.
func (f *CosmeticFilter) Serialize(v *dataview.View) {
	v.PushUint16(uint16(f.Mask))
	if f.IsUnicode() {
		v.PushUTF8(f.Selector)
	} else {
		v.PushString(dataview.CosmeticSelector, f.Selector)
	}

	index := v.Pos()
	v.PushByte(0)

	var parts byte
	if f.Domains != nil {
		parts |= cosmeticHasDomains
		f.Domains.Serialize(v)
	}

	if f.RawLine != "" {
		parts |= cosmeticHasRawLine
		v.PushString(dataview.RawCosmetic, f.RawLine)
	}

	if f.Style != "" {
		parts |= cosmeticHasStyle
		v.PushASCII(f.Style)
	}

	v.SetByte(index, parts)
}

// SerializedSize returns the number of bytes Serialize writes with
// compression c, which may be nil.
func (f *CosmeticFilter) SerializedSize(c *compression.Compression) (n int) {
	n = 2 + 1
	if f.IsUnicode() {
		n += dataview.SizeOfUTF8(f.Selector)
	} else {
		n += dataview.SizeOfString(dataview.CosmeticSelector, f.Selector, c)
	}

	if f.Domains != nil {
		n += f.Domains.SerializedSize()
	}

	if f.RawLine != "" {
		n += dataview.SizeOfString(dataview.RawCosmetic, f.RawLine, c)
	}

	if f.Style != "" {
		n += dataview.SizeOfASCII(f.Style)
	}

	return n
}

// DeserializeCosmetic reads a filter written by Serialize.
func DeserializeCosmetic(v *dataview.View) (f *CosmeticFilter) {
	f = &CosmeticFilter{Mask: CosmeticMask(v.GetUint16())}
	if f.IsUnicode() {
		f.Selector = v.GetUTF8()
	} else {
		f.Selector = v.GetString(dataview.CosmeticSelector)
	}

	parts := v.GetByte()
	if parts&cosmeticHasDomains != 0 {
		f.Domains = DeserializeDomains(v)
	}

	if parts&cosmeticHasRawLine != 0 {
		f.RawLine = v.GetString(dataview.RawCosmetic)
	}

	if parts&cosmeticHasStyle != 0 {
		f.Style = v.GetASCII()
	}

	return newCosmeticFilter(f)
}

// String returns f in filter list syntax.  Without debug information the
// domains print as "<hashed>".
func (f *CosmeticFilter) String() (s string) {
	if f.RawLine != "" {
		return f.RawLine
	}

	b := &strings.Builder{}
	if f.Domains != nil {
		b.WriteString(f.Domains.String())
	}

	if f.IsUnhide() {
		b.WriteString("#@#")
	} else {
		b.WriteString("##")
	}

	if f.IsScriptInject() {
		b.WriteString(scriptPrefix)
		b.WriteString(f.Selector)
		b.WriteString(")")
	} else {
		b.WriteString(f.Selector)
	}

	if f.Style != "" {
		b.WriteString(stylePrefix)
		b.WriteString(f.Style)
		b.WriteString(")")
	}

	if f.IsRemove() {
		b.WriteString(removeSuffix)
	}

	return b.String()
}
