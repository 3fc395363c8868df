package filters

import (
	"slices"
	"strings"

	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/tokens"
	"golang.org/x/net/idna"
)

// Domains is a set of positive and negative hostname constraints.  Hostnames
// and entities ("example.*") are only kept as sorted backward hashes.
type Domains struct {
	Hostnames    []uint32
	Entities     []uint32
	NotHostnames []uint32
	NotEntities  []uint32

	// Parts is the original comma-separated list.  It is only kept in debug
	// mode.
	Parts string
}

// ParseDomains parses a list of domain constraints such as "example.com",
// "~sub.example.com" or "example.*".  It returns nil if parts holds no
// constraint.
func ParseDomains(parts []string, debug bool) (d *Domains) {
	d = &Domains{}
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(part)
		if hasUnicode(part) {
			part = toASCII(part)
		}

		negation := strings.HasPrefix(part, "~")
		if negation {
			part = part[1:]
		}

		entity := strings.HasSuffix(part, ".*")
		if entity {
			part = part[:len(part)-2]
		}

		if part == "" {
			continue
		}

		h := tokens.HashHostnameBackward(part)
		switch {
		case negation && entity:
			d.NotEntities = append(d.NotEntities, h)
		case negation:
			d.NotHostnames = append(d.NotHostnames, h)
		case entity:
			d.Entities = append(d.Entities, h)
		default:
			d.Hostnames = append(d.Hostnames, h)
		}
		kept = append(kept, part)
	}

	if len(kept) == 0 {
		return nil
	}

	slices.Sort(d.Hostnames)
	slices.Sort(d.Entities)
	slices.Sort(d.NotHostnames)
	slices.Sort(d.NotEntities)
	if debug {
		d.Parts = strings.Join(parts, ",")
	}

	return d
}

// toASCII converts a unicode hostname to punycode, returning it unchanged if
// it cannot be converted.
func toASCII(hostname string) (ascii string) {
	ascii, err := idna.Lookup.ToASCII(hostname)
	if err != nil {
		ascii, err = idna.Punycode.ToASCII(hostname)
		if err != nil {
			return hostname
		}
	}

	return ascii
}

func hasUnicode(s string) (ok bool) {
	for i := range len(s) {
		if s[i] >= 0x80 {
			return true
		}
	}

	return false
}

// IsPositiveHostnamesOnly reports whether d only lists plain hostnames,
// which lets filters be indexed by them.
func (d *Domains) IsPositiveHostnamesOnly() (ok bool) {
	return len(d.Hostnames) > 0 &&
		len(d.Entities) == 0 &&
		len(d.NotHostnames) == 0 &&
		len(d.NotEntities) == 0
}

// HasPositive reports whether d restricts matching to some hostnames.
func (d *Domains) HasPositive() (ok bool) {
	return len(d.Hostnames) > 0 || len(d.Entities) > 0
}

// Match reports whether a page with the given hostname and entity hashes
// satisfies d.  Negations win over positive constraints and an empty
// positive set matches everything not negated.
func (d *Domains) Match(hostnameHashes, entityHashes []uint32) (ok bool) {
	if anyIn(d.NotHostnames, hostnameHashes) || anyIn(d.NotEntities, entityHashes) {
		return false
	}

	if d.HasPositive() {
		return anyIn(d.Hostnames, hostnameHashes) || anyIn(d.Entities, entityHashes)
	}

	return true
}

func anyIn(sorted, hashes []uint32) (ok bool) {
	if len(sorted) == 0 {
		return false
	}

	for _, h := range hashes {
		if tokens.HasSorted(sorted, h) {
			return true
		}
	}

	return false
}

// UpdateID mixes d into the filter id hash h.
func (d *Domains) UpdateID(h uint32) (res uint32) {
	for _, list := range [][]uint32{d.Hostnames, d.Entities, d.NotHostnames, d.NotEntities} {
		for _, n := range list {
			h = h*tokens.HashMult ^ n
		}
	}

	return h
}

// Domains optional parts.
const (
	domainsHasEntities byte = 1 << iota
	domainsHasHostnames
	domainsHasNotEntities
	domainsHasNotHostnames
	domainsHasParts
)

// Serialize writes d to v.
func (d *Domains) Serialize(v *dataview.View) {
	index := v.Pos()
	v.PushByte(0)

	var parts byte
	if len(d.Entities) > 0 {
		parts |= domainsHasEntities
		v.PushUint32Array(d.Entities)
	}

	if len(d.Hostnames) > 0 {
		parts |= domainsHasHostnames
		v.PushUint32Array(d.Hostnames)
	}

	if len(d.NotEntities) > 0 {
		parts |= domainsHasNotEntities
		v.PushUint32Array(d.NotEntities)
	}

	if len(d.NotHostnames) > 0 {
		parts |= domainsHasNotHostnames
		v.PushUint32Array(d.NotHostnames)
	}

	if d.Parts != "" {
		parts |= domainsHasParts
		v.PushUTF8(d.Parts)
	}

	v.SetByte(index, parts)
}

// SerializedSize returns the number of bytes Serialize writes.
func (d *Domains) SerializedSize() (n int) {
	n = dataview.SizeOfByte
	for _, list := range [][]uint32{d.Entities, d.Hostnames, d.NotEntities, d.NotHostnames} {
		if len(list) > 0 {
			n += dataview.SizeOfUint32Array(list)
		}
	}

	if d.Parts != "" {
		n += dataview.SizeOfUTF8(d.Parts)
	}

	return n
}

// DeserializeDomains reads Domains written by Serialize.
func DeserializeDomains(v *dataview.View) (d *Domains) {
	parts := v.GetByte()
	d = &Domains{}
	if parts&domainsHasEntities != 0 {
		d.Entities = v.GetUint32Array()
	}

	if parts&domainsHasHostnames != 0 {
		d.Hostnames = v.GetUint32Array()
	}

	if parts&domainsHasNotEntities != 0 {
		d.NotEntities = v.GetUint32Array()
	}

	if parts&domainsHasNotHostnames != 0 {
		d.NotHostnames = v.GetUint32Array()
	}

	if parts&domainsHasParts != 0 {
		d.Parts = v.GetUTF8()
	}

	return d
}

// String returns the original list in debug mode and "<hashed>" otherwise.
func (d *Domains) String() (s string) {
	if d.Parts != "" {
		return d.Parts
	}

	return "<hashed>"
}
