package metadata

import (
	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/tokens"
)

// Organization is a company operating trackers.
type Organization struct {
	Key              string `json:"key"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Country          string `json:"country"`
	WebsiteURL       string `json:"website_url"`
	PrivacyPolicyURL string `json:"privacy_policy_url"`
	PrivacyContact   string `json:"privacy_contact"`
	GhosteryID       string `json:"ghostery_id"`
}

// Category groups patterns by purpose, e.g. advertising or site analytics.
type Category struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// Pattern describes a tracker: the domains it is served from and the
// network filters blocking it.
type Pattern struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Organization string   `json:"organization"`
	Alias        string   `json:"alias"`
	WebsiteURL   string   `json:"website_url"`
	GhosteryID   string   `json:"ghostery_id"`
	Domains      []string `json:"domains"`
	Filters      []string `json:"filters"`
}

// IsValid returns true if o has the required fields.
func (o *Organization) IsValid() (ok bool) { return o.Key != "" && o.Name != "" }

// IsValid returns true if c has the required fields.
func (c *Category) IsValid() (ok bool) { return c.Key != "" && c.Name != "" }

// IsValid returns true if p has the required fields.
func (p *Pattern) IsValid() (ok bool) { return p.Key != "" && p.Name != "" && p.Category != "" }

// organizationCodec stores organizations by the hash of their key.
var organizationCodec = &Codec[Organization]{
	Keys: func(o *Organization) (keys []uint32) { return []uint32{tokens.FastHash(o.Key)} },
	Serialize: func(o *Organization, dv *dataview.View) {
		pushStrings(dv, o.Key, o.Name, o.Description, o.WebsiteURL, o.Country, o.PrivacyPolicyURL,
			o.PrivacyContact, o.GhosteryID)
	},
	SerializedSize: func(o *Organization) (n int) {
		return sizeOfStrings(o.Key, o.Name, o.Description, o.WebsiteURL, o.Country, o.PrivacyPolicyURL,
			o.PrivacyContact, o.GhosteryID)
	},
	Deserialize: func(dv *dataview.View) (o *Organization) {
		return &Organization{
			Key:              dv.GetUTF8(),
			Name:             dv.GetUTF8(),
			Description:      dv.GetUTF8(),
			WebsiteURL:       dv.GetUTF8(),
			Country:          dv.GetUTF8(),
			PrivacyPolicyURL: dv.GetUTF8(),
			PrivacyContact:   dv.GetUTF8(),
			GhosteryID:       dv.GetUTF8(),
		}
	},
}

// categoryCodec stores categories by the hash of their key.
var categoryCodec = &Codec[Category]{
	Keys: func(c *Category) (keys []uint32) { return []uint32{tokens.FastHash(c.Key)} },
	Serialize: func(c *Category, dv *dataview.View) {
		pushStrings(dv, c.Key, c.Name, c.Color, c.Description)
	},
	SerializedSize: func(c *Category) (n int) {
		return sizeOfStrings(c.Key, c.Name, c.Color, c.Description)
	},
	Deserialize: func(dv *dataview.View) (c *Category) {
		return &Category{
			Key:         dv.GetUTF8(),
			Name:        dv.GetUTF8(),
			Color:       dv.GetUTF8(),
			Description: dv.GetUTF8(),
		}
	},
}

// patternCodec stores patterns by the ids of their filters and of the
// "||domain^" filters of their domains.
var patternCodec = &Codec[Pattern]{
	Keys: patternKeys,
	Serialize: func(p *Pattern, dv *dataview.View) {
		pushStrings(dv, p.Key, p.Name, p.Category, p.Organization, p.Alias, p.WebsiteURL, p.GhosteryID)
		dv.PushLength(len(p.Domains))
		pushStrings(dv, p.Domains...)
		dv.PushLength(len(p.Filters))
		pushStrings(dv, p.Filters...)
	},
	SerializedSize: func(p *Pattern) (n int) {
		return sizeOfStrings(p.Key, p.Name, p.Category, p.Organization, p.Alias, p.WebsiteURL, p.GhosteryID) +
			dataview.SizeOfLength(len(p.Domains)) + sizeOfStrings(p.Domains...) +
			dataview.SizeOfLength(len(p.Filters)) + sizeOfStrings(p.Filters...)
	},
	Deserialize: func(dv *dataview.View) (p *Pattern) {
		p = &Pattern{
			Key:          dv.GetUTF8(),
			Name:         dv.GetUTF8(),
			Category:     dv.GetUTF8(),
			Organization: dv.GetUTF8(),
			Alias:        dv.GetUTF8(),
			WebsiteURL:   dv.GetUTF8(),
			GhosteryID:   dv.GetUTF8(),
		}
		p.Domains = getStrings(dv)
		p.Filters = getStrings(dv)

		return p
	},
}

// patternKeys returns the distinct filter ids of p.
func patternKeys(p *Pattern) (keys []uint32) {
	seen := map[uint32]struct{}{}
	add := func(line string) {
		f := filters.ParseNetwork(line, false)
		if f == nil {
			return
		}

		if _, ok := seen[f.ID()]; !ok {
			seen[f.ID()] = struct{}{}
			keys = append(keys, f.ID())
		}
	}

	for _, line := range p.Filters {
		add(line)
	}

	for _, domain := range p.Domains {
		add(domainFilter(domain))
	}

	return keys
}

// domainFilter returns the filter blocking domain and its subdomains.
func domainFilter(domain string) (line string) { return "||" + domain + "^" }

func pushStrings(dv *dataview.View, strs ...string) {
	for _, s := range strs {
		dv.PushUTF8(s)
	}
}

func sizeOfStrings(strs ...string) (n int) {
	for _, s := range strs {
		n += dataview.SizeOfUTF8(s)
	}

	return n
}

func getStrings(dv *dataview.View) (strs []string) {
	n := dv.GetLength()
	strs = make([]string, 0, min(n, dv.Len()))
	for range n {
		if dv.Err() != nil {
			return strs
		}

		strs = append(strs, dv.GetUTF8())
	}

	return strs
}
