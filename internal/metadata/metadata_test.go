package metadata_test

import (
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDump = `{
	"organizations": {
		"acme": {
			"name": "Acme Corp",
			"country": "US",
			"website_url": "https://acme.example",
			"description": null
		},
		"broken": {
			"country": "FR"
		}
	},
	"categories": {
		"advertising": {"key": "advertising", "name": "Advertising", "color": "#cb55cd", "description": "Ads"},
		"site_analytics": {"key": "site_analytics", "name": "Site Analytics", "color": "#87d7ef", "description": ""}
	},
	"patterns": {
		"acme_ads": {
			"name": "Acme Ads",
			"category": "advertising",
			"organization": "acme",
			"domains": ["acme-ads.com"],
			"filters": ["||acme-ads.com/pixel$image"]
		},
		"stats": {
			"name": "Stats",
			"category": "site_analytics",
			"organization": null,
			"domains": ["stats.io"],
			"filters": []
		}
	}
}`

func newTestMetadata(tb testing.TB) (m *metadata.Metadata) {
	tb.Helper()

	m, err := metadata.Parse([]byte(testDump))
	require.NoError(tb, err)

	return m
}

func TestParse(t *testing.T) {
	m := newTestMetadata(t)

	assert.Equal(t, 1, m.Organizations.Len())
	assert.Equal(t, 2, m.Categories.Len())
	assert.Equal(t, 2, m.Patterns.Len())

	_, err := metadata.Parse([]byte(`[]`))
	require.ErrorIs(t, err, metadata.ErrInvalidDump)
}

func TestMetadata_FromFilter(t *testing.T) {
	m := newTestMetadata(t)

	tests := []struct {
		name    string
		line    string
		wantKey string
		wantOrg string
	}{{
		name:    "listed_filter",
		line:    "||acme-ads.com/pixel$image",
		wantKey: "acme_ads",
		wantOrg: "Acme Corp",
	}, {
		name:    "domain_filter",
		line:    "||acme-ads.com^",
		wantKey: "acme_ads",
		wantOrg: "Acme Corp",
	}, {
		name:    "no_organization",
		line:    "||stats.io^",
		wantKey: "stats",
	}, {
		name: "unknown",
		line: "||example.com^",
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := filters.ParseNetwork(tc.line, false)
			require.NotNil(t, f)

			infos := m.FromFilter(f)
			if tc.wantKey == "" {
				assert.Empty(t, infos)

				return
			}

			require.Len(t, infos, 1)
			assert.Equal(t, tc.wantKey, infos[0].Pattern.Key)
			require.NotNil(t, infos[0].Category)

			if tc.wantOrg == "" {
				assert.Nil(t, infos[0].Organization)
			} else {
				require.NotNil(t, infos[0].Organization)
				assert.Equal(t, tc.wantOrg, infos[0].Organization.Name)
			}
		})
	}
}

func TestMetadata_FromDomain(t *testing.T) {
	m := newTestMetadata(t)

	infos := m.FromDomain("cdn.eu.stats.io")
	require.Len(t, infos, 1)
	assert.Equal(t, "stats", infos[0].Pattern.Key)
	assert.Equal(t, "Site Analytics", infos[0].Category.Name)

	assert.Empty(t, m.FromDomain("io"))
	assert.Empty(t, m.FromDomain("example.org"))
}

func TestMetadata_Serialize(t *testing.T) {
	m := newTestMetadata(t)

	v := dataview.New(m.SerializedSize(), nil)
	m.Serialize(v)
	require.Equal(t, m.SerializedSize(), v.Pos())

	got, err := metadata.Deserialize(dataview.FromBytes(v.Bytes(), nil))
	require.NoError(t, err)

	assert.Equal(t, m.Patterns.Values(), got.Patterns.Values())
	assert.Equal(t, m.Organizations.Values(), got.Organizations.Values())
	assert.Len(t, got.FromDomain("acme-ads.com"), 1)

	t.Run("truncated", func(t *testing.T) {
		_, err = metadata.Deserialize(dataview.FromBytes(v.Bytes()[:v.Pos()-3], nil))
		testutil.AssertErrorMsg(t, "reading metadata: "+dataview.ErrTruncated.Error(), err)
	})
}

func TestMerge(t *testing.T) {
	a := newTestMetadata(t)
	b := metadata.New(nil, []*metadata.Category{{
		Key:  "advertising",
		Name: "Other Advertising",
	}, {
		Key:  "cdn",
		Name: "CDN",
	}}, nil)

	m := metadata.Merge(a, nil, b)
	require.NotNil(t, m)
	assert.Equal(t, 3, m.Categories.Len())
	assert.Equal(t, "Advertising", m.Categories.Values()[0].Name)

	assert.Nil(t, metadata.Merge(nil, metadata.New(nil, nil, nil)))
}
