package browser

import (
	"fmt"
	"testing"

	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterLinks(t *testing.T) {
	raw := []rawLink{
		{Text: "Home", Href: "https://www.gov.uk/", Visible: true},
		{Text: "  Register   a death ", Href: "https://www.camden.gov.uk/register-a-death", Visible: true},
		{Text: "Hidden", Href: "https://www.gov.uk/hidden", Visible: false},
		{Text: "", Href: "https://www.gov.uk/empty", Visible: true},
		{Text: "Mail", Href: "mailto:registrar@camden.gov.uk", Visible: true},
		{Text: "City registrar", Href: "https://www.cityoflondon.gov.uk/registrar", Visible: true},
		{Text: "Duplicate", Href: "https://www.gov.uk/", Visible: true},
		{Text: "Facebook", Href: "https://www.facebook.com/govuk", Visible: true},
	}

	tests := []struct {
		name   string
		filter entity.LinkFilter
		limit  int
		want   []string
	}{
		{
			name:  "no filter keeps visible http links once",
			limit: 10,
			want: []string{
				"https://www.gov.uk/",
				"https://www.camden.gov.uk/register-a-death",
				"https://www.cityoflondon.gov.uk/registrar",
				"https://www.facebook.com/govuk",
			},
		},
		{
			name:   "block wins over allow",
			filter: entity.LinkFilter{Allow: []string{".gov.uk"}, Block: []string{"cityoflondon.gov.uk"}},
			limit:  10,
			want:   []string{"https://www.gov.uk/", "https://www.camden.gov.uk/register-a-death"},
		},
		{
			name:   "domain suffix",
			filter: entity.LinkFilter{DomainSuffix: "camden.gov.uk"},
			limit:  10,
			want:   []string{"https://www.camden.gov.uk/register-a-death"},
		},
		{
			name:   "prefer keywords first",
			filter: entity.LinkFilter{Allow: []string{"gov.uk"}, Prefer: []string{"register"}},
			limit:  10,
			want: []string{
				"https://www.camden.gov.uk/register-a-death",
				"https://www.gov.uk/",
				"https://www.cityoflondon.gov.uk/registrar",
			},
		},
		{
			name:  "limit caps the result",
			limit: 1,
			want:  []string{"https://www.gov.uk/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := FilterLinks(raw, tt.filter, tt.limit)

			hrefs := make([]string, 0, len(links))
			for _, l := range links {
				hrefs = append(hrefs, l.Href)
			}

			assert.Equal(t, tt.want, hrefs)
		})
	}
}

func TestFilterLinksAnnotatesSite(t *testing.T) {
	links := FilterLinks([]rawLink{
		{Text: "Register a death", Href: "https://www.camden.gov.uk/register-a-death", Visible: true},
	}, entity.LinkFilter{}, 0)

	require.Len(t, links, 1)
	assert.Equal(t, "Register a death", links[0].Text)
	assert.Equal(t, "www.camden.gov.uk", links[0].Host)
	assert.Equal(t, "camden.gov.uk", links[0].Site)
}

func TestFilterLinksDefaultLimit(t *testing.T) {
	raw := make([]rawLink, 0, 150)
	for i := 0; i < 150; i++ {
		raw = append(raw, rawLink{Text: "link", Href: fmt.Sprintf("https://example.com/%d", i), Visible: true})
	}

	assert.Len(t, FilterLinks(raw, entity.LinkFilter{}, 0), defaultLinkLimit)
}

func TestDecodeRawLinksSkipsGarbage(t *testing.T) {
	links := decodeRawLinks([]any{
		map[string]any{"text": "A", "href": "https://a.example", "visible": true},
		"not a map",
	})

	require.Len(t, links, 1)
	assert.True(t, links[0].Visible)
	assert.Nil(t, decodeRawLinks("nope"))
}
