package browser

import (
	"net/url"
	"sort"
	"strings"

	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"golang.org/x/net/publicsuffix"
)

const defaultLinkLimit = 100

// rawLink is what the in-page collector returns for each anchor.
type rawLink struct {
	Text    string
	Href    string
	Visible bool
}

func decodeRawLinks(result any) []rawLink {
	items, ok := result.([]any)
	if !ok {
		return nil
	}

	links := make([]rawLink, 0, len(items))

	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		links = append(links, rawLink{
			Text:    getString(m, "text"),
			Href:    getString(m, "href"),
			Visible: getBool(m, "visible"),
		})
	}

	return links
}

// FilterLinks turns collected anchors into the enumerate_links result:
// invisible, empty or non-http links are dropped, the filter is applied,
// duplicates removed, preferred links moved to the front and the list capped.
func FilterLinks(raw []rawLink, filter entity.LinkFilter, limit int) []entity.Link {
	if limit <= 0 {
		limit = defaultLinkLimit
	}

	seen := make(map[string]bool)
	links := make([]entity.Link, 0, len(raw))

	for _, r := range raw {
		text := strings.Join(strings.Fields(r.Text), " ")
		if !r.Visible || text == "" || r.Href == "" {
			continue
		}

		u, err := url.Parse(r.Href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}

		host := strings.ToLower(u.Hostname())
		if !filter.Admits(host) {
			continue
		}

		if seen[r.Href] {
			continue
		}

		seen[r.Href] = true

		site, err := publicsuffix.EffectiveTLDPlusOne(host)
		if err != nil {
			site = ""
		}

		links = append(links, entity.Link{
			Text: text,
			Href: r.Href,
			Host: host,
			Site: site,
		})
	}

	if len(filter.Prefer) > 0 {
		sort.SliceStable(links, func(i, j int) bool {
			return preferred(links[i], filter.Prefer) && !preferred(links[j], filter.Prefer)
		})
	}

	if len(links) > limit {
		links = links[:limit]
	}

	return links
}

func preferred(link entity.Link, keywords []string) bool {
	haystack := strings.ToLower(link.Text + " " + link.Href)

	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(haystack, k) {
			return true
		}
	}

	return false
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}

	return ""
}

func getBool(m map[string]any, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}

	return false
}
