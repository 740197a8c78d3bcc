package content

import (
	"net/url"
	"regexp"
	"strings"
)

var markdownLink = regexp.MustCompile(`\[[^\]]+\]\(\s*([^)\s]+)[^)]*\)`)

// LinkPolicy decides which hrefs point inside the site.
type LinkPolicy struct {
	siteHosts map[string]struct{}
}

// NewLinkPolicy treats absolute URLs on any of siteHosts as internal.
func NewLinkPolicy(siteHosts []string) LinkPolicy {
	hosts := make(map[string]struct{}, len(siteHosts))
	for _, h := range siteHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.TrimPrefix(h, "www.")
		if h != "" {
			hosts[h] = struct{}{}
		}
	}
	return LinkPolicy{siteHosts: hosts}
}

// Normalize reduces an href to a comparable key: "/path" for relative or
// site-host links, "host/path" for other absolute links, "" for hrefs that
// are not navigable (fragments, mailto:, javascript:, tel:).
func (p LinkPolicy) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
	default:
		return ""
	}
	path := strings.ToLower(u.Path)
	path = strings.TrimRight(path, "/")
	if path == "" {
		path = "/"
	}
	if u.Host == "" {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return path
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if _, ok := p.siteHosts[host]; ok {
		return path
	}
	return host + path
}

// IsInternal reports whether href is relative or targets a site host, or
// matches one of the known catalog URL keys.
func (p LinkPolicy) IsInternal(href string, known map[string]struct{}) bool {
	key := p.Normalize(href)
	if key == "" {
		return false
	}
	if strings.HasPrefix(key, "/") {
		return true
	}
	_, ok := known[key]
	return ok
}

// InternalLinks returns the distinct internal link keys of item, drawn from
// its declared Links and markdown links in the body.
func (p LinkPolicy) InternalLinks(item Item, known map[string]struct{}) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(item.Links))
	add := func(href string) {
		if !p.IsInternal(href, known) {
			return
		}
		key := p.Normalize(href)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	for _, href := range item.Links {
		add(href)
	}
	for _, m := range markdownLink.FindAllStringSubmatch(item.Body, -1) {
		add(m[1])
	}
	return out
}
