package helpers

import (
	"net/url"
	"path"
	"strings"
)

var trackingQueryParams = map[string]struct{}{
	"gclid":   {},
	"dclid":   {},
	"fbclid":  {},
	"msclkid": {},
	"igshid":  {},
	"ref":     {},
}

// DedupeKey returns a key under which two search-result URLs that point at
// the same page compare equal. Scheme, a leading "www.", default ports,
// fragments, trailing slashes and tracking parameters are ignored and the
// remaining query is sorted. ok is false for anything without a host.
func DedupeKey(raw string) (key string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host += ":" + port
	}

	p := path.Clean("/" + u.Path)
	if p == "/" {
		p = ""
	}

	query := u.Query()
	for name := range query {
		lower := strings.ToLower(name)
		if _, drop := trackingQueryParams[lower]; drop || strings.HasPrefix(lower, "utm_") {
			query.Del(name)
		}
	}

	key = host + p
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	return key, true
}
