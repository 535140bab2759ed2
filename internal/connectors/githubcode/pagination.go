package githubcode

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// linkRegex matches Link header entries: <url>; rel="type".
var linkRegex = regexp.MustCompile(`<([^>]+)>;\s*rel="([^"]+)"`)

// ParseAllLinks extracts all URLs from a Link header by relationship type.
// Returns a map of rel type to URL.
func ParseAllLinks(linkHeader string) map[string]string {
	links := make(map[string]string)
	if linkHeader == "" {
		return links
	}

	parts := strings.Split(linkHeader, ",")
	for _, part := range parts {
		matches := linkRegex.FindStringSubmatch(strings.TrimSpace(part))
		if len(matches) == 3 {
			links[matches[2]] = matches[1]
		}
	}

	return links
}

// ParseLinkPages returns the page numbers of the "next" and "last" links.
// Missing or unparsable links yield zero.
func ParseLinkPages(linkHeader string) (next, last int) {
	links := ParseAllLinks(linkHeader)
	return pageFromURL(links["next"]), pageFromURL(links["last"])
}

// pageFromURL reads the page query parameter of a link URL.
func pageFromURL(raw string) int {
	if raw == "" {
		return 0
	}
	u, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || page < 1 {
		return 0
	}
	return page
}

// NextPageOrEnd returns the page to fetch after s, or false at the end of results.
// Results end when there is no next page or it is not before the last page.
func NextPageOrEnd(s Success) (int, bool) {
	if s.NextPage == 0 {
		return 0, false
	}
	if s.LastPage != 0 && s.NextPage >= s.LastPage {
		return 0, false
	}
	return s.NextPage, true
}
