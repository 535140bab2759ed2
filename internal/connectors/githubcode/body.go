package githubcode

import "github.com/tidwall/gjson"

// Body is a decoded code search payload.
// Every level may be absent: a nil slice or nil Fragment means the field
// was missing or held a value of the wrong shape.
type Body struct {
	Items []Item
}

// Item is one search hit.
type Item struct {
	TextMatches []TextMatch
}

// TextMatch is one highlighted region of a hit.
type TextMatch struct {
	Fragment *string
}

// ParseBody decodes a raw response body. It never fails: invalid JSON yields
// an empty Body and malformed items or matches decode as empty values.
func ParseBody(data []byte) Body {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return Body{}
	}

	items := gjson.GetBytes(data, "items")
	if !items.IsArray() {
		return Body{}
	}

	var body Body
	items.ForEach(func(_, item gjson.Result) bool {
		body.Items = append(body.Items, parseItem(item))
		return true
	})
	return body
}

func parseItem(item gjson.Result) Item {
	if !item.IsObject() {
		return Item{}
	}

	matches := item.Get("text_matches")
	if !matches.IsArray() {
		return Item{}
	}

	var it Item
	matches.ForEach(func(_, match gjson.Result) bool {
		it.TextMatches = append(it.TextMatches, parseTextMatch(match))
		return true
	})
	return it
}

func parseTextMatch(match gjson.Result) TextMatch {
	if !match.IsObject() {
		return TextMatch{}
	}

	fragment := match.Get("fragment")
	if fragment.Type != gjson.String {
		return TextMatch{}
	}

	s := fragment.String()
	return TextMatch{Fragment: &s}
}
