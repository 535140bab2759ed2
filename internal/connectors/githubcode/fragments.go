package githubcode

// Fragments returns the first fragment of each item's first text match,
// in item order. Items without matches, and first matches without a
// fragment, contribute nothing.
func Fragments(body Body) []string {
	fragments := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		if len(item.TextMatches) == 0 {
			continue
		}
		if f := item.TextMatches[0].Fragment; f != nil {
			fragments = append(fragments, *f)
		}
	}
	return fragments
}

// FragmentsFromJSON parses a raw body and extracts its fragments.
func FragmentsFromJSON(data []byte) []string {
	return Fragments(ParseBody(data))
}
