/**
 * Info-snippet extraction. Pure regex over the document text, no model call.
 */

package annotate

import "regexp"

var snippetPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"Emails", regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)},
	{"URLs", regexp.MustCompile(`https?://[a-zA-Z0-9$\-_@.&+!*\\(\\),%]+`)},
	{"Social Media Handles", regexp.MustCompile(`@[a-zA-Z0-9_]+`)},
	{"Hashtags", regexp.MustCompile(`#\w+`)},
	{"File Paths", regexp.MustCompile(`[a-zA-Z]:\\(?:[^<>:"/\\|?*` + "\n\r" + `]+\\)*[^<>:"/\\|?*` + "\n\r" + `]*`)},
	{"Percentages", regexp.MustCompile(`\b\d+(?:\.\d+)?%`)},
}

// ExtractSnippets pulls emails, URLs, handles, hashtags, file paths and
// percentages out of the text, keyed by category
func ExtractSnippets(text string) map[string][]string {
	out := make(map[string][]string, len(snippetPatterns))
	for _, sp := range snippetPatterns {
		matches := sp.pattern.FindAllString(text, -1)
		if matches == nil {
			matches = []string{}
		}
		out[sp.name] = matches
	}
	return out
}
