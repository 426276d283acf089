/**
 * Fragment decoding for LLM responses.
 *
 * Models are asked for JSON but frequently return several concatenated
 * objects, trailing prose, or stray control characters. DecodeFragments
 * salvages every leading well-formed JSON object and drops the rest; it
 * never fails, a fully unparseable response just yields no fragments.
 */

package annotate

import (
	"encoding/json"
	"strings"
)

// Fragment is one decoded JSON object from a model response
type Fragment map[string]any

// CleanResponse strips the control characters models tend to sprinkle
// through otherwise valid JSON
func CleanResponse(response string) string {
	replacer := strings.NewReplacer("\n", "", "\r", "", "\t", " ")
	return replacer.Replace(response)
}

// DecodeFragments parses consecutive JSON objects from the start of the
// response. Decoding stops at the first malformed fragment; everything
// decoded up to that point is kept.
func DecodeFragments(response string) []Fragment {
	decoder := json.NewDecoder(strings.NewReader(CleanResponse(response)))

	var fragments []Fragment
	for {
		var fragment Fragment
		if err := decoder.Decode(&fragment); err != nil {
			break
		}
		fragments = append(fragments, fragment)
	}
	return fragments
}
