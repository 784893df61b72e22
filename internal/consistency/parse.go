package consistency

import (
	"strings"

	"sortd/internal/textgen"
)

// relabel is one parsed answer line: an item id with its proposed labels.
type relabel struct {
	id          string
	category    string
	subcategory string
}

// parseResponse extracts relabels from a model answer. Three tiers are tried
// in order: the strict "<id> => Category : Subcategory" line format, a JSON
// payload for models that ignore the format instructions, and finally a
// positional fallback that pairs answer lines with items by order. At most
// len(items) relabels are returned regardless of how much the model said.
func parseResponse(raw string, items []chunkItem) []relabel {
	known := make(map[string]int, len(items))
	for i, item := range items {
		known[item.id] = i
	}

	relabels := parseStrictLines(raw, known)
	if len(relabels) == 0 {
		relabels = parseJSONAnswer(raw, known)
	}
	// The positional tier never sees a JSON-shaped response: zipping raw
	// JSON lines against the chunk would persist garbage labels.
	if len(relabels) == 0 && !looksLikeJSON(raw) {
		relabels = parsePositionalLines(raw, items)
	}

	if len(relabels) > len(items) {
		relabels = relabels[:len(items)]
	}
	return relabels
}

// parseStrictLines accepts only lines whose id matches an item in the chunk.
func parseStrictLines(raw string, known map[string]int) []relabel {
	var relabels []relabel
	seen := make(map[string]bool)
	for _, line := range answerLines(raw) {
		id, category, subcategory, ok := splitAnswerLine(line)
		if !ok {
			continue
		}
		if _, exists := known[id]; !exists || seen[id] {
			continue
		}
		seen[id] = true
		relabels = append(relabels, relabel{id: id, category: category, subcategory: subcategory})
	}
	return relabels
}

// jsonRelabel is one element of a structured harmonization answer.
type jsonRelabel struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// parseJSONAnswer handles structured responses: either an object wrapping a
// "harmonized" array, or a bare array for models that drop the container.
func parseJSONAnswer(raw string, known map[string]int) []relabel {
	var payload []jsonRelabel
	if err := textgen.DecodeLooseJSON(raw, &payload); err != nil {
		var container struct {
			Harmonized []jsonRelabel `json:"harmonized"`
		}
		if err := textgen.DecodeLooseJSON(raw, &container); err != nil {
			return nil
		}
		payload = container.Harmonized
	}

	var relabels []relabel
	seen := make(map[string]bool)
	for _, row := range payload {
		id := strings.TrimSpace(row.ID)
		category := strings.TrimSpace(row.Category)
		if id == "" || category == "" {
			continue
		}
		if _, exists := known[id]; !exists || seen[id] {
			continue
		}
		seen[id] = true
		relabels = append(relabels, relabel{
			id:          id,
			category:    category,
			subcategory: defaultSubcategory(category, row.Subcategory),
		})
	}
	return relabels
}

// parsePositionalLines is the last resort: pair the i-th parseable answer
// line with the i-th item, trusting order instead of ids.
func parsePositionalLines(raw string, items []chunkItem) []relabel {
	var relabels []relabel
	idx := 0
	for _, line := range answerLines(raw) {
		if idx >= len(items) {
			break
		}
		_, category, subcategory, ok := splitAnswerLine(line)
		if !ok {
			// Lines without the arrow may still be a bare label pair.
			var err error
			category, subcategory, _, err = textgen.ParseCategorization(line)
			if err != nil {
				continue
			}
		}
		relabels = append(relabels, relabel{
			id:          items[idx].id,
			category:    category,
			subcategory: defaultSubcategory(category, subcategory),
		})
		idx++
	}
	return relabels
}

// looksLikeJSON reports whether the response body, once fences are stripped,
// opens with a JSON object or array.
func looksLikeJSON(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// splitAnswerLine parses one "<id> => Category : Subcategory" line.
func splitAnswerLine(line string) (id, category, subcategory string, ok bool) {
	arrow := strings.Index(line, "=>")
	if arrow < 0 {
		return "", "", "", false
	}
	id = strings.TrimSpace(line[:arrow])
	rest := strings.TrimSpace(line[arrow+2:])
	if id == "" || rest == "" {
		return "", "", "", false
	}
	category, subcategory, _, err := textgen.ParseCategorization(rest)
	if err != nil {
		return "", "", "", false
	}
	return id, category, defaultSubcategory(category, subcategory), true
}

// defaultSubcategory backfills a missing subcategory with the category
// itself, so "Music" alone becomes "Music : Music".
func defaultSubcategory(category, subcategory string) string {
	if strings.TrimSpace(subcategory) == "" {
		return category
	}
	return strings.TrimSpace(subcategory)
}

// answerLines returns the trimmed, non-empty lines before the END sentinel,
// with list bullets stripped.
func answerLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimSpace(line)
		if line == "" || line == "```" {
			continue
		}
		if strings.EqualFold(line, endSentinel) {
			break
		}
		lines = append(lines, line)
	}
	return lines
}
