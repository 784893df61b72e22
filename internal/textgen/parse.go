package textgen

import (
	"strings"

	"sortd/internal/services"
)

// uncertainPrefix marks a response where the model declined to pick a label.
const uncertainPrefix = "UNCERTAIN"

// Delimiter variants tried in order when splitting a "Category : Subcategory"
// answer. Order matters: the spaced form must win over the bare colon so a
// subcategory like "C: drive backups" is not split at the wrong spot.
var pairDelimiters = []string{" : ", ": ", " :", ":"}

// ParseCategorization splits a raw backend answer into its category and
// subcategory. Responses without any recognized delimiter become a category
// with an empty subcategory, reported via the fromFallback flag so callers
// can tell a parsed pair from a whole-line guess. An UNCERTAIN reply is
// reported via services.ErrUncertain so callers can skip the item rather
// than cache noise.
func ParseCategorization(raw string) (category, subcategory string, fromFallback bool, err error) {
	line := firstContentLine(raw)
	if line == "" {
		return "", "", false, services.Wrap(services.ErrBackend, "textgen", "parse", "empty response", nil)
	}
	if strings.HasPrefix(strings.ToUpper(line), uncertainPrefix) {
		return "", "", false, services.Wrap(services.ErrUncertain, "textgen", "parse", "model declined to categorize", nil)
	}

	for _, delim := range pairDelimiters {
		if idx := strings.Index(line, delim); idx >= 0 {
			category = strings.TrimSpace(line[:idx])
			subcategory = strings.TrimSpace(line[idx+len(delim):])
			if category == "" {
				category = subcategory
				subcategory = ""
			}
			return category, subcategory, false, nil
		}
	}
	return line, "", true, nil
}

// firstContentLine trims decoration the models like to add: code fences,
// surrounding quotes, and blank leading lines.
func firstContentLine(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "\"'`")
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
