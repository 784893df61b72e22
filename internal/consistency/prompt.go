package consistency

import (
	"fmt"
	"strings"

	"sortd/internal/catalog"
)

// endSentinel terminates the model's answer so truncated responses are
// detectable.
const endSentinel = "END"

// HarmonizationSystemPrompt instructs the model to rewrite labels using only
// the supplied vocabulary and the exact line format the parser expects.
const HarmonizationSystemPrompt = `You are harmonizing category labels across a file catalog.
You receive a list of preferred labels and a list of items with their current
labels. For every item, answer one line in exactly this format:

<id> => Category : Subcategory

Repeat the id exactly as given, never invent new ids, and keep the item order.
Pick the best-fitting label from the preferred list; keep the current label if
it already fits. After the last line, write ` + endSentinel + ` on its own line.`

// buildHarmonizationPrompt renders one chunk: the preferred vocabulary
// followed by the items in "<id> => <Category> : <Subcategory>" form.
func buildHarmonizationPrompt(snapshot []catalog.CategoryPair, items []chunkItem) string {
	var b strings.Builder

	b.WriteString("Preferred labels:\n")
	for _, pair := range snapshot {
		fmt.Fprintf(&b, "- %s : %s\n", pair.Category, pair.Subcategory)
	}

	b.WriteString("\nItems:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "%s => %s : %s\n", item.id, item.entry.Category, item.entry.Subcategory)
	}
	return b.String()
}
