package textgen

import (
	"fmt"
	"strings"
)

// CategorizationSystemPrompt instructs the model to answer with a single
// label pair on one line.
const CategorizationSystemPrompt = `You are a file organization assistant.
Given the name of a file or folder, assign it a broad category and a more
specific subcategory. Answer with exactly one line in the form:

Category : Subcategory

Use short, generic labels such as "Documents : Invoices" or
"Software : Installers". Never explain your choice. If the name alone gives
you no reasonable basis to categorize, answer with the single word UNCERTAIN.`

// buildCategorizationPrompt renders the user message for one item, including
// existing labels when consistency hints are enabled.
func buildCategorizationPrompt(req Request) string {
	var b strings.Builder
	if req.IsDirectory {
		fmt.Fprintf(&b, "Categorize the folder named %q.", req.Name)
	} else {
		fmt.Fprintf(&b, "Categorize the file named %q.", req.Name)
	}
	if req.Path != "" && req.Path != req.Name {
		fmt.Fprintf(&b, "\nPath: %s", req.Path)
	}
	if len(req.Hints) > 0 {
		b.WriteString("\n\nPrefer one of these existing labels when it fits:\n")
		for _, hint := range req.Hints {
			fmt.Fprintf(&b, "- %s : %s\n", hint.Category, hint.Subcategory)
		}
		b.WriteString("Only invent a new label when none of them apply.")
	}
	return b.String()
}
