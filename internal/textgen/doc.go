// Package textgen abstracts the language-model backends used for
// categorization.
//
// Three backends are supported: the OpenAI API, any OpenAI-compatible chat
// completion endpoint, and a local Ollama server. All of them answer the
// same one-line "Category : Subcategory" protocol parsed by
// ParseCategorization. Backend failures are classified onto the services
// sentinel taxonomy so the pipeline can tell a rate limit from a bad key.
package textgen
