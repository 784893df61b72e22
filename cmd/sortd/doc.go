// Command sortd categorizes files and folders with a language model.
//
// The analyze command scans a directory, skips everything already in the
// SQLite cache, and asks the configured backend (OpenAI, an OpenAI-compatible
// endpoint, or a local Ollama server) to label the rest. The consistency
// command harmonizes labels across the cache after the fact, and the cache
// and whitelist commands manage the supporting state.
package main
