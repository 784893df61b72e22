// Package analysis orchestrates a categorization run end to end.
//
// A run scans one directory, diffs the listing against the catalog so cached
// items cost nothing, and sends the remainder to the text-generation backend
// in fixed-size batches. Each batch is persisted in a single catalog
// transaction, so interrupting a run keeps every finished batch and loses
// only the one in flight.
package analysis
