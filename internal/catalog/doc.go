// Package catalog persists file categorizations and the category taxonomy in
// SQLite.
//
// The catalog keeps three tables: file_categorization rows keyed by the
// (dir_path, file_name, file_type) triple, category_taxonomy rows holding the
// canonical label pairs, and category_alias rows mapping raw backend output
// onto canonical entries. ResolveCategory merges near-duplicate labels using
// a normalized Levenshtein ratio so the taxonomy stays free of spelling
// variants. Batch writes run inside an explicit transaction via Begin so a
// cancelled run persists nothing partial.
package catalog
