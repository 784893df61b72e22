// Package consistency harmonizes labels across the catalog after the fact.
//
// Independent categorization runs drift: one run labels archives
// "Compressed : Archives", the next "Archives : Zip files". The pass
// snapshots the most frequently used label pairs, walks the catalog in
// chunks, and asks the backend to relabel each chunk against that shared
// vocabulary. Only entries whose label actually changes are rewritten.
package consistency
