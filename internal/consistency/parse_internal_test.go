package consistency

import (
	"testing"

	"sortd/internal/catalog"
)

func chunkFixture() []chunkItem {
	return []chunkItem{
		{id: "/data/a.txt", entry: catalog.Entry{DirPath: "/data", Name: "a.txt", Category: "Text", Subcategory: "Notes"}},
		{id: "/data/b.zip", entry: catalog.Entry{DirPath: "/data", Name: "b.zip", Category: "Zip files", Subcategory: "Misc"}},
		{id: "/data/c.mp3", entry: catalog.Entry{DirPath: "/data", Name: "c.mp3", Category: "Music", Subcategory: "Albums"}},
	}
}

func TestParseResponseStrict(t *testing.T) {
	raw := `/data/a.txt => Documents : Notes
/data/b.zip => Archives : Zip files
/data/c.mp3 => Music : Albums
END
this trailing garbage is ignored`

	relabels := parseResponse(raw, chunkFixture())
	if len(relabels) != 3 {
		t.Fatalf("expected 3 relabels, got %d", len(relabels))
	}
	if relabels[0].id != "/data/a.txt" || relabels[0].category != "Documents" {
		t.Fatalf("unexpected first relabel: %+v", relabels[0])
	}
	if relabels[1].category != "Archives" || relabels[1].subcategory != "Zip files" {
		t.Fatalf("unexpected second relabel: %+v", relabels[1])
	}
}

func TestParseResponseIgnoresUnknownAndDuplicateIDs(t *testing.T) {
	raw := `/data/a.txt => Documents : Notes
/data/a.txt => Conflicting : Repeat
/elsewhere/x.bin => Ghost : Entry
END`

	relabels := parseResponse(raw, chunkFixture())
	if len(relabels) != 1 {
		t.Fatalf("expected 1 relabel, got %d", len(relabels))
	}
	if relabels[0].category != "Documents" {
		t.Fatalf("first answer should win, got %+v", relabels[0])
	}
}

func TestParseResponseDefaultsSubcategory(t *testing.T) {
	raw := "/data/a.txt => Documents\nEND"

	relabels := parseResponse(raw, chunkFixture())
	if len(relabels) != 1 {
		t.Fatalf("expected 1 relabel, got %d", len(relabels))
	}
	if relabels[0].subcategory != "Documents" {
		t.Fatalf("missing subcategory should default to the category, got %q", relabels[0].subcategory)
	}
}

func TestParseResponseJSONTier(t *testing.T) {
	raw := "```json\n[" +
		`{"id":"/data/a.txt","category":"Documents","subcategory":"Notes"},` +
		`{"id":"/data/b.zip","category":"Archives"}` +
		"]\n```"

	relabels := parseResponse(raw, chunkFixture())
	if len(relabels) != 2 {
		t.Fatalf("expected 2 relabels from JSON, got %d", len(relabels))
	}
	if relabels[1].subcategory != "Archives" {
		t.Fatalf("JSON tier should default missing subcategory, got %q", relabels[1].subcategory)
	}
}

func TestParseResponseStructuredContainer(t *testing.T) {
	raw := `{"harmonized": [
		{"id": "/data/a.txt", "category": "Documents", "subcategory": "Notes"},
		{"id": "/data/b.zip", "category": "Archives", "subcategory": "Zip files"}
	]}`

	relabels := parseResponse(raw, chunkFixture())
	if len(relabels) != 2 {
		t.Fatalf("expected 2 relabels from the container form, got %+v", relabels)
	}
	if relabels[0].id != "/data/a.txt" || relabels[0].category != "Documents" {
		t.Fatalf("unexpected first relabel: %+v", relabels[0])
	}
	if relabels[1].id != "/data/b.zip" || relabels[1].subcategory != "Zip files" {
		t.Fatalf("unexpected second relabel: %+v", relabels[1])
	}
}

func TestParseResponseFencedContainer(t *testing.T) {
	raw := "```json\n" +
		`{"harmonized": [{"id": "/data/c.mp3", "category": "Audio", "subcategory": "Albums"}]}` +
		"\n```"

	relabels := parseResponse(raw, chunkFixture())
	if len(relabels) != 1 || relabels[0].category != "Audio" {
		t.Fatalf("fenced container should decode, got %+v", relabels)
	}
}

func TestParseResponseJSONNeverPairsPositionally(t *testing.T) {
	// Undecodable but JSON-shaped: zipping its raw lines against the chunk
	// would invent labels out of syntax.
	raw := `{"harmonized": "not an array"}`

	if got := parseResponse(raw, chunkFixture()); len(got) != 0 {
		t.Fatalf("JSON-shaped garbage must yield nothing, got %+v", got)
	}
}

func TestParseResponsePositionalTier(t *testing.T) {
	// No ids at all: fall back to pairing lines with items by position.
	raw := `- Documents : Notes
- Archives : Zip files
END`

	relabels := parseResponse(raw, chunkFixture())
	if len(relabels) != 2 {
		t.Fatalf("expected 2 positional relabels, got %d", len(relabels))
	}
	if relabels[0].id != "/data/a.txt" || relabels[1].id != "/data/b.zip" {
		t.Fatalf("positional ids wrong: %+v", relabels)
	}
}

func TestParseResponseBoundedByChunkSize(t *testing.T) {
	raw := `Documents : One
Documents : Two
Documents : Three
Documents : Four
Documents : Five`

	relabels := parseResponse(raw, chunkFixture())
	if len(relabels) != 3 {
		t.Fatalf("relabels must be capped at the chunk size, got %d", len(relabels))
	}
}

func TestParseResponseUnparseable(t *testing.T) {
	if got := parseResponse("", chunkFixture()); len(got) != 0 {
		t.Fatalf("empty response should yield nothing, got %+v", got)
	}
	if got := parseResponse("END", chunkFixture()); len(got) != 0 {
		t.Fatalf("sentinel-only response should yield nothing, got %+v", got)
	}
}
