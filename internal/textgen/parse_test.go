package textgen_test

import (
	"errors"
	"testing"

	"sortd/internal/services"
	"sortd/internal/textgen"
)

func TestParseCategorizationDelimiters(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		category string
		sub      string
		fallback bool
	}{
		{"spaced colon", "Documents : Invoices", "Documents", "Invoices", false},
		{"colon space", "Documents: Invoices", "Documents", "Invoices", false},
		{"space colon", "Documents :Invoices", "Documents", "Invoices", false},
		{"bare colon", "Documents:Invoices", "Documents", "Invoices", false},
		{"no delimiter", "Documents", "Documents", "", true},
		{"extra whitespace", "  Documents :   Invoices  ", "Documents", "Invoices", false},
		{"quoted", `"Documents : Invoices"`, "Documents", "Invoices", false},
		{"multiline picks first", "\n\nDocuments : Invoices\nbecause...", "Documents", "Invoices", false},
		{"spaced wins over bare", "Backups : C: drive images", "Backups", "C: drive images", false},
		{"no delimiter multiword", "Installer packages", "Installer packages", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			category, sub, fallback, err := textgen.ParseCategorization(tc.raw)
			if err != nil {
				t.Fatalf("parse %q: %v", tc.raw, err)
			}
			if category != tc.category || sub != tc.sub {
				t.Fatalf("parse %q = (%q, %q), want (%q, %q)",
					tc.raw, category, sub, tc.category, tc.sub)
			}
			if fallback != tc.fallback {
				t.Fatalf("parse %q fallback = %v, want %v", tc.raw, fallback, tc.fallback)
			}
		})
	}
}

func TestParseCategorizationUncertain(t *testing.T) {
	for _, raw := range []string{"UNCERTAIN", "uncertain", "Uncertain: not enough context"} {
		_, _, _, err := textgen.ParseCategorization(raw)
		if !errors.Is(err, services.ErrUncertain) {
			t.Fatalf("parse %q: expected uncertain marker, got %v", raw, err)
		}
	}
}

func TestParseCategorizationEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\n"} {
		_, _, _, err := textgen.ParseCategorization(raw)
		if !errors.Is(err, services.ErrBackend) {
			t.Fatalf("parse %q: expected backend error, got %v", raw, err)
		}
	}
}

func TestDecodeLooseJSON(t *testing.T) {
	type payload struct {
		Category string `json:"category"`
	}

	cases := []string{
		`{"category":"Documents"}`,
		"```json\n{\"category\":\"Documents\"}\n```",
		"```\n{\"category\":\"Documents\"}\n```",
		"Here you go:\n{\"category\":\"Documents\"}\nHope that helps!",
	}
	for _, raw := range cases {
		var p payload
		if err := textgen.DecodeLooseJSON(raw, &p); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
		if p.Category != "Documents" {
			t.Fatalf("decode %q: got %q", raw, p.Category)
		}
	}

	var p payload
	if err := textgen.DecodeLooseJSON("not json at all", &p); err == nil {
		t.Fatal("expected decode failure for non-JSON input")
	}
	if err := textgen.DecodeLooseJSON("", &p); err == nil {
		t.Fatal("expected decode failure for empty input")
	}
}
