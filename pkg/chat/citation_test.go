// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the citation extractor

package chat

import (
	"strings"
	"testing"
)

// =============================================================================
// ExtractLastCitation Tests
// =============================================================================

func TestExtractLastCitation_SingleMarker(t *testing.T) {
	name, ok := ExtractLastCitation("see 【1:2†doc1.pdf】 for details")

	if !ok {
		t.Fatal("expected a citation, got none")
	}
	if name != "doc1.pdf" {
		t.Errorf("expected name 'doc1.pdf', got %q", name)
	}
}

func TestExtractLastCitation_ReturnsLastOfMany(t *testing.T) {
	text := "【1:1†first.pdf】 middle 【2:3†second.pdf】 tail 【4:5†third.pdf】"

	name, ok := ExtractLastCitation(text)

	if !ok {
		t.Fatal("expected a citation, got none")
	}
	if name != "third.pdf" {
		t.Errorf("expected name 'third.pdf', got %q", name)
	}
}

func TestExtractLastCitation_NoClosingDelimiter(t *testing.T) {
	if _, ok := ExtractLastCitation("no markers here at all"); ok {
		t.Error("expected no citation for marker-free text")
	}
	if _, ok := ExtractLastCitation("partial 【1:2†still-stre"); ok {
		t.Error("expected no citation for an unclosed marker")
	}
}

func TestExtractLastCitation_MalformedMarker(t *testing.T) {
	cases := []string{
		"【abc:2†doc.pdf】",  // non-numeric position
		"【1:2 doc.pdf】",    // missing separator
		"【1:2†】",           // empty name
		"some text 】 only", // closing bracket without opening
	}

	for _, text := range cases {
		if name, ok := ExtractLastCitation(text); ok {
			t.Errorf("ExtractLastCitation(%q) = %q, expected no citation", text, name)
		}
	}
}

func TestExtractLastCitation_GrowingStream(t *testing.T) {
	// Simulates re-invocation as chunks arrive. The marker must only be
	// reported once fully closed.
	full := "Hello 【1:2†doc1.pdf】"

	for i := 0; i <= len(full); i++ {
		prefix := full[:i]
		name, ok := ExtractLastCitation(prefix)
		if strings.HasSuffix(prefix, "】") {
			if !ok || name != "doc1.pdf" {
				t.Errorf("complete prefix %q: got (%q, %v)", prefix, name, ok)
			}
		} else if ok {
			t.Errorf("incomplete prefix %q: unexpectedly found %q", prefix, name)
		}
	}
}

func TestExtractLastCitation_LongMarkerFreeText(t *testing.T) {
	// Marker-free text must be rejected by the closing-delimiter probe
	// alone, regardless of length.
	text := strings.Repeat("lorem ipsum dolor sit amet ", 100_000)

	if _, ok := ExtractLastCitation(text); ok {
		t.Error("expected no citation in marker-free text")
	}
}

// =============================================================================
// ExtractAllCitations Tests
// =============================================================================

func TestExtractAllCitations_SingleMarker(t *testing.T) {
	names := ExtractAllCitations("intro 【1:2†doc1.pdf】 outro")

	if len(names) != 1 || names[0] != "doc1.pdf" {
		t.Errorf("expected [doc1.pdf], got %v", names)
	}
}

func TestExtractAllCitations_OrderedLeftToRight(t *testing.T) {
	text := "【1:1†a.pdf】 x 【2:2†b.pdf】 y 【3:3†c.pdf】"

	names := ExtractAllCitations(text)

	want := []string{"a.pdf", "b.pdf", "c.pdf"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], names[i])
		}
	}
}

func TestExtractAllCitations_DuplicatesPreserved(t *testing.T) {
	text := "【1:1†dup.pdf】 and again 【9:9†dup.pdf】"

	names := ExtractAllCitations(text)

	if len(names) != 2 || names[0] != "dup.pdf" || names[1] != "dup.pdf" {
		t.Errorf("expected [dup.pdf dup.pdf], got %v", names)
	}
}

func TestExtractAllCitations_NoMarkers(t *testing.T) {
	if names := ExtractAllCitations("plain answer text"); names != nil {
		t.Errorf("expected nil, got %v", names)
	}
}

func TestExtractAllCitations_IgnoresTrailingPartial(t *testing.T) {
	text := "【1:1†done.pdf】 then 【2:2†half"

	names := ExtractAllCitations(text)

	if len(names) != 1 || names[0] != "done.pdf" {
		t.Errorf("expected [done.pdf], got %v", names)
	}
}

func TestExtractAllCitations_Idempotent(t *testing.T) {
	text := "【1:1†a.pdf】 body 【2:2†b.pdf】"

	first := ExtractAllCitations(text)
	second := ExtractAllCitations(text)

	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("position %d differs: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestExtractAllCitations_TurkishName(t *testing.T) {
	names := ExtractAllCitations("bkz 【3:7†teşvik-raporu.pdf】")

	if len(names) != 1 || names[0] != "teşvik-raporu.pdf" {
		t.Errorf("expected [teşvik-raporu.pdf], got %v", names)
	}
}
