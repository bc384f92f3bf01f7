// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chat implements the DergiChat client: streaming conversation
// with the chat backend, citation extraction from streamed answers, and
// attachment retrieval through the gateway.
//
// This file contains the citation extractor. The backend embeds citation
// markers in answer text using the form:
//
//	【<int>:<int>†<name>】
//
// where <name> identifies a document retrievable via the gateway download
// endpoints. Extraction is pure text processing; it performs no I/O.
package chat

import (
	"regexp"
	"strings"
)

const (
	citationOpen  = "【"
	citationClose = "】"
)

// citationPattern matches one fully closed citation marker. The name group
// is everything between the dagger separator and the closing bracket.
var citationPattern = regexp.MustCompile(`【\d+:\d+†(.+?)】`)

// ExtractLastCitation returns the name from the last citation marker in
// text, or ok=false when no fully closed marker exists.
//
// The boolean distinguishes "no citation found" from a citation whose name
// happens to be empty. Streamed text grows between invocations; a partial
// marker at the tail (opened but not yet closed) is reported as not found
// until the closing bracket arrives.
//
// The closing-bracket check short-circuits before any scanning so that
// marker-free text of any length is rejected in a single substring probe.
func ExtractLastCitation(text string) (string, bool) {
	if !strings.Contains(text, citationClose) {
		return "", false
	}

	open := strings.LastIndex(text, citationOpen)
	if open < 0 {
		return "", false
	}

	candidate := text[open:]
	end := strings.Index(candidate, citationClose)
	if end < 0 {
		return "", false
	}
	candidate = candidate[:end+len(citationClose)]

	match := citationPattern.FindStringSubmatch(candidate)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ExtractAllCitations returns the names of every fully closed citation
// marker in text, in left-to-right order. Duplicates are preserved;
// deduplication is the caller's concern (see Session.MarkProcessed).
func ExtractAllCitations(text string) []string {
	if !strings.Contains(text, citationClose) {
		return nil
	}

	matches := citationPattern.FindAllStringSubmatch(text, -1)
	if matches == nil {
		return nil
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}
