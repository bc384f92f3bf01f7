// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the parser for the chat backend's streaming format.
//
// The backend streams UTF-8 text where each logical event is a line of
// the form:
//
//	data: {"content":"Hello "}\n
//
// Empty lines are event delimiters, lines starting with ":" are comments.
// Parsing is separated from I/O so the wire format can be tested without
// a live stream; line reassembly across chunk boundaries is the stream
// consumer's job (bufio.Scanner).
package chat

import (
	"encoding/json"
	"strings"
)

// StreamRecord is one decoded event from the chat backend.
type StreamRecord struct {
	// Content is the next fragment of the answer text. May be empty for
	// keepalive records.
	Content string `json:"content"`
}

// ParseStreamLine parses a single line of the backend stream.
//
// Returns (nil, nil) for lines that carry no event: empty lines, comment
// lines, and lines without the "data: " event marker. Returns an error
// only for a data line whose JSON payload does not parse; callers are
// expected to log and skip such records so one malformed event cannot
// abort reception of the rest of the stream.
func ParseStreamLine(line string) (*StreamRecord, error) {
	line = strings.TrimSpace(line)

	if line == "" {
		return nil, nil
	}
	if strings.HasPrefix(line, ":") {
		return nil, nil
	}

	payload, ok := strings.CutPrefix(line, "data: ")
	if !ok {
		// Some servers omit the space after the colon.
		payload, ok = strings.CutPrefix(line, "data:")
		if !ok {
			return nil, nil
		}
	}

	var record StreamRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}
