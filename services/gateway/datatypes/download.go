// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request and response types for the gateway
// service.
//
// This file contains the document retrieval types. For the user profile
// types, see user.go.
package datatypes

// DownloadRequest is the body of POST /api/download and
// POST /api/download-redirect.
//
// # Description
//
// Names a single object to resolve inside the configured bucket. The
// gateway prepends its object prefix; callers send only the bare
// filename cited in a chat answer.
//
// # Validation
//
//   - Filename: required, non-empty after the gin binding runs.
type DownloadRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// DownloadResponse is the success body of POST /api/download.
//
// # Fields
//
//   - Data: the full object as a data URL (data:<mime>;base64,<payload>)
//   - Size: object size in bytes, before base64 expansion
//   - ContentType: MIME type reported by the object store
//   - Filename: echo of the requested filename
//   - Success: always true on this body
type DownloadResponse struct {
	Data        string `json:"data"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Filename    string `json:"filename"`
	Success     bool   `json:"success"`
}

// RedirectResponse is the success body of POST /api/download-redirect.
// URL is a presigned GET link valid for five minutes.
type RedirectResponse struct {
	URL     string `json:"url"`
	Success bool   `json:"success"`
}

// ErrorResponse is the body of every non-2xx gateway response.
type ErrorResponse struct {
	Error string `json:"error"`
}
