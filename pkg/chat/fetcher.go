// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Default pacing for the retry and busy-defer timers. Tests override
// these via FetcherConfig with millisecond values.
const (
	defaultRetryInterval = 2 * time.Second
	defaultBusyInterval  = 2 * time.Second

	// maxPrimaryAttempts bounds the primary path: the first call plus
	// two retries, never a fourth attempt.
	maxPrimaryAttempts = 3
)

// ErrAttachmentUnavailable is returned when both the primary download
// path and the redirect fallback have failed for a citation name.
var ErrAttachmentUnavailable = errors.New("attachment unavailable")

// HTTPClient abstracts http.Client for test injection.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// downloadResponse is the client-side view of the gateway's
// POST /api/download response body.
type downloadResponse struct {
	Data        string `json:"data"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Filename    string `json:"filename"`
	Success     bool   `json:"success"`
	Error       string `json:"error"`
}

// redirectResponse is the client-side view of the gateway's
// POST /api/download-redirect response body.
type redirectResponse struct {
	URL     string `json:"url"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// FetcherConfig holds configuration for the attachment fetcher.
//
// Only GatewayURL is required; all other fields have working defaults.
type FetcherConfig struct {
	// GatewayURL is the base URL of the gateway service, without a
	// trailing slash (required).
	GatewayURL string

	// HTTPClient overrides the transport. Default: http.Client with a
	// 60 second timeout.
	HTTPClient HTTPClient

	// RetryInterval is the base delay between primary-path attempts.
	// The n-th retry waits n times this interval. Default: 2s.
	RetryInterval time.Duration

	// BusyInterval is the delay before re-attempting a fetch that found
	// another fetch in flight. Default: 2s.
	BusyInterval time.Duration

	// AttachmentDir is where decoded local copies are written.
	// Default: os.TempDir().
	AttachmentDir string

	// Logger receives per-attempt diagnostics. Default: logging off
	// (slog discard).
	Logger *slog.Logger

	// Metrics counts attempts, retries, and failures. Optional.
	Metrics *FetchMetrics
}

// FetchOptions modifies a single Fetch call.
type FetchOptions struct {
	// Force bypasses the already-processed guard. Set by the stream
	// consumer, which performs its own dedup before calling, and by
	// explicit user-initiated retries.
	Force bool
}

// Fetcher retrieves cited documents from the gateway.
//
// # Description
//
// Fetcher implements the retrieval chain for one citation name:
//
//  1. POST the name to /api/download and decode the returned data URL
//     into a local file, retrying up to two more times with linearly
//     increasing delay.
//  2. If all primary attempts fail, POST to /api/download-redirect for a
//     short-lived direct URL and surface that as a link instead.
//
// At most one primary fetch runs at a time; the in-flight slot lives on
// the Session. A caller that finds the slot taken waits a fixed delay
// and re-attempts rather than fetching concurrently. Citations resolved
// in one turn are therefore strictly sequential, which bounds load on
// the gateway and keeps per-citation failures individually attributable.
//
// # Thread Safety
//
// Safe for concurrent use; concurrency degrades to the sequential flow
// described above.
type Fetcher struct {
	session       *Session
	client        HTTPClient
	gatewayURL    string
	retryInterval time.Duration
	busyInterval  time.Duration
	attachmentDir string
	logger        *slog.Logger
	metrics       *FetchMetrics
}

// NewFetcher creates a Fetcher bound to session.
func NewFetcher(session *Session, cfg FetcherConfig) *Fetcher {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	retryInterval := cfg.RetryInterval
	if retryInterval == 0 {
		retryInterval = defaultRetryInterval
	}

	busyInterval := cfg.BusyInterval
	if busyInterval == 0 {
		busyInterval = defaultBusyInterval
	}

	dir := cfg.AttachmentDir
	if dir == "" {
		dir = os.TempDir()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Fetcher{
		session:       session,
		client:        client,
		gatewayURL:    strings.TrimRight(cfg.GatewayURL, "/"),
		retryInterval: retryInterval,
		busyInterval:  busyInterval,
		attachmentDir: dir,
		logger:        logger,
		metrics:       cfg.Metrics,
	}
}

// Fetch retrieves the document named by a citation.
//
// # Description
//
// Runs the primary/fallback retrieval chain for name. Returns a nil
// attachment with a nil error when the name was already processed this
// session and opts.Force is unset (the dedup no-op). On fallback success
// the returned attachment carries only LinkURL; the caller decides how
// to surface it. On total failure the error wraps
// ErrAttachmentUnavailable.
//
// # Inputs
//
//   - ctx: bounds the whole chain including retry and busy-defer waits.
//   - name: citation name. Must be non-empty.
//   - opts: see FetchOptions.
//
// # Outputs
//
//   - *Attachment: inline result, link-only fallback result, or nil.
//   - error: non-nil when nothing could be retrieved.
func (f *Fetcher) Fetch(ctx context.Context, name string, opts FetchOptions) (*Attachment, error) {
	if name == "" {
		return nil, errors.New("fetch: empty citation name")
	}

	if !opts.Force && f.session.IsProcessed(name) {
		f.logger.Debug("skipping already-processed citation", "name", name)
		return nil, nil
	}

	// One primary fetch at a time. Defer and re-attempt instead of
	// running concurrently.
	for !f.session.TryAcquireFetch() {
		f.logger.Debug("fetch slot busy, deferring", "name", name, "delay", f.busyInterval)
		if err := sleepCtx(ctx, f.busyInterval); err != nil {
			return nil, err
		}
	}
	defer f.session.ReleaseFetch()

	var lastErr error
	for attempt := 1; attempt <= maxPrimaryAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * f.retryInterval
			f.logger.Warn("retrying attachment download",
				"name", name, "attempt", attempt, "delay", delay, "error", lastErr)
			f.metrics.recordRetry()
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}

		att, err := f.fetchPrimary(ctx, name)
		if err == nil {
			f.metrics.recordAttempt(fetchPathPrimary, "success")
			f.metrics.recordBytes(att.Size)
			f.session.TrackAttachment(att)
			f.logger.Info("attachment downloaded",
				"name", name, "size", att.Size, "content_type", att.ContentType)
			return att, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		f.metrics.recordAttempt(fetchPathPrimary, "error")
		lastErr = err
	}

	f.logger.Warn("primary download exhausted, trying redirect fallback",
		"name", name, "error", lastErr)

	url, err := f.fetchRedirect(ctx, name)
	if err != nil {
		f.metrics.recordAttempt(fetchPathFallback, "error")
		f.logger.Error("redirect fallback failed", "name", name, "error", err)
		return nil, fmt.Errorf("%w: %q: primary: %v, fallback: %v",
			ErrAttachmentUnavailable, name, lastErr, err)
	}

	f.metrics.recordAttempt(fetchPathFallback, "success")
	f.logger.Info("attachment available via direct link", "name", name)
	return &Attachment{Name: name, LinkURL: url}, nil
}

// fetchPrimary performs one POST /api/download attempt and materializes
// the data URL into a local file.
func (f *Fetcher) fetchPrimary(ctx context.Context, name string) (*Attachment, error) {
	body, status, err := f.post(ctx, f.gatewayURL+"/api/download", name)
	if err != nil {
		f.metrics.recordFailure(failureKindTransport)
		return nil, fmt.Errorf("download request: %w", err)
	}
	if status != http.StatusOK {
		f.metrics.recordFailure(failureKindStatus)
		return nil, fmt.Errorf("download request: unexpected status %d", status)
	}

	var resp downloadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		f.metrics.recordFailure(failureKindDecode)
		return nil, fmt.Errorf("download response: %w", err)
	}

	payload, contentType, err := decodeDataURL(resp.Data)
	if err != nil {
		f.metrics.recordFailure(failureKindPayload)
		return nil, fmt.Errorf("download payload: %w", err)
	}
	if resp.ContentType != "" {
		contentType = resp.ContentType
	}

	localPath, err := f.writeLocalCopy(name, contentType, payload)
	if err != nil {
		// Disk trouble, not a server fault. Keep the data URL result
		// without the local copy rather than failing the fetch.
		f.logger.Warn("could not write local attachment copy", "name", name, "error", err)
		localPath = ""
	}

	return &Attachment{
		Name:        name,
		DataURL:     resp.Data,
		ContentType: contentType,
		Size:        int64(len(payload)),
		LocalPath:   localPath,
	}, nil
}

// fetchRedirect performs one POST /api/download-redirect attempt.
func (f *Fetcher) fetchRedirect(ctx context.Context, name string) (string, error) {
	body, status, err := f.post(ctx, f.gatewayURL+"/api/download-redirect", name)
	if err != nil {
		return "", fmt.Errorf("redirect request: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("redirect request: unexpected status %d", status)
	}

	var resp redirectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("redirect response: %w", err)
	}
	if resp.URL == "" {
		return "", errors.New("redirect response: empty url")
	}
	return resp.URL, nil
}

// post sends the {"filename": name} body and returns the raw response.
func (f *Fetcher) post(ctx context.Context, url, name string) ([]byte, int, error) {
	payload, err := json.Marshal(map[string]string{"filename": name})
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// writeLocalCopy writes the decoded payload to an ephemeral file and
// returns its path.
func (f *Fetcher) writeLocalCopy(name, contentType string, payload []byte) (string, error) {
	ext := ".bin"
	if strings.Contains(contentType, "pdf") {
		ext = ".pdf"
	}

	file, err := os.CreateTemp(f.attachmentDir, "dergichat-*"+ext)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := file.Write(payload); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

// decodeDataURL validates and decodes a data:<mime>;base64,<payload> URL.
func decodeDataURL(dataURL string) ([]byte, string, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, "", errors.New("missing data: prefix")
	}

	rest := strings.TrimPrefix(dataURL, "data:")
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("missing payload separator")
	}

	contentType, found := strings.CutSuffix(meta, ";base64")
	if !found {
		return nil, "", errors.New("payload is not base64 encoded")
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("base64 decode: %w", err)
	}
	if len(payload) == 0 {
		return nil, "", errors.New("empty payload")
	}
	return payload, contentType, nil
}

// sleepCtx waits for d or until ctx is cancelled, whichever comes first.
// All deferred-retry timers go through here so teardown cancels them.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
