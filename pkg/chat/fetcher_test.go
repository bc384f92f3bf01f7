// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the attachment fetcher

package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// fastFetcherConfig returns a config with millisecond pacing so retry
// tests stay fast.
func fastFetcherConfig(t *testing.T, gatewayURL string) FetcherConfig {
	t.Helper()
	return FetcherConfig{
		GatewayURL:    gatewayURL,
		RetryInterval: time.Millisecond,
		BusyInterval:  time.Millisecond,
		AttachmentDir: t.TempDir(),
	}
}

func pdfDataURL(t *testing.T, payload string) string {
	t.Helper()
	return "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte(payload))
}

// gatewayStub serves /api/download and /api/download-redirect with
// scripted behavior and counts calls per path.
type gatewayStub struct {
	downloads int64
	redirects int64

	downloadHandler http.HandlerFunc
	redirectHandler http.HandlerFunc
}

func (g *gatewayStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/download", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&g.downloads, 1)
		g.downloadHandler(w, r)
	})
	mux.HandleFunc("/api/download-redirect", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&g.redirects, 1)
		g.redirectHandler(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func serveDownload(t *testing.T, dataURL string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data":        dataURL,
			"size":        42,
			"contentType": "application/pdf",
			"filename":    "doc1.pdf",
			"success":     true,
		})
	}
}

func serveError(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": "store unavailable"})
	}
}

// =============================================================================
// Primary Path Tests
// =============================================================================

func TestFetcher_PrimarySuccess(t *testing.T) {
	stub := &gatewayStub{
		downloadHandler: serveDownload(t, pdfDataURL(t, "%PDF-1.4 hello")),
		redirectHandler: serveError(http.StatusInternalServerError),
	}
	srv := stub.server(t)

	session := NewSession()
	fetcher := NewFetcher(session, fastFetcherConfig(t, srv.URL))

	att, err := fetcher.Fetch(context.Background(), "doc1.pdf", FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if att == nil || !att.Inline() {
		t.Fatalf("expected inline attachment, got %+v", att)
	}
	if att.ContentType != "application/pdf" {
		t.Errorf("expected content type application/pdf, got %q", att.ContentType)
	}
	if att.Size != int64(len("%PDF-1.4 hello")) {
		t.Errorf("expected decoded size %d, got %d", len("%PDF-1.4 hello"), att.Size)
	}
	if att.LocalPath == "" {
		t.Fatal("expected a local copy path")
	}
	if _, err := os.Stat(att.LocalPath); err != nil {
		t.Errorf("local copy missing: %v", err)
	}
	if n := atomic.LoadInt64(&stub.downloads); n != 1 {
		t.Errorf("expected 1 download call, got %d", n)
	}
	if n := atomic.LoadInt64(&stub.redirects); n != 0 {
		t.Errorf("expected no redirect calls, got %d", n)
	}
}

func TestFetcher_LocalCopyReleasedOnSessionClose(t *testing.T) {
	stub := &gatewayStub{
		downloadHandler: serveDownload(t, pdfDataURL(t, "%PDF-bytes")),
		redirectHandler: serveError(http.StatusInternalServerError),
	}
	srv := stub.server(t)

	session := NewSession()
	fetcher := NewFetcher(session, fastFetcherConfig(t, srv.URL))

	att, err := fetcher.Fetch(context.Background(), "doc1.pdf", FetchOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("session close: %v", err)
	}
	if _, err := os.Stat(att.LocalPath); !os.IsNotExist(err) {
		t.Error("local copy survived session close")
	}
}

// =============================================================================
// Retry and Fallback Tests
// =============================================================================

func TestFetcher_RetryBoundThenFallback(t *testing.T) {
	stub := &gatewayStub{
		downloadHandler: serveError(http.StatusInternalServerError),
		redirectHandler: func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"url":     "https://bucket.example.com/signed?sig=abc",
				"success": true,
			})
		},
	}
	srv := stub.server(t)

	session := NewSession()
	fetcher := NewFetcher(session, fastFetcherConfig(t, srv.URL))

	att, err := fetcher.Fetch(context.Background(), "doc1.pdf", FetchOptions{})
	if err != nil {
		t.Fatalf("expected fallback success, got error: %v", err)
	}
	if att == nil || att.Inline() {
		t.Fatalf("expected link-only attachment, got %+v", att)
	}
	if att.LinkURL != "https://bucket.example.com/signed?sig=abc" {
		t.Errorf("unexpected link URL %q", att.LinkURL)
	}

	// Exactly 3 primary attempts, never a 4th, then exactly 1 fallback.
	if n := atomic.LoadInt64(&stub.downloads); n != 3 {
		t.Errorf("expected exactly 3 primary attempts, got %d", n)
	}
	if n := atomic.LoadInt64(&stub.redirects); n != 1 {
		t.Errorf("expected exactly 1 fallback call, got %d", n)
	}
}

func TestFetcher_MalformedPayloadRetries(t *testing.T) {
	var calls int64
	stub := &gatewayStub{
		downloadHandler: func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt64(&calls, 1) == 1 {
				// Well-formed JSON, malformed payload: must count as a
				// failure and trigger a retry.
				json.NewEncoder(w).Encode(map[string]any{"data": "http://not-a-data-url", "success": true})
				return
			}
			serveDownload(t, pdfDataURL(t, "%PDF-ok"))(w, r)
		},
		redirectHandler: serveError(http.StatusInternalServerError),
	}
	srv := stub.server(t)

	session := NewSession()
	fetcher := NewFetcher(session, fastFetcherConfig(t, srv.URL))

	att, err := fetcher.Fetch(context.Background(), "doc1.pdf", FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if att == nil || !att.Inline() {
		t.Fatalf("expected inline attachment after retry, got %+v", att)
	}
	if n := atomic.LoadInt64(&stub.downloads); n != 2 {
		t.Errorf("expected 2 primary attempts, got %d", n)
	}
}

func TestFetcher_BothPathsFail(t *testing.T) {
	stub := &gatewayStub{
		downloadHandler: serveError(http.StatusInternalServerError),
		redirectHandler: serveError(http.StatusInternalServerError),
	}
	srv := stub.server(t)

	session := NewSession()
	fetcher := NewFetcher(session, fastFetcherConfig(t, srv.URL))

	att, err := fetcher.Fetch(context.Background(), "doc1.pdf", FetchOptions{})
	if att != nil {
		t.Errorf("expected no attachment, got %+v", att)
	}
	if !errors.Is(err, ErrAttachmentUnavailable) {
		t.Errorf("expected ErrAttachmentUnavailable, got %v", err)
	}
}

func TestFetcher_CancelledDuringRetryWait(t *testing.T) {
	stub := &gatewayStub{
		downloadHandler: serveError(http.StatusInternalServerError),
		redirectHandler: serveError(http.StatusInternalServerError),
	}
	srv := stub.server(t)

	session := NewSession()
	cfg := fastFetcherConfig(t, srv.URL)
	cfg.RetryInterval = time.Hour // park in the retry wait

	fetcher := NewFetcher(session, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := fetcher.Fetch(ctx, "doc1.pdf", FetchOptions{})
		done <- err
	}()

	// Let the first attempt fail, then cancel while waiting to retry.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Fetch did not return after cancellation")
	}
}

// =============================================================================
// Guard Tests
// =============================================================================

func TestFetcher_DedupGuardSkipsProcessed(t *testing.T) {
	stub := &gatewayStub{
		downloadHandler: serveDownload(t, pdfDataURL(t, "%PDF-x")),
		redirectHandler: serveError(http.StatusInternalServerError),
	}
	srv := stub.server(t)

	session := NewSession()
	session.MarkProcessed("doc1.pdf")
	fetcher := NewFetcher(session, fastFetcherConfig(t, srv.URL))

	att, err := fetcher.Fetch(context.Background(), "doc1.pdf", FetchOptions{})
	if err != nil {
		t.Fatalf("expected no-op, got error: %v", err)
	}
	if att != nil {
		t.Errorf("expected nil attachment for processed name, got %+v", att)
	}
	if n := atomic.LoadInt64(&stub.downloads); n != 0 {
		t.Errorf("expected no network call, got %d", n)
	}
}

func TestFetcher_ForceBypassesDedupGuard(t *testing.T) {
	stub := &gatewayStub{
		downloadHandler: serveDownload(t, pdfDataURL(t, "%PDF-x")),
		redirectHandler: serveError(http.StatusInternalServerError),
	}
	srv := stub.server(t)

	session := NewSession()
	session.MarkProcessed("doc1.pdf")
	fetcher := NewFetcher(session, fastFetcherConfig(t, srv.URL))

	att, err := fetcher.Fetch(context.Background(), "doc1.pdf", FetchOptions{Force: true})
	if err != nil {
		t.Fatalf("forced fetch failed: %v", err)
	}
	if att == nil {
		t.Fatal("expected an attachment from forced fetch")
	}
	if n := atomic.LoadInt64(&stub.downloads); n != 1 {
		t.Errorf("expected 1 network call, got %d", n)
	}
}

func TestFetcher_BusyGuardDefersUntilSlotFree(t *testing.T) {
	stub := &gatewayStub{
		downloadHandler: serveDownload(t, pdfDataURL(t, "%PDF-x")),
		redirectHandler: serveError(http.StatusInternalServerError),
	}
	srv := stub.server(t)

	session := NewSession()
	fetcher := NewFetcher(session, fastFetcherConfig(t, srv.URL))

	// Simulate another fetch holding the slot.
	if !session.TryAcquireFetch() {
		t.Fatal("could not take the fetch slot")
	}

	done := make(chan error, 1)
	go func() {
		_, err := fetcher.Fetch(context.Background(), "doc1.pdf", FetchOptions{})
		done <- err
	}()

	// The fetch must be parked, not running.
	time.Sleep(20 * time.Millisecond)
	if n := atomic.LoadInt64(&stub.downloads); n != 0 {
		t.Fatalf("fetch ran while slot was held (%d calls)", n)
	}

	session.ReleaseFetch()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("deferred fetch failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("deferred fetch never completed")
	}
	if n := atomic.LoadInt64(&stub.downloads); n != 1 {
		t.Errorf("expected exactly 1 call after deferral, got %d", n)
	}
}

// =============================================================================
// decodeDataURL Tests
// =============================================================================

func TestDecodeDataURL_Valid(t *testing.T) {
	payload, contentType, err := decodeDataURL("data:application/pdf;base64," +
		base64.StdEncoding.EncodeToString([]byte("hello")))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != "hello" {
		t.Errorf("expected payload 'hello', got %q", payload)
	}
	if contentType != "application/pdf" {
		t.Errorf("expected content type application/pdf, got %q", contentType)
	}
}

func TestDecodeDataURL_Invalid(t *testing.T) {
	cases := []string{
		"",
		"http://example.com/doc.pdf",
		"data:application/pdf;base64",         // no payload separator
		"data:application/pdf,plain",          // not base64
		"data:application/pdf;base64,@@@@",    // undecodable
		"data:application/pdf;base64,",        // empty payload
	}

	for _, input := range cases {
		if _, _, err := decodeDataURL(input); err == nil {
			t.Errorf("decodeDataURL(%q): expected error", input)
		}
	}
}
