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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// ThreadIDHeader carries the conversation continuity handle in both
// directions: echoed on requests, adopted from responses.
const ThreadIDHeader = "X-Thread-Id"

// scannerBufferSize bounds a single stream line. Backend records are
// small, but a generous cap avoids bufio.ErrTooLong on long answers.
const scannerBufferSize = 1 << 20

// Sink receives transcript updates as a turn progresses.
//
// OnMessageUpdated fires once when a message is created and again every
// time its text or attachment changes: per streamed chunk for the
// trailing bot message (the typing effect), and after attachment
// resolution. Implementations receive a copy and must not retain
// pointers into it across calls.
type Sink interface {
	OnMessageUpdated(msg Message)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(msg Message)

func (f SinkFunc) OnMessageUpdated(msg Message) { f(msg) }

// chatRequest is the wire body for the chat backend.
type chatRequest struct {
	Prompt   string  `json:"prompt"`
	ThreadID *string `json:"threadId"`
}

// ConsumerConfig holds configuration for the stream consumer.
type ConsumerConfig struct {
	// Endpoint is the chat backend URL (required).
	Endpoint string

	// HTTPClient overrides the transport. Default: http.Client without
	// a timeout; streams are open-ended and bounded by ctx instead.
	HTTPClient HTTPClient

	// Sink receives transcript updates. Optional.
	Sink Sink

	// Logger receives stream diagnostics. Default: logging off.
	Logger *slog.Logger
}

// Consumer drives one request/response cycle with the chat backend.
//
// # Description
//
// Consumer sends the user prompt, adopts the thread handle from the
// response header, reassembles the streamed bot answer record by record,
// and extracts citation names as the text grows. When the stream ends it
// hands every newly discovered name to the Fetcher, sequentially, with
// per-name failures isolated from one another.
//
// The transcript lives on the Session; Consumer only orchestrates.
//
// # Thread Safety
//
// Send must not be called concurrently with itself. One consumer serves
// one interactive session.
type Consumer struct {
	session *Session
	fetcher *Fetcher
	client  HTTPClient
	cfg     ConsumerConfig
	logger  *slog.Logger
}

// NewConsumer creates a Consumer for session using fetcher for
// attachment retrieval.
func NewConsumer(session *Session, fetcher *Fetcher, cfg ConsumerConfig) *Consumer {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Consumer{
		session: session,
		fetcher: fetcher,
		client:  client,
		cfg:     cfg,
		logger:  logger,
	}
}

// Send submits prompt and processes the streamed response to completion.
//
// # Description
//
// Runs one full turn: request, stream consumption with incremental
// transcript updates, then sequential retrieval of every citation
// discovered in the answer. Returns only after all retrieval work for
// the turn has finished.
//
// Any transport failure clears the thread handle so the next turn starts
// a fresh conversation; the chat request itself is never retried.
//
// # Inputs
//
//   - ctx: bounds the stream and all attachment retrieval for the turn.
//   - prompt: user input. Must be non-empty.
//
// # Outputs
//
//   - error: non-nil on request construction, transport, or mid-stream
//     read failures. Attachment failures are surfaced in the transcript,
//     not as an error.
func (c *Consumer) Send(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("send: empty prompt")
	}

	// New prompt, new per-turn fetch state.
	c.session.BeginTurn()

	userMsg := c.session.Append(RoleUser, prompt)
	c.notify(userMsg.ID)

	resp, err := c.openStream(ctx, prompt)
	if err != nil {
		c.session.ClearThreadID()
		return fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.session.ClearThreadID()
		return fmt.Errorf("chat request: unexpected status %d", resp.StatusCode)
	}

	if tid := resp.Header.Get(ThreadIDHeader); tid != "" {
		c.session.SetThreadID(tid)
		c.logger.Debug("adopted thread handle", "thread_id", tid)
	}

	botID, discovered, err := c.consumeStream(ctx, resp)
	if err != nil {
		c.session.ClearThreadID()
		c.logger.Error("stream aborted", "error", err)
		return fmt.Errorf("chat stream: %w", err)
	}

	c.resolveCitations(ctx, botID, discovered)
	return nil
}

// openStream builds and sends the chat request.
func (c *Consumer) openStream(ctx context.Context, prompt string) (*http.Response, error) {
	reqBody := chatRequest{Prompt: prompt}
	threadID := c.session.ThreadID()
	if threadID != "" {
		reqBody.ThreadID = &threadID
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if threadID != "" {
		req.Header.Set(ThreadIDHeader, threadID)
	}

	return c.client.Do(req)
}

// consumeStream reads the response body to exhaustion, growing the
// trailing bot message and collecting citation names in discovery order.
//
// bufio.Scanner reassembles lines across arbitrary chunk boundaries, so
// a record split mid-JSON between two network reads still parses once
// its line completes. Malformed records are logged and skipped; they
// must not abort reception of subsequent valid ones.
func (c *Consumer) consumeStream(ctx context.Context, resp *http.Response) (int64, []string, error) {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), scannerBufferSize)

	var (
		botID      int64
		buf        strings.Builder
		discovered []string
		seen       = make(map[string]struct{})
	)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return botID, discovered, ctx.Err()
		default:
		}

		record, err := ParseStreamLine(scanner.Text())
		if err != nil {
			c.logger.Warn("skipping malformed stream record", "error", err)
			continue
		}
		if record == nil || record.Content == "" {
			continue
		}

		buf.WriteString(record.Content)
		text := buf.String()

		if botID == 0 {
			msg := c.session.Append(RoleBot, text)
			botID = msg.ID
		} else {
			c.session.SetText(botID, text)
		}
		c.notify(botID)

		for _, name := range ExtractAllCitations(text) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			discovered = append(discovered, name)
		}
	}

	if err := scanner.Err(); err != nil {
		return botID, discovered, err
	}
	return botID, discovered, nil
}

// resolveCitations fetches every name discovered this turn, sequentially.
//
// Names are bound to the bot message that produced them, so an answer
// from a later turn can never receive this turn's attachment. A failure
// on one name is surfaced in the transcript and does not stop the rest.
func (c *Consumer) resolveCitations(ctx context.Context, botID int64, names []string) {
	if botID == 0 || len(names) == 0 {
		return
	}

	for _, name := range names {
		if !c.session.MarkProcessed(name) {
			c.logger.Debug("citation already processed this session", "name", name)
			continue
		}

		att, err := c.fetcher.Fetch(ctx, name, FetchOptions{Force: true})
		switch {
		case err != nil:
			c.session.AppendText(botID, fmt.Sprintf("\n\n[Document %q could not be retrieved.]", name))
		case att == nil:
			continue
		case att.Inline():
			c.session.Attach(botID, att)
		default:
			c.session.AppendText(botID, fmt.Sprintf("\n\nDocument %q: %s", name, att.LinkURL))
		}
		c.notify(botID)

		if ctx.Err() != nil {
			return
		}
	}
}

// notify sends the current state of a message to the sink, if any.
func (c *Consumer) notify(id int64) {
	if c.cfg.Sink == nil {
		return
	}
	if msg, ok := c.session.Message(id); ok {
		c.cfg.Sink.OnMessageUpdated(msg)
	}
}
