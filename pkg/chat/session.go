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
	"errors"
	"os"
	"sync"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one entry in the conversation transcript.
//
// IDs are assigned by the owning Session and increase monotonically in
// creation order. Bot message text is mutable while its stream is open
// and frozen once the turn completes.
type Message struct {
	ID         int64
	Role       Role
	Text       string
	Attachment *Attachment
}

// Attachment is the retrieved form of a cited document.
//
// An inline attachment carries the original data URL plus a decoded copy
// on local disk for cheap repeated rendering. A link attachment carries
// only a short-lived presigned URL (the fallback path when the bytes
// could not be fetched inline).
type Attachment struct {
	Name        string
	DataURL     string
	ContentType string
	Size        int64

	// LocalPath is the decoded ephemeral copy. Owned by the Session;
	// removed by Release or Session.Close.
	LocalPath string

	// LinkURL is set instead of DataURL on the fallback path.
	LinkURL string

	released bool
	mu       sync.Mutex
}

// Inline reports whether the attachment carries document bytes rather
// than just a link.
func (a *Attachment) Inline() bool {
	return a.DataURL != ""
}

// Release removes the decoded local copy. Safe to call more than once.
// The data URL remains usable as a rendering source after release.
func (a *Attachment) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released || a.LocalPath == "" {
		return nil
	}
	a.released = true

	err := os.Remove(a.LocalPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Session holds all conversation state for one chat session.
//
// # Description
//
// Session owns the transcript, the thread continuity handle issued by the
// chat backend, the set of citation names already fetched, and the
// in-flight fetch flag. It replaces the ambient per-page state of a
// browser session with an explicit object: everything resets together
// when the session is discarded, and nothing is package-global.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The chat flow itself is
// sequential (one turn at a time, one fetch at a time), so the mutex is
// protection against misuse rather than a throughput concern.
type Session struct {
	mu          sync.Mutex
	nextID      int64
	messages    []*Message
	threadID    string
	processed   map[string]struct{}
	fetchBusy   bool
	attachments []*Attachment
}

// NewSession creates an empty session with no thread handle.
func NewSession() *Session {
	return &Session{
		processed: make(map[string]struct{}),
	}
}

// Append adds a message to the transcript and returns a copy with its
// assigned ID.
func (s *Session) Append(role Role, text string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	msg := &Message{ID: s.nextID, Role: role, Text: text}
	s.messages = append(s.messages, msg)
	return *msg
}

// SetText replaces the text of the message with the given ID. Used by the
// stream consumer to grow the trailing bot message as chunks arrive.
func (s *Session) SetText(id int64, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg := s.find(id); msg != nil {
		msg.Text = text
		return true
	}
	return false
}

// AppendText appends suffix to the message with the given ID. Used for
// fallback links and failure notices after the stream has ended.
func (s *Session) AppendText(id int64, suffix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg := s.find(id); msg != nil {
		msg.Text += suffix
		return true
	}
	return false
}

// Attach binds an attachment to the message that produced its citation.
func (s *Session) Attach(id int64, att *Attachment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg := s.find(id); msg != nil {
		msg.Attachment = att
		return true
	}
	return false
}

// Message returns a copy of the message with the given ID.
func (s *Session) Message(id int64) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg := s.find(id); msg != nil {
		return *msg, true
	}
	return Message{}, false
}

// Messages returns a copy of the transcript in creation order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	for i, msg := range s.messages {
		out[i] = *msg
	}
	return out
}

func (s *Session) find(id int64) *Message {
	// Transcripts are short and mostly tail-accessed; scan backward.
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			return s.messages[i]
		}
	}
	return nil
}

// ThreadID returns the current thread continuity handle, or "".
func (s *Session) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// SetThreadID adopts a handle from a response header, replacing any prior
// one. The backend may rotate handles mid-session.
func (s *Session) SetThreadID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = id
}

// ClearThreadID drops the handle so the next turn starts a fresh thread.
// Called on any chat transport failure.
func (s *Session) ClearThreadID() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = ""
}

// BeginTurn resets per-turn fetch state. Called when a new user prompt is
// submitted, before the request is sent.
func (s *Session) BeginTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = make(map[string]struct{})
}

// MarkProcessed records that name has been scheduled for retrieval.
// Returns true if the name was not already recorded; a false return means
// the caller must not fetch again outside an explicit retry.
func (s *Session) MarkProcessed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.processed[name]; seen {
		return false
	}
	s.processed[name] = struct{}{}
	return true
}

// IsProcessed reports whether name has already been scheduled.
func (s *Session) IsProcessed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, seen := s.processed[name]
	return seen
}

// TryAcquireFetch claims the single in-flight fetch slot. Returns false
// if another fetch holds it; callers defer and re-attempt rather than
// fetching concurrently.
func (s *Session) TryAcquireFetch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetchBusy {
		return false
	}
	s.fetchBusy = true
	return true
}

// ReleaseFetch frees the in-flight fetch slot.
func (s *Session) ReleaseFetch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchBusy = false
}

// TrackAttachment registers an attachment for release on Close.
func (s *Session) TrackAttachment(att *Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(s.attachments, att)
}

// Close releases every local attachment copy created during the session.
// The session must not be used afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	attachments := s.attachments
	s.attachments = nil
	s.mu.Unlock()

	var firstErr error
	for _, att := range attachments {
		if err := att.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
