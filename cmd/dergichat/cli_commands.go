// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/DergiChat/pkg/chat"
	"github.com/AleutianAI/DergiChat/pkg/logging"
)

var (
	rootCmd = &cobra.Command{
		Use:   "dergichat",
		Short: "A CLI client for the DergiChat magazine archive",
		Long: `DergiChat streams answers from the archive chat backend and fetches
the documents an answer cites through the retrieval gateway.`,
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Opens an interactive prompt. Each answer streams token by token;
cited documents are fetched after the answer completes and saved
as local files for the duration of the session.`,
		RunE: runChatCommand,
	}

	backendURL    string
	gatewayURL    string
	attachmentDir string
	logLevel      string
)

func init() {
	chatCmd.Flags().StringVar(&backendURL, "backend",
		envOr("DERGICHAT_BACKEND_URL", "http://localhost:12230/api/chat"),
		"chat backend endpoint")
	chatCmd.Flags().StringVar(&gatewayURL, "gateway",
		envOr("DERGICHAT_GATEWAY_URL", "http://localhost:12220"),
		"retrieval gateway base URL")
	chatCmd.Flags().StringVar(&attachmentDir, "attachment-dir", "",
		"directory for fetched documents (default: system temp)")
	chatCmd.Flags().StringVar(&logLevel, "log-level", "warn",
		"log verbosity: debug, info, warn, error")

	rootCmd.AddCommand(chatCmd)
}

func envOr(key, defaultValue string) string {
	_ = godotenv.Load()
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// runChatCommand drives the interactive loop until EOF, "exit", or an
// interrupt signal.
func runChatCommand(cmd *cobra.Command, args []string) error {
	logger := logging.New(logging.Config{
		Level:   logLevel,
		Format:  "text",
		Service: "dergichat",
	})

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := chat.NewSession()
	defer func() {
		// Removes every local document copy fetched this session.
		if err := session.Close(); err != nil {
			fmt.Fprintln(os.Stderr, styles.Error.Render(
				fmt.Sprintf("cleanup: %v", err)))
		}
	}()

	fetcher := chat.NewFetcher(session, chat.FetcherConfig{
		GatewayURL:    gatewayURL,
		AttachmentDir: attachmentDir,
		Logger:        logger,
	})

	renderer := newStreamRenderer()
	consumer := chat.NewConsumer(session, fetcher, chat.ConsumerConfig{
		Endpoint: backendURL,
		Logger:   logger,
		Sink:     renderer,
	})

	fmt.Println(styles.Muted.Render("Connected to " + backendURL))
	fmt.Println(styles.Muted.Render(`Type a question, or "exit" to leave.`))

	stdin := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(styles.Prompt.Render("you> "))
		if !stdin.Scan() {
			fmt.Println()
			return stdin.Err()
		}

		prompt := strings.TrimSpace(stdin.Text())
		switch prompt {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		renderer.beginTurn()
		if err := consumer.Send(ctx, prompt); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Println(styles.Error.Render(fmt.Sprintf("error: %v", err)))
			continue
		}
		renderer.endTurn()

		printAttachments(session)
	}
}

// printAttachments reports local copies saved for the latest answer.
func printAttachments(session *chat.Session) {
	msgs := session.Messages()
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	if last.Role != chat.RoleBot || last.Attachment == nil {
		return
	}
	if last.Attachment.LocalPath != "" {
		fmt.Println(styles.Attachment.Render(
			fmt.Sprintf("saved %s → %s", last.Attachment.Name, last.Attachment.LocalPath)))
	}
}

// streamRenderer prints bot text incrementally as updates arrive,
// tracking how much of each message has already been written.
type streamRenderer struct {
	printed map[int64]int
}

func newStreamRenderer() *streamRenderer {
	return &streamRenderer{printed: make(map[int64]int)}
}

func (r *streamRenderer) beginTurn() {
	fmt.Print(styles.Bot.Render("bot> "))
}

func (r *streamRenderer) endTurn() {
	fmt.Println()
}

// OnMessageUpdated implements chat.Sink.
func (r *streamRenderer) OnMessageUpdated(msg chat.Message) {
	if msg.Role != chat.RoleBot {
		return
	}
	done := r.printed[msg.ID]
	if len(msg.Text) <= done {
		return
	}
	fmt.Print(styles.Bot.Render(msg.Text[done:]))
	r.printed[msg.ID] = len(msg.Text)
}
