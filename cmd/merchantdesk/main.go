// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/merchantdesk"
	"github.com/poiesic/merchantdesk/config"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/mcpserver"
	"github.com/poiesic/merchantdesk/reembed"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "merchantdesk",
		Usage:   "Sales-support assistant for merchant services questions",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   config.DefaultFileName,
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Environment file loaded before reading configuration",
				Value: ".env",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return loadEnv(c.String("env-file"))
		},
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question from the document corpus",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "Asking user ID; limits search to their own and shared documents",
					},
					&cli.BoolFlag{
						Name:  "allow-web",
						Usage: "Consent to web search when internal documents have nothing",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full answer as JSON",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Add text files to the document corpus",
				ArgsUsage: "<file>...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Owning user ID; empty shares the documents with everyone",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all chunks with the configured embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed batches",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.StringFlag{
						Name:  "namespace",
						Usage: "Only reembed chunks in this namespace",
					},
					&cli.BoolFlag{
						Name:  "refresh-tags",
						Usage: "Recompute semantic tags and confidence",
					},
				},
			},
			{
				Name:  "escalations",
				Usage: "Review questions that were escalated to web search",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List escalations, newest first",
						Action: listEscalationsCommand,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "all",
								Usage: "Include escalations that were already reviewed",
							},
							&cli.IntFlag{
								Name:  "limit",
								Usage: "Maximum number of entries",
								Value: 20,
							},
						},
					},
					{
						Name:      "review",
						Usage:     "Mark an escalation as reviewed",
						ArgsUsage: "<id>",
						Action:    reviewEscalationCommand,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the assistant as MCP tools over stdio",
				Action: serveCommand,
			},
		},
	}
}

func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func openAssistant(c *cli.Context) (*merchantdesk.Assistant, *config.AppConfig, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	assistant, err := merchantdesk.NewAssistant(cfg, merchantdesk.WithLogger(slog.Default()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start assistant: %w", err)
	}
	return assistant, cfg, nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	assistant, _, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	answer, err := assistant.Ask(ctx, merchantdesk.AskRequest{
		UserID:              c.String("user"),
		Messages:            []core.Message{{Role: core.RoleUser, Content: question}},
		AllowExternalSearch: c.Bool("allow-web"),
	})
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}
	printAnswer(c, answer)
	return nil
}

func printAnswer(c *cli.Context, answer *core.Answer) {
	w := c.App.Writer
	fmt.Fprintln(w, answer.Message)
	if answer.Reasoning != "" {
		fmt.Fprintf(w, "\n(%s)\n", answer.Reasoning)
	}
	if len(answer.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for i, s := range answer.Sources {
			fmt.Fprintf(w, "  [%d] %s %s (%.2f)\n", i+1, s.Name, s.URL, s.RelevanceScore)
		}
	}
	if len(answer.ActionItems) > 0 {
		fmt.Fprintln(w, "\nAction items:")
		for _, item := range answer.ActionItems {
			fmt.Fprintf(w, "  - [%s] %s (%s)", item.Priority, item.Task, item.Category)
			if item.DueDate != "" {
				fmt.Fprintf(w, " due %s", item.DueDate)
			}
			fmt.Fprintln(w)
		}
	}
	if len(answer.FollowupTasks) > 0 {
		fmt.Fprintln(w, "\nFollow-ups:")
		for _, task := range answer.FollowupTasks {
			fmt.Fprintf(w, "  - %s: %s (%s)\n", task.Type, task.Task, task.Timeframe)
		}
	}
	if answer.NeedsExternalSearchPermission {
		fmt.Fprintln(w, "\nRe-run with --allow-web to search the web.")
	}
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	assistant, cfg, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer assistant.Close()
	if cfg.Storage.CorpusDir == "" {
		slog.Warn("storage.corpus_dir is not set; ingested documents will not be kept")
	}

	ctx := context.Background()
	for _, path := range c.Args().Slice() {
		doc, chunks, err := assistant.IngestFile(ctx, path, c.String("owner"))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Ingested %s as document %s (%d chunks)\n", path, doc.Id, len(chunks))
	}
	fmt.Fprintln(c.App.ErrWriter, "Waiting for embeddings...")
	assistant.WaitForEmbeddings()
	return nil
}

func reembedCommand(c *cli.Context) error {
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if c.Int("report-interval") <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	assistant, cfg, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer assistant.Close()
	if cfg.Storage.CorpusDir == "" {
		return fmt.Errorf("storage.corpus_dir must be set to reembed")
	}

	reembedConfig := reembed.DefaultConfig()
	reembedConfig.BatchSize = c.Int("batch-size")
	reembedConfig.ReportInterval = c.Int("report-interval")
	reembedConfig.Retry.MaxAttempts = c.Int("max-retries")
	reembedConfig.Retry.BaseDelay = c.Duration("retry-delay")
	reembedConfig.Namespace = c.String("namespace")
	reembedConfig.RefreshTags = c.Bool("refresh-tags")

	fmt.Fprintf(c.App.ErrWriter, "Corpus: %s\n", cfg.Storage.CorpusDir)
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if _, err := assistant.Reembed(ctx, reembedConfig, c.App.ErrWriter); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func listEscalationsCommand(c *cli.Context) error {
	assistant, _, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	entries, err := assistant.Escalations(context.Background(), !c.Bool("all"), c.Int("limit"))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.App.Writer, "No escalations")
		return nil
	}
	for _, e := range entries {
		status := "pending"
		if !e.ReviewNeeded {
			status = "reviewed"
		}
		fmt.Fprintf(c.App.Writer, "%s  %s  %-8s  %q", e.ID, e.CreatedAt.Format(time.DateTime), status, e.Query)
		if e.UserID != "" {
			fmt.Fprintf(c.App.Writer, "  user=%s", e.UserID)
		}
		fmt.Fprintln(c.App.Writer)
	}
	return nil
}

func reviewEscalationCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("an escalation id is required")
	}

	assistant, _, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	if err := assistant.MarkReviewed(context.Background(), id); err != nil {
		return fmt.Errorf("failed to review %s: %w", id, err)
	}
	fmt.Fprintf(c.App.Writer, "Escalation %s marked reviewed\n", id)
	return nil
}

func serveCommand(c *cli.Context) error {
	assistant, _, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	slog.Info("serving MCP tools on stdio", "version", version)
	return mcpserver.Serve(assistant, version)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
