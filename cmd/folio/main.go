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
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/folio"
	"github.com/poiesic/folio/ai"
	"github.com/poiesic/folio/conversation"
	"github.com/poiesic/folio/ingestion"
	"github.com/poiesic/folio/retrieval"
	"github.com/poiesic/folio/storage"
	"github.com/poiesic/folio/storage/badger"
	"github.com/poiesic/folio/storage/postgres"
	"github.com/urfave/cli/v2"
)

const (
	exitFailure = 1
	exitUsage   = 2

	defaultSourceURL = "https://raw.githubusercontent.com/borkabrak/markov/master/Complete-Works-of-William-Shakespeare.txt"
	defaultEnvFile   = ".env"
)

// openLibrary builds the library for a command. Tests replace it.
var openLibrary = openLibraryFromFlags

func main() {
	if err := loadEnv(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "folio:", err)
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "folio:", err)
		os.Exit(exitCode(err))
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "folio",
		Usage: "Retrieval-augmented conversations with the works of Shakespeare",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file before reading flags",
				Value: defaultEnvFile,
			},
		},
		Before:         setupLogger,
		OnUsageError:   onUsageError,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:         "ingest",
				Usage:        "Chunk, embed and store the source text",
				Action:       ingestCommand,
				OnUsageError: onUsageError,
				Flags: concat(storeFlags(), aiFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "URL of the raw text to ingest",
						Value: defaultSourceURL,
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Local file to ingest instead of --url",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of chunks processed concurrently (0 uses half the CPUs)",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per chunk for embedding and storing",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 500 * time.Millisecond,
					},
				}),
			},
			{
				Name:         "chat",
				Usage:        "Ask a question and print the conversation transcript",
				Action:       chatCommand,
				OnUsageError: onUsageError,
				Flags: concat(storeFlags(), aiFlags(), retrievalFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:    "question",
						Aliases: []string{"q"},
						Usage:   "Question to ask (defaults to a request for three Shakespearean sentences)",
					},
					&cli.BoolFlag{
						Name:    "interactive",
						Aliases: []string{"i"},
						Usage:   "Read follow-up questions from stdin until EOF",
					},
					&cli.IntFlag{
						Name:  "max-tool-rounds",
						Usage: "Maximum rounds of tool execution per answer",
						Value: conversation.DefaultMaxToolRounds,
					},
					&cli.BoolFlag{
						Name:  "strict-tools",
						Usage: "Abort when the model calls an unknown tool",
					},
				}),
			},
			{
				Name:         "search",
				Usage:        "Print the passages most similar to a query",
				ArgsUsage:    "<query>",
				Action:       searchCommand,
				OnUsageError: onUsageError,
				Flags: concat(storeFlags(), aiFlags(), []cli.Flag{
					&cli.IntFlag{
						Name:    "top-n",
						Aliases: []string{"n"},
						Usage:   "Number of passages to print",
						Value:   5,
					},
				}),
			},
			{
				Name:         "info",
				Usage:        "Print the collection schema and record count",
				Action:       infoCommand,
				OnUsageError: onUsageError,
				Flags:        concat(storeFlags(), aiFlags()),
			},
		},
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "store",
			Usage: "Vector store backend (badger, postgres)",
			Value: "badger",
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			Value:   "folio.db",
		},
		&cli.StringFlag{
			Name:  "pg-host",
			Usage: "PostgreSQL host",
			Value: "localhost",
		},
		&cli.IntFlag{
			Name:  "pg-port",
			Usage: "PostgreSQL port",
			Value: 5432,
		},
		&cli.StringFlag{
			Name:    "pg-user",
			Usage:   "PostgreSQL user",
			Value:   "root",
			EnvVars: []string{"DB_USER"},
		},
		&cli.StringFlag{
			Name:    "pg-password",
			Usage:   "PostgreSQL password",
			Value:   "root",
			EnvVars: []string{"DB_PASSWORD"},
		},
		&cli.StringFlag{
			Name:  "database",
			Usage: "PostgreSQL database",
			Value: "test",
		},
		&cli.StringFlag{
			Name:  "namespace",
			Usage: "PostgreSQL schema holding the collections",
			Value: "test",
		},
		&cli.StringFlag{
			Name:  "collection",
			Usage: "Collection holding the passages",
			Value: folio.DefaultCollection,
		},
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "openai-host",
			Usage:   "OpenAI-compatible API host URL",
			Value:   ai.DefaultHost,
			EnvVars: []string{"OPENAI_HOST"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the OpenAI-compatible host",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: ai.DefaultEmbeddingModel,
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name",
			Value: ai.DefaultChatModel,
		},
		&cli.Float64Flag{
			Name:  "temperature",
			Usage: "Chat sampling temperature",
			Value: 0.7,
		},
	}
}

func retrievalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "top-n",
			Usage: "Passages returned per retrieval",
			Value: retrieval.DefaultTopN,
		},
		&cli.BoolFlag{
			Name:  "fail-fast",
			Usage: "Abort the conversation when retrieval fails instead of returning no passages",
		},
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func ingestCommand(c *cli.Context) error {
	ctx := c.Context

	source, err := sourceFromFlags(c)
	if err != nil {
		return err
	}
	if c.Int("max-retries") <= 0 {
		return usageError("max-retries must be greater than 0")
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	opts := []ingestion.Option{
		ingestion.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		ingestion.WithProgress(c.App.ErrWriter, c.Int("report-interval")),
	}
	if n := c.Int("workers"); n > 0 {
		opts = append(opts, ingestion.WithPoolSize(n))
	}

	pipeline, err := lib.NewIngestionPipeline(opts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	fmt.Fprintf(c.App.ErrWriter, "Source: %s\n", source)
	fmt.Fprintf(c.App.ErrWriter, "Collection: %s\n", lib.Collection())
	fmt.Fprintln(c.App.ErrWriter)

	report, err := pipeline.Ingest(ctx, source)
	if err != nil {
		return cli.Exit(fmt.Sprintf("ingestion failed: %v", err), exitFailure)
	}

	for _, f := range report.Failures {
		fmt.Fprintf(c.App.Writer, "Failed chunk %d (%016x) at %s: %q: %v\n", f.Index, f.ChunkID, f.Stage, f.Prefix, f.Err)
	}
	fmt.Fprintf(c.App.Writer, "Stored %d of %d chunks (%d failed) in %s\n",
		report.Stored, report.Total, report.Failed(), report.Elapsed.Round(time.Millisecond))

	if err := printInfo(c, lib); err != nil {
		return err
	}

	if report.NothingStored() {
		return cli.Exit("no chunks were stored", exitFailure)
	}
	return nil
}

func chatCommand(c *cli.Context) error {
	ctx := c.Context

	if c.Int("top-n") <= 0 {
		return usageError("top-n must be greater than 0")
	}
	if c.Int("max-tool-rounds") < 0 {
		return usageError("max-tool-rounds must not be negative")
	}

	toolOpts := []retrieval.ToolOption{retrieval.WithTopN(c.Int("top-n"))}
	if c.Bool("fail-fast") {
		toolOpts = append(toolOpts, retrieval.WithFailFast())
	}

	lib, err := openLibrary(c, folio.WithRetrievalOptions(toolOpts...))
	if err != nil {
		return err
	}
	defer lib.Close()

	sessionOpts := []conversation.Option{conversation.WithMaxToolRounds(c.Int("max-tool-rounds"))}
	if c.Bool("strict-tools") {
		sessionOpts = append(sessionOpts, conversation.WithStrictTools())
	}

	session, err := lib.NewSession(c.String("question"), sessionOpts...)
	if err != nil {
		return usageError("%v", err)
	}

	transcript, err := session.Run(ctx)
	if err == nil && c.Bool("interactive") {
		err = converse(c, session)
	}

	if printErr := printTranscript(c, transcript); printErr != nil {
		return printErr
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("conversation aborted: %v", err), exitFailure)
	}
	return nil
}

// converse prints each answer and asks follow-up questions read from stdin until EOF.
func converse(c *cli.Context, session *conversation.Session) error {
	printAnswer(c, session.Transcript())

	scanner := bufio.NewScanner(c.App.Reader)
	for {
		fmt.Fprint(c.App.ErrWriter, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(c.App.ErrWriter)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}

		transcript, err := session.Ask(c.Context, question)
		if err != nil {
			return err
		}
		printAnswer(c, transcript)
	}
}

func printAnswer(c *cli.Context, transcript *conversation.Transcript) {
	if last, ok := transcript.Last(); ok && last.Role == ai.RoleAssistant {
		fmt.Fprintf(c.App.ErrWriter, "\n%s\n\n", last.Content)
	}
}

func printTranscript(c *cli.Context, transcript *conversation.Transcript) error {
	if transcript == nil {
		return nil
	}
	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return usageError("search needs a query")
	}
	if c.Int("top-n") <= 0 {
		return usageError("top-n must be greater than 0")
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	retriever, err := lib.NewRetriever()
	if err != nil {
		return err
	}

	results, err := retriever.Search(c.Context, query, c.Int("top-n"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("search failed: %v", err), exitFailure)
	}
	if len(results) == 0 {
		fmt.Fprintln(c.App.Writer, "No passages found.")
		return nil
	}

	for i, r := range results {
		text := r.Record.Text
		if text == "" {
			text = retrieval.MissingText
		}
		fmt.Fprintf(c.App.Writer, "%d. [%.4f] #%d\n%s\n\n", i+1, r.Score, r.Record.ID, text)
	}
	return nil
}

func infoCommand(c *cli.Context) error {
	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	return printInfo(c, lib)
}

func printInfo(c *cli.Context, lib *folio.Library) error {
	info, err := lib.Store().Info(c.Context, lib.Collection())
	if err != nil {
		return cli.Exit(fmt.Sprintf("collection info: %v", err), exitFailure)
	}
	if info.Schema == nil {
		fmt.Fprintf(c.App.Writer, "Collection %q does not exist\n", lib.Collection())
		return nil
	}

	fmt.Fprintf(c.App.Writer, "Collection: %s\n", info.Schema.Name)
	fmt.Fprintf(c.App.Writer, "Model: %s\n", info.Schema.Model)
	fmt.Fprintf(c.App.Writer, "Dimension: %d\n", info.Schema.Dimension)
	fmt.Fprintf(c.App.Writer, "Created: %s\n", info.Schema.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(c.App.Writer, "Records: %d\n", info.Count)
	return nil
}

func sourceFromFlags(c *cli.Context) (ingestion.Source, error) {
	if path := c.String("file"); path != "" {
		if c.IsSet("url") {
			return nil, usageError("--file and --url are mutually exclusive")
		}
		return &ingestion.FileSource{Path: path}, nil
	}
	url := c.String("url")
	if url == "" {
		return nil, usageError("one of --url or --file is required")
	}
	return &ingestion.HTTPSource{URL: url}, nil
}

func aiConfigFromFlags(c *cli.Context) *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.String("openai-host")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithTemperature(c.Float64("temperature")),
	)
}

func openStore(c *cli.Context) (storage.VectorStore, error) {
	switch strings.ToLower(c.String("store")) {
	case "badger":
		dbPath := c.String("db")
		if dbPath == "" {
			return nil, usageError("database path is required")
		}
		store, err := badger.NewStore(dbPath)
		if err != nil {
			return nil, cli.Exit(fmt.Sprintf("failed to open database: %v", err), exitFailure)
		}
		return store, nil

	case "postgres":
		cfg := postgres.NewConfig(
			postgres.WithHost(c.String("pg-host"), c.Int("pg-port")),
			postgres.WithCredentials(c.String("pg-user"), c.String("pg-password")),
			postgres.WithDatabase(c.String("database"), c.String("namespace")),
		)
		if err := cfg.Validate(); err != nil {
			return nil, usageError("invalid postgres configuration: %v", err)
		}
		store, err := postgres.Open(c.Context, cfg)
		if err != nil {
			return nil, cli.Exit(fmt.Sprintf("failed to connect to postgres: %v", err), exitFailure)
		}
		return store, nil
	}
	return nil, usageError("unknown store %q: must be badger or postgres", c.String("store"))
}

func openLibraryFromFlags(c *cli.Context, opts ...folio.LibraryOption) (*folio.Library, error) {
	aiConfig := aiConfigFromFlags(c)
	if err := aiConfig.Validate(); err != nil {
		return nil, usageError("invalid AI configuration: %v", err)
	}
	if err := storage.ValidateCollectionName(c.String("collection")); err != nil {
		return nil, usageError("%v", err)
	}

	store, err := openStore(c)
	if err != nil {
		return nil, err
	}

	opts = append([]folio.LibraryOption{
		folio.WithStore(store),
		folio.WithAIConfig(aiConfig),
		folio.WithCollection(c.String("collection")),
	}, opts...)
	lib, err := folio.Open("", opts...)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("failed to open library: %v", err), exitFailure)
	}
	return lib, nil
}

// loadEnv loads the env file named by --env-file, or .env when present.
// It runs before flag parsing so EnvVars see the loaded values.
func loadEnv(args []string) error {
	path, explicit := defaultEnvFile, false
	for i, arg := range args {
		if arg == "--" {
			break
		}
		if name, value, ok := strings.Cut(arg, "="); ok && (name == "--env-file" || name == "-env-file") {
			path, explicit = value, true
			break
		}
		if (arg == "--env-file" || arg == "-env-file") && i+1 < len(args) {
			path, explicit = args[i+1], true
			break
		}
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func usageError(format string, args ...any) error {
	return cli.Exit(fmt.Sprintf(format, args...), exitUsage)
}

func onUsageError(c *cli.Context, err error, isSubcommand bool) error {
	return cli.Exit(err.Error(), exitUsage)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return exitFailure
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
		return usageError("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
