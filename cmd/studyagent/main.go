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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/siongang/study-agent"
	"github.com/siongang/study-agent/config"
	"github.com/siongang/study-agent/pipeline"
	"github.com/siongang/study-agent/registry"
	"github.com/siongang/study-agent/search"
)

func main() {
	app := &cli.App{
		Name:  "studyagent",
		Usage: "Incremental ingestion and retrieval over course documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				Value:   "config.yaml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the full ingestion pipeline and rebuild the index",
				Action: runCommand,
			},
			{
				Name:   "sync",
				Usage:  "Scan the uploads directory and reconcile the file registry",
				Action: syncCommand,
			},
			{
				Name:   "extract",
				Usage:  "Extract text from files that need it",
				Action: stageCommand(func(p *pipeline.Pipeline) stageFunc { return p.ExtractAll }),
			},
			{
				Name:   "classify",
				Usage:  "Classify extracted files by document type",
				Action: stageCommand(func(p *pipeline.Pipeline) stageFunc { return p.ClassifyAll }),
			},
			{
				Name:   "map-toc",
				Usage:  "Derive chapter maps for textbooks",
				Action: stageCommand(func(p *pipeline.Pipeline) stageFunc { return p.MapChaptersAll }),
			},
			{
				Name:   "coverage",
				Usage:  "Derive exam coverage from exam overviews",
				Action: stageCommand(func(p *pipeline.Pipeline) stageFunc { return p.ExtractCoverageAll }),
			},
			{
				Name:   "chunk",
				Usage:  "Chunk textbooks, scoped to the chapters exams require",
				Action: stageCommand(func(p *pipeline.Pipeline) stageFunc { return p.ChunkAll }),
			},
			{
				Name:   "index",
				Usage:  "Embed the current chunks and rebuild the vector index",
				Action: indexCommand,
			},
			{
				Name:   "status",
				Usage:  "Summarize the registry and chunk store",
				Action: statusCommand,
			},
			{
				Name:      "search",
				Usage:     "Query the vector index",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results to return",
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum similarity score",
						Value: -1,
					},
					&cli.IntSliceFlag{
						Name:  "chapter",
						Usage: "Restrict results to these chapter numbers (repeatable)",
					},
					&cli.StringFlag{
						Name:  "file-id",
						Usage: "Restrict results to one source file",
					},
					&cli.StringFlag{
						Name:  "exam",
						Usage: "Restrict results to the chapters this exam covers",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openLibrary(c *cli.Context) (*studyagent.Library, *config.AppConfig, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	lib, err := studyagent.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open library: %w", err)
	}
	return lib, cfg, nil
}

func runCommand(c *cli.Context) error {
	lib, _, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	_, results, stats, err := lib.Pipeline().RunAll(context.Background())
	if err != nil {
		return fmt.Errorf("ingestion run failed: %w", err)
	}

	printResults(results)
	fmt.Fprintf(os.Stderr, "\nIndexed chunks: %d (embeddings cached: %d, computed: %d)\n",
		stats.Chunks, stats.Embedding.Cached, stats.Embedding.Computed)
	return nil
}

func syncCommand(c *cli.Context) error {
	lib, _, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	reg, stats, err := lib.Pipeline().Sync()
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Files: %d (new: %d, stale: %d, unchanged: %d)\n",
		len(reg.Files), stats.New, stats.Stale, stats.Unchanged)
	return nil
}

type stageFunc func(context.Context, *registry.Registry) ([]pipeline.StageResult, error)

// stageCommand wraps one pipeline stage as a CLI action. The registry is
// synced first so the stage sees the current corpus.
func stageCommand(pick func(*pipeline.Pipeline) stageFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		lib, _, err := openLibrary(c)
		if err != nil {
			return err
		}
		defer lib.Close()

		p := lib.Pipeline()
		reg, _, err := p.Sync()
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		results, err := pick(p)(context.Background(), reg)
		if err != nil {
			return err
		}
		printResults(results)
		return nil
	}
}

func indexCommand(c *cli.Context) error {
	lib, _, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	p := lib.Pipeline()
	reg, _, err := p.Sync()
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	stats, err := p.BuildIndex(context.Background(), reg)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Indexed chunks: %d (embeddings cached: %d, computed: %d)\n",
		stats.Chunks, stats.Embedding.Cached, stats.Embedding.Computed)
	return nil
}

func statusCommand(c *cli.Context) error {
	lib, _, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	p := lib.Pipeline()
	reg, _, err := p.Sync()
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	st, err := p.Status(reg)
	if err != nil {
		return err
	}

	fmt.Printf("Files: %d\n", st.Files)
	for status, n := range st.ByStatus {
		fmt.Printf("  %s: %d\n", status, n)
	}
	fmt.Printf("Document types:\n")
	for docType, n := range st.ByDocType {
		fmt.Printf("  %s: %d\n", docType, n)
	}
	fmt.Printf("Chunks: %d\n", st.Chunks)
	if len(st.Required) > 0 {
		fmt.Printf("Required chapters: %v\n", st.Required)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	lib, cfg, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	searcher, err := lib.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to open searcher (run ingestion first?): %w", err)
	}

	topK := c.Int("top-k")
	if topK == 0 {
		topK = cfg.Search.TopK
	}
	minScore := float32(c.Float64("min-score"))
	if minScore < 0 {
		minScore = cfg.Search.MinScore
	}

	chapters := c.IntSlice("chapter")
	if exam := c.String("exam"); exam != "" {
		p := lib.Pipeline()
		reg, _, err := p.Sync()
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		chapters, err = p.ExamChapters(reg, exam)
		if err != nil {
			return err
		}
	}

	results, err := searcher.Search(context.Background(), query, topK, search.Filters{
		MinScore: minScore,
		Chapters: chapters,
		FileID:   c.String("file-id"),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, r := range results {
		chapter := "-"
		if r.Chunk.ChapterNumber != nil {
			chapter = fmt.Sprintf("%d", *r.Chunk.ChapterNumber)
		}
		fmt.Printf("%d. [%.3f] %s p.%d-%d ch.%s\n%s\n\n",
			i+1, r.Score, r.Chunk.Filename, r.Chunk.PageStart, r.Chunk.PageEnd, chapter, preview(r.Chunk.Text))
	}
	return nil
}

const previewChars = 500

// preview truncates chunk text for terminal display.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewChars {
		return text
	}
	return string(runes[:previewChars]) + "..."
}

func printResults(results []pipeline.StageResult) {
	failed := 0
	for _, r := range results {
		state := "done"
		if r.Cached {
			state = "cached"
		}
		if r.Err != nil {
			state = "failed: " + r.Err.Error()
			failed++
		}
		fmt.Fprintf(os.Stderr, "%-12s %-40s %s\n", r.Stage, r.Filename, state)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d stage(s) failed\n", failed)
	}
}

func setup(c *cli.Context) error {
	// Load .env if present; missing files are fine
	_ = godotenv.Load()

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
