// Package main provides the toc CLI for building and browsing the idea table of contents.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/bull/idea-toc-server/internal/app"
	"github.com/bull/idea-toc-server/internal/config"
	ghclient "github.com/bull/idea-toc-server/internal/github"
	"github.com/bull/idea-toc-server/internal/ideas"
	"github.com/bull/idea-toc-server/internal/importer"
	"github.com/bull/idea-toc-server/internal/markdown"
	"github.com/bull/idea-toc-server/internal/toc"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "toc",
	Short: "Idea corpus table of contents tool",
	Long:  "CLI tool for importing ideas and building their hierarchical table of contents",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the table of contents from the idea store",
	Long: `Reads up to max_items ideas from the store, scores their originality, clusters
them into headings and replaces the cache file.

Environment variables:
  STORE_BACKEND      qdrant or pgvector (default: qdrant)
  QDRANT_HOST        Qdrant hostname (default: localhost)
  QDRANT_PORT        Qdrant gRPC port (default: 6334)
  DATABASE_URL       Postgres connection string (pgvector backend)
  EMBEDDING_PROVIDER openai or ollama (default: openai)
  OPENAI_API_KEY     OpenAI API key (openai provider)
  TOC_CACHE_PATH     Cache file (default: toc_cache.json)
  TOC_MAX_ITEMS      Ideas read per build (default: 500)`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cached table of contents",
	Long:  "Prints the cached table of contents, building it first when no cache exists.",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the cached table of contents",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

var importCmd = &cobra.Command{
	Use:   "import [directory]",
	Short: "Import ideas from markdown notes",
	Long: `Splits markdown notes into ideas, one per H1 or H2 section, embeds them and
stores them. Notes come from a local directory or, with --github, from a repository
path such as owner/repo/notes@main.

The table of contents is not rebuilt unless --build is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

var similarCmd = &cobra.Command{
	Use:   "similar <query>",
	Short: "List the ideas closest to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSimilar,
}

var (
	buildMaxItems  int
	showMarkdown   bool
	importGitHub   string
	importBuild    bool
	similarResults int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	buildCmd.Flags().IntVarP(&buildMaxItems, "max-items", "n", 0, "ideas to read (default from config)")
	showCmd.Flags().BoolVar(&showMarkdown, "markdown", false, "print plain markdown without colors")
	importCmd.Flags().StringVar(&importGitHub, "github", "", "import from owner/repo[/path][@ref]")
	importCmd.Flags().BoolVar(&importBuild, "build", false, "rebuild the table of contents afterwards")
	similarCmd.Flags().IntVarP(&similarResults, "results", "n", ideas.DefaultSimilar, "number of ideas to list")

	rootCmd.AddCommand(buildCmd, showCmd, clearCmd, importCmd, similarCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	return a, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("Building table of contents...")
	tree, err := a.Builder.BuildWithLimit(ctx, buildMaxItems)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	printSummary(tree, a.Cache.Path())
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func printSummary(tree toc.Tree, cachePath string) {
	stats := tree.Stats()
	fmt.Println()
	color.Green("Table of contents built")
	fmt.Printf("  Ideas: %d\n", stats.Ideas)
	fmt.Printf("  Headings: %d\n", stats.Headings)
	fmt.Printf("  Depth: %d\n", stats.Depth)
	fmt.Printf("  Cache: %s\n", cachePath)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tree, err := a.Builder.Cached(ctx)
	if err != nil {
		return fmt.Errorf("failed to load table of contents: %w", err)
	}

	if showMarkdown {
		fmt.Print(tree.Markdown())
		return nil
	}
	printTree(tree)
	return nil
}

var headingColors = []*color.Color{
	color.New(color.FgCyan, color.Bold),
	color.New(color.FgBlue, color.Bold),
	color.New(color.FgMagenta),
}

func printTree(tree toc.Tree) {
	if len(tree) == 0 {
		color.Yellow("No ideas stored yet.")
		return
	}

	originality := color.New(color.FgYellow).SprintFunc()
	tree.Walk(func(n toc.Node, depth int) {
		indent := strings.Repeat("  ", depth-1)
		switch n := n.(type) {
		case *toc.Heading:
			c := headingColors[min(n.Level, len(headingColors))-1]
			fmt.Printf("%s%s %s\n", indent, c.Sprint(n.Title), originality(n.Originality))
		case *toc.Leaf:
			fmt.Printf("%s- %s %s\n", indent, n.Title, originality(n.Originality))
		}
	})
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	cache := toc.NewCache(cfg.TOC.CachePath, slog.Default())
	if err := cache.Invalidate(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	color.Green("Cache cleared: %s", cache.Path())
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	if (importGitHub == "") == (len(args) == 0) {
		return fmt.Errorf("need exactly one of a directory or --github")
	}

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var source importer.Source
	if importGitHub != "" {
		loc, err := ghclient.ParseLocation(importGitHub)
		if err != nil {
			return err
		}
		client, err := ghclient.NewClient(a.Config.GitHub.Token)
		if err != nil {
			return fmt.Errorf("failed to create GitHub client: %w", err)
		}
		source = importer.NewGitHubSource(ghclient.NewFetcher(client, loc))
	} else {
		source = importer.NewDirSource(args[0])
	}

	fmt.Printf("Importing ideas from %s...\n", source)
	pipeline := importer.NewPipeline(source, markdown.NewSplitter(), a.Embedder, a.Store, a.Logger)

	var bar *progressbar.ProgressBar
	pipeline.OnProgress(func(done, total int, path string) {
		if bar == nil {
			bar = getProgressBar(total, "Importing notes")
		}
		bar.Describe(color.BlueString(path))
		bar.Set(done)
	})

	result, err := pipeline.ImportAll(ctx)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Println()
	color.Green("Import complete!")
	fmt.Printf("  Files: %d/%d\n", result.SuccessfulFiles, result.TotalFiles)
	fmt.Printf("  Ideas: %d\n", result.Ideas)
	if result.Replaced > 0 {
		fmt.Printf("  Replaced duplicates: %d\n", result.Replaced)
	}
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))
	fmt.Printf("  Revision: %s\n", result.Revision)

	if len(result.FailedFiles) > 0 {
		fmt.Println()
		color.Red("Failed files:")
		for _, failed := range result.FailedFiles {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}

	if importBuild {
		fmt.Println()
		fmt.Println("Building table of contents...")
		tree, err := a.Builder.Build(ctx)
		if err != nil {
			return fmt.Errorf("build failed: %w", err)
		}
		printSummary(tree, a.Cache.Path())
	} else {
		fmt.Println()
		fmt.Println("Run `toc build` to refresh the table of contents.")
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	titles, err := a.Ideas.Similar(ctx, query, similarResults)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(titles) == 0 {
		color.Yellow("No ideas stored yet.")
		return nil
	}
	for i, title := range titles {
		fmt.Printf("%2d. %s\n", i+1, title)
	}
	return nil
}
