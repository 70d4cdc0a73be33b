// Package main is the comap CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/proteomica/comap/internal/catalog"
	"github.com/proteomica/comap/internal/cli"
	"github.com/proteomica/comap/internal/complexes"
	"github.com/proteomica/comap/internal/config"
	"github.com/proteomica/comap/internal/pipeline"
	"github.com/proteomica/comap/internal/storage"
	"github.com/proteomica/comap/internal/watcher"
	"github.com/proteomica/comap/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/comap/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "comap run" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "run":
		runRun()
	case "cut":
		runCut()
	case "tree":
		runTree()
	case "search":
		runSearch()
	case "runs":
		runRuns()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("comap version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runRun() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (per-complex capture events)")
	formatFlag := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	format, err := parseOutputFormat(*formatFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	run, err := components.Runner.Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.PrintRunSummary(run, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runCut() {
	fs := flag.NewFlagSet("cut", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	formatFlag := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: comap cut [flags] <threshold>")
		os.Exit(1)
	}
	threshold, err := strconv.ParseFloat(fs.Arg(0), 64)
	if err != nil || threshold < 0 {
		fmt.Fprintf(os.Stderr, "Invalid threshold %q; use a non-negative number\n", fs.Arg(0))
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Inputs.LinkagePath == "" || cfg.Inputs.ItemsPath == "" {
		fmt.Fprintln(os.Stderr, "inputs.linkage_path and inputs.items_path are required")
		os.Exit(1)
	}
	format, err := parseOutputFormat(*formatFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	result, err := pipeline.NewRunner(cfg).Cut(threshold)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cut failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteCutResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runTree() {
	fs := flag.NewFlagSet("tree", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	levelsFlag := fs.String("levels", "", "comma-separated cut thresholds, coarsest first (default: outputs.tree_thresholds)")
	nameFlag := fs.String("name", "", "root node name (default: outputs.tree_name)")
	outPath := fs.String("o", "", "output file (default: stdout)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Inputs.LinkagePath == "" || cfg.Inputs.ItemsPath == "" {
		fmt.Fprintln(os.Stderr, "inputs.linkage_path and inputs.items_path are required")
		os.Exit(1)
	}

	thresholds := cfg.Outputs.TreeThresholds
	if *levelsFlag != "" {
		thresholds, err = parseThresholds(*levelsFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if len(thresholds) == 0 {
		fmt.Fprintln(os.Stderr, "No tree levels: set outputs.tree_thresholds or pass --levels")
		os.Exit(1)
	}
	rootName := cfg.Outputs.TreeName
	if *nameFlag != "" {
		rootName = *nameFlag
	}

	root, err := pipeline.NewRunner(cfg).Tree(thresholds, rootName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Tree failed: %v\n", err)
		os.Exit(1)
	}
	if *outPath != "" {
		if err := pipeline.WriteTree(*outPath, root); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Tree written: %s\n", *outPath)
		return
	}
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

// printSearchUsage prints search subcommand usage and hints.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: comap search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
The query matches complex names, descriptions, and gene symbols. When a plain
query finds nothing, the search retries with fuzzy matching automatically.

Examples:
  comap search ribosome
  comap search "small subunit"        # same as: comap search small subunit
  comap search --fuzzy ribosme        # typo-tolerant search
  comap search --limit 20 RPL3
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "comap search RPL3 -limit 5"
// would otherwise leave -limit unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 10, "number of results")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	formatFlag := fs.String("format", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Inputs.ComplexesPath == "" {
		fmt.Fprintln(os.Stderr, "inputs.complexes_path is required for search")
		os.Exit(1)
	}
	format, err := parseOutputFormat(*formatFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cat, err := complexes.Load(cfg.Inputs.ComplexesPath, complexes.Format(cfg.Inputs.ComplexesFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load complexes: %v\n", err)
		os.Exit(1)
	}
	index, err := catalog.New(cat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to index complexes: %v\n", err)
		os.Exit(1)
	}
	defer index.Close()

	hits, err := index.Search(queryStr, *limit, *fuzzy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	// Auto-retry with fuzzy if no results and fuzzy not already enabled
	if len(hits) == 0 && !*fuzzy {
		if fuzzyHits, fuzzyErr := index.Search(queryStr, *limit, true); fuzzyErr == nil {
			hits = fuzzyHits
		}
	}
	if err := cli.WriteSearchHits(os.Stdout, hits, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runRuns() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: comap runs <list|show|delete> [flags] [run-id]")
		fmt.Println("  comap runs list             List stored runs")
		fmt.Println("  comap runs show <run-id>    Show one run with its labeling")
		fmt.Println("  comap runs delete <run-id>  Delete a stored run")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	formatFlag := fs.String("format", "text", "output format: text or json")
	limit := fs.Int("limit", 20, "number of runs to list")
	offset := fs.Int("offset", 0, "listing offset")
	_ = fs.Parse(os.Args[3:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	format, err := parseOutputFormat(*formatFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	ctx := context.Background()

	switch sub {
	case "list":
		runs, err := store.ListRuns(ctx, *offset, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteRunList(os.Stdout, runs, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		if format == cli.OutputText {
			if total, countErr := store.CountRuns(ctx); countErr == nil {
				if size, sizeErr := storage.DatabaseSizeBytes(cfg.Storage.DatabasePath); sizeErr == nil {
					fmt.Printf("\n%d run(s) stored, %d bytes on disk\n", total, size)
				} else {
					fmt.Printf("\n%d run(s) stored\n", total)
				}
			}
		}
	case "show":
		if fs.NArg() < 1 {
			fmt.Println("Usage: comap runs show <run-id>")
			os.Exit(1)
		}
		run, err := store.GetRun(ctx, fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Show failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteRunSummary(os.Stdout, run, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "delete":
		if fs.NArg() < 1 {
			fmt.Println("Usage: comap runs delete <run-id>")
			os.Exit(1)
		}
		id := fs.Arg(0)
		if err := store.DeleteRun(ctx, id); err != nil {
			fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Run deleted: %s\n", id)
	default:
		fmt.Printf("Unknown runs subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file events, capture events)")
	formatFlag := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	format, err := parseOutputFormat(*formatFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	runOnce := func() {
		run, err := components.Runner.Run(context.Background())
		if err != nil {
			logger.Warn("run failed", zap.Error(err))
			return
		}
		if err := cli.PrintRunSummary(run, format); err != nil {
			logger.Warn("output failed", zap.Error(err))
		}
	}
	runOnce()

	watchOpts := []watcher.WatcherOption{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(cfg.InputPaths(), func(path string) {
		logger.Info("input changed, rerunning", zap.String("path", path))
		runOnce()
	}, watchOpts...)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down...")
}

// Components holds initialized services.
type Components struct {
	Store  storage.Storage
	Runner *pipeline.Runner
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	opts := []pipeline.RunnerOption{pipeline.WithLogger(logger)}
	var store storage.Storage
	if cfg.Storage.SaveRuns && cfg.Storage.DatabasePath != "" {
		s, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		store = s
		opts = append(opts, pipeline.WithStorage(s))
	}
	return &Components{Store: store, Runner: pipeline.NewRunner(cfg, opts...)}, nil
}

// parseThresholds parses a comma-separated list of cut thresholds.
func parseThresholds(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold %q", p)
		}
		if v < 0 {
			return nil, fmt.Errorf("threshold must be non-negative, got %g", v)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no thresholds given")
	}
	return out, nil
}

// parseOutputFormat maps a -format flag value to a cli.OutputFormat.
func parseOutputFormat(name string) (cli.OutputFormat, error) {
	switch name {
	case "json":
		return cli.OutputJSON, nil
	case "", "text":
		return cli.OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", name)
	}
}

func printUsage() {
	fmt.Println(`comap - Complex-aware cluster assignment for proteomic profiles

Usage:
  comap run [flags]               Run the full assignment and write outputs
  comap cut [flags] <threshold>   Cut the linkage at one threshold
  comap tree [flags]              Write the nested grouping of stacked cuts
  comap search [flags] <query>    Search the complex catalog
  comap runs <list|show|delete>   Manage stored runs
  comap watch [flags]             Rerun automatically when inputs change
  comap version                   Show version
  comap help                      Show this help

Run Flags:
  --config string    Config file path (default: /usr/local/etc/comap/config.yaml)
  --debug            Enable debug logging (per-complex capture events)
  --format string    Output format: text or json (default: text)

Cut Flags:
  --config string    Config file path
  --format string    Output format: text or json (default: text)

Tree Flags:
  --config string    Config file path
  --levels string    Comma-separated cut thresholds, coarsest first (default: outputs.tree_thresholds)
  --name string      Root node name (default: outputs.tree_name)
  -o string          Output file (default: stdout)

Search Flags:
  --config string    Config file path
  --limit int        Number of results (default: 10)
  --fuzzy            Enable fuzzy matching for typo tolerance (default: false)
  --format string    Output format: text or json (default: text)

Runs Flags:
  --config string    Config file path
  --format string    Output format: text or json (default: text)
  --limit int        Number of runs to list (default: 20)
  --offset int       Listing offset (default: 0)

Examples:
  comap run
  comap run --format json > assignment.json
  comap cut 0.35
  comap tree --levels 0.9,0.5,0.2 -o tree.json
  comap search 26S proteasome
  comap search --fuzzy ribosme
  comap runs list
  comap runs show 6f1c9c0e-...
  comap watch --debug`)
}
