package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/app"
	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
	cfgPkg "github.com/OmarAI2003/AI-Legal-Checker/pkg/config"
)

type Options struct {
	ConfigPath  string
	Input       string
	Output      string
	ShowSimilar bool
	Live        bool
	liveSet     bool
}

// Processor is satisfied by *pipeline.Pipeline.
type Processor interface {
	Process(ctx context.Context, doc models.Document) (*models.Envelope, error)
}

func main() {
	opts := parseFlags()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Options {
	var opts Options

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&opts.Input, "input", "json_input_contracts", "Input document file or directory of *.json documents")
	flag.StringVar(&opts.Output, "output", "json_output", "Directory for output_<name> envelopes")
	flag.BoolVar(&opts.ShowSimilar, "show-similar", false, "Print similar clauses and matches for each document")
	flag.BoolVar(&opts.Live, "live", false, "Use the live embedding service and reference corpus")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "live" {
			opts.liveSet = true
		}
	})
	return opts
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(opts Options) error {
	// .env is optional
	_ = godotenv.Load()

	// Mode-dependent defaults are derived while loading, so the flag goes in
	// through the environment.
	if opts.liveSet {
		os.Setenv("CLAUSERAG_LIVE", strconv.FormatBool(opts.Live))
	}

	cfg, err := cfgPkg.LoadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	inputs, err := collectInputs(opts.Input)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		color.Yellow("No JSON documents found in %s\n", opts.Input)
		return nil
	}
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	mode := "offline"
	if cfg.Live {
		mode = "live"
	}
	color.Blue("\nProcessing %d documents (%s mode)\n", len(inputs), mode)

	bar := getProgressBar(len(inputs), "📄 Processing contracts...")
	var (
		failed  int
		results = make([]fileResult, 0, len(inputs))
	)
	for _, in := range inputs {
		env, outPath, err := processFile(ctx, deps.Pipeline, in, opts.Output)
		if err != nil {
			failed++
			logger.Warn("document failed", zap.String("file", in), zap.Error(err))
		}
		if env != nil {
			results = append(results, fileResult{name: filepath.Base(in), output: outPath, env: env})
		}
		bar.Add(1)
	}
	bar.Finish()

	fmt.Println()
	for _, r := range results {
		if r.env.Success {
			color.Green("✓ %s → %s (%d embedded, %d similar)", r.name, r.output,
				r.env.Analysis.EmbeddedClausesCount, r.env.Analysis.SimilarClausesFound)
		} else {
			color.Red("✗ %s → %s (%s error: %s)", r.name, r.output, r.env.ErrorKind, r.env.Error)
		}
	}
	if failed > 0 {
		color.Yellow("\n%d of %d documents failed\n", failed, len(inputs))
	} else {
		color.Green("\n✓ All %d documents processed\n", len(inputs))
	}

	if opts.ShowSimilar {
		for _, r := range results {
			printSimilar(color.Output, r.name, r.env)
		}
	}
	return nil
}

type fileResult struct {
	name   string
	output string
	env    *models.Envelope
}

// collectInputs returns path itself if it is a file, or the sorted *.json
// files directly inside it.
func collectInputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input not found: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	matches, err := filepath.Glob(filepath.Join(path, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// processFile runs one document and writes its envelope, success or not, to
// outDir/output_<name>. Unreadable input yields an error and no envelope.
func processFile(ctx context.Context, p Processor, in, outDir string) (*models.Envelope, string, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", in, err)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("failed to parse %s: %w", in, err)
	}

	env, runErr := p.Process(ctx, doc)

	out := filepath.Join(outDir, "output_"+filepath.Base(in))
	body, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return env, "", fmt.Errorf("failed to encode envelope: %w", err)
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return env, "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	return env, out, runErr
}

func printSimilar(w io.Writer, name string, env *models.Envelope) {
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(w, "\n== %s ==\n", name)
	if !env.Success || env.Analysis == nil || env.Analysis.RAGContext == nil {
		fmt.Fprintln(w, "No analysis available.")
		return
	}
	rc := env.Analysis.RAGContext

	header.Fprintln(w, "\nSimilar clauses found:")
	if len(rc.SimilarClauses) == 0 {
		fmt.Fprintln(w, "No similar clauses returned.")
	}
	for i, sc := range rc.SimilarClauses {
		fmt.Fprintf(w, "Similar #%d:\n", i+1)
		body, _ := json.MarshalIndent(sc, "", "  ")
		fmt.Fprintln(w, string(body))
	}

	header.Fprintln(w, "\nClause matches (input -> best similar):")
	for _, m := range rc.Comparison.Matches {
		fmt.Fprintf(w, "Input clause: %s\n", m.CurrentClauseText)
		fmt.Fprintf(w, "Matched similar clause: %s\n", m.MatchedClauseText)
		fmt.Fprintf(w, "Similarity score: %.3f\n", m.SimilarityScore)
		fmt.Fprintf(w, "Clause type: %s\n", m.Category)
		fmt.Fprintln(w, strings.Repeat("-", 40))
	}
}
