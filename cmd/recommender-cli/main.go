package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"yashubustudio/recommender/internal/logging"
	"yashubustudio/recommender/recommender"
)

type itemList []string

func (l *itemList) String() string { return strings.Join(*l, ",") }

func (l *itemList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type cliOptions struct {
	configPath string
	cartPath   string
	items      itemList
	topK       int
	outputPath string
	jsonOut    bool
	probe      bool
}

func main() {
	_ = godotenv.Load()
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "recommender-cli: %v\n", err)
		os.Exit(2)
	}
	cfg, err := recommender.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recommender-cli: load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err := run(context.Background(), opts, cfg, logger, os.Stdout); err != nil {
		logger.Fatal().Err(err).Msg("recommender-cli failed")
	}
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("recommender-cli", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to config.json (default: ./config.json)")
	fs.StringVar(&opts.cartPath, "cart", "", "CSV/TSV cart file with a product (id or name) column and a quantity column")
	fs.Var(&opts.items, "item", `Cart item as "Name=quantity" (repeatable; quantity defaults to 1)`)
	fs.IntVar(&opts.topK, "topk", 0, "Number of recommendations, 1-10 (default from config)")
	fs.StringVar(&opts.outputPath, "output", "", "Write recommendations to this CSV file")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print the full result as JSON")
	fs.BoolVar(&opts.probe, "probe", false, "Print the model input/output signature and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [--cart FILE] [--item NAME=QTY ...] [options]\n\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.configPath = strings.TrimSpace(opts.configPath)
	opts.cartPath = strings.TrimSpace(opts.cartPath)
	opts.outputPath = strings.TrimSpace(opts.outputPath)
	if opts.topK < 0 || opts.topK > recommender.MaxTopK {
		return opts, fmt.Errorf("--topk must be between %d and %d", recommender.MinTopK, recommender.MaxTopK)
	}
	return opts, nil
}

func run(ctx context.Context, opts cliOptions, cfg recommender.Config, logger zerolog.Logger, stdout io.Writer) error {
	if opts.probe {
		sig, err := recommender.InspectModel(cfg.Model)
		if err != nil {
			return fmt.Errorf("probe model: %w", err)
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sig)
	}

	res, err := recommender.LoadResources(ctx, cfg, logger)
	if err != nil {
		return err
	}
	svc, err := recommender.NewService(res, logger)
	if err != nil {
		_ = res.Scorer.Close()
		return fmt.Errorf("init service: %w", err)
	}
	defer svc.Close()

	rows, err := buildRows(svc, opts)
	if err != nil {
		return err
	}
	result, err := svc.Suggest(ctx, rows, opts.topK)
	if err != nil {
		return err
	}

	if opts.outputPath != "" {
		if err := writeOutput(opts.outputPath, result.Recommendations); err != nil {
			return err
		}
		logger.Info().Str("path", opts.outputPath).Msg("recommendations written")
	}
	if opts.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(stdout, result)
	return nil
}

// buildRows starts from the catalog table at zero quantity and applies the cart file
// first, then the --item flags.
func buildRows(svc *recommender.Service, opts cliOptions) ([]recommender.EditorRow, error) {
	rows := svc.EditorRows()
	if opts.cartPath != "" {
		picked, err := recommender.ParseCartFile(opts.cartPath, svc.Catalog())
		if err != nil {
			return nil, fmt.Errorf("read cart: %w", err)
		}
		rows = recommender.MergeQuantities(rows, picked)
	}
	if len(opts.items) > 0 {
		picked := make([]recommender.EditorRow, 0, len(opts.items))
		for _, raw := range opts.items {
			row, err := parseItem(raw)
			if err != nil {
				return nil, err
			}
			if p, ok := svc.Catalog().Lookup(row.Name); ok {
				row.ProductID = p.ID
				row.Name = p.Name
			}
			picked = append(picked, row)
		}
		rows = recommender.MergeQuantities(rows, picked)
	}
	return rows, nil
}

// parseItem reads "Name=quantity". The quantity is kept as text for NormalizeRows.
func parseItem(raw string) (recommender.EditorRow, error) {
	name, qty, found := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return recommender.EditorRow{}, fmt.Errorf("invalid --item %q: empty product", raw)
	}
	qty = strings.TrimSpace(qty)
	if !found || qty == "" {
		qty = "1"
	}
	return recommender.EditorRow{Name: name, Quantity: qty}, nil
}

func writeOutput(path string, recs []recommender.Recommendation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := recommender.WriteRecommendationsCSV(f, recs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func printResult(w io.Writer, result recommender.SuggestResult) {
	fmt.Fprintf(w, "Itens no carrinho: %d\n", result.Summary.ItemCount)
	fmt.Fprintf(w, "Subtotal: %s\n", recommender.FormatBRL(result.Summary.Subtotal))
	fmt.Fprintf(w, "Sequência: %v\n", []int(result.Sequence))
	if len(result.Skipped) > 0 {
		names := make([]string, len(result.Skipped))
		for i, line := range result.Skipped {
			names[i] = line.Product.Name
		}
		fmt.Fprintf(w, "Fora do vocabulário: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "==== Recomendações ====")
	for i, rec := range result.Recommendations {
		if rec.Placeholder {
			fmt.Fprintln(w, "  (nenhuma sugestão)")
			continue
		}
		fmt.Fprintf(w, "%2d. %s (score=%.4f)\n", i+1, rec.Name, rec.Score)
	}
}
