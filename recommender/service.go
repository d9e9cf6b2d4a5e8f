package recommender

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Resources bundles everything loaded once at startup. It is read-only after
// construction and shared by every request.
type Resources struct {
	Catalog       *Catalog
	Vocab         *Vocabulary
	Scorer        Scorer
	MaxLen        int
	DefaultTopK   int
	CatalogSource string
}

// LoadResources reads the vocabulary, the catalog and the model described by cfg.
// A missing mapping file or model artifact is fatal; a missing catalog falls back to
// the built-in sample products.
func LoadResources(ctx context.Context, cfg Config, logger zerolog.Logger) (Resources, error) {
	cfg.ApplyDefaults()
	if err := ctx.Err(); err != nil {
		return Resources{}, err
	}

	vocab, err := LoadVocabulary(cfg.MappingsDir, cfg.MaxLen)
	if err != nil {
		return Resources{}, fmt.Errorf("load vocabulary: %w", err)
	}
	if dropped := vocab.Dropped(); len(dropped) > 0 {
		logger.Warn().Strs("keys", dropped).Msg("mapping entries without a usable token were dropped")
	}
	logger.Info().
		Str("dir", cfg.MappingsDir).
		Int("products", vocab.Len()).
		Int("vocab_size", vocab.Size()).
		Int("max_len", vocab.MaxLen()).
		Msg("vocabulary loaded")

	SetColumnCandidates(cfg.Columns)
	catalog, source, err := LoadCatalog(cfg.CatalogPaths)
	if err != nil {
		return Resources{}, fmt.Errorf("load catalog: %w", err)
	}
	if source == "" {
		logger.Warn().Strs("paths", cfg.CatalogPaths).Msg("no catalog file found, using sample products")
	} else {
		logger.Info().Str("path", source).Int("products", catalog.Len()).Bool("legacy", catalog.Legacy()).Msg("catalog loaded")
	}
	if missing := catalogOOV(catalog, vocab); missing > 0 {
		logger.Warn().Int("products", missing).Msg("catalog products without a vocabulary token will never be encoded")
	}

	model, err := NewOrtModel(cfg.Model, vocab.MaxLen(), vocab.Size())
	if err != nil {
		return Resources{}, fmt.Errorf("load model: %w", err)
	}
	sig := model.Signature()
	logger.Info().
		Str("path", sig.Path).
		Str("input", sig.InputName).
		Str("dtype", string(sig.InputDType)).
		Str("output", sig.OutputName).
		Msg("model loaded")

	return Resources{
		Catalog:       catalog,
		Vocab:         vocab,
		Scorer:        model,
		MaxLen:        vocab.MaxLen(),
		DefaultTopK:   cfg.TopK,
		CatalogSource: source,
	}, nil
}

func catalogOOV(c *Catalog, v *Vocabulary) int {
	n := 0
	for _, p := range c.products {
		if _, ok := v.TokenFor(p); !ok {
			n++
		}
	}
	return n
}

// SuggestResult is the outcome of one suggest action.
type SuggestResult struct {
	Recommendations []Recommendation `json:"recommendations"`
	Summary         Summary          `json:"summary"`
	Cart            Cart             `json:"cart"`
	Sequence        Sequence         `json:"sequence"`
	Skipped         []CartLine       `json:"skipped,omitempty"`
}

// Service runs the Normalize, Encode, Predict and Rank chain over shared resources.
type Service struct {
	res    Resources
	logger zerolog.Logger
}

// NewService validates res and wraps it.
func NewService(res Resources, logger zerolog.Logger) (*Service, error) {
	if res.Vocab == nil {
		return nil, errors.New("vocabulary is required")
	}
	if res.Scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if res.Catalog == nil {
		res.Catalog = NewCatalog(nil)
	}
	if res.MaxLen <= 0 {
		res.MaxLen = res.Vocab.MaxLen()
	}
	if res.DefaultTopK <= 0 {
		res.DefaultTopK = 3
	}
	res.DefaultTopK = ClampTopK(res.DefaultTopK)
	return &Service{res: res, logger: logger}, nil
}

// Close releases the scorer.
func (s *Service) Close() error {
	return s.res.Scorer.Close()
}

// Catalog returns the loaded catalog.
func (s *Service) Catalog() *Catalog {
	return s.res.Catalog
}

// DefaultTopK is the number of suggestions used when a caller does not ask for one.
func (s *Service) DefaultTopK() int {
	return s.res.DefaultTopK
}

// MaxLen is the model's input length.
func (s *Service) MaxLen() int {
	return s.res.MaxLen
}

// EditorRows returns the initial editor table: every catalog product at quantity 0.
func (s *Service) EditorRows() []EditorRow {
	return EditorRowsFromCatalog(s.res.Catalog)
}

// Clear resets every quantity of the editor table to 0.
func (s *Service) Clear(rows []EditorRow) []EditorRow {
	return ClearRows(rows)
}

// Suggest normalizes the editor table, encodes the cart, scores it and returns the
// top-K recommendations with the cart summary. topK <= 0 selects the default; larger
// values are clamped to MaxTopK. Only a model failure returns an error.
func (s *Service) Suggest(ctx context.Context, rows []EditorRow, topK int) (SuggestResult, error) {
	start := time.Now()
	defer func() { suggestLatency.Observe(time.Since(start).Seconds()) }()

	if topK <= 0 {
		topK = s.res.DefaultTopK
	}
	topK = ClampTopK(topK)

	norm := NormalizeRows(rows)
	cart := s.res.Catalog.Resolve(norm.Cart)
	enc := EncodeSequence(cart, s.res.Vocab, s.res.MaxLen)
	if n := len(enc.Skipped); n > 0 {
		oovLines.Add(float64(n))
		for _, line := range enc.Skipped {
			s.logger.Debug().Str("product", line.Product.Name).Int("quantity", line.Quantity).Msg("out-of-vocabulary cart line skipped")
		}
	}

	raw, err := s.res.Scorer.Predict(ctx, enc.Sequence)
	if err != nil {
		suggestRequests.WithLabelValues(outcomeError).Inc()
		return SuggestResult{}, fmt.Errorf("predict: %w", err)
	}
	if vs := s.res.Vocab.Size(); len(raw) != vs {
		s.logger.Debug().Int("scores", len(raw)).Int("vocab_size", vs).Msg("score vector and vocabulary sizes differ")
	}

	recs := Rank(raw, cart, s.res.Vocab, topK, s.nameOutside(cart))
	outcome := outcomeOK
	if len(recs) == 1 && recs[0].Placeholder {
		outcome = outcomePlaceholder
		placeholderResults.Inc()
		s.logger.Debug().Int("cart_lines", len(cart)).Msg("no eligible recommendation")
	}
	suggestRequests.WithLabelValues(outcome).Inc()

	return SuggestResult{
		Recommendations: recs,
		Summary:         Summary{ItemCount: norm.ItemCount, Subtotal: norm.Subtotal},
		Cart:            cart,
		Sequence:        enc.Sequence,
		Skipped:         enc.Skipped,
	}, nil
}

// displayName maps a token to the catalog product behind it. Name-keyed vocabularies
// fall back to the key itself; a numeric id unknown to the catalog does not resolve.
func (s *Service) displayName(token int) (Product, bool) {
	key, ok := s.res.Vocab.ProductFor(token)
	if !ok {
		return Product{}, false
	}
	if p, ok := s.res.Catalog.Lookup(key); ok {
		return p, true
	}
	if _, err := strconv.ParseInt(key, 10, 64); err == nil {
		return Product{}, false
	}
	return Product{Name: key}, true
}

// nameOutside resolves tokens like displayName but refuses any product already in
// cart, whichever token the vocabulary reaches it through.
func (s *Service) nameOutside(cart Cart) NameFunc {
	inCart := make(map[string]struct{}, 2*len(cart))
	for _, line := range cart {
		if line.Product.ID > 0 {
			inCart[line.Product.Key()] = struct{}{}
		}
		inCart[NormalizeText(line.Product.Name)] = struct{}{}
	}
	return func(token int) (string, bool) {
		p, ok := s.displayName(token)
		if !ok {
			return "", false
		}
		if p.ID > 0 {
			if _, dup := inCart[p.Key()]; dup {
				return "", false
			}
		}
		if _, dup := inCart[NormalizeText(p.Name)]; dup {
			return "", false
		}
		return p.Name, true
	}
}
