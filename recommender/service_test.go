package recommender

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func newTestService(t *testing.T, vocab *Vocabulary, catalog *Catalog, scores []float32) (*Service, *[]Sequence) {
	t.Helper()
	var seen []Sequence
	scorer := ScoreFunc(func(_ context.Context, seq Sequence) ([]float32, error) {
		seen = append(seen, append(Sequence(nil), seq...))
		return append([]float32(nil), scores...), nil
	})
	svc, err := NewService(Resources{Catalog: catalog, Vocab: vocab, Scorer: scorer}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc, &seen
}

func TestServiceSuggestWorkedExample(t *testing.T) {
	svc, seen := newTestService(t, abVocab(4), abCatalog(), []float32{0.1, 0.9, 0.5})
	rows := svc.EditorRows()
	rows[0].Quantity = "2"

	okBefore := testutil.ToFloat64(suggestRequests.WithLabelValues(outcomeOK))
	res, err := svc.Suggest(context.Background(), rows, 1)
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}
	if got := testutil.ToFloat64(suggestRequests.WithLabelValues(outcomeOK)); got != okBefore+1 {
		t.Errorf("ok counter = %v, want %v", got, okBefore+1)
	}
	if want := (Sequence{0, 0, 1, 1}); !reflect.DeepEqual((*seen)[0], want) || !reflect.DeepEqual(res.Sequence, want) {
		t.Errorf("sequence = %v, want %v", (*seen)[0], want)
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0].Name != "B" || !almostEqual(res.Recommendations[0].Score, 1) {
		t.Errorf("recommendations = %+v", res.Recommendations)
	}
	if res.Summary.ItemCount != 2 || !almostEqual(res.Summary.Subtotal, 20) {
		t.Errorf("summary = %+v", res.Summary)
	}
}

func TestServiceSuggestEmptyCart(t *testing.T) {
	svc, seen := newTestService(t, abVocab(4), abCatalog(), []float32{0.5, 0.2, 0.6})
	res, err := svc.Suggest(context.Background(), svc.EditorRows(), 3)
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}
	if want := (Sequence{0, 0, 0, 0}); !reflect.DeepEqual((*seen)[0], want) {
		t.Errorf("sequence = %v, want %v", (*seen)[0], want)
	}
	names := []string{res.Recommendations[0].Name, res.Recommendations[1].Name}
	if !reflect.DeepEqual(names, []string{"B", "A"}) {
		t.Errorf("names = %v, want [B A]", names)
	}
	if !almostEqual(res.Recommendations[0].Score+res.Recommendations[1].Score, 1) {
		t.Errorf("scores do not sum to 1: %+v", res.Recommendations)
	}
}

func TestServiceSuggestPlaceholder(t *testing.T) {
	svc, _ := newTestService(t, abVocab(4), abCatalog(), []float32{0.4, 0.3, 0.3})
	rows := []EditorRow{{Name: "A", Quantity: 1}, {Name: "B", Quantity: 1}}

	before := testutil.ToFloat64(placeholderResults)
	res, err := svc.Suggest(context.Background(), rows, 3)
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}
	if len(res.Recommendations) != 1 || !res.Recommendations[0].Placeholder {
		t.Errorf("recommendations = %+v, want placeholder", res.Recommendations)
	}
	if got := testutil.ToFloat64(placeholderResults); got != before+1 {
		t.Errorf("placeholder counter = %v, want %v", got, before+1)
	}
}

func TestServiceSuggestOutOfVocabulary(t *testing.T) {
	var buf bytes.Buffer
	scorer := ScoreFunc(func(context.Context, Sequence) ([]float32, error) {
		return []float32{0, 0.5, 0.5}, nil
	})
	svc, err := NewService(Resources{Catalog: abCatalog(), Vocab: abVocab(3), Scorer: scorer}, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	before := testutil.ToFloat64(oovLines)
	res, err := svc.Suggest(context.Background(), []EditorRow{{Name: "Pizza", Quantity: 2}, {Name: "A", Quantity: 1}}, 3)
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}
	if want := (Sequence{0, 0, 1}); !reflect.DeepEqual(res.Sequence, want) {
		t.Errorf("sequence = %v, want %v", res.Sequence, want)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Product.Name != "Pizza" {
		t.Errorf("skipped = %+v", res.Skipped)
	}
	if got := testutil.ToFloat64(oovLines); got != before+1 {
		t.Errorf("oov counter = %v, want %v", got, before+1)
	}
	if !strings.Contains(buf.String(), "out-of-vocabulary") {
		t.Errorf("expected an oov log entry, got %q", buf.String())
	}
	if res.Summary.ItemCount != 3 {
		t.Errorf("ItemCount = %d, want 3", res.Summary.ItemCount)
	}
}

func TestServiceSuggestNumericIDs(t *testing.T) {
	vocab := NewVocabulary(map[string]int{"101": 1, "102": 2, "999": 3}, 4)
	catalog := NewCatalog([]Product{
		{ID: 101, Name: "Hambúrguer", Price: 22},
		{ID: 102, Name: "Batata frita", Price: 12},
	})
	svc, _ := newTestService(t, vocab, catalog, []float32{0, 0.6, 0.1, 0.3})
	res, err := svc.Suggest(context.Background(), []EditorRow{{ProductID: 101, Name: "Hambúrguer", Quantity: 1}}, 3)
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}
	if len(res.Recommendations) != 1 {
		t.Fatalf("recommendations = %+v", res.Recommendations)
	}
	got := res.Recommendations[0]
	if got.Name != "Batata frita" || !almostEqual(got.Score, 0.25) {
		t.Errorf("got %+v, want Batata frita 0.25", got)
	}
}

func idCatalog() *Catalog {
	return NewCatalog([]Product{
		{ID: 11, Name: "A", Price: 5},
		{ID: 12, Name: "B", Price: 3},
	})
}

func TestServiceSuggestNameOnlyRowWithIDVocabulary(t *testing.T) {
	vocab := NewVocabulary(map[string]int{"11": 1, "12": 2}, 4)
	svc, _ := newTestService(t, vocab, idCatalog(), []float32{0, 0.9, 0.1})
	res, err := svc.Suggest(context.Background(), []EditorRow{{Name: "A", Quantity: 2}}, 3)
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}
	if want := (Sequence{0, 0, 1, 1}); !reflect.DeepEqual(res.Sequence, want) {
		t.Errorf("sequence = %v, want %v", res.Sequence, want)
	}
	if len(res.Skipped) != 0 {
		t.Errorf("skipped = %+v, want none", res.Skipped)
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0].Name != "B" || !almostEqual(res.Recommendations[0].Score, 1) {
		t.Errorf("recommendations = %+v, want only B", res.Recommendations)
	}
}

func TestServiceSuggestAliasTokens(t *testing.T) {
	// tokens 1 and 3 both name product 11
	vocab := NewVocabulary(map[string]int{"11": 1, "12": 2, "A": 3}, 4)
	scores := []float32{0, 0.5, 0.2, 0.3}

	t.Run("cart product under another token", func(t *testing.T) {
		svc, _ := newTestService(t, vocab, idCatalog(), scores)
		res, err := svc.Suggest(context.Background(), []EditorRow{{Name: "A", Quantity: 1}}, 3)
		if err != nil {
			t.Fatalf("Suggest error: %v", err)
		}
		for _, r := range res.Recommendations {
			if r.Name == "A" {
				t.Errorf("cart product recommended: %+v", res.Recommendations)
			}
		}
	})
	t.Run("no repeated product", func(t *testing.T) {
		svc, _ := newTestService(t, vocab, idCatalog(), scores)
		res, err := svc.Suggest(context.Background(), nil, 3)
		if err != nil {
			t.Fatalf("Suggest error: %v", err)
		}
		got := make([]string, len(res.Recommendations))
		for i, r := range res.Recommendations {
			got[i] = r.Name
		}
		if !reflect.DeepEqual(got, []string{"A", "B"}) {
			t.Errorf("names = %v, want [A B]", got)
		}
	})
}

func TestServiceSuggestHugeQuantity(t *testing.T) {
	svc, _ := newTestService(t, abVocab(3), abCatalog(), []float32{0, 0.5, 0.5})
	res, err := svc.Suggest(context.Background(), []EditorRow{{Name: "A", Quantity: "1e15"}}, 3)
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}
	if want := (Sequence{1, 1, 1}); !reflect.DeepEqual(res.Sequence, want) {
		t.Errorf("sequence = %v, want %v", res.Sequence, want)
	}
	if res.Summary.ItemCount != MaxQuantity {
		t.Errorf("ItemCount = %d, want %d", res.Summary.ItemCount, MaxQuantity)
	}
}

func TestServiceSuggestModelError(t *testing.T) {
	boom := errors.New("boom")
	scorer := ScoreFunc(func(context.Context, Sequence) ([]float32, error) { return nil, boom })
	svc, err := NewService(Resources{Vocab: abVocab(4), Scorer: scorer}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	before := testutil.ToFloat64(suggestRequests.WithLabelValues(outcomeError))
	_, err = svc.Suggest(context.Background(), nil, 3)
	if !errors.Is(err, boom) || !strings.HasPrefix(err.Error(), "predict:") {
		t.Errorf("err = %v, want wrapped boom", err)
	}
	if got := testutil.ToFloat64(suggestRequests.WithLabelValues(outcomeError)); got != before+1 {
		t.Errorf("error counter = %v, want %v", got, before+1)
	}
}

func TestServiceTopKDefaults(t *testing.T) {
	vocab := NewVocabulary(map[string]int{"A": 1, "B": 2, "C": 3, "D": 4, "E": 5}, 4)
	scorer := ScoreFunc(func(context.Context, Sequence) ([]float32, error) {
		return []float32{0, 0.1, 0.2, 0.3, 0.2, 0.2}, nil
	})
	svc, err := NewService(Resources{Vocab: vocab, Scorer: scorer, DefaultTopK: 2}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	res, _ := svc.Suggest(context.Background(), nil, 0)
	if len(res.Recommendations) != 2 {
		t.Errorf("default topK: got %d recommendations, want 2", len(res.Recommendations))
	}
	res, _ = svc.Suggest(context.Background(), nil, 50)
	if len(res.Recommendations) != 5 {
		t.Errorf("clamped topK: got %d recommendations, want 5", len(res.Recommendations))
	}
	if res.Recommendations[1].Name != "B" && res.Recommendations[1].Name != "C" {
		t.Errorf("unexpected order: %+v", res.Recommendations)
	}
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService(Resources{Scorer: ScoreFunc(nil)}, zerolog.Nop()); err == nil {
		t.Error("expected error without vocabulary")
	}
	if _, err := NewService(Resources{Vocab: abVocab(4)}, zerolog.Nop()); err == nil {
		t.Error("expected error without scorer")
	}
}

func TestServiceClear(t *testing.T) {
	svc, _ := newTestService(t, abVocab(4), abCatalog(), nil)
	rows := svc.EditorRows()
	rows[1].Quantity = 4
	cleared := svc.Clear(rows)
	if cleared[1].Quantity != 0 || rows[1].Quantity != 4 {
		t.Errorf("cleared = %+v, input = %+v", cleared, rows)
	}
}

func TestLoadResourcesMissingMappings(t *testing.T) {
	cfg := Config{MappingsDir: t.TempDir()}
	_, err := LoadResources(context.Background(), cfg, zerolog.Nop())
	if !errors.Is(err, ErrMappingsNotFound) {
		t.Errorf("err = %v, want ErrMappingsNotFound", err)
	}
}

func TestLoadResourcesMissingModel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, productToTokenFile, `{"Suco": 1}`)
	writeFile(t, dir, tokenToProductFile, `{"1": "Suco"}`)
	writeFile(t, dir, metaFile, `{"max_len": 4}`)
	cfg := Config{
		MappingsDir:  dir,
		CatalogPaths: []string{dir + "/none.csv"},
		Model:        ModelConfig{ModelPaths: []string{dir + "/none.onnx"}},
	}
	_, err := LoadResources(context.Background(), cfg, zerolog.Nop())
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("err = %v, want ErrModelNotFound", err)
	}
}

func TestLoadResourcesMalformedCatalog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, productToTokenFile, `{"Suco": 1}`)
	writeFile(t, dir, tokenToProductFile, `{"1": "Suco"}`)
	writeFile(t, dir, metaFile, `{}`)
	bad := writeFile(t, dir, "products.csv", "produto\nSuco\n")
	cfg := Config{MappingsDir: dir, CatalogPaths: []string{bad}}
	_, err := LoadResources(context.Background(), cfg, zerolog.Nop())
	if !errors.Is(err, ErrMissingColumns) {
		t.Errorf("err = %v, want ErrMissingColumns", err)
	}
}
